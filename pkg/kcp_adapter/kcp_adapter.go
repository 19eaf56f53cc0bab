package kcp_adapter

import (
	"net"
	"time"

	"github.com/byebyebruce/rollbacknet/pkg/network"
	"github.com/byebyebruce/rollbacknet/pkg/packet/bin_packet"

	l4g "github.com/alecthomas/log4go"
	"github.com/xtaci/kcp-go"
)

const inboxLimit = 1024

// Adapter 一条KCP连接上的报文通道，给会话当transport.Adapter用
type Adapter struct {
	conn  *network.Conn
	inbox chan []byte
}

// Send 尽力而为地发一条报文，发送队列满了就丢
func (a *Adapter) Send(datagram []byte) {
	p := bin_packet.NewPacket(datagram)
	if nil == p {
		return
	}
	a.conn.AsyncWritePacket(p, 0)
}

// Poll 取走攒下的报文
func (a *Adapter) Poll() [][]byte {
	var ret [][]byte
	for {
		select {
		case b := <-a.inbox:
			ret = append(ret, b)
		default:
			return ret
		}
	}
}

// Close 关掉底下的连接
func (a *Adapter) Close() {
	a.conn.Close()
}

// IsClosed 连接是不是已经断了
func (a *Adapter) IsClosed() bool {
	return a.conn.IsClosed()
}

type handler struct {
	accept func(*Adapter)
}

func (h *handler) OnConnect(c *network.Conn) bool {
	a := &Adapter{
		conn:  c,
		inbox: make(chan []byte, inboxLimit),
	}
	c.PutExtraData(a)

	l4g.Info("[kcp_adapter] connect %s", c.GetRawConn().RemoteAddr())

	if nil != h.accept {
		h.accept(a)
	}
	return true
}

func (h *handler) OnMessage(c *network.Conn, p network.Packet) bool {
	a, ok := c.GetExtraData().(*Adapter)
	if !ok {
		return false
	}
	msg, ok := p.(*bin_packet.Packet)
	if !ok {
		return false
	}

	// 攒包队列满了就丢，会话靠冗余窗口补
	select {
	case a.inbox <- msg.Datagram():
	default:
	}
	return true
}

func (h *handler) OnClose(c *network.Conn) {
	l4g.Warn("[kcp_adapter] close %s", c.GetRawConn().RemoteAddr())
}

func defaultConfig() *network.Config {
	return &network.Config{
		PacketReceiveChanLimit: 1024,
		PacketSendChanLimit:    1024,
		ConnReadTimeout:        time.Second * 5,
		ConnWriteTimeout:       time.Second * 5,
	}
}

func tune(conn net.Conn) {
	// 极速模式：ikcp_nodelay(kcp, 1, 10, 2, 1)
	kcpConn, ok := conn.(*kcp.UDPSession)
	if !ok {
		return
	}
	kcpConn.SetNoDelay(1, 10, 2, 1)
	kcpConn.SetStreamMode(true)
	kcpConn.SetWindowSize(4096, 4096)
	kcpConn.SetReadBuffer(4 * 1024 * 1024)
	kcpConn.SetWriteBuffer(4 * 1024 * 1024)
	kcpConn.SetACKNoDelay(true)
}

// ListenAndServe 接受对端进来连。每有一个对端连上来就把它的Adapter交给accept。
func ListenAndServe(addr string, accept func(*Adapter)) (*network.Server, error) {
	l, err := kcp.Listen(addr)
	if nil != err {
		return nil, err
	}

	server := network.NewServer(defaultConfig(), &handler{accept: accept}, &bin_packet.MsgProtocol{})
	go server.Start(l, func(conn net.Conn, s *network.Server) *network.Conn {
		tune(conn)
		return network.NewConn(conn, s)
	})

	return server, nil
}

// Dial 主动连对端
func Dial(addr string) (*Adapter, error) {
	c, err := kcp.Dial(addr)
	if nil != err {
		return nil, err
	}
	tune(c)

	h := &handler{}
	var ret *Adapter
	h.accept = func(a *Adapter) {
		ret = a
	}

	// 不监听，只借Server装配置和退出通知
	srv := network.NewServer(defaultConfig(), h, &bin_packet.MsgProtocol{})
	conn := network.NewConn(c, srv)
	conn.Do()

	return ret, nil
}
