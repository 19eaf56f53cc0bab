package transport

// Adapter 某个远端设备的报文通道。Send和Poll都不允许阻塞：
// 发送是尽力而为，接收方用缓冲队列攒包，由会话在每次Poll时一次性取走。
type Adapter interface {
	// Send 发送一条报文，不保证到达
	Send(datagram []byte)

	// Poll 取走上次调用之后收到的所有报文
	Poll() [][]byte
}
