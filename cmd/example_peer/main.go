package main

//-----------------------------------
//File:main.go
//Desc:回滚同步演示节点，两个进程互连跑同一局模拟
//-----------------------------------

import (
	"encoding/binary"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/byebyebruce/rollbacknet/config"
	"github.com/byebyebruce/rollbacknet/internal/telemetry"
	"github.com/byebyebruce/rollbacknet/logic/rollback"
	"github.com/byebyebruce/rollbacknet/pkg/kcp_adapter"
	"github.com/byebyebruce/rollbacknet/pkg/log4gox"
	"github.com/byebyebruce/rollbacknet/util"

	l4g "github.com/alecthomas/log4go"
)

var (
	localID    = flag.Uint("id", 0, "local device id")
	remoteID   = flag.Uint("remote", 1, "remote device id")
	listenAddr = flag.String("listen", "", "listen address(':10086' means use $localip:10086)")
	peerAddr   = flag.String("connect", "", "remote peer address")
	frameDelay = flag.Int("delay", 2, "local input frame delay")
	maxFrames  = flag.Int("frames", 600, "frames to simulate")
	gWeb       = flag.String("web", "", "debug http listen address")
	configFile = flag.String("config", "", "config file")
)

// demoGame 一个只有校验和的"游戏"，两端最终hash一致就说明同步是对的
type demoGame struct {
	frame int32
	hash  uint64
}

func (g *demoGame) advance(inputs []byte) {
	g.frame++
	for _, b := range inputs {
		g.hash = g.hash*131 + uint64(b) + 1
	}
}

func (g *demoGame) save() []byte {
	buff := make([]byte, 12)
	binary.LittleEndian.PutUint32(buff, uint32(g.frame))
	binary.LittleEndian.PutUint64(buff[4:], g.hash)
	return buff
}

func (g *demoGame) load(data []byte) {
	if len(data) < 12 {
		return
	}
	g.frame = int32(binary.LittleEndian.Uint32(data))
	g.hash = binary.LittleEndian.Uint64(data[4:])
}

// Init 初始化
func Init() bool {
	l4g.AddFilter("stdout", l4g.DEBUG, log4gox.NewColorConsoleLogWriter())

	if len(*configFile) > 0 {
		if err := config.LoadConfig(*configFile); nil != err {
			panic(fmt.Sprintf("[main] load config %v fail: %v", *configFile, err))
		}
	}
	if len(*listenAddr) > 0 {
		config.Cfg.OutAddress = *listenAddr
	}
	if len(*peerAddr) > 0 {
		config.Cfg.PeerAddress = *peerAddr
	}

	if len(*gWeb) > 0 {
		http.Handle("/metrics", telemetry.MetricsHandler())
		go func() {
			if e := http.ListenAndServe(*gWeb, nil); nil != e {
				panic(e)
			}
		}()
		l4g.Info("[main] http.ListenAndServe port=[%s]", *gWeb)
	}

	return true
}

// Run 运行
func Run() {

	defer func() {
		time.Sleep(time.Millisecond * 100)
		l4g.Warn("[main] peer %d quit", *localID)
		l4g.Global.Close()
	}()

	session := rollback.NewSession(config.Cfg.Rollback())
	if err := session.SetLocalDevice(rollback.DeviceID(*localID), 1, *frameDelay, nil); nil != err {
		panic(err)
	}

	var adapter *kcp_adapter.Adapter
	if len(config.Cfg.PeerAddress) > 0 {
		a, err := kcp_adapter.Dial(config.Cfg.PeerAddress)
		if nil != err {
			panic(err)
		}
		adapter = a
		l4g.Info("[main] kcp.Dial addr=[%s]", config.Cfg.PeerAddress)
	} else {
		addr := config.Cfg.OutAddress
		show := addr
		if strings.HasPrefix(addr, ":") {
			show = util.GetOutboundIP().String() + addr
		}

		accepted := make(chan *kcp_adapter.Adapter, 1)
		server, err := kcp_adapter.ListenAndServe(addr, func(a *kcp_adapter.Adapter) {
			select {
			case accepted <- a:
			default:
			}
		})
		if nil != err {
			panic(err)
		}
		defer server.Stop()

		l4g.Info("[main] kcp.Listen addr=[%s] waiting for peer...", show)
		adapter = <-accepted
	}

	if err := session.AddRemoteDevice(rollback.DeviceID(*remoteID), 1, adapter); nil != err {
		panic(err)
	}

	game := &demoGame{}

	ticker := time.NewTicker(time.Second / 30)
	defer ticker.Stop()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, os.Interrupt)

	l4g.Warn("[main] peer %d running...", *localID)

	tick := 0

QUIT:
	for {
		select {
		case sig := <-sigs:
			l4g.Info("Signal: %s", sig.String())
			break QUIT
		case <-ticker.C:
			session.Poll()
			if !session.IsRunning() {
				continue
			}

			tick++
			input := make([]byte, config.Cfg.InputSize)
			for i := range input {
				input[i] = byte(tick >> (8 * i))
			}

			actions, err := session.AdvanceFrame(input)
			if nil != err {
				l4g.Error("[main] advance error: %v", err)
				break QUIT
			}

			for _, act := range actions {
				switch a := act.(type) {
				case *rollback.SaveAction:
					a.State.Data = game.save()
				case *rollback.LoadAction:
					game.load(a.State.Data)
				case *rollback.AdvanceAction:
					game.advance(a.Inputs)
				}
			}

			if game.frame > 0 && game.frame%30 == 0 {
				st := session.Stats()
				l4g.Info("[main] frame=%d hash=%x sync=%d stalls=%d rollbacks=%d",
					game.frame, game.hash, st.SyncFrame, st.StalledTicks, st.Rollbacks)

				if d := session.Device(rollback.DeviceID(*remoteID)); nil != d && !d.IsAlive(time.Now()) {
					l4g.Warn("[main] device[%d] network is bad, rtt=%v", d.ID, d.RoundTrip())
				}
			}

			if int(game.frame) >= *maxFrames {
				break QUIT
			}
		}
	}

	st := session.Stats()
	l4g.Warn("[main] done frame=%d hash=%x rollbacks=%d resimulated=%d",
		game.frame, game.hash, st.Rollbacks, st.RolledBackFrames)
}

func main() {
	flag.Parse()

	if Init() {
		Run()
	} else {
		fmt.Printf("[main] launch fail")
	}
}
