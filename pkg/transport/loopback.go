package transport

const loopbackChanLimit = 1024

// Loopback 进程内的可靠环回通道，测试和单机演示用
type Loopback struct {
	peer *Loopback
	in   chan []byte
}

// NewLoopbackPair 构造一对互联的环回通道
func NewLoopbackPair() (*Loopback, *Loopback) {
	a := &Loopback{in: make(chan []byte, loopbackChanLimit)}
	b := &Loopback{in: make(chan []byte, loopbackChanLimit)}
	a.peer = b
	b.peer = a
	return a, b
}

func (l *Loopback) Send(datagram []byte) {
	buff := make([]byte, len(datagram))
	copy(buff, datagram)

	// 队列满了就丢，跟真UDP一样
	select {
	case l.peer.in <- buff:
	default:
	}
}

func (l *Loopback) Poll() [][]byte {
	var ret [][]byte
	for {
		select {
		case b := <-l.in:
			ret = append(ret, b)
		default:
			return ret
		}
	}
}
