package transport

import (
	"bytes"
	"testing"
)

func Test_Loopback(t *testing.T) {

	a, b := NewLoopbackPair()

	if got := b.Poll(); len(got) != 0 {
		t.Error("fresh loopback should be empty")
	}

	payload := []byte{1, 2, 3}
	a.Send(payload)
	payload[0] = 9 // 发送后改原buffer不该影响收到的内容

	got := b.Poll()
	if len(got) != 1 {
		t.Fatalf("got %d datagrams, want 1", len(got))
	}
	if !bytes.Equal(got[0], []byte{1, 2, 3}) {
		t.Errorf("datagram %v", got[0])
	}

	if got := b.Poll(); len(got) != 0 {
		t.Error("poll should drain")
	}

	b.Send([]byte{4})
	b.Send([]byte{5})
	got = a.Poll()
	if len(got) != 2 || got[0][0] != 4 || got[1][0] != 5 {
		t.Errorf("reverse direction got %v", got)
	}
}
