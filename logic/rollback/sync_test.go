package rollback

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/byebyebruce/rollbacknet/pkg/transport"
)

// fakeGame 只有校验和的宿主模拟，照单执行指令
type fakeGame struct {
	frame Frame
	hash  uint64
}

func (g *fakeGame) exec(t *testing.T, actions []Action) {
	for _, act := range actions {
		switch a := act.(type) {
		case *SaveAction:
			buff := make([]byte, 12)
			binary.LittleEndian.PutUint32(buff, uint32(g.frame))
			binary.LittleEndian.PutUint64(buff[4:], g.hash)
			a.State.Data = buff
		case *LoadAction:
			if len(a.State.Data) < 12 {
				t.Fatalf("load frame %d without saved data", a.Frame)
			}
			g.frame = Frame(binary.LittleEndian.Uint32(a.State.Data))
			g.hash = binary.LittleEndian.Uint64(a.State.Data[4:])
		case *AdvanceAction:
			g.frame++
			for _, b := range a.Inputs {
				g.hash = g.hash*131 + uint64(b) + 1
			}
		}
	}
}

func describe(actions []Action) []string {
	var ret []string
	for _, act := range actions {
		switch a := act.(type) {
		case *SaveAction:
			ret = append(ret, fmt.Sprintf("save(%d)", a.Frame))
		case *LoadAction:
			ret = append(ret, fmt.Sprintf("load(%d)", a.Frame))
		case *AdvanceAction:
			ret = append(ret, fmt.Sprintf("advance(%d)", a.Frame))
		}
	}
	return ret
}

// newPair 造两个互联的会话并跑完握手
func newPair(t *testing.T, cfg Config, delay int) (*Session, *Session) {
	a := NewSession(cfg)
	b := NewSession(cfg)

	pa, pb := transport.NewLoopbackPair()

	if err := a.SetLocalDevice(0, 1, delay, nil); nil != err {
		t.Fatal(err)
	}
	if err := a.AddRemoteDevice(1, 1, pa); nil != err {
		t.Fatal(err)
	}
	if err := b.SetLocalDevice(1, 1, delay, nil); nil != err {
		t.Fatal(err)
	}
	if err := b.AddRemoteDevice(0, 1, pb); nil != err {
		t.Fatal(err)
	}

	for i := 0; i < 10 && !(a.IsRunning() && b.IsRunning()); i++ {
		a.Poll()
		b.Poll()
	}
	if !a.IsRunning() || !b.IsRunning() {
		t.Fatal("handshake did not finish")
	}

	return a, b
}

func Test_LockstepTwoPeers(t *testing.T) {

	a, b := newPair(t, DefaultConfig(1), 0)
	ga, gb := &fakeGame{}, &fakeGame{}

	var gotA, gotB []string

	for i := 0; i < 60; i++ {
		a.Poll()
		b.Poll()

		actsA, err := a.AdvanceFrame([]byte{0})
		if nil != err {
			t.Fatal(err)
		}
		ga.exec(t, actsA)
		gotA = append(gotA, describe(actsA)...)

		actsB, err := b.AdvanceFrame([]byte{0})
		if nil != err {
			t.Fatal(err)
		}
		gb.exec(t, actsB)
		gotB = append(gotB, describe(actsB)...)

		// sync_frame <= min(local, remote) 并且回滚窗口不被突破
		st := a.Stats()
		if st.SyncFrame > st.LocalFrame || st.SyncFrame > st.RemoteFrame {
			t.Fatalf("sync frame %d ahead of local %d / remote %d", st.SyncFrame, st.LocalFrame, st.RemoteFrame)
		}
		if int(st.LocalFrame-st.SyncFrame) > DefaultMaxRollbackFrames {
			t.Fatalf("local %d ran away from sync %d", st.LocalFrame, st.SyncFrame)
		}
	}

	want := []string{"save(0)"}
	for f := 1; f <= 60; f++ {
		want = append(want, fmt.Sprintf("advance(%d)", f), fmt.Sprintf("save(%d)", f))
	}

	for _, got := range [][]string{gotA, gotB} {
		if len(got) != len(want) {
			t.Fatalf("directive count[%d] should be [%d]: %v", len(got), len(want), got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("directive[%d] = %s, want %s", i, got[i], want[i])
			}
		}
	}

	if ga.hash != gb.hash {
		t.Errorf("peers diverged: %x vs %x", ga.hash, gb.hash)
	}
	if ga.frame != 60 || gb.frame != 60 {
		t.Errorf("frames[%d,%d] should be [60,60]", ga.frame, gb.frame)
	}
}

func Test_RollbackOnMismatch(t *testing.T) {

	// 把节流阈值调大，让A能一个人跑到第8帧
	cfg := Config{InputSize: 1, MinFrameAdvantage: 100}
	a, b := newPair(t, cfg, 0)
	ga, gb := &fakeGame{}, &fakeGame{}

	// 前4帧两边都是0x00，互相都确认了
	for i := 0; i < 4; i++ {
		a.Poll()
		acts, err := a.AdvanceFrame([]byte{0})
		if nil != err {
			t.Fatal(err)
		}
		ga.exec(t, acts)

		b.Poll()
		acts, err = b.AdvanceFrame([]byte{0})
		if nil != err {
			t.Fatal(err)
		}
		gb.exec(t, acts)
	}

	// A不再收包，5到8帧只能预测B还是0x00
	for i := 0; i < 4; i++ {
		acts, err := a.AdvanceFrame([]byte{0})
		if nil != err {
			t.Fatal(err)
		}
		ga.exec(t, acts)
	}
	if st := a.Stats(); st.LocalFrame != 8 {
		t.Fatalf("local frame[%d] should be [8]", st.LocalFrame)
	}

	// B这几帧实际提交的是0x01
	for i := 0; i < 4; i++ {
		acts, err := b.AdvanceFrame([]byte{1})
		if nil != err {
			t.Fatal(err)
		}
		gb.exec(t, acts)
	}

	// A把B的包一口气吃进来，预测错就该回滚
	a.Poll()
	acts, err := a.AdvanceFrame([]byte{0})
	if nil != err {
		t.Fatal(err)
	}
	got := describe(acts)
	ga.exec(t, acts)

	want := []string{
		"load(4)",
		"advance(5)", "save(5)",
		"advance(6)", "save(6)",
		"advance(7)", "save(7)",
		"advance(8)", "save(8)",
	}
	if len(got) < len(want) {
		t.Fatalf("directives %v should start with %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("directive[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	st := a.Stats()
	if st.Rollbacks != 1 {
		t.Errorf("rollbacks[%d] should be [1]", st.Rollbacks)
	}
	if st.Mispredicts == 0 {
		t.Error("mispredict not counted")
	}
}

func Test_AdvantageStall(t *testing.T) {

	cfg := DefaultConfig(1)
	s := NewSession(cfg)

	pa, pb := transport.NewLoopbackPair()
	if err := s.SetLocalDevice(0, 1, 0, nil); nil != err {
		t.Fatal(err)
	}
	if err := s.AddRemoteDevice(1, 1, pa); nil != err {
		t.Fatal(err)
	}

	// 对端只回握手，之后一声不吭
	s.Poll()
	pb.Poll()
	pb.Send(syncReplyFor(s, 1).Marshal())
	s.Poll()
	if !s.IsRunning() {
		t.Fatal("handshake did not finish")
	}

	g := &fakeGame{}

	// 第一个tick：初始存档加推进第1帧
	acts, err := s.AdvanceFrame([]byte{0})
	if nil != err {
		t.Fatal(err)
	}
	g.exec(t, acts)
	got := describe(acts)
	want := []string{"save(0)", "advance(1)", "save(1)"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("directive[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	acts, err = s.AdvanceFrame([]byte{0})
	if nil != err {
		t.Fatal(err)
	}
	g.exec(t, acts)

	// 领先太多，这个tick不许走
	acts, err = s.AdvanceFrame([]byte{0})
	if nil != err {
		t.Fatal(err)
	}
	for _, d := range describe(acts) {
		if d == "advance(3)" {
			t.Error("stalled tick should not advance")
		}
	}

	st := s.Stats()
	if st.LocalFrame != 2 {
		t.Errorf("local frame[%d] should be [2]", st.LocalFrame)
	}
	if st.StalledTicks != 1 {
		t.Errorf("stalled ticks[%d] should be [1]", st.StalledTicks)
	}
}
