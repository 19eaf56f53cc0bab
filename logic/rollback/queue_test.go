package rollback

import (
	"testing"
)

func makeInput(frame Frame, b byte) GameInput {
	in := NewGameInput(frame, 1, 1)
	in.Bits[0] = b
	return in
}

func Test_InputQueueAddGet(t *testing.T) {

	q := newInputQueue(32, 1, 1, 0)

	if stored := q.AddInput(0, makeInput(0, 7)); stored != 0 {
		t.Errorf("stored frame[%d] should be [0]", stored)
	}

	in, ok := q.ConfirmedInput(0)
	if !ok || in.Bits[0] != 7 {
		t.Error("confirmed input not found after add")
	}

	// 重复包幂等
	q.AddInput(0, makeInput(0, 7))
	// 不同内容也不允许覆盖
	q.AddInput(0, makeInput(0, 9))

	in, _ = q.ConfirmedInput(0)
	if in.Bits[0] != 7 {
		t.Errorf("confirmed input overwritten: %d", in.Bits[0])
	}

	got, confirmed := q.GetInput(0)
	if !confirmed || got.Bits[0] != 7 {
		t.Error("GetInput should return the confirmed input")
	}
}

func Test_InputQueueDelay(t *testing.T) {

	q := newInputQueue(32, 1, 1, 2)
	if q.FrameDelay() != 2 {
		t.Error("frame delay")
	}

	if stored := q.AddInput(1, makeInput(1, 5)); stored != 3 {
		t.Errorf("stored frame[%d] should be [3]", stored)
	}
	if _, ok := q.ConfirmedInput(1); ok {
		t.Error("frame 1 should not be confirmed")
	}
	in, ok := q.ConfirmedInput(3)
	if !ok || in.Bits[0] != 5 {
		t.Error("delayed input should land on frame 3")
	}
}

func Test_InputQueuePrediction(t *testing.T) {

	q := newInputQueue(32, 1, 1, 0)

	// 什么都没有的时候预测全零
	in, confirmed := q.GetInput(4)
	if confirmed || in.Bits[0] != 0 {
		t.Error("empty queue should predict zero input")
	}
	if pred := q.PredictedInput(4); pred.Frame != 4 {
		t.Error("prediction record not kept")
	}

	q.AddInput(0, makeInput(0, 3))
	q.AddInput(1, makeInput(1, 8))

	// 有确认操作之后按最近一次的内容预测
	in, confirmed = q.GetInput(5)
	if confirmed || in.Bits[0] != 8 {
		t.Errorf("prediction[%d] should repeat last confirmed [8]", in.Bits[0])
	}

	// 同一帧再取，拿到的还是同一份预测
	again, _ := q.GetInput(5)
	if !again.Equal(in, true) {
		t.Error("repeated GetInput should return the recorded prediction")
	}

	q.ResetPrediction(5)
	if pred := q.PredictedInput(5); pred.Frame != FrameNone {
		t.Error("prediction should be cleared")
	}
	// 重复清无害
	q.ResetPrediction(5)

	// 确认操作到了也不动预测记录，留给引擎对账
	q.GetInput(6)
	q.AddInput(6, makeInput(6, 1))
	if pred := q.PredictedInput(6); pred.Frame != 6 || pred.Bits[0] != 8 {
		t.Error("prediction record should survive a confirmed add")
	}
}
