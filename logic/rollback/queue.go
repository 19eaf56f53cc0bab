package rollback

// InputQueue 一台设备的操作序列，确认操作和预测操作各占一个环形缓冲。
// 本地队列带frame delay：第f帧提交的操作在f+delay帧生效，远端队列delay为0。
type InputQueue struct {
	inputSize  int
	players    int
	frameDelay int
	capacity   Frame

	inputs      []GameInput // 已确认的操作
	predictions []GameInput // 预测记录，等引擎对账后清掉

	last GameInput // 最近确认的操作，预测的蓝本
}

func newInputQueue(capacity, inputSize, players, frameDelay int) *InputQueue {
	q := &InputQueue{
		inputSize:   inputSize,
		players:     players,
		frameDelay:  frameDelay,
		capacity:    Frame(capacity),
		inputs:      make([]GameInput, capacity),
		predictions: make([]GameInput, capacity),
		last:        GameInput{Frame: FrameNone},
	}
	for i := range q.inputs {
		q.inputs[i].Frame = FrameNone
		q.predictions[i].Frame = FrameNone
	}
	return q
}

// FrameDelay 队列的延迟帧数
func (q *InputQueue) FrameDelay() int {
	return q.frameDelay
}

// AddInput 把frame帧的操作存成确认操作，返回实际落到的帧。
// 已有同帧确认操作时什么都不做：重复包幂等，不同内容也不允许覆盖。
func (q *InputQueue) AddInput(frame Frame, in GameInput) Frame {
	target := frame + Frame(q.frameDelay)
	if target < 0 {
		return FrameNone
	}

	slot := &q.inputs[target%q.capacity]
	if slot.Frame == target {
		return target
	}

	stored := in.clone()
	stored.Frame = target
	*slot = stored

	if target > q.last.Frame {
		q.last = stored
	}

	return target
}

// ConfirmedInput 取frame帧的确认操作，没有副作用
func (q *InputQueue) ConfirmedInput(frame Frame) (GameInput, bool) {
	if frame < 0 {
		return GameInput{Frame: FrameNone}, false
	}
	slot := q.inputs[frame%q.capacity]
	if slot.Frame == frame {
		return slot, true
	}
	return GameInput{Frame: FrameNone}, false
}

// GetInput 取frame帧的操作。没有确认操作就按最近一次确认的内容合成预测，
// 记下预测记录并返回。返回值第二项表示拿到的是不是确认操作。
func (q *InputQueue) GetInput(frame Frame) (GameInput, bool) {
	if in, ok := q.ConfirmedInput(frame); ok {
		return in, true
	}
	if frame < 0 {
		return NewGameInput(frame, q.inputSize, q.players), false
	}

	slot := &q.predictions[frame%q.capacity]
	if slot.Frame == frame {
		return *slot, false
	}

	pred := NewGameInput(frame, q.inputSize, q.players)
	if q.last.Frame != FrameNone {
		copy(pred.Bits, q.last.Bits)
	}
	*slot = pred

	return pred, false
}

// PredictedInput frame帧的预测记录，没有时Frame为-1
func (q *InputQueue) PredictedInput(frame Frame) GameInput {
	if frame < 0 {
		return GameInput{Frame: FrameNone}
	}
	slot := q.predictions[frame%q.capacity]
	if slot.Frame == frame {
		return slot
	}
	return GameInput{Frame: FrameNone}
}

// ResetPrediction 清掉frame帧的预测记录，重复调用无害
func (q *InputQueue) ResetPrediction(frame Frame) {
	if frame < 0 {
		return
	}
	slot := &q.predictions[frame%q.capacity]
	if slot.Frame == frame {
		slot.Frame = FrameNone
		slot.Bits = nil
	}
}
