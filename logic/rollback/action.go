package rollback

// Action 引擎发给宿主游戏循环的指令，必须按列表顺序执行。
// 三种变体：存档、读档、推进一帧。宿主对类型做switch分发。
type Action interface {
	isAction()
}

// SaveAction 把当前游戏状态序列化后写进State.Data
type SaveAction struct {
	Frame Frame
	State *SavedState
}

func (*SaveAction) isAction() {}

// LoadAction 用State.Data恢复游戏状态
type LoadAction struct {
	Frame Frame
	State *SavedState
}

func (*LoadAction) isAction() {}

// AdvanceAction 用合并操作把模拟往前推一帧。
// Inputs是所有设备的操作按设备编号升序拼接的结果。
type AdvanceAction struct {
	Frame  Frame
	Inputs []byte
}

func (*AdvanceAction) isAction() {}
