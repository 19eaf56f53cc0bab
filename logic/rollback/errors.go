package rollback

import (
	"github.com/pkg/errors"
)

var (
	// ErrSizeMismatch 提交的操作字节数和 player_count*input_size 对不上
	ErrSizeMismatch = errors.New("input size mismatch")

	// ErrWrongDeviceRole 本地操作提交到了远端设备，或者反过来
	ErrWrongDeviceRole = errors.New("wrong device role")

	// ErrFrameOutOfWindow 请求的帧不在环形缓冲的槽位里：负帧号、已被覆盖或从没存过
	ErrFrameOutOfWindow = errors.New("frame out of window")

	// ErrMissingState 槽位里没有存档，调度出了bug
	ErrMissingState = errors.New("missing state")

	// ErrMalformedMessage 解不开的报文，丢弃，不致命
	ErrMalformedMessage = errors.New("malformed message")

	// ErrUnknownSender 没注册过的设备发来的报文，丢弃
	ErrUnknownSender = errors.New("unknown sender")

	// ErrNotRunning 握手还没完成
	ErrNotRunning = errors.New("session not running")
)
