package rollback

import (
	"bytes"

	"github.com/pkg/errors"
)

// Frame 帧号。-1表示还没有帧，第一个真实帧是0。
type Frame int32

const (
	FrameNone    Frame = -1
	InitialFrame Frame = 0
)

// GameInput 一台设备某一帧的操作数据，构造之后不再修改
type GameInput struct {
	Frame Frame
	Bits  []byte

	size    int // 每个玩家的字节数
	players int
}

// NewGameInput 构造一条全零的操作
func NewGameInput(frame Frame, size, players int) GameInput {
	return GameInput{
		Frame:   frame,
		Bits:    make([]byte, size*players),
		size:    size,
		players: players,
	}
}

// SetInput 从offset个玩家开始写入players个玩家的操作
func (g *GameInput) SetInput(offset, players int, bits []byte) error {
	if len(bits) != players*g.size {
		return errors.Wrapf(ErrSizeMismatch, "got %d bytes, want %d", len(bits), players*g.size)
	}
	copy(g.Bits[offset*g.size:], bits)
	return nil
}

// Equal 按字节比较操作数据，withFrame时还要求帧号一致
func (g GameInput) Equal(other GameInput, withFrame bool) bool {
	if withFrame && g.Frame != other.Frame {
		return false
	}
	return bytes.Equal(g.Bits, other.Bits)
}

// Size 所有玩家的操作字节总数
func (g GameInput) Size() int {
	return len(g.Bits)
}

func (g GameInput) clone() GameInput {
	c := g
	c.Bits = make([]byte, len(g.Bits))
	copy(c.Bits, g.Bits)
	return c
}
