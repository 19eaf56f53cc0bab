package rollback

import (
	"testing"

	"github.com/pkg/errors"
)

func Test_GameInput(t *testing.T) {

	in := NewGameInput(3, 2, 2)
	if in.Size() != 4 {
		t.Errorf("size[%d] should be [4]", in.Size())
	}
	for _, b := range in.Bits {
		if b != 0 {
			t.Error("new input should be zero filled")
		}
	}

	if err := in.SetInput(0, 1, []byte{1, 2}); nil != err {
		t.Error(err)
	}
	if err := in.SetInput(1, 1, []byte{3, 4}); nil != err {
		t.Error(err)
	}
	if in.Bits[0] != 1 || in.Bits[1] != 2 || in.Bits[2] != 3 || in.Bits[3] != 4 {
		t.Error("bits not written at player offsets")
	}

	err := in.SetInput(0, 2, []byte{1})
	if errors.Cause(err) != ErrSizeMismatch {
		t.Errorf("want ErrSizeMismatch, got %v", err)
	}
}

func Test_GameInputEqual(t *testing.T) {

	a := NewGameInput(1, 2, 1)
	b := NewGameInput(2, 2, 1)

	if !a.Equal(b, false) {
		t.Error("same bits should be equal without frame")
	}
	if a.Equal(b, true) {
		t.Error("different frames should not be equal with frame")
	}

	b.Bits[0] = 9
	if a.Equal(b, false) {
		t.Error("different bits should not be equal")
	}
}
