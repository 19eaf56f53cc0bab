package rollback

import (
	"github.com/pkg/errors"
)

// SavedState 某一帧的存档槽。Data是宿主序列化的状态，引擎不关心内容。
type SavedState struct {
	Frame Frame
	Data  []byte
}

// StateStorage 帧号到存档的环形缓冲，第f帧落在 f mod 容量 的槽位上
type StateStorage struct {
	cells []SavedState
}

func newStateStorage(capacity int) *StateStorage {
	s := &StateStorage{
		cells: make([]SavedState, capacity),
	}
	for i := range s.cells {
		s.cells[i].Frame = FrameNone
	}
	return s
}

// SaveSlot 占住frame帧的槽位，原来住这里的帧直接被顶掉
func (s *StateStorage) SaveSlot(frame Frame) *SavedState {
	cell := &s.cells[int(frame)%len(s.cells)]
	cell.Frame = frame
	cell.Data = nil
	return cell
}

// LoadSlot 取frame帧的存档槽位
func (s *StateStorage) LoadSlot(frame Frame) (*SavedState, error) {
	if frame < 0 {
		return nil, errors.Wrapf(ErrFrameOutOfWindow, "frame %d", frame)
	}
	cell := &s.cells[int(frame)%len(s.cells)]
	if cell.Frame != frame {
		return nil, errors.Wrapf(ErrFrameOutOfWindow, "frame %d, slot holds %d", frame, cell.Frame)
	}
	if nil == cell.Data {
		return nil, errors.Wrapf(ErrMissingState, "frame %d", frame)
	}
	return cell, nil
}
