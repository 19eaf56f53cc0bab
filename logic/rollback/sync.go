package rollback

import (
	"github.com/byebyebruce/rollbacknet/internal/telemetry"
	"github.com/byebyebruce/rollbacknet/pkg/packet/bin_packet"

	l4g "github.com/alecthomas/log4go"
	"github.com/pkg/errors"
)

// AdvanceFrame 跑一个tick，返回宿主必须按顺序执行的指令列表。
// bits是本帧的本地操作，传nil表示用之前AddLocalInput暂存的（都没有就是全零）。
//
// 一个tick里依次做四件事：对完账的帧往前推(updateSyncFrame)、
// 第0帧先存一次档、预测错了就回滚重演、对表允许的话本地推进一帧。
func (s *Session) AdvanceFrame(bits []byte) ([]Action, error) {
	if !s.running {
		return nil, errors.Wrap(ErrNotRunning, "handshake not finished")
	}
	if nil != bits {
		if err := s.AddLocalInput(bits); err != nil {
			return nil, err
		}
	}

	mayAdvance := s.ts.isTimeSynced(s.devices)
	s.updateSyncFrame()

	var actions []Action

	if InitialFrame == s.ts.localFrame && !s.savedInitial {
		s.savedInitial = true
		actions = append(actions, s.saveAction(InitialFrame))
	}

	if s.shouldRollback() {
		var err error
		actions, err = s.appendRollback(actions)
		if nil != err {
			return nil, err
		}
	}

	if mayAdvance {
		s.ts.localFrame++
		f := s.ts.localFrame

		in := NewGameInput(f, s.cfg.InputSize, s.local.PlayerCount)
		copy(in.Bits, s.pending)
		s.pending = s.pending[:0]
		s.local.queue.AddInput(f, in)

		s.broadcastInputs()

		actions = append(actions, s.advanceAction(f), s.saveAction(f))
	} else {
		s.stalls++
		telemetry.StalledTicks.WithLabelValues(s.label).Inc()
		l4g.Debug("[session(%s)] stall at frame %d, advantage=%d", s.label, s.ts.localFrame, s.ts.localAdvantage())
	}

	telemetry.LocalFrame.WithLabelValues(s.label).Set(float64(s.ts.localFrame))
	telemetry.SyncFrame.WithLabelValues(s.label).Set(float64(s.ts.syncFrame))

	return actions, nil
}

// updateSyncFrame 从syncFrame+1扫到min(remote, local)，把已有确认操作的
// 预测记录逐帧对账。对上就清记录接着扫，对不上就把syncFrame卡在出错帧之前。
func (s *Session) updateSyncFrame() {
	ceiling := s.ts.remoteFrame
	if s.ts.localFrame < ceiling {
		ceiling = s.ts.localFrame
	}
	if ceiling <= s.ts.syncFrame {
		return
	}

	mistake := FrameNone

scan:
	for i := s.ts.syncFrame + 1; i <= ceiling; i++ {
		for _, d := range s.devices {
			pred := d.queue.PredictedInput(i)
			if FrameNone == pred.Frame {
				continue
			}
			conf, ok := d.queue.ConfirmedInput(i)
			if !ok {
				continue
			}

			d.queue.ResetPrediction(i)

			if !pred.Equal(conf, false) {
				mistake = i
				s.mispredicts++
				telemetry.Mispredictions.WithLabelValues(s.label).Inc()
				l4g.Debug("[session(%s)] mispredict device[%d] frame %d", s.label, d.ID, i)
				break scan
			}
		}
	}

	if FrameNone != mistake {
		s.ts.syncFrame = mistake - 1
	} else {
		s.ts.syncFrame = ceiling
	}
}

// shouldRollback 要不要回滚：syncFrame落后于本地帧，并且中间至少有
// 一帧所有设备的操作都已经是确认的，回滚重演才有的放矢
func (s *Session) shouldRollback() bool {
	sf, lf := s.ts.syncFrame, s.ts.localFrame
	if sf >= lf {
		return false
	}

	for i := sf + 1; i <= lf; i++ {
		all := true
		for _, d := range s.devices {
			if _, ok := d.queue.ConfirmedInput(i); !ok {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}

	return false
}

// appendRollback 读回syncFrame的存档，逐帧重演到本地帧。
// 每帧先Advance后Save，宿主照单执行完状态就和确认操作一致了。
func (s *Session) appendRollback(actions []Action) ([]Action, error) {
	sf, lf := s.ts.syncFrame, s.ts.localFrame

	cell, err := s.storage.LoadSlot(sf)
	if nil != err {
		return nil, errors.Wrapf(err, "rollback to frame %d", sf)
	}
	actions = append(actions, &LoadAction{Frame: sf, State: cell})

	for i := sf + 1; i <= lf; i++ {
		actions = append(actions, s.advanceAction(i), s.saveAction(i))
	}

	s.rollbacks++
	s.rolledBackFrames += uint64(lf - sf)
	telemetry.RollbacksTotal.WithLabelValues(s.label).Inc()
	telemetry.RolledBackFrames.WithLabelValues(s.label).Add(float64(lf - sf))
	l4g.Info("[session(%s)] rollback to frame %d, resimulate %d frames", s.label, sf, lf-sf)

	return actions, nil
}

func (s *Session) saveAction(f Frame) Action {
	return &SaveAction{Frame: f, State: s.storage.SaveSlot(f)}
}

func (s *Session) advanceAction(f Frame) Action {
	return &AdvanceAction{Frame: f, Inputs: s.combinedInputs(f)}
}

// combinedInputs 所有设备f帧的操作按设备编号升序拼接
func (s *Session) combinedInputs(f Frame) []byte {
	size := 0
	for _, d := range s.devices {
		size += d.PlayerCount * s.cfg.InputSize
	}

	buff := make([]byte, 0, size)
	for _, d := range s.devices {
		in, confirmed := d.queue.GetInput(f)
		if !confirmed {
			telemetry.PredictedInputs.WithLabelValues(s.label).Inc()
		}
		buff = append(buff, in.Bits...)
	}

	return buff
}

// broadcastInputs 把本地操作广播给所有对端。每个包都带上往前数
// InputRedundancy帧的冗余，丢几个包对面也能补齐，不用重传。
func (s *Session) broadcastInputs() {
	lf := s.ts.localFrame

	start := lf - Frame(s.cfg.InputRedundancy)
	if start < 0 {
		start = 0
	}
	end := lf + Frame(s.local.queue.FrameDelay())

	chunk := s.local.PlayerCount * s.cfg.InputSize
	bits := make([]byte, 0, int(end-start+1)*chunk)
	for f := start; f <= end; f++ {
		in, _ := s.local.queue.GetInput(f)
		bits = append(bits, in.Bits...)
	}

	m := &bin_packet.InputBatch{
		StartFrame: uint32(start),
		EndFrame:   uint32(end),
		Bits:       bits,
	}

	for _, d := range s.devices {
		if RoleRemote == d.Role {
			s.send(d, m)
		}
	}
}

// handleInputBatch 收对端的操作包。乱序和重复都幂等；
// 带来新帧才回ack，纯重复包不回，重发端靠冗余窗口自愈。
func (s *Session) handleInputBatch(d *Device, m *bin_packet.InputBatch) {
	if RoleRemote != d.Role {
		l4g.Error("[session(%s)] input batch for %s device[%d]", s.label, d.Role, d.ID)
		return
	}

	chunk := d.PlayerCount * s.cfg.InputSize
	start, end := Frame(m.StartFrame), Frame(m.EndFrame)
	span := int(end-start) + 1
	if chunk <= 0 || span <= 0 || len(m.Bits) != span*chunk {
		telemetry.MalformedDatagrams.WithLabelValues(s.label).Inc()
		l4g.Warn("[session(%s)] bad input batch from device[%d]: [%d,%d] len=%d", s.label, d.ID, start, end, len(m.Bits))
		return
	}

	acked := false
	for i := 0; i < span; i++ {
		f := start + Frame(i)

		if f > d.remoteFrame {
			d.remoteFrame = f
			d.remoteAdvantage = int32(s.ts.localFrame - f)
			acked = true
		}

		in := NewGameInput(f, s.cfg.InputSize, d.PlayerCount)
		copy(in.Bits, m.Bits[i*chunk:(i+1)*chunk])
		d.queue.AddInput(f, in)
	}

	if acked {
		s.send(d, &bin_packet.InputAck{Frame: uint32(d.remoteFrame)})
	}
}
