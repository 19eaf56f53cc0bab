package rollback

// timeSync 两端模拟时钟的对表。local是本端最近模拟到的帧，remote是
// 所有远端里确认得最慢的那个，sync是预测全部对完账的最高帧。
type timeSync struct {
	minFrameAdvantage  int32
	frameAdvantageDiff int32

	localFrame  Frame
	remoteFrame Frame
	syncFrame   Frame
}

func newTimeSync(cfg *Config) *timeSync {
	return &timeSync{
		minFrameAdvantage:  int32(cfg.MinFrameAdvantage),
		frameAdvantageDiff: int32(cfg.FrameAdvantageDiff),
		localFrame:         InitialFrame,
		remoteFrame:        FrameNone,
		syncFrame:          FrameNone,
	}
}

// localAdvantage 本端领先远端多少帧
func (t *timeSync) localAdvantage() int32 {
	return int32(t.localFrame - t.remoteFrame)
}

// isTimeSynced 本端这个tick能不能往前走一帧。跑得太快就停一帧，
// 让两端时钟收敛。顺带把remoteFrame聚合成所有远端的最小值。
func (t *timeSync) isTimeSynced(devices []*Device) bool {
	remoteFrame := FrameNone
	var remoteAdvantage int32
	first := true

	for _, d := range devices {
		if RoleRemote != d.Role {
			continue
		}
		if first || d.remoteFrame < remoteFrame {
			remoteFrame = d.remoteFrame
		}
		if first || d.remoteAdvantage > remoteAdvantage {
			remoteAdvantage = d.remoteAdvantage
		}
		first = false
	}

	if first {
		// 一个远端都没有，没得同步
		return false
	}

	t.remoteFrame = remoteFrame

	advantage := t.localAdvantage()
	if advantage >= t.minFrameAdvantage && advantage-remoteAdvantage >= t.frameAdvantageDiff {
		return false
	}

	return true
}
