package rollback

import (
	"testing"
)

func Test_TimeSyncAdvantage(t *testing.T) {

	cfg := DefaultConfig(1)
	ts := newTimeSync(&cfg)

	if ts.localFrame != InitialFrame || ts.remoteFrame != FrameNone || ts.syncFrame != FrameNone {
		t.Error("initial frames")
	}

	local := newDevice(0, RoleLocal, 1, nil, nil)
	remote := newDevice(1, RoleRemote, 1, nil, nil)
	devices := []*Device{local, remote}

	// 对端一帧都没来，领先量还小，可以走
	if !ts.isTimeSynced(devices) {
		t.Error("small advantage should advance")
	}

	// 领先量到了阈值，对端又没领先，就得停
	ts.localFrame = 2
	if ts.isTimeSynced(devices) {
		t.Error("advantage 3 over silent remote should stall")
	}
	if ts.localAdvantage() != 3 {
		t.Errorf("advantage[%d] should be [3]", ts.localAdvantage())
	}

	// 对端报告自己也领先，差值不够就不停
	remote.remoteAdvantage = 2
	if !ts.isTimeSynced(devices) {
		t.Error("small advantage difference should advance")
	}
}

func Test_TimeSyncAggregation(t *testing.T) {

	cfg := DefaultConfig(1)
	ts := newTimeSync(&cfg)

	a := newDevice(1, RoleRemote, 1, nil, nil)
	b := newDevice(2, RoleRemote, 1, nil, nil)
	a.remoteFrame = 5
	b.remoteFrame = 3

	ts.localFrame = 4
	ts.isTimeSynced([]*Device{a, b})

	// remoteFrame取所有远端的最小值
	if ts.remoteFrame != 3 {
		t.Errorf("remoteFrame[%d] should be [3]", ts.remoteFrame)
	}
}

func Test_TimeSyncNoRemote(t *testing.T) {

	cfg := DefaultConfig(1)
	ts := newTimeSync(&cfg)

	local := newDevice(0, RoleLocal, 1, nil, nil)
	if ts.isTimeSynced([]*Device{local}) {
		t.Error("no remote device, nothing to sync against")
	}
}
