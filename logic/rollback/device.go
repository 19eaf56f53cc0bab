package rollback

import (
	"crypto/rand"
	"encoding/binary"
	"time"

	"github.com/byebyebruce/rollbacknet/pkg/packet/bin_packet"
	"github.com/byebyebruce/rollbacknet/pkg/transport"
)

// DeviceID 设备编号，合并操作时按编号升序拼接
type DeviceID uint8

// DeviceRole 设备角色
type DeviceRole int32

const (
	RoleLocal  DeviceRole = 0 // 本机
	RoleRemote DeviceRole = 1 // 对端
)

func (r DeviceRole) String() string {
	if RoleLocal == r {
		return "local"
	}
	return "remote"
}

// DeviceState 握手状态
type DeviceState int32

const (
	DeviceSyncing DeviceState = 0 // 等对端回nonce
	DeviceSynced  DeviceState = 1 // nonce对上了
	DeviceRunning DeviceState = 2 // 会话开跑
)

func (s DeviceState) String() string {
	switch s {
	case DeviceSyncing:
		return "syncing"
	case DeviceSynced:
		return "synced"
	case DeviceRunning:
		return "running"
	}
	return "unknown"
}

// Device 一个参与同步的设备，会话构造时注册，活到会话结束
type Device struct {
	ID          DeviceID
	Role        DeviceRole
	PlayerCount int

	state             DeviceState
	nonce             uint32
	lastSyncRequest   time.Time
	lastQualityReport time.Time
	lastHeard         time.Time
	roundTrip         time.Duration

	remoteFrame     Frame // 对端已经发来操作的最大帧
	remoteAdvantage int32 // 对端相对本端的领先量估计
	lastAckedFrame  Frame // 对端确认收到的我方最大帧

	queue   *InputQueue
	adapter transport.Adapter
}

func newDevice(id DeviceID, role DeviceRole, players int, queue *InputQueue, adapter transport.Adapter) *Device {
	d := &Device{
		ID:             id,
		Role:           role,
		PlayerCount:    players,
		state:          DeviceSyncing,
		nonce:          randomNonce(),
		remoteFrame:    FrameNone,
		lastAckedFrame: FrameNone,
		queue:          queue,
		adapter:        adapter,
	}
	if RoleLocal == role {
		// 本机不用跟自己握手
		d.state = DeviceSynced
	}
	return d
}

// State 当前握手状态
func (d *Device) State() DeviceState {
	return d.state
}

// RemoteFrame 对端已发来操作的最大帧
func (d *Device) RemoteFrame() Frame {
	return d.remoteFrame
}

// AckedFrame 对端确认收到的我方最大帧
func (d *Device) AckedFrame() Frame {
	return d.lastAckedFrame
}

// RoundTrip 最近一次心跳往返耗时
func (d *Device) RoundTrip() time.Duration {
	return d.roundTrip
}

// IsAlive 最近有没有收到过对端的包
func (d *Device) IsAlive(now time.Time) bool {
	if d.lastHeard.IsZero() {
		return false
	}
	return now.Sub(d.lastHeard) < badNetworkThreshold
}

// SendMessage 往对端发一条消息，没有通道就丢弃
func (d *Device) SendMessage(m bin_packet.Message) {
	if nil == d.adapter {
		return
	}
	d.adapter.Send(m.Marshal())
}

func randomNonce() uint32 {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		// uh-oh
		panic(err)
	}
	return binary.LittleEndian.Uint32(b[:])
}
