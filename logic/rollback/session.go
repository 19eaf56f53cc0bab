package rollback

import (
	"sort"
	"strconv"
	"time"

	"github.com/byebyebruce/rollbacknet/internal/telemetry"
	"github.com/byebyebruce/rollbacknet/pkg/packet/bin_packet"
	"github.com/byebyebruce/rollbacknet/pkg/transport"

	l4g "github.com/alecthomas/log4go"
	"github.com/pkg/errors"
)

// Session 一场对局的同步会话。独占自己的设备、操作队列、对表状态和存档，
// 由宿主游戏循环单线程驱动：每个tick先Poll()再AdvanceFrame()。
type Session struct {
	cfg   Config
	label string

	devices []*Device // 按ID升序
	local   *Device

	ts      *timeSync
	storage *StateStorage

	running      bool
	savedInitial bool

	pending []byte // 本帧待提交的本地操作

	stalls           uint64
	rollbacks        uint64
	rolledBackFrames uint64
	mispredicts      uint64
}

// NewSession 构造会话
func NewSession(cfg Config) *Session {
	cfg.normalize()

	return &Session{
		cfg:     cfg,
		label:   "-",
		ts:      newTimeSync(&cfg),
		storage: newStateStorage(cfg.MaxRollbackFrames + 1),
	}
}

// SetLocalDevice 注册本机设备。每个会话只能有一个，frameDelay用输入延迟换少预测错。
// adapter本机用不上，可以传nil。
func (s *Session) SetLocalDevice(id DeviceID, players, frameDelay int, adapter transport.Adapter) error {
	if nil != s.local {
		return errors.Wrapf(ErrWrongDeviceRole, "local device[%d] already set", s.local.ID)
	}

	q := newInputQueue(s.cfg.MaxRollbackFrames+frameDelay+inputQueueSlack, s.cfg.InputSize, players, frameDelay)
	d := newDevice(id, RoleLocal, players, q, adapter)
	if err := s.insertDevice(d); err != nil {
		return err
	}

	s.local = d
	s.label = strconv.Itoa(int(id))

	return nil
}

// AddRemoteDevice 注册一个对端设备
func (s *Session) AddRemoteDevice(id DeviceID, players int, adapter transport.Adapter) error {
	q := newInputQueue(s.cfg.MaxRollbackFrames+inputQueueSlack, s.cfg.InputSize, players, 0)
	d := newDevice(id, RoleRemote, players, q, adapter)
	return s.insertDevice(d)
}

func (s *Session) insertDevice(d *Device) error {
	if len(s.devices) >= maxDevices {
		return errors.Errorf("too many devices, max %d", maxDevices)
	}
	for _, v := range s.devices {
		if v.ID == d.ID {
			return errors.Errorf("device[%d] already registered", d.ID)
		}
	}

	s.devices = append(s.devices, d)
	sort.Slice(s.devices, func(i, j int) bool {
		return s.devices[i].ID < s.devices[j].ID
	})

	return nil
}

// Device 取某个设备，没有返回nil
func (s *Session) Device(id DeviceID) *Device {
	for _, d := range s.devices {
		if d.ID == id {
			return d
		}
	}
	return nil
}

// IsRunning 握手是不是全部完成
func (s *Session) IsRunning() bool {
	return s.running
}

// Poll 抽干所有通道的报文、分发消息、推进握手和心跳
func (s *Session) Poll() {
	now := time.Now()

	for _, d := range s.devices {
		if RoleRemote != d.Role || nil == d.adapter {
			continue
		}
		for _, datagram := range d.adapter.Poll() {
			telemetry.Datagrams.WithLabelValues(s.label, "in").Inc()
			msg, err := bin_packet.Unmarshal(datagram)
			if nil != err {
				telemetry.MalformedDatagrams.WithLabelValues(s.label).Inc()
				l4g.Warn("[session(%s)] drop bad datagram from device[%d]: %v", s.label, d.ID, err)
				continue
			}
			s.handleMessage(d, msg, now)
		}
	}

	s.pump(now)
	s.checkRunning()
}

// Deliver 宿主自己管传输时的投递入口，按发送方设备编号路由一条报文。
// 解不开或者发送方没注册只丢包不致命，返回错误仅供上层记录。
func (s *Session) Deliver(from DeviceID, datagram []byte) error {
	d := s.Device(from)
	if nil == d {
		telemetry.Datagrams.WithLabelValues(s.label, "in").Inc()
		return errors.Wrapf(ErrUnknownSender, "device[%d]", from)
	}

	telemetry.Datagrams.WithLabelValues(s.label, "in").Inc()
	msg, err := bin_packet.Unmarshal(datagram)
	if nil != err {
		telemetry.MalformedDatagrams.WithLabelValues(s.label).Inc()
		return errors.Wrapf(ErrMalformedMessage, "from device[%d]: %v", from, err)
	}

	s.handleMessage(d, msg, time.Now())
	return nil
}

func (s *Session) handleMessage(d *Device, msg bin_packet.Message, now time.Time) {
	d.lastHeard = now

	switch m := msg.(type) {
	case *bin_packet.SyncRequest:
		s.send(d, &bin_packet.SyncReply{Nonce: m.Nonce})

	case *bin_packet.SyncReply:
		// 重复的SyncReply幂等，nonce对不上的直接当没看见
		if DeviceSyncing == d.State() && m.Nonce == d.nonce {
			d.state = DeviceSynced
			l4g.Info("[session(%s)] device[%d] synced", s.label, d.ID)
		}

	case *bin_packet.InputBatch:
		s.handleInputBatch(d, m)

	case *bin_packet.InputAck:
		if f := Frame(m.Frame); f > d.lastAckedFrame {
			d.lastAckedFrame = f
		}

	case *bin_packet.QualityReport:
		d.remoteAdvantage = m.Advantage
		s.send(d, &bin_packet.QualityReply{Frame: m.Frame})

	case *bin_packet.QualityReply:
		if !d.lastQualityReport.IsZero() {
			d.roundTrip = now.Sub(d.lastQualityReport)
		}
	}
}

// pump 握手期周期性发SyncRequest，握手完改发心跳
func (s *Session) pump(now time.Time) {
	for _, d := range s.devices {
		if RoleRemote != d.Role {
			continue
		}

		switch d.State() {
		case DeviceSyncing:
			if now.Sub(d.lastSyncRequest) >= s.cfg.SyncRequestInterval {
				d.lastSyncRequest = now
				s.send(d, &bin_packet.SyncRequest{Nonce: d.nonce})
			}
		default:
			if now.Sub(d.lastQualityReport) >= s.cfg.QualityReportInterval {
				d.lastQualityReport = now
				f := s.ts.localFrame
				if f < 0 {
					f = 0
				}
				s.send(d, &bin_packet.QualityReport{Frame: uint32(f), Advantage: s.ts.localAdvantage()})
			}
		}
	}
}

func (s *Session) checkRunning() {
	if s.running || nil == s.local {
		return
	}

	remotes := 0
	for _, d := range s.devices {
		if RoleRemote != d.Role {
			continue
		}
		remotes++
		if DeviceSyncing == d.State() {
			return
		}
	}
	if 0 == remotes {
		return
	}

	for _, d := range s.devices {
		d.state = DeviceRunning
	}
	s.running = true

	l4g.Info("[session(%s)] %d remote devices synced, session running", s.label, remotes)
}

// AddLocalInput 暂存本帧的本地操作，下次AdvanceFrame时入队并广播
func (s *Session) AddLocalInput(bits []byte) error {
	if nil == s.local {
		return errors.Wrap(ErrWrongDeviceRole, "no local device")
	}
	if want := s.local.PlayerCount * s.cfg.InputSize; len(bits) != want {
		return errors.Wrapf(ErrSizeMismatch, "got %d bytes, want %d", len(bits), want)
	}

	s.pending = append(s.pending[:0], bits...)
	return nil
}

func (s *Session) send(d *Device, m bin_packet.Message) {
	telemetry.Datagrams.WithLabelValues(s.label, "out").Inc()
	d.SendMessage(m)
}

// DeviceStats 一个设备的运行时快照
type DeviceStats struct {
	ID              DeviceID
	Role            DeviceRole
	State           DeviceState
	RemoteFrame     Frame
	RemoteAdvantage int32
	AckedFrame      Frame
	RoundTrip       time.Duration
}

// Stats 会话的运行时快照
type Stats struct {
	LocalFrame       Frame
	RemoteFrame      Frame
	SyncFrame        Frame
	StalledTicks     uint64
	Rollbacks        uint64
	RolledBackFrames uint64
	Mispredicts      uint64
	Devices          []DeviceStats
}

// Stats 给宿主看的运行时快照
func (s *Session) Stats() Stats {
	st := Stats{
		LocalFrame:       s.ts.localFrame,
		RemoteFrame:      s.ts.remoteFrame,
		SyncFrame:        s.ts.syncFrame,
		StalledTicks:     s.stalls,
		Rollbacks:        s.rollbacks,
		RolledBackFrames: s.rolledBackFrames,
		Mispredicts:      s.mispredicts,
	}
	for _, d := range s.devices {
		st.Devices = append(st.Devices, DeviceStats{
			ID:              d.ID,
			Role:            d.Role,
			State:           d.State(),
			RemoteFrame:     d.remoteFrame,
			RemoteAdvantage: d.remoteAdvantage,
			AckedFrame:      d.lastAckedFrame,
			RoundTrip:       d.roundTrip,
		})
	}
	return st
}
