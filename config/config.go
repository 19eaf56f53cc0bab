package config

import (
	"time"

	"github.com/byebyebruce/rollbacknet/logic/rollback"
	"github.com/byebyebruce/rollbacknet/util"
)

var (
	Cfg = Default()
)

// Config 进程级配置，xml文件可覆盖，留空的字段用默认值
type Config struct {
	OutAddress  string `xml:"out_address"`  // 本端监听地址
	PeerAddress string `xml:"peer_address"` // 对端地址
	Web         string `xml:"web"`          // 调试http地址

	InputSize  int `xml:"input_size"`  // 每个玩家每帧的操作字节数
	FrameDelay int `xml:"frame_delay"` // 本地输入延迟帧数

	MaxRollbackFrames  int `xml:"max_rollback_frames"`
	InputRedundancy    int `xml:"input_redundancy"`
	MinFrameAdvantage  int `xml:"min_frame_advantage"`
	FrameAdvantageDiff int `xml:"frame_advantage_difference"`

	SyncRequestIntervalMs   int64 `xml:"sync_request_interval_ms"`
	QualityReportIntervalMs int64 `xml:"quality_report_interval_ms"`
}

// Default 默认配置
func Default() Config {
	return Config{
		OutAddress: ":10086",
		Web:        ":10002",
		InputSize:  2,
	}
}

// LoadConfig 加载配置
func LoadConfig(file string) error {
	return util.LoadConfig(file, &Cfg)
}

// Rollback 换算成会话参数
func (c *Config) Rollback() rollback.Config {
	r := rollback.Config{
		InputSize:          c.InputSize,
		MaxRollbackFrames:  c.MaxRollbackFrames,
		InputRedundancy:    c.InputRedundancy,
		MinFrameAdvantage:  c.MinFrameAdvantage,
		FrameAdvantageDiff: c.FrameAdvantageDiff,
	}
	if c.SyncRequestIntervalMs > 0 {
		r.SyncRequestInterval = time.Duration(c.SyncRequestIntervalMs) * time.Millisecond
	}
	if c.QualityReportIntervalMs > 0 {
		r.QualityReportInterval = time.Duration(c.QualityReportIntervalMs) * time.Millisecond
	}
	return r
}
