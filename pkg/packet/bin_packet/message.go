package bin_packet

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// MsgID 消息标签，每个报文的第一个字节
type MsgID uint8

const (
	MsgSyncRequest   MsgID = 0x01
	MsgSyncReply     MsgID = 0x02
	MsgInputBatch    MsgID = 0x03
	MsgInputAck      MsgID = 0x04
	MsgQualityReport MsgID = 0x05
	MsgQualityReply  MsgID = 0x06
)

// ErrMalformed 无法解码的报文
var ErrMalformed = errors.New("malformed datagram")

// Message 一条可以编解码的同步消息
type Message interface {
	MsgID() MsgID
	Marshal() []byte
}

// SyncRequest 握手请求
type SyncRequest struct {
	Nonce uint32
}

func (m *SyncRequest) MsgID() MsgID { return MsgSyncRequest }

func (m *SyncRequest) Marshal() []byte {
	buff := make([]byte, 5)
	buff[0] = byte(MsgSyncRequest)
	binary.LittleEndian.PutUint32(buff[1:], m.Nonce)
	return buff
}

// SyncReply 握手应答，回显收到的nonce
type SyncReply struct {
	Nonce uint32
}

func (m *SyncReply) MsgID() MsgID { return MsgSyncReply }

func (m *SyncReply) Marshal() []byte {
	buff := make([]byte, 5)
	buff[0] = byte(MsgSyncReply)
	binary.LittleEndian.PutUint32(buff[1:], m.Nonce)
	return buff
}

// InputBatch 一段连续帧的操作数据 [StartFrame, EndFrame]
type InputBatch struct {
	StartFrame uint32
	EndFrame   uint32
	Bits       []byte
}

func (m *InputBatch) MsgID() MsgID { return MsgInputBatch }

func (m *InputBatch) Marshal() []byte {
	buff := make([]byte, 11+len(m.Bits))
	buff[0] = byte(MsgInputBatch)
	binary.LittleEndian.PutUint32(buff[1:], m.StartFrame)
	binary.LittleEndian.PutUint32(buff[5:], m.EndFrame)
	binary.LittleEndian.PutUint16(buff[9:], uint16(len(m.Bits)))
	copy(buff[11:], m.Bits)
	return buff
}

// InputAck 确认收到某帧操作
type InputAck struct {
	Frame uint32
}

func (m *InputAck) MsgID() MsgID { return MsgInputAck }

func (m *InputAck) Marshal() []byte {
	buff := make([]byte, 5)
	buff[0] = byte(MsgInputAck)
	binary.LittleEndian.PutUint32(buff[1:], m.Frame)
	return buff
}

// QualityReport 心跳，带上本端的帧领先量
type QualityReport struct {
	Frame     uint32
	Advantage int32
}

func (m *QualityReport) MsgID() MsgID { return MsgQualityReport }

func (m *QualityReport) Marshal() []byte {
	buff := make([]byte, 9)
	buff[0] = byte(MsgQualityReport)
	binary.LittleEndian.PutUint32(buff[1:], m.Frame)
	binary.LittleEndian.PutUint32(buff[5:], uint32(m.Advantage))
	return buff
}

// QualityReply 心跳应答
type QualityReply struct {
	Frame uint32
}

func (m *QualityReply) MsgID() MsgID { return MsgQualityReply }

func (m *QualityReply) Marshal() []byte {
	buff := make([]byte, 5)
	buff[0] = byte(MsgQualityReply)
	binary.LittleEndian.PutUint32(buff[1:], m.Frame)
	return buff
}

// Unmarshal 解码一条报文。字段全部小端，报文第一个字节是标签。
func Unmarshal(data []byte) (Message, error) {
	if 0 == len(data) {
		return nil, errors.Wrap(ErrMalformed, "empty datagram")
	}

	id := MsgID(data[0])
	body := data[1:]

	switch id {
	case MsgSyncRequest:
		if len(body) != 4 {
			return nil, errors.Wrapf(ErrMalformed, "sync request len=%d", len(body))
		}
		return &SyncRequest{Nonce: binary.LittleEndian.Uint32(body)}, nil
	case MsgSyncReply:
		if len(body) != 4 {
			return nil, errors.Wrapf(ErrMalformed, "sync reply len=%d", len(body))
		}
		return &SyncReply{Nonce: binary.LittleEndian.Uint32(body)}, nil
	case MsgInputBatch:
		if len(body) < 10 {
			return nil, errors.Wrapf(ErrMalformed, "input batch len=%d", len(body))
		}
		m := &InputBatch{
			StartFrame: binary.LittleEndian.Uint32(body[0:]),
			EndFrame:   binary.LittleEndian.Uint32(body[4:]),
		}
		length := binary.LittleEndian.Uint16(body[8:])
		if int(length) != len(body)-10 {
			return nil, errors.Wrapf(ErrMalformed, "input batch length=%d body=%d", length, len(body)-10)
		}
		if m.EndFrame < m.StartFrame {
			return nil, errors.Wrapf(ErrMalformed, "input batch range [%d,%d]", m.StartFrame, m.EndFrame)
		}
		m.Bits = make([]byte, length)
		copy(m.Bits, body[10:])
		return m, nil
	case MsgInputAck:
		if len(body) != 4 {
			return nil, errors.Wrapf(ErrMalformed, "input ack len=%d", len(body))
		}
		return &InputAck{Frame: binary.LittleEndian.Uint32(body)}, nil
	case MsgQualityReport:
		if len(body) != 8 {
			return nil, errors.Wrapf(ErrMalformed, "quality report len=%d", len(body))
		}
		return &QualityReport{
			Frame:     binary.LittleEndian.Uint32(body[0:]),
			Advantage: int32(binary.LittleEndian.Uint32(body[4:])),
		}, nil
	case MsgQualityReply:
		if len(body) != 4 {
			return nil, errors.Wrapf(ErrMalformed, "quality reply len=%d", len(body))
		}
		return &QualityReply{Frame: binary.LittleEndian.Uint32(body)}, nil
	}

	return nil, errors.Wrapf(ErrMalformed, "unknown tag 0x%02x", data[0])
}
