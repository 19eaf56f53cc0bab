package bin_packet

import (
	"encoding/binary"
	"io"

	"github.com/byebyebruce/rollbacknet/pkg/network"
	"github.com/pkg/errors"
)

const (
	DataLen = 2
	TagLen  = 1

	MinPacketLen = DataLen + TagLen
	MaxPacketLen = (2 << 8) * DataLen
)

/*

流式传输时的分包格式

|--bodyLen(uint16)--|--tag(uint8)--|--------------body--------------|
|---------2---------|-------1------|------------bodyLen-------------|

tag和body合起来就是一条报文(datagram)，见 message.go

*/

// Packet 一条装包好的报文
type Packet struct {
	tag  uint8
	body []byte
}

func (p *Packet) Tag() MsgID {
	return MsgID(p.tag)
}

// Datagram 还原出完整报文(含标签字节)
func (p *Packet) Datagram() []byte {
	buff := make([]byte, TagLen+len(p.body))
	buff[0] = p.tag
	copy(buff[TagLen:], p.body)
	return buff
}

func (p *Packet) Serialize() []byte {
	buff := make([]byte, MinPacketLen, MinPacketLen+len(p.body))
	binary.BigEndian.PutUint16(buff, uint16(len(p.body)))
	buff[DataLen] = p.tag
	return append(buff, p.body...)
}

// NewPacket 用一条报文构造Packet
func NewPacket(datagram []byte) *Packet {
	if 0 == len(datagram) {
		return nil
	}

	p := &Packet{
		tag: datagram[0],
	}
	if len(datagram) > TagLen {
		p.body = make([]byte, len(datagram)-TagLen)
		copy(p.body, datagram[TagLen:])
	}

	return p
}

type MsgProtocol struct {
}

func (p *MsgProtocol) ReadPacket(r io.Reader) (network.Packet, error) {

	buff := make([]byte, MinPacketLen)

	// body length
	if _, err := io.ReadFull(r, buff); err != nil {
		return nil, err
	}
	bodyLen := binary.BigEndian.Uint16(buff)

	if bodyLen > MaxPacketLen {
		return nil, errors.Wrapf(ErrMalformed, "body len=%d", bodyLen)
	}

	// tag
	msg := &Packet{
		tag: buff[DataLen],
	}

	// body
	if bodyLen > 0 {
		msg.body = make([]byte, bodyLen)
		if _, err := io.ReadFull(r, msg.body); err != nil {
			return nil, err
		}
	}

	return msg, nil
}
