package bin_packet

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func Test_InputBatchLayout(t *testing.T) {

	m := &InputBatch{
		StartFrame: 3,
		EndFrame:   6,
		Bits:       []byte{1, 2, 3, 4},
	}
	buff := m.Marshal()

	if MsgID(buff[0]) != MsgInputBatch {
		t.Error("tag should be 0x03")
	}
	if binary.LittleEndian.Uint32(buff[1:]) != 3 {
		t.Error("start frame not little endian at offset 1")
	}
	if binary.LittleEndian.Uint32(buff[5:]) != 6 {
		t.Error("end frame not little endian at offset 5")
	}
	if binary.LittleEndian.Uint16(buff[9:]) != 4 {
		t.Error("length not little endian at offset 9")
	}
	if !bytes.Equal(buff[11:], m.Bits) {
		t.Error("payload bytes")
	}

	got, err := Unmarshal(buff)
	if nil != err {
		t.Error(err)
	}
	b, ok := got.(*InputBatch)
	if !ok || b.StartFrame != 3 || b.EndFrame != 6 || !bytes.Equal(b.Bits, m.Bits) {
		t.Errorf("decoded %#v", got)
	}
}

func Test_SyncMessages(t *testing.T) {

	req := &SyncRequest{Nonce: 19234333}
	got, err := Unmarshal(req.Marshal())
	if nil != err {
		t.Error(err)
	}
	r, ok := got.(*SyncRequest)
	if !ok || r.Nonce != req.Nonce {
		t.Errorf("decoded %#v", got)
	}

	rep := &QualityReport{Frame: 7, Advantage: -3}
	got, err = Unmarshal(rep.Marshal())
	if nil != err {
		t.Error(err)
	}
	q, ok := got.(*QualityReport)
	if !ok || q.Frame != 7 || q.Advantage != -3 {
		t.Errorf("decoded %#v", got)
	}
}

func Test_Malformed(t *testing.T) {

	cases := [][]byte{
		nil,
		{0x7f, 1, 2, 3, 4},           // 不认识的标签
		{byte(MsgSyncRequest), 1, 2}, // 长度不对
		{byte(MsgInputBatch), 0, 0, 0, 0, 1, 0, 0, 0, 9, 0, 1}, // length字段和实际对不上
		(&InputBatch{StartFrame: 5, EndFrame: 2}).Marshal(),    // 帧区间倒挂
	}

	for i, c := range cases {
		if _, err := Unmarshal(c); errors.Cause(err) != ErrMalformed {
			t.Errorf("case %d: want ErrMalformed, got %v", i, err)
		}
	}
}

func Test_Packet(t *testing.T) {

	datagram := (&InputAck{Frame: 42}).Marshal()

	p := NewPacket(datagram)
	if p.Tag() != MsgInputAck {
		t.Error("packet tag")
	}

	buff := p.Serialize()
	if binary.BigEndian.Uint16(buff) != uint16(len(datagram)-TagLen) {
		t.Error("body length prefix")
	}

	proto := &MsgProtocol{}
	ret, err := proto.ReadPacket(strings.NewReader(string(buff)))
	if nil != err {
		t.Error(err)
	}

	packet, _ := ret.(*Packet)
	if !bytes.Equal(packet.Datagram(), datagram) {
		t.Error("datagram should round-trip through the stream framing")
	}
}

func Benchmark_Packet(b *testing.B) {

	buff := NewPacket((&InputBatch{
		StartFrame: 0,
		EndFrame:   7,
		Bits:       make([]byte, 16),
	}).Marshal()).Serialize()

	proto := &MsgProtocol{}
	r := bytes.NewBuffer(nil)

	for i := 0; i < b.N; i++ {
		r.Write(buff)
		if _, err := proto.ReadPacket(r); nil != err {
			b.Error(err)
		}
	}
}
