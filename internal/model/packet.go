package model

//
// Packet
//
// Parsing and serializing selective-repeat packets.
//

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/minisr/minisr/internal/bytesx"
)

// PayloadSize is the fixed size of an application payload in bytes.
const PayloadSize = 20

// NotInUse fills header fields that do not carry a value. A packet
// moving application data has Ack set to NotInUse; an acknowledgment
// has Seq set to NotInUse.
const NotInUse int32 = -1

// PacketSize is the wire size of a packet: seq(4) ack(4) checksum(4)
// followed by the fixed-size payload.
const PacketSize = 12 + PayloadSize

// Message is an application payload, opaque to the protocol.
type Message struct {
	Data [PayloadSize]byte
}

// NewMessage builds a message from the given bytes, truncating at
// [PayloadSize] and zero-padding shorter input.
func NewMessage(data []byte) Message {
	var m Message
	copy(m.Data[:], data)
	return m
}

// Packet is a selective-repeat packet.
type Packet struct {
	// Seq is the sequence number in [0, SEQSPACE), or NotInUse for
	// acknowledgment packets.
	Seq int32

	// Ack is the acknowledged sequence number, or NotInUse for data packets.
	Ack int32

	// Checksum is the additive integrity checksum over header and payload.
	Checksum int32

	// Payload is the fixed-size application payload.
	Payload [PayloadSize]byte
}

// IsACK returns true when this packet carries an acknowledgment.
func (p *Packet) IsACK() bool {
	return p.Ack != NotInUse
}

// ErrPacketTooShort indicates that a packet is too short.
var ErrPacketTooShort = errors.New("minisr: packet too short")

// ParsePacket produces a packet from its wire representation. We assume that
// the underlying connection has already stripped out any framing.
func ParsePacket(buf []byte) (*Packet, error) {
	if len(buf) < PacketSize {
		return nil, ErrPacketTooShort
	}
	r := bytes.NewBuffer(buf)

	p := &Packet{}
	seq, err := bytesx.ReadUint32(r)
	if err != nil {
		return nil, fmt.Errorf("%w: bad seq: %s", ErrPacketTooShort, err)
	}
	p.Seq = int32(seq)

	ack, err := bytesx.ReadUint32(r)
	if err != nil {
		return nil, fmt.Errorf("%w: bad ack: %s", ErrPacketTooShort, err)
	}
	p.Ack = int32(ack)

	checksum, err := bytesx.ReadUint32(r)
	if err != nil {
		return nil, fmt.Errorf("%w: bad checksum: %s", ErrPacketTooShort, err)
	}
	p.Checksum = int32(checksum)

	if _, err := io.ReadFull(r, p.Payload[:]); err != nil {
		return nil, fmt.Errorf("%w: bad payload: %s", ErrPacketTooShort, err)
	}
	return p, nil
}

// Bytes returns a byte array that is ready to be sent on the wire.
func (p *Packet) Bytes() []byte {
	buf := &bytes.Buffer{}
	bytesx.WriteUint32(buf, uint32(p.Seq))
	bytesx.WriteUint32(buf, uint32(p.Ack))
	bytesx.WriteUint32(buf, uint32(p.Checksum))
	buf.Write(p.Payload[:])
	return buf.Bytes()
}

// Direction tells us the direction of a packet between entities.
type Direction int

const (
	// DirectionIncoming marks packets arriving from the peer.
	DirectionIncoming = Direction(iota)

	// DirectionOutgoing marks packets sent toward the peer.
	DirectionOutgoing
)

// String implements fmt.Stringer
func (d Direction) String() string {
	switch d {
	case DirectionIncoming:
		return "<"
	case DirectionOutgoing:
		return ">"
	default:
		return "?"
	}
}

// Log writes an entry in the passed logger with a representation of this packet.
func (p *Packet) Log(logger Logger, direction Direction) {
	if p.IsACK() {
		logger.Debugf("%s ack=%d", direction, p.Ack)
		return
	}
	logger.Debugf("%s seq=%d [%d bytes]", direction, p.Seq, len(p.Payload))
}
