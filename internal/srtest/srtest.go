// Package srtest provides utilities for testing the selective-repeat core.
package srtest

import (
	"time"

	"github.com/minisr/minisr/internal/model"
	"github.com/minisr/minisr/internal/selectiverepeat"
)

// DataPacket builds a well-formed data packet with the given sequence number
// and a payload filled with the given byte.
func DataPacket(seq int32, fill byte) *model.Packet {
	p := &model.Packet{
		Seq: seq,
		Ack: model.NotInUse,
	}
	for i := range p.Payload {
		p.Payload[i] = fill
	}
	p.Checksum = selectiverepeat.Checksum(p)
	return p
}

// ACKPacket builds a well-formed acknowledgment packet for the given
// sequence number.
func ACKPacket(ack int32) *model.Packet {
	p := &model.Packet{
		Seq: model.NotInUse,
		Ack: ack,
	}
	p.Checksum = selectiverepeat.Checksum(p)
	return p
}

// Corrupted returns a copy of the packet whose checksum no longer matches
// its contents.
func Corrupted(p *model.Packet) *model.Packet {
	bad := *p
	bad.Checksum++
	return &bad
}

// RecordingWire is a [selectiverepeat.Wire] that records every packet
// handed to it.
type RecordingWire struct {
	Packets []*model.Packet
}

// SendToPeer implements selectiverepeat.Wire.
func (w *RecordingWire) SendToPeer(packet *model.Packet) {
	copied := *packet
	w.Packets = append(w.Packets, &copied)
}

// Seqs returns the sequence numbers of the recorded packets.
func (w *RecordingWire) Seqs() []int32 {
	seqs := make([]int32, 0, len(w.Packets))
	for _, p := range w.Packets {
		seqs = append(seqs, p.Seq)
	}
	return seqs
}

// Acks returns the acknowledgment numbers of the recorded packets.
func (w *RecordingWire) Acks() []int32 {
	acks := make([]int32, 0, len(w.Packets))
	for _, p := range w.Packets {
		acks = append(acks, p.Ack)
	}
	return acks
}

// Reset forgets the recorded packets.
func (w *RecordingWire) Reset() {
	w.Packets = nil
}

// FakeTimer is a [selectiverepeat.Timer] that records arming and disarming
// instead of keeping real time. Tests fire it by calling the sender's
// timeout entry point directly.
type FakeTimer struct {
	// Running reports whether the alarm is currently armed.
	Running bool

	// Timeout is the duration passed to the last Start call.
	Timeout time.Duration

	// Starts and Stops count the calls to each method.
	Starts int
	Stops  int
}

// Start implements selectiverepeat.Timer.
func (t *FakeTimer) Start(timeout time.Duration) {
	t.Running = true
	t.Timeout = timeout
	t.Starts++
}

// Stop implements selectiverepeat.Timer.
func (t *FakeTimer) Stop() {
	t.Running = false
	t.Stops++
}

// DeliverySink collects payloads delivered upward by a receiver.
type DeliverySink struct {
	Payloads [][model.PayloadSize]byte
}

// Func returns a [selectiverepeat.DeliverFunc] feeding this sink.
func (s *DeliverySink) Func() selectiverepeat.DeliverFunc {
	return func(payload [model.PayloadSize]byte) {
		s.Payloads = append(s.Payloads, payload)
	}
}
