package selectiverepeat

import (
	"github.com/minisr/minisr/internal/model"
	"github.com/minisr/minisr/internal/runtimex"
)

// Receiver is entity B of the protocol: it owns the receive window, buffers
// out-of-order arrivals, delivers payloads upward strictly in order, and
// emits acknowledgments. Please use the constructor [NewReceiver].
type Receiver struct {
	// logger is the logger to use.
	logger model.Logger

	// config holds the validated protocol parameters.
	config Config

	// wire moves acknowledgments toward the sender.
	wire Wire

	// deliver hands in-order payloads to the application layer.
	deliver DeliverFunc

	// rcvBase is the next sequence number required for in-order delivery.
	rcvBase int32

	// buffer is the circular reorder buffer; bufferFirst is the ring index
	// of the slot holding rcvBase's payload.
	buffer      [][model.PayloadSize]byte
	bufferFirst int

	// received tracks reception per sequence number; a flag is meaningful
	// only while its sequence number is inside the admissible window.
	received []bool

	// counters are the protocol counters.
	counters ReceiverCounters
}

// NewReceiver creates a receiver expecting sequence number zero first.
func NewReceiver(logger model.Logger, config Config, wire Wire, deliver DeliverFunc) *Receiver {
	config = config.WithDefaults()
	runtimex.Assert(config.SeqSpace >= 2*config.WindowSize,
		"selectiverepeat: sequence space smaller than twice the window")
	return &Receiver{
		logger:      logger,
		config:      config,
		wire:        wire,
		deliver:     deliver,
		rcvBase:     0,
		buffer:      make([][model.PayloadSize]byte, config.WindowSize),
		bufferFirst: 0,
		received:    make([]bool, config.SeqSpace),
	}
}

// Receive processes one packet arriving from the sender. Corrupted packets
// are answered with an advisory NAK carrying the last in-order sequence
// number. In-window packets are buffered, acknowledged, and drained in order.
// Anything else (a duplicate already delivered, or a packet too far ahead)
// is acknowledged so a retrying sender eventually stops, but neither
// buffered nor delivered.
func (r *Receiver) Receive(packet *model.Packet) {
	space := int32(r.config.SeqSpace)

	if IsCorrupted(packet) {
		nak := seqBefore(r.rcvBase, space)
		r.logger.Debugf("corrupted packet, sending NAK %d", nak)
		r.counters.CorruptedPackets++
		r.counters.NAKsSent++
		r.sendACK(nak)
		return
	}
	// received is indexed by sequence number, so a checksum-valid packet
	// arriving from the network with a number outside the sequence space
	// must be rejected before any lookup
	if packet.Seq < 0 || packet.Seq >= space {
		r.logger.Warnf("packet %d outside the sequence space, do nothing", packet.Seq)
		return
	}
	r.counters.PacketsReceived++

	windowLast := seqAdd(r.rcvBase, int32(r.config.WindowSize)-1, space)
	if !inWindow(packet.Seq, r.rcvBase, windowLast) {
		r.logger.Debugf("packet %d outside window [%d, %d], re-ACK only", packet.Seq, r.rcvBase, windowLast)
		r.counters.ACKsSent++
		r.sendACK(packet.Seq)
		return
	}

	if !r.received[packet.Seq] {
		offset := (packet.Seq - r.rcvBase + space) % space
		r.logger.Debugf("packet %d received, buffering at offset %d", packet.Seq, offset)
		r.received[packet.Seq] = true
		slot := (r.bufferFirst + int(offset)) % r.config.WindowSize
		r.buffer[slot] = packet.Payload
	}
	r.counters.ACKsSent++
	r.sendACK(packet.Seq)

	// drain: deliver contiguously received payloads from the window base
	for r.received[r.rcvBase] {
		r.logger.Debugf("delivering packet %d to the application", r.rcvBase)
		r.deliver(r.buffer[r.bufferFirst])
		r.counters.Delivered++
		r.received[r.rcvBase] = false
		r.bufferFirst = (r.bufferFirst + 1) % r.config.WindowSize
		r.rcvBase = seqAdd(r.rcvBase, 1, space)
	}
}

// Base returns the next sequence number required for in-order delivery.
func (r *Receiver) Base() int32 {
	return r.rcvBase
}

// Counters returns a snapshot of the protocol counters.
func (r *Receiver) Counters() ReceiverCounters {
	return r.counters
}

// sendACK emits an acknowledgment-bearing packet for the given sequence
// number. The sender does not distinguish NAK-shaped replies from positive
// acknowledgments; the encoding is purely informational.
func (r *Receiver) sendACK(ack int32) {
	packet := &model.Packet{
		Seq: model.NotInUse,
		Ack: ack,
	}
	packet.Checksum = Checksum(packet)
	r.wire.SendToPeer(packet)
}
