package selectiverepeat

import (
	"github.com/minisr/minisr/internal/model"
	"github.com/minisr/minisr/internal/runtimex"
)

// Sender is entity A of the protocol: it owns the outstanding-packet window,
// assigns sequence numbers, tracks per-sequence acknowledgment, and manages
// the single retransmission timer. Please use the constructor [NewSender].
type Sender struct {
	// logger is the logger to use.
	logger model.Logger

	// config holds the validated protocol parameters.
	config Config

	// wire moves packets toward the receiver.
	wire Wire

	// timer is the retransmission alarm, passed in as a capability so that
	// tests can drive it deterministically.
	timer Timer

	// buffer is the circular window of packets awaiting acknowledgment.
	buffer []model.Packet

	// windowFirst and windowLast are the circular indexes of the head and
	// tail packets in buffer; windowCount is the number of buffered packets.
	windowFirst int
	windowLast  int
	windowCount int

	// nextSeq is the next sequence number to assign.
	nextSeq int32

	// acked tracks acknowledgment per sequence number. A flag is meaningful
	// only while its sequence number is inside the current window and is
	// cleared as the window slides past it.
	acked []bool

	// counters are the protocol counters.
	counters SenderCounters
}

// NewSender creates a sender with an empty window. The wire and timer
// capabilities must be non-nil for the lifetime of the session.
func NewSender(logger model.Logger, config Config, wire Wire, timer Timer) *Sender {
	config = config.WithDefaults()
	runtimex.Assert(config.SeqSpace >= 2*config.WindowSize,
		"selectiverepeat: sequence space smaller than twice the window")
	return &Sender{
		logger:      logger,
		config:      config,
		wire:        wire,
		timer:       timer,
		buffer:      make([]model.Packet, config.WindowSize),
		windowFirst: 0,
		windowLast:  -1,
		windowCount: 0,
		nextSeq:     0,
		acked:       make([]bool, config.SeqSpace),
	}
}

// Send accepts one application message, buffers it in the window, and
// transmits it. It returns false, without buffering or blocking, when the
// window is full: backpressure is the caller's responsibility, and the
// rejection is also visible through the WindowFull counter.
func (s *Sender) Send(message model.Message) bool {
	if s.windowCount >= s.config.WindowSize {
		s.logger.Debug("send window is full, rejecting message")
		s.counters.WindowFull++
		return false
	}

	packet := model.Packet{
		Seq:     s.nextSeq,
		Ack:     model.NotInUse,
		Payload: message.Data,
	}
	packet.Checksum = Checksum(&packet)

	// circular insert at the window tail
	s.windowLast = (s.windowLast + 1) % s.config.WindowSize
	s.buffer[s.windowLast] = packet
	s.windowCount++
	s.acked[packet.Seq] = false

	s.counters.MessagesAccepted++
	s.counters.PacketsSent++
	s.logger.Debugf("sending packet %d", packet.Seq)
	out := packet
	s.wire.SendToPeer(&out)

	// the timer is anchored to the oldest outstanding packet
	if s.windowCount == 1 {
		s.timer.Start(s.config.Timeout)
	}

	s.nextSeq = seqAdd(s.nextSeq, 1, int32(s.config.SeqSpace))
	return true
}

// OnACK processes an acknowledgment-bearing packet arriving from the
// receiver. Corrupted packets are ignored; recovery relies on the timeout.
// Acknowledgments outside the window, or for an already-acknowledged
// sequence number, are no-ops.
func (s *Sender) OnACK(packet *model.Packet) {
	if IsCorrupted(packet) {
		s.logger.Debug("corrupted ACK received, do nothing")
		return
	}
	// acked is indexed by acknowledgment number, so a checksum-valid packet
	// arriving from the network with a number outside the sequence space
	// must be rejected before any lookup
	if packet.Ack < 0 || packet.Ack >= int32(s.config.SeqSpace) {
		s.logger.Warnf("ACK %d outside the sequence space, do nothing", packet.Ack)
		return
	}
	s.counters.ACKsReceived++

	if s.windowCount == 0 {
		s.logger.Debugf("ACK %d with empty window, do nothing", packet.Ack)
		return
	}

	seqFirst := s.buffer[s.windowFirst].Seq
	seqLast := s.buffer[s.windowLast].Seq
	if !inWindow(packet.Ack, seqFirst, seqLast) {
		s.logger.Debugf("ACK %d outside window [%d, %d], do nothing", packet.Ack, seqFirst, seqLast)
		return
	}
	if s.acked[packet.Ack] {
		s.logger.Debugf("duplicate ACK %d, do nothing", packet.Ack)
		return
	}

	s.logger.Debugf("ACK %d is new", packet.Ack)
	s.acked[packet.Ack] = true
	s.counters.NewACKs++

	if packet.Ack != seqFirst {
		return
	}

	// the window head is acknowledged: slide past every contiguously
	// acknowledged packet, clearing flags as the window advances
	for s.windowCount > 0 && s.acked[s.buffer[s.windowFirst].Seq] {
		s.acked[s.buffer[s.windowFirst].Seq] = false
		s.windowFirst = (s.windowFirst + 1) % s.config.WindowSize
		s.windowCount--
	}

	// re-anchor the timer to the new head, giving it a fresh full timeout
	s.timer.Stop()
	if s.windowCount > 0 {
		s.timer.Start(s.config.Timeout)
	}
}

// OnTimeout retransmits every currently-unacknowledged packet in the window
// and restarts the timer while packets remain outstanding.
func (s *Sender) OnTimeout() {
	s.logger.Debug("timeout, resending unacked packets")
	for i := 0; i < s.windowCount; i++ {
		idx := (s.windowFirst + i) % s.config.WindowSize
		if s.acked[s.buffer[idx].Seq] {
			continue
		}
		s.logger.Debugf("resending packet %d", s.buffer[idx].Seq)
		s.counters.PacketsResent++
		out := s.buffer[idx]
		s.wire.SendToPeer(&out)
	}
	if s.windowCount > 0 {
		s.timer.Start(s.config.Timeout)
	}
}

// Outstanding returns the number of packets awaiting acknowledgment.
func (s *Sender) Outstanding() int {
	return s.windowCount
}

// Counters returns a snapshot of the protocol counters.
func (s *Sender) Counters() SenderCounters {
	return s.counters
}
