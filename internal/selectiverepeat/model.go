package selectiverepeat

import (
	"time"

	"github.com/minisr/minisr/internal/model"
)

// Wire moves packets toward the peer entity. The channel behind it may drop,
// corrupt, or delay packets, but never reorders them.
type Wire interface {
	SendToPeer(packet *model.Packet)
}

// Timer is the single retransmission alarm owned by a sender. Implementations
// are single-shot: once fired the alarm must be armed again with Start.
type Timer interface {
	// Start arms the alarm to fire after the given timeout.
	Start(timeout time.Duration)

	// Stop disarms the alarm.
	Stop()
}

// DeliverFunc hands one in-order payload to the application layer above the
// receiver.
type DeliverFunc func(payload [model.PayloadSize]byte)

// Config carries the tunable protocol parameters. The zero value picks the
// package defaults.
type Config struct {
	// WindowSize is the maximum number of outstanding packets.
	WindowSize int

	// SeqSpace is the sequence number space; it must be at least
	// 2*WindowSize so the sender and receiver windows can never alias.
	SeqSpace int

	// Timeout is the retransmission timeout.
	Timeout time.Duration
}

// WithDefaults fills in the default value for every unset field.
func (c Config) WithDefaults() Config {
	if c.WindowSize <= 0 {
		c.WindowSize = DefaultWindowSize
	}
	if c.SeqSpace <= 0 {
		c.SeqSpace = DefaultSeqSpace
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// SenderCounters is a snapshot of the sender's protocol counters.
type SenderCounters struct {
	// MessagesAccepted counts messages accepted into the send window.
	MessagesAccepted uint64

	// WindowFull counts messages rejected because the window was full.
	WindowFull uint64

	// PacketsSent counts original (first) transmissions.
	PacketsSent uint64

	// PacketsResent counts timeout-driven retransmissions.
	PacketsResent uint64

	// ACKsReceived counts every uncorrupted acknowledgment that arrived.
	ACKsReceived uint64

	// NewACKs counts acknowledgments that acked an in-window, not yet
	// acknowledged packet.
	NewACKs uint64
}

// ReceiverCounters is a snapshot of the receiver's protocol counters.
type ReceiverCounters struct {
	// PacketsReceived counts uncorrupted data packets that arrived.
	PacketsReceived uint64

	// CorruptedPackets counts arrivals rejected by the checksum.
	CorruptedPackets uint64

	// Delivered counts payloads handed upward in order.
	Delivered uint64

	// ACKsSent counts positive acknowledgments emitted.
	ACKsSent uint64

	// NAKsSent counts advisory negative acknowledgments emitted on
	// corruption.
	NAKsSent uint64
}
