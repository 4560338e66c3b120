package selectiverepeat

import "time"

const (
	// DefaultWindowSize is the maximum number of buffered unacked packets.
	DefaultWindowSize = 6

	// DefaultSeqSpace is the sequence number space. For selective repeat it
	// must be at least twice the window size.
	DefaultSeqSpace = 12

	// DefaultTimeout is the retransmission timeout (the round-trip estimate).
	DefaultTimeout = 16 * time.Second
)
