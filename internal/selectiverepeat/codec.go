package selectiverepeat

//
// Packet codec: the integrity checksum models detection of channel noise,
// not cryptographic integrity.
//

import "github.com/minisr/minisr/internal/model"

// Checksum computes the additive checksum over a packet's header and payload.
func Checksum(p *model.Packet) int32 {
	sum := p.Seq + p.Ack
	for _, b := range p.Payload {
		sum += int32(b)
	}
	return sum
}

// IsCorrupted returns true when the packet's checksum does not match its
// contents.
func IsCorrupted(p *model.Packet) bool {
	return p.Checksum != Checksum(p)
}
