package simulation

import (
	"time"

	"github.com/minisr/minisr/internal/model"
)

// eventKind tells us what a scheduled event does when it fires.
type eventKind int

const (
	// eventMessageArrival submits the next application message to the sender.
	eventMessageArrival = eventKind(iota)

	// eventPacketArrivalAtSender hands a packet from the reverse channel to
	// the sender.
	eventPacketArrivalAtSender

	// eventPacketArrivalAtReceiver hands a packet from the forward channel
	// to the receiver.
	eventPacketArrivalAtReceiver

	// eventTimerInterrupt fires the sender's retransmission alarm.
	eventTimerInterrupt
)

// String implements fmt.Stringer
func (k eventKind) String() string {
	switch k {
	case eventMessageArrival:
		return "message-arrival"
	case eventPacketArrivalAtSender:
		return "packet-arrival-at-sender"
	case eventPacketArrivalAtReceiver:
		return "packet-arrival-at-receiver"
	case eventTimerInterrupt:
		return "timer-interrupt"
	default:
		return "unknown"
	}
}

// event is something scheduled on the simulated timeline.
type event struct {
	// at is the simulated moment when the event fires.
	at time.Duration

	// order breaks ties between events scheduled for the same moment,
	// preserving scheduling order.
	order uint64

	// kind tells the dispatcher what to do.
	kind eventKind

	// packet is the in-flight packet for packet-arrival events.
	packet *model.Packet

	// canceled marks an event that must be skipped when popped; used to
	// stop the retransmission alarm without digging it out of the heap.
	canceled bool
}

// eventQueue is a min-heap of events ordered by firing time.
type eventQueue []*event

// Len implements heap.Interface
func (q eventQueue) Len() int { return len(q) }

// Less implements heap.Interface
func (q eventQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].order < q[j].order
}

// Swap implements heap.Interface
func (q eventQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
}

// Push implements heap.Interface
func (q *eventQueue) Push(x any) {
	*q = append(*q, x.(*event))
}

// Pop implements heap.Interface
func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}
