package selectiverepeat_test

import (
	"reflect"
	"testing"

	"github.com/apex/log"
	"github.com/minisr/minisr/internal/selectiverepeat"
	"github.com/minisr/minisr/internal/srtest"
)

func newTestReceiver() (*selectiverepeat.Receiver, *srtest.RecordingWire, *srtest.DeliverySink) {
	log.SetLevel(log.DebugLevel)
	wire := &srtest.RecordingWire{}
	sink := &srtest.DeliverySink{}
	receiver := selectiverepeat.NewReceiver(log.Log, selectiverepeat.Config{}, wire, sink.Func())
	return receiver, wire, sink
}

// fills turns delivered payloads back into their fill bytes for compact
// comparisons.
func fills(sink *srtest.DeliverySink) []byte {
	out := make([]byte, 0, len(sink.Payloads))
	for _, p := range sink.Payloads {
		out = append(out, p[0])
	}
	return out
}

// Out-of-order arrival: seq 2 is buffered and acked but not delivered;
// seq 0 is delivered immediately; seq 1 triggers delivery of 1 and the
// buffered 2.
func Test_Receiver_ReordersArrivals(t *testing.T) {
	receiver, wire, sink := newTestReceiver()

	receiver.Receive(srtest.DataPacket(2, 'c'))
	if got := len(sink.Payloads); got != 0 {
		t.Fatalf("delivered %d payloads after seq 2, want 0", got)
	}
	if got := wire.Acks(); !reflect.DeepEqual(got, []int32{2}) {
		t.Errorf("acks = %v, want [2]", got)
	}

	receiver.Receive(srtest.DataPacket(0, 'a'))
	if receiver.Base() != 1 {
		t.Errorf("Base() = %d after seq 0, want 1", receiver.Base())
	}
	if got := fills(sink); !reflect.DeepEqual(got, []byte{'a'}) {
		t.Errorf("delivered = %q, want \"a\"", got)
	}

	receiver.Receive(srtest.DataPacket(1, 'b'))
	if receiver.Base() != 3 {
		t.Errorf("Base() = %d after seq 1, want 3", receiver.Base())
	}
	if got := fills(sink); !reflect.DeepEqual(got, []byte{'a', 'b', 'c'}) {
		t.Errorf("delivered = %q, want \"abc\"", got)
	}
	if got := wire.Acks(); !reflect.DeepEqual(got, []int32{2, 0, 1}) {
		t.Errorf("acks = %v, want [2 0 1]", got)
	}
}

// A corrupted packet triggers an advisory NAK carrying the last sequence
// number delivered in order, and nothing else.
func Test_Receiver_CorruptionSendsNAK(t *testing.T) {
	t.Run("before any delivery", func(t *testing.T) {
		receiver, wire, sink := newTestReceiver()

		receiver.Receive(srtest.Corrupted(srtest.DataPacket(0, 'a')))

		// rcv_base is 0, so the NAK wraps to the top of the space
		want := []int32{selectiverepeat.DefaultSeqSpace - 1}
		if got := wire.Acks(); !reflect.DeepEqual(got, want) {
			t.Errorf("acks = %v, want %v", got, want)
		}
		if len(sink.Payloads) != 0 {
			t.Error("corrupted packet must not be delivered")
		}
		if got := receiver.Counters().NAKsSent; got != 1 {
			t.Errorf("NAKsSent = %d, want 1", got)
		}
	})
	t.Run("after some deliveries", func(t *testing.T) {
		receiver, wire, _ := newTestReceiver()
		receiver.Receive(srtest.DataPacket(0, 'a'))
		receiver.Receive(srtest.DataPacket(1, 'b'))
		wire.Reset()

		receiver.Receive(srtest.Corrupted(srtest.DataPacket(2, 'c')))

		if got := wire.Acks(); !reflect.DeepEqual(got, []int32{1}) {
			t.Errorf("acks = %v, want [1]", got)
		}
	})
}

// A duplicate of an already-delivered packet is re-acknowledged so a retrying
// sender eventually stops, but it is not delivered again.
func Test_Receiver_DuplicateIsReackedNotRedelivered(t *testing.T) {
	receiver, wire, sink := newTestReceiver()

	receiver.Receive(srtest.DataPacket(0, 'a'))
	wire.Reset()

	receiver.Receive(srtest.DataPacket(0, 'a'))

	if got := wire.Acks(); !reflect.DeepEqual(got, []int32{0}) {
		t.Errorf("acks = %v, want [0]", got)
	}
	if got := len(sink.Payloads); got != 1 {
		t.Errorf("delivered %d payloads, want 1 (no double delivery)", got)
	}
	if receiver.Base() != 1 {
		t.Errorf("Base() = %d, want 1", receiver.Base())
	}
}

// A buffered duplicate (received out of order, not yet delivered) is also
// idempotent.
func Test_Receiver_BufferedDuplicateIsIdempotent(t *testing.T) {
	receiver, _, sink := newTestReceiver()

	receiver.Receive(srtest.DataPacket(2, 'c'))
	receiver.Receive(srtest.DataPacket(2, 'c'))

	receiver.Receive(srtest.DataPacket(0, 'a'))
	receiver.Receive(srtest.DataPacket(1, 'b'))

	if got := fills(sink); !reflect.DeepEqual(got, []byte{'a', 'b', 'c'}) {
		t.Errorf("delivered = %q, want \"abc\"", got)
	}
}

// A packet beyond the admissible window is acknowledged but neither buffered
// nor delivered.
func Test_Receiver_TooFarAheadIsAckedOnly(t *testing.T) {
	receiver, wire, sink := newTestReceiver()

	// with rcv_base = 0 and window 6, seq 7 is out of the admissible window
	receiver.Receive(srtest.DataPacket(7, 'h'))

	if got := wire.Acks(); !reflect.DeepEqual(got, []int32{7}) {
		t.Errorf("acks = %v, want [7]", got)
	}
	if len(sink.Payloads) != 0 {
		t.Error("out-of-window packet must not be delivered")
	}
	if receiver.Base() != 0 {
		t.Errorf("Base() = %d, want 0", receiver.Base())
	}
}

// A checksum-valid packet forged with a sequence number outside the sequence
// space is dropped without an acknowledgment, even when the receive window
// wraps and a naive circular check would admit it.
func Test_Receiver_RejectsSeqOutsideSequenceSpace(t *testing.T) {
	receiver, wire, sink := newTestReceiver()

	// advance rcv_base to 10 so the window spans the end of the space
	for seq := int32(0); seq < 10; seq++ {
		receiver.Receive(srtest.DataPacket(seq, byte('a'+seq)))
	}
	if receiver.Base() != 10 {
		t.Fatalf("Base() = %d, want 10", receiver.Base())
	}

	acksBefore := len(wire.Packets)
	before := receiver.Counters()
	receiver.Receive(srtest.DataPacket(int32(selectiverepeat.DefaultSeqSpace+1), 'x'))
	receiver.Receive(srtest.DataPacket(-2, 'y'))

	after := receiver.Counters()
	if after.PacketsReceived != before.PacketsReceived || after.Delivered != before.Delivered {
		t.Errorf("counters = %+v after forged packets, want %+v", after, before)
	}
	if got := len(wire.Packets); got != acksBefore {
		t.Errorf("forged packets drew %d replies, want none", got-acksBefore)
	}
	if got := len(sink.Payloads); got != 10 {
		t.Errorf("delivered %d payloads, want 10", got)
	}
	if receiver.Base() != 10 {
		t.Errorf("Base() = %d, want 10", receiver.Base())
	}
}

// Delivery keeps working when the window straddles the sequence space
// boundary.
func Test_Receiver_WindowWraparound(t *testing.T) {
	receiver, _, sink := newTestReceiver()

	space := int32(selectiverepeat.DefaultSeqSpace)
	for seq := int32(0); seq < space; seq++ {
		receiver.Receive(srtest.DataPacket(seq, byte('a'+seq)))
	}
	if receiver.Base() != 0 {
		t.Fatalf("Base() = %d after a full cycle, want 0", receiver.Base())
	}

	// the window now spans [0, 5] again; deliver 1 before 0
	receiver.Receive(srtest.DataPacket(1, 'B'))
	receiver.Receive(srtest.DataPacket(0, 'A'))

	want := append([]byte("abcdefghijkl"), 'A', 'B')
	if got := fills(sink); !reflect.DeepEqual(got, want) {
		t.Errorf("delivered = %q, want %q", got, want)
	}
	if got := receiver.Counters().Delivered; got != uint64(space)+2 {
		t.Errorf("Delivered = %d, want %d", got, space+2)
	}
}

func Test_Receiver_CountersTrackArrivals(t *testing.T) {
	receiver, _, _ := newTestReceiver()

	receiver.Receive(srtest.DataPacket(0, 'a'))
	receiver.Receive(srtest.Corrupted(srtest.DataPacket(1, 'b')))
	receiver.Receive(srtest.DataPacket(1, 'b'))

	want := selectiverepeat.ReceiverCounters{
		PacketsReceived:  2,
		CorruptedPackets: 1,
		Delivered:        2,
		ACKsSent:         2,
		NAKsSent:         1,
	}
	if got := receiver.Counters(); got != want {
		t.Errorf("Counters() = %+v, want %+v", got, want)
	}
}

// Both state machines are plain values without hidden process-wide state, so
// independent sessions never interfere.
func Test_Receiver_IndependentSessions(t *testing.T) {
	first, _, firstSink := newTestReceiver()
	second, _, secondSink := newTestReceiver()

	first.Receive(srtest.DataPacket(0, 'x'))

	if second.Base() != 0 {
		t.Errorf("second session Base() = %d, want 0", second.Base())
	}
	if len(firstSink.Payloads) != 1 || len(secondSink.Payloads) != 0 {
		t.Error("deliveries leaked across sessions")
	}
}
