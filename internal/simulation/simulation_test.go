package simulation

import (
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/google/go-cmp/cmp"
	"github.com/minisr/minisr/internal/selectiverepeat"
)

// Every message submitted to the sender is eventually delivered to the
// receiving application exactly once, in submission order, across loss,
// corruption, and delay mixes.
func TestSimulation_EventualInOrderDelivery(t *testing.T) {
	if testing.Verbose() {
		log.SetLevel(log.DebugLevel)
	}

	type args struct {
		messages    int
		loss        float64
		corruption  float64
		seeds       []int64
	}

	tests := []struct {
		name string
		args args
	}{
		{
			name: "perfect channel",
			args: args{messages: 20, loss: 0, corruption: 0, seeds: []int64{1}},
		},
		{
			name: "light loss",
			args: args{messages: 20, loss: 0.1, corruption: 0, seeds: []int64{1, 2, 3}},
		},
		{
			name: "heavy loss",
			args: args{messages: 30, loss: 0.4, corruption: 0, seeds: []int64{1, 2, 3}},
		},
		{
			name: "corruption only",
			args: args{messages: 20, loss: 0, corruption: 0.3, seeds: []int64{1, 2, 3}},
		},
		{
			name: "loss and corruption",
			args: args{messages: 30, loss: 0.2, corruption: 0.2, seeds: []int64{1, 2, 3, 4, 5}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, seed := range tt.args.seeds {
				sim := New(log.Log, Config{
					Messages:           tt.args.messages,
					LossProbability:    tt.args.loss,
					CorruptProbability: tt.args.corruption,
					Seed:               seed,
				})
				report := sim.Run()

				if !report.Complete {
					t.Errorf("seed %d: run incomplete: delivered %d of %d",
						seed, report.Delivered, tt.args.messages)
				}
				if report.Delivered != tt.args.messages {
					t.Errorf("seed %d: delivered = %d, want %d",
						seed, report.Delivered, tt.args.messages)
				}
				for i, payload := range sim.Delivered() {
					if diff := cmp.Diff(MessagePayload(i).Data, payload); diff != "" {
						t.Fatalf("seed %d: payload %d mismatch (-want +got):\n%s", seed, i, diff)
					}
				}
			}
		})
	}
}

// Runs are a pure function of their configuration: same seed, same outcome.
func TestSimulation_Deterministic(t *testing.T) {
	config := Config{
		Messages:           25,
		LossProbability:    0.25,
		CorruptProbability: 0.15,
		Seed:               42,
	}

	first := New(log.Log, config).Run()
	second := New(log.Log, config).Run()

	if first.Events != second.Events || first.Duration != second.Duration {
		t.Errorf("runs diverged: %d events in %v vs %d events in %v",
			first.Events, first.Duration, second.Events, second.Duration)
	}
	if diff := cmp.Diff(first.Sender, second.Sender); diff != "" {
		t.Errorf("sender counters diverged (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first.Receiver, second.Receiver); diff != "" {
		t.Errorf("receiver counters diverged (-first +second):\n%s", diff)
	}
}

// A lossy channel forces retransmissions, and the retransmissions are
// visible in the counters.
func TestSimulation_LossCausesRetransmission(t *testing.T) {
	sim := New(log.Log, Config{
		Messages:        20,
		LossProbability: 0.3,
		Seed:            7,
	})
	report := sim.Run()

	if !report.Complete {
		t.Fatalf("run incomplete: %+v", report)
	}
	if report.PacketsDropped == 0 {
		t.Error("expected the channel to drop packets at 30% loss")
	}
	if report.Sender.PacketsResent == 0 {
		t.Error("expected timeout-driven retransmissions under loss")
	}
}

// Corruption never leaks upward: the receiver counts corrupted arrivals and
// answers them with NAKs, and delivery still completes.
func TestSimulation_CorruptionIsDetected(t *testing.T) {
	sim := New(log.Log, Config{
		Messages:           20,
		CorruptProbability: 0.4,
		Seed:               11,
	})
	report := sim.Run()

	if !report.Complete {
		t.Fatalf("run incomplete: %+v", report)
	}
	if report.PacketsCorrupted == 0 {
		t.Fatal("expected the channel to corrupt packets at 40%")
	}
	if report.Receiver.CorruptedPackets == 0 {
		t.Error("expected the receiver to detect corrupted arrivals")
	}
	if report.Receiver.NAKsSent == 0 {
		t.Error("expected advisory NAKs for corrupted arrivals")
	}
}

// A tiny message interval overruns the window; the application observes the
// rejections through the window-full counter and retries, and every message
// is still delivered.
func TestSimulation_WindowBackpressure(t *testing.T) {
	sim := New(log.Log, Config{
		Messages:        40,
		MessageInterval: time.Second,
		Seed:            3,
	})
	report := sim.Run()

	if !report.Complete {
		t.Fatalf("run incomplete: %+v", report)
	}
	if report.Sender.WindowFull == 0 {
		t.Error("expected window-full rejections with a fast application")
	}
}

// A non-default protocol configuration is honored end to end.
func TestSimulation_CustomProtocolConfig(t *testing.T) {
	sim := New(log.Log, Config{
		Protocol: selectiverepeat.Config{
			WindowSize: 4,
			SeqSpace:   8,
			Timeout:    8 * time.Second,
		},
		Messages:        30,
		LossProbability: 0.2,
		Seed:            13,
	})
	report := sim.Run()

	if !report.Complete {
		t.Fatalf("run incomplete: %+v", report)
	}
}

func Test_MessagePayload(t *testing.T) {
	if MessagePayload(0).Data[0] != 'a' {
		t.Error("message 0 should be filled with 'a'")
	}
	if MessagePayload(25).Data[0] != 'z' {
		t.Error("message 25 should be filled with 'z'")
	}
	if MessagePayload(26).Data[0] != 'a' {
		t.Error("message 26 should wrap back to 'a'")
	}
}
