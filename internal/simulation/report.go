package simulation

import (
	"time"

	"github.com/google/uuid"
	"github.com/minisr/minisr/internal/model"
	"github.com/minisr/minisr/internal/selectiverepeat"
)

// Report summarizes one simulation run.
type Report struct {
	// RunID uniquely identifies the run.
	RunID uuid.UUID

	// Seed is the random seed that reproduces the run.
	Seed int64

	// Submitted is the number of messages accepted into the send window.
	Submitted int

	// Delivered is the number of payloads handed to the receiving
	// application.
	Delivered int

	// Complete is true when every message in the workload was delivered,
	// in order, exactly once.
	Complete bool

	// Duration is the simulated time consumed by the run.
	Duration time.Duration

	// Events is the number of dispatched events.
	Events int

	// PacketsDropped and PacketsCorrupted count the channel's misdeeds.
	PacketsDropped   uint64
	PacketsCorrupted uint64

	// Sender and Receiver are the final protocol counter snapshots.
	Sender   selectiverepeat.SenderCounters
	Receiver selectiverepeat.ReceiverCounters
}

func (sim *Simulation) report(events int) *Report {
	complete := len(sim.delivered) == sim.config.Messages
	for i, payload := range sim.delivered {
		if payload != MessagePayload(i).Data {
			complete = false
			break
		}
	}
	return &Report{
		RunID:            uuid.New(),
		Seed:             sim.config.Seed,
		Submitted:        sim.nextMessage,
		Delivered:        len(sim.delivered),
		Complete:         complete,
		Duration:         sim.now,
		Events:           events,
		PacketsDropped:   sim.packetsDropped,
		PacketsCorrupted: sim.packetsCorrupted,
		Sender:           sim.sender.Counters(),
		Receiver:         sim.receiver.Counters(),
	}
}

// Log writes a human-readable summary of the report.
func (r *Report) Log(logger model.Logger) {
	logger.Infof("run %s (seed %d): %d/%d messages delivered in %v over %d events",
		r.RunID, r.Seed, r.Delivered, r.Submitted, r.Duration, r.Events)
	logger.Infof("channel: %d packets dropped, %d corrupted", r.PacketsDropped, r.PacketsCorrupted)
	logger.Infof("sender: %+v", r.Sender)
	logger.Infof("receiver: %+v", r.Receiver)
}
