// Package simulation implements the deterministic event-driven channel
// emulator that drives the selective-repeat state machines: it transports
// packets between the entities with configurable loss, corruption, and
// delay, schedules timer expiry, and originates the application workload.
//
// The emulator never reorders packets: per direction, a packet's arrival
// time is clamped to be after the previous arrival. Every random draw comes
// from a single seeded source, so a run is a pure function of its
// configuration.
package simulation

import (
	"container/heap"
	"math/rand"
	"time"

	"github.com/minisr/minisr/internal/model"
	"github.com/minisr/minisr/internal/runtimex"
	"github.com/minisr/minisr/internal/selectiverepeat"
)

const (
	// DefaultMessages is the number of application messages submitted.
	DefaultMessages = 20

	// DefaultMessageInterval is the mean inter-arrival time between
	// application messages.
	DefaultMessageInterval = 10 * time.Second

	// DefaultMeanDelay is the mean one-way propagation delay.
	DefaultMeanDelay = 5 * time.Second

	// DefaultMaxEvents caps a run so a misconfigured simulation cannot
	// spin forever.
	DefaultMaxEvents = 100000
)

// Config carries the simulation parameters. The zero value picks defaults
// everywhere, including the protocol defaults.
type Config struct {
	// Protocol is the configuration shared by both state machines.
	Protocol selectiverepeat.Config

	// Messages is the number of application messages to submit.
	Messages int

	// MessageInterval is the mean time between message submissions.
	MessageInterval time.Duration

	// LossProbability is the chance, in [0, 1), that the channel drops a
	// packet.
	LossProbability float64

	// CorruptProbability is the chance, in [0, 1), that the channel flips
	// bits in a packet.
	CorruptProbability float64

	// MeanDelay is the mean one-way propagation delay.
	MeanDelay time.Duration

	// Seed seeds the simulation's random source.
	Seed int64

	// MaxEvents caps the number of dispatched events.
	MaxEvents int
}

// withDefaults fills in the default value for every unset field.
func (c Config) withDefaults() Config {
	c.Protocol = c.Protocol.WithDefaults()
	if c.Messages <= 0 {
		c.Messages = DefaultMessages
	}
	if c.MessageInterval <= 0 {
		c.MessageInterval = DefaultMessageInterval
	}
	if c.MeanDelay <= 0 {
		c.MeanDelay = DefaultMeanDelay
	}
	if c.MaxEvents <= 0 {
		c.MaxEvents = DefaultMaxEvents
	}
	return c
}

// direction identifies one of the two one-directional channels.
type direction int

const (
	// toReceiver is the forward channel carrying data packets.
	toReceiver = direction(iota)

	// toSender is the reverse channel carrying acknowledgments.
	toSender
)

// Simulation owns the event queue, the simulated clock, and both protocol
// state machines. Please use the constructor [New]. A Simulation is
// single-use: create a new one for every run.
type Simulation struct {
	logger model.Logger
	config Config
	rng    *rand.Rand

	queue eventQueue
	order uint64
	now   time.Duration

	// lastArrival clamps per-direction delivery times so the channel
	// never reorders.
	lastArrival [2]time.Duration

	// timerEvent is the pending retransmission alarm, nil when stopped.
	timerEvent *event

	sender   *selectiverepeat.Sender
	receiver *selectiverepeat.Receiver

	// nextMessage indexes the next application message to submit.
	nextMessage int

	delivered [][model.PayloadSize]byte

	packetsDropped   uint64
	packetsCorrupted uint64
}

// New creates a simulation ready to Run.
func New(logger model.Logger, config Config) *Simulation {
	config = config.withDefaults()
	sim := &Simulation{
		logger: logger,
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
		queue:  eventQueue{},
	}
	heap.Init(&sim.queue)
	sim.sender = selectiverepeat.NewSender(
		logger, config.Protocol,
		&channelWire{sim: sim, dir: toReceiver},
		&senderTimer{sim: sim},
	)
	sim.receiver = selectiverepeat.NewReceiver(
		logger, config.Protocol,
		&channelWire{sim: sim, dir: toSender},
		func(payload [model.PayloadSize]byte) {
			sim.delivered = append(sim.delivered, payload)
		},
	)
	return sim
}

// MessagePayload returns the deterministic payload of the n-th application
// message: twenty copies of a letter cycling through the alphabet.
func MessagePayload(n int) model.Message {
	var m model.Message
	for i := range m.Data {
		m.Data[i] = byte('a' + n%26)
	}
	return m
}

// Delivered returns the payloads delivered to the receiving application, in
// delivery order.
func (sim *Simulation) Delivered() [][model.PayloadSize]byte {
	return sim.delivered
}

// Run dispatches events until the workload completes, the queue drains, or
// the event cap is hit, and returns the run report.
func (sim *Simulation) Run() *Report {
	sim.scheduleNextMessage()

	events := 0
	for sim.queue.Len() > 0 && events < sim.config.MaxEvents {
		ev := heap.Pop(&sim.queue).(*event)
		if ev.canceled {
			continue
		}
		events++
		sim.now = ev.at
		sim.dispatch(ev)

		// the sender must never have more packets outstanding than the window allows
		runtimex.Assert(sim.sender.Outstanding() <= sim.config.Protocol.WindowSize,
			"simulation: sender window overflow")
	}
	return sim.report(events)
}

func (sim *Simulation) dispatch(ev *event) {
	sim.logger.Debugf("[%v] event: %s", sim.now, ev.kind)
	switch ev.kind {
	case eventMessageArrival:
		sim.submitMessage()
	case eventPacketArrivalAtSender:
		sim.sender.OnACK(ev.packet)
	case eventPacketArrivalAtReceiver:
		sim.receiver.Receive(ev.packet)
	case eventTimerInterrupt:
		sim.timerEvent = nil
		sim.sender.OnTimeout()
	}
}

// submitMessage hands the next application message to the sender. When the
// window is full the application observes the rejection and retries the same
// message later; the sender itself neither queues nor blocks.
func (sim *Simulation) submitMessage() {
	message := MessagePayload(sim.nextMessage)
	if !sim.sender.Send(message) {
		sim.schedule(&event{
			at:   sim.now + sim.config.MessageInterval,
			kind: eventMessageArrival,
		})
		return
	}
	sim.nextMessage++
	sim.scheduleNextMessage()
}

// scheduleNextMessage schedules the next application message arrival while
// messages remain in the workload.
func (sim *Simulation) scheduleNextMessage() {
	if sim.nextMessage >= sim.config.Messages {
		return
	}
	interval := time.Duration(sim.rng.Float64() * 2 * float64(sim.config.MessageInterval))
	sim.schedule(&event{
		at:   sim.now + interval,
		kind: eventMessageArrival,
	})
}

func (sim *Simulation) schedule(ev *event) {
	ev.order = sim.order
	sim.order++
	heap.Push(&sim.queue, ev)
}

// transmit emulates the channel for one packet: maybe drop it, maybe flip a
// bit, and schedule its arrival after a random delay that preserves
// per-direction ordering.
func (sim *Simulation) transmit(packet *model.Packet, dir direction) {
	if sim.rng.Float64() < sim.config.LossProbability {
		sim.packetsDropped++
		sim.logger.Debugf("channel: packet lost")
		return
	}
	copied := *packet
	if sim.rng.Float64() < sim.config.CorruptProbability {
		sim.packetsCorrupted++
		sim.corrupt(&copied)
		sim.logger.Debugf("channel: packet corrupted")
	}

	delay := time.Duration(sim.rng.Float64() * 2 * float64(sim.config.MeanDelay))
	at := sim.now + delay
	if at <= sim.lastArrival[dir] {
		at = sim.lastArrival[dir] + time.Nanosecond
	}
	sim.lastArrival[dir] = at

	kind := eventPacketArrivalAtReceiver
	if dir == toSender {
		kind = eventPacketArrivalAtSender
	}
	sim.schedule(&event{at: at, kind: kind, packet: &copied})
}

// corrupt flips one of the header fields or a payload byte, as channel
// noise would.
func (sim *Simulation) corrupt(p *model.Packet) {
	switch sim.rng.Intn(3) {
	case 0:
		p.Payload[0] ^= 0xff
	case 1:
		p.Seq++
	default:
		p.Ack++
	}
}

// channelWire adapts one direction of the emulated channel to the
// [selectiverepeat.Wire] capability.
type channelWire struct {
	sim *Simulation
	dir direction
}

// SendToPeer implements selectiverepeat.Wire.
func (w *channelWire) SendToPeer(packet *model.Packet) {
	w.sim.transmit(packet, w.dir)
}

// senderTimer adapts the event queue to the [selectiverepeat.Timer]
// capability: a cancellable, restartable scheduled event.
type senderTimer struct {
	sim *Simulation
}

// Start implements selectiverepeat.Timer.
func (t *senderTimer) Start(timeout time.Duration) {
	sim := t.sim
	if sim.timerEvent != nil && !sim.timerEvent.canceled {
		// starting a running timer is a protocol bug worth surfacing
		sim.logger.Warn("timer: Start while running, replacing the alarm")
		sim.timerEvent.canceled = true
	}
	ev := &event{at: sim.now + timeout, kind: eventTimerInterrupt}
	sim.timerEvent = ev
	sim.schedule(ev)
}

// Stop implements selectiverepeat.Timer.
func (t *senderTimer) Stop() {
	sim := t.sim
	if sim.timerEvent == nil {
		return
	}
	sim.timerEvent.canceled = true
	sim.timerEvent = nil
}
