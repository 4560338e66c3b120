package main

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/minisr/minisr/internal/config"
	"github.com/minisr/minisr/internal/metrics"
	"github.com/minisr/minisr/internal/model"
	"github.com/minisr/minisr/internal/selectiverepeat"
	"github.com/minisr/minisr/internal/workers"
)

// sendRetryInterval is how long a sending node waits before retrying a
// message rejected because the window was full.
const sendRetryInterval = 100 * time.Millisecond

// node glues one protocol endpoint to the network I/O workers. The protocol
// state machines are not safe for concurrent use, so every entry point --
// incoming packets, application sends, timer interrupts -- runs holding mu.
type node struct {
	logger model.Logger

	manager *workers.Manager

	role string

	mu sync.Mutex

	sender   *selectiverepeat.Sender
	receiver *selectiverepeat.Receiver

	// rawPacketDown moves serialized packets to the network I/O layer.
	rawPacketDown chan []byte

	// rawPacketUp moves raw packets up from the network I/O layer.
	rawPacketUp chan []byte
}

func newNode(logger model.Logger, cfg *config.Config, manager *workers.Manager, role string) *node {
	n := &node{
		logger:        logger,
		manager:       manager,
		role:          role,
		rawPacketDown: make(chan []byte, 64),
		rawPacketUp:   make(chan []byte, 64),
	}
	wire := &nodeWire{node: n}
	switch role {
	case "send":
		timer := &nodeTimer{mu: &n.mu}
		n.sender = selectiverepeat.NewSender(logger, cfg.ProtocolConfig(), wire, timer)
		timer.onTimeout = n.sender.OnTimeout
	case "recv":
		n.receiver = selectiverepeat.NewReceiver(logger, cfg.ProtocolConfig(), wire, deliverToStdout)
	}
	return n
}

// deliverToStdout prints one in-order payload per line, without the
// zero-byte padding.
func deliverToStdout(payload [model.PayloadSize]byte) {
	fmt.Println(string(bytes.TrimRight(payload[:], "\x00")))
}

func (n *node) startWorkers() {
	n.manager.StartWorker("node: packetUpWorker", n.packetUpWorker)
	if n.role == "send" {
		n.manager.StartWorker("node: stdinWorker", n.stdinWorker)
	}
}

// packetUpWorker parses raw packets coming up from the network and hands
// them to the protocol state machine.
func (n *node) packetUpWorker() {
	defer func() {
		n.manager.OnWorkerDone("node: packetUpWorker")
		n.manager.StartShutdown()
	}()

	for {
		select {
		case raw := <-n.rawPacketUp:
			packet, err := model.ParsePacket(raw)
			if err != nil {
				n.logger.Warnf("node: ParsePacket: %s", err.Error())
				continue
			}
			n.mu.Lock()
			switch {
			case packet.IsACK() && n.sender != nil:
				n.sender.OnACK(packet)
			case !packet.IsACK() && n.receiver != nil:
				n.receiver.Receive(packet)
			default:
				n.logger.Warnf("node: unexpected packet for role %s", n.role)
			}
			n.mu.Unlock()

		case <-n.manager.ShouldShutdown():
			return
		}
	}
}

// stdinWorker reads lines from stdin and submits them as messages, retrying
// when the send window is full. After stdin is exhausted it waits for the
// window to drain and then starts the shutdown.
func (n *node) stdinWorker() {
	defer func() {
		n.manager.OnWorkerDone("node: stdinWorker")
		n.manager.StartShutdown()
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Bytes()
		for len(line) > 0 {
			chunk := line
			if len(chunk) > model.PayloadSize {
				chunk = chunk[:model.PayloadSize]
			}
			if !n.submit(model.NewMessage(chunk)) {
				return
			}
			line = line[len(chunk):]
		}
	}
	if err := scanner.Err(); err != nil {
		n.logger.Warnf("node: stdin: %s", err.Error())
	}
	n.drainWindow()
}

// submit offers a message to the sender, retrying while the window is full.
// It returns false when the node is shutting down.
func (n *node) submit(message model.Message) bool {
	for {
		n.mu.Lock()
		accepted := n.sender.Send(message)
		n.mu.Unlock()
		if accepted {
			return true
		}
		select {
		case <-time.After(sendRetryInterval):
		case <-n.manager.ShouldShutdown():
			return false
		}
	}
}

// drainWindow waits until every submitted message has been acknowledged.
func (n *node) drainWindow() {
	for {
		n.mu.Lock()
		outstanding := n.sender.Outstanding()
		n.mu.Unlock()
		if outstanding <= 0 {
			n.logger.Info("node: all messages acknowledged")
			return
		}
		select {
		case <-time.After(sendRetryInterval):
		case <-n.manager.ShouldShutdown():
			return
		}
	}
}

// metricsServer builds the metrics endpoint for this node's role.
func (n *node) metricsServer(listen string) *metrics.Server {
	if n.role == "send" {
		return metrics.NewServer(listen, metrics.NewSenderCollector(func() selectiverepeat.SenderCounters {
			n.mu.Lock()
			defer n.mu.Unlock()
			return n.sender.Counters()
		}))
	}
	return metrics.NewServer(listen, metrics.NewReceiverCollector(func() selectiverepeat.ReceiverCounters {
		n.mu.Lock()
		defer n.mu.Unlock()
		return n.receiver.Counters()
	}))
}

// nodeWire serializes outgoing packets onto the network I/O channel. It is
// called with the node's mutex held, so it must not block.
type nodeWire struct {
	node *node
}

var _ selectiverepeat.Wire = &nodeWire{}

// SendToPeer implements selectiverepeat.Wire
func (w *nodeWire) SendToPeer(packet *model.Packet) {
	select {
	case w.node.rawPacketDown <- packet.Bytes():
	default:
		w.node.logger.Warn("node: outgoing queue full, dropping packet")
	}
}

// nodeTimer drives the sender's retransmission timer with [time.AfterFunc].
// Start and Stop are called with mu held; the expiry callback takes mu
// before touching the sender, and the generation counter discards callbacks
// from timers that were stopped or restarted while it waited for the lock.
type nodeTimer struct {
	mu         *sync.Mutex
	onTimeout  func()
	timer      *time.Timer
	generation int
}

var _ selectiverepeat.Timer = &nodeTimer{}

// Start implements selectiverepeat.Timer
func (t *nodeTimer) Start(timeout time.Duration) {
	t.generation++
	generation := t.generation
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(timeout, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if generation != t.generation {
			return
		}
		t.onTimeout()
	})
}

// Stop implements selectiverepeat.Timer
func (t *nodeTimer) Stop() {
	t.generation++
	if t.timer != nil {
		t.timer.Stop()
	}
}
