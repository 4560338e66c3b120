package networkio

import (
	"github.com/minisr/minisr/internal/model"
	"github.com/minisr/minisr/internal/workers"
)

// StartWorkers starts the network I/O workers: one moving raw packets from
// the conn up to the node and one moving raw packets from the node down to
// the conn.
//
// This function TAKES OWNERSHIP of the conn.
func StartWorkers(
	logger model.Logger,
	manager *workers.Manager,
	conn FramingConn,
	rawPacketDown <-chan []byte,
	rawPacketUp chan<- []byte,
) {
	ws := &workersState{
		conn:          conn,
		logger:        logger,
		manager:       manager,
		rawPacketDown: rawPacketDown,
		rawPacketUp:   rawPacketUp,
	}
	manager.StartWorker("networkio: moveUpWorker", ws.moveUpWorker) // TAKES conn ownership
	manager.StartWorker("networkio: moveDownWorker", ws.moveDownWorker)
}

// workersState contains the service workers state
type workersState struct {
	// conn is the connection to use
	conn FramingConn

	// logger is the logger to use
	logger model.Logger

	// manager controls the workers lifecycle
	manager *workers.Manager

	// rawPacketDown is the channel for reading outgoing packets
	rawPacketDown <-chan []byte

	// rawPacketUp is the channel for writing incoming packets
	rawPacketUp chan<- []byte
}

// moveUpWorker moves packets up the stack.
func (ws *workersState) moveUpWorker() {
	defer func() {
		// make sure the manager knows we're done
		ws.manager.OnWorkerDone("networkio: moveUpWorker")

		// tear down everything else because a worker exited
		ws.manager.StartShutdown()

		// we OWN the connection
		ws.conn.Close()
	}()

	for {
		// POSSIBLY BLOCK on the connection to read a new packet
		pkt, err := ws.conn.ReadRawPacket()
		if err != nil {
			ws.logger.Infof("networkio: moveUpWorker: ReadRawPacket: %s", err.Error())
			return
		}

		// POSSIBLY BLOCK on the channel to deliver the packet
		select {
		case ws.rawPacketUp <- pkt:
		case <-ws.manager.ShouldShutdown():
			return
		}
	}
}

// moveDownWorker moves packets down the stack
func (ws *workersState) moveDownWorker() {
	defer func() {
		ws.manager.OnWorkerDone("networkio: moveDownWorker")
		ws.manager.StartShutdown()
	}()

	for {
		// POSSIBLY BLOCK when receiving from channel.
		select {
		case pkt := <-ws.rawPacketDown:
			// POSSIBLY BLOCK on the connection to write the packet
			if err := ws.conn.WriteRawPacket(pkt); err != nil {
				ws.logger.Infof("networkio: moveDownWorker: WriteRawPacket: %s", err.Error())
				return
			}

		case <-ws.manager.ShouldShutdown():
			return
		}
	}
}
