// Command srnode runs one endpoint of the selective-repeat protocol over a
// real transport. The sending node reads lines from stdin and the receiving
// node writes delivered payloads to stdout.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/pborman/getopt/v2"

	"github.com/minisr/minisr/internal/config"
	"github.com/minisr/minisr/internal/model"
	"github.com/minisr/minisr/internal/networkio"
	"github.com/minisr/minisr/internal/workers"
)

var (
	startTime = time.Now()
)

func printUsage() {
	fmt.Println("valid roles: send, recv")
	getopt.Usage()
	os.Exit(0)
}

func main() {
	optConfig := getopt.StringLong("config", 'c', "", "Configuration file")
	optListen := getopt.StringLong("listen", 'L', "", "Local address to bind")
	optRemote := getopt.StringLong("remote", 'R', "", "Remote peer address")
	optTransport := getopt.StringLong("transport", 't', "", "Transport to use: udp or ws")
	optMetrics := getopt.StringLong("metrics", 'm', "", "Address for the metrics endpoint")
	optVerbosity := getopt.Uint16Long("verbosity", 'v', uint16(4), "Verbosity level (1 to 5, 1 is lowest)")

	helpFlag := getopt.Bool('h', "Display help")

	getopt.Parse()
	args := getopt.Args()

	if *helpFlag || len(args) != 1 {
		printUsage()
	}
	role := args[0]
	if role != "send" && role != "recv" {
		printUsage()
	}

	verbosityLevel := log.InfoLevel
	switch *optVerbosity {
	case uint16(1):
		verbosityLevel = log.FatalLevel
	case uint16(2):
		verbosityLevel = log.ErrorLevel
	case uint16(3):
		verbosityLevel = log.WarnLevel
	case uint16(4):
		verbosityLevel = log.InfoLevel
	case uint16(5):
		verbosityLevel = log.DebugLevel
	default:
		verbosityLevel = log.DebugLevel
	}

	logger := &log.Logger{Level: verbosityLevel, Handler: &logHandler{Writer: os.Stderr}}

	cfg := config.Default()
	if *optConfig != "" {
		logger.Debugf("config file: %s", *optConfig)
		var err error
		cfg, err = config.Load(*optConfig)
		if err != nil {
			fmt.Println("fatal: " + err.Error())
			os.Exit(1)
		}
	}

	// command line flags override the configuration file
	if getopt.Lookup("listen").Seen() {
		cfg.Node.Listen = *optListen
	}
	if getopt.Lookup("remote").Seen() {
		cfg.Node.Remote = *optRemote
	}
	if getopt.Lookup("transport").Seen() {
		cfg.Node.Transport = *optTransport
	}
	if getopt.Lookup("metrics").Seen() {
		cfg.Node.MetricsListen = *optMetrics
	}
	if err := cfg.Validate(); err != nil {
		fmt.Println("fatal: " + err.Error())
		os.Exit(1)
	}

	ctx := context.Background()
	conn, err := dialTransport(ctx, logger, cfg, role)
	if err != nil {
		fmt.Println("fatal: " + err.Error())
		os.Exit(1)
	}

	manager := workers.NewManager(logger)
	node := newNode(logger, cfg, manager, role)
	networkio.StartWorkers(logger, manager, conn, node.rawPacketDown, node.rawPacketUp)
	node.startWorkers()

	if cfg.Node.MetricsListen != "" {
		srv := node.metricsServer(cfg.Node.MetricsListen)
		go func() {
			if err := srv.ListenAndServe(); err != nil {
				logger.Warnf("metrics: %s", err.Error())
			}
		}()
		defer srv.Shutdown(ctx)
		logger.Infof("metrics at http://%s/metrics", cfg.Node.MetricsListen)
	}

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigch
		logger.Info("shutting down")
		manager.StartShutdown()
	}()

	// unblock the network reader when the shutdown starts
	go func() {
		<-manager.ShouldShutdown()
		conn.Close()
	}()

	manager.WaitWorkersShutdown()
}

// dialTransport establishes the node's connection with its peer. With the
// websocket transport the receiving node accepts and the sending node dials.
func dialTransport(ctx context.Context, logger model.Logger, cfg *config.Config, role string) (networkio.FramingConn, error) {
	switch cfg.Node.Transport {
	case "ws":
		if role == "recv" {
			if cfg.Node.Listen == "" {
				return nil, fmt.Errorf("the ws transport needs a listen address to recv")
			}
			return networkio.AcceptWebsocket(ctx, logger, cfg.Node.Listen, cfg.Node.WSPath)
		}
		if cfg.Node.Remote == "" {
			return nil, fmt.Errorf("the ws transport needs a remote address to send")
		}
		url := fmt.Sprintf("ws://%s%s", cfg.Node.Remote, cfg.Node.WSPath)
		return networkio.DialWebsocket(ctx, logger, url)
	default:
		if cfg.Node.Remote == "" {
			return nil, fmt.Errorf("the udp transport needs a remote address")
		}
		return networkio.DialDatagram(logger, cfg.Node.Listen, cfg.Node.Remote)
	}
}

type logHandler struct {
	io.Writer
}

func (h *logHandler) HandleLog(e *log.Entry) (err error) {
	var s string
	if e.Level == log.DebugLevel {
		s = fmt.Sprintf("%s", e.Message)
	} else if e.Level == log.ErrorLevel {
		s = fmt.Sprintf("[%14.6f] <!err> %s", time.Since(startTime).Seconds(), e.Message)
	} else {
		s = fmt.Sprintf("[%14.6f] <%s> %s", time.Since(startTime).Seconds(), e.Level, e.Message)
	}
	if len(e.Fields) > 0 {
		s += fmt.Sprintf(": %+v", e.Fields)
	}
	s += "\n"
	_, err = h.Writer.Write([]byte(s))
	return
}
