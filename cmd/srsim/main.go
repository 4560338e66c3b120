// Command srsim runs the selective-repeat protocol over a simulated
// unreliable channel and reports whether the workload was delivered
// in order, exactly once.
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/apex/log"
	"github.com/pborman/getopt/v2"

	"github.com/minisr/minisr/internal/config"
	"github.com/minisr/minisr/internal/simulation"
)

var (
	startTime = time.Now()
)

func printUsage() {
	getopt.Usage()
	os.Exit(0)
}

func main() {
	optConfig := getopt.StringLong("config", 'c', "", "Configuration file")
	optMessages := getopt.IntLong("messages", 'n', 20, "Number of messages to send")
	optLoss := getopt.StringLong("loss", 'l', "0", "Packet loss probability [0..1)")
	optCorrupt := getopt.StringLong("corrupt", 'p', "0", "Packet corruption probability [0..1)")
	optSeed := getopt.Int64Long("seed", 's', 0, "Random seed (0 picks one from the clock)")
	optVerbosity := getopt.Uint16Long("verbosity", 'v', uint16(4), "Verbosity level (1 to 5, 1 is lowest)")

	helpFlag := getopt.Bool('h', "Display help")

	getopt.Parse()

	if *helpFlag {
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
	if getopt.Lookup("messages").Seen() {
		cfg.Channel.Messages = *optMessages
	}
	if getopt.Lookup("loss").Seen() {
		cfg.Channel.LossProbability = parseProbability(*optLoss)
	}
	if getopt.Lookup("corrupt").Seen() {
		cfg.Channel.CorruptProbability = parseProbability(*optCorrupt)
	}
	if getopt.Lookup("seed").Seen() {
		cfg.Channel.Seed = *optSeed
	}
	if err := cfg.Validate(); err != nil {
		fmt.Println("fatal: " + err.Error())
		os.Exit(1)
	}

	simConfig := cfg.SimulationConfig()
	if simConfig.Seed == 0 {
		simConfig.Seed = time.Now().UnixNano()
	}

	sim := simulation.New(logger, simConfig)
	report := sim.Run()
	report.Log(logger)

	if !report.Complete {
		logger.Warnf("run %s did not deliver the full workload", report.RunID)
		os.Exit(1)
	}
}

func parseProbability(s string) float64 {
	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		fmt.Println("fatal: " + err.Error())
		os.Exit(1)
	}
	return value
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
