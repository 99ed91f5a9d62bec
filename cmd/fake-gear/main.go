package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"code.cloudfoundry.org/clock"
	"code.cloudfoundry.org/durationjson"
	"code.cloudfoundry.org/lager/v3"
	"github.com/clusterhq/gear/config"
	"github.com/clusterhq/gear/http/server"
	"github.com/clusterhq/gear/inmemory"
	"github.com/tedsuo/ifrit"
	"github.com/tedsuo/ifrit/grouper"
	"github.com/tedsuo/ifrit/sigmon"
)

var configPath = flag.String(
	"config",
	"",
	"path to a JSON or YAML config file",
)

var listenAddress = flag.String(
	"listenAddress",
	"",
	"host:port to serve the unit API on (overrides the config file)",
)

var startDelay = flag.Duration(
	"startDelay",
	-1,
	"time a unit spends starting before it reports running (overrides the config file)",
)

var logLevel = flag.String(
	"logLevel",
	"",
	"minimum log level: debug, info, error or fatal (overrides the config file)",
)

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := config.NewLogger("fake-gear", cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	backend := inmemory.New(logger, clock.NewClock(), time.Duration(cfg.StartDelay))

	members := grouper.Members{
		{Name: "server", Runner: &server.Server{
			Address: cfg.ListenAddress,
			Backend: backend,
			Logger:  logger,
		}},
	}

	group := grouper.NewOrdered(os.Interrupt, members)
	monitor := ifrit.Invoke(sigmon.New(group))

	logger.Info("started", lager.Data{
		"listen-address": cfg.ListenAddress,
		"start-delay":    time.Duration(cfg.StartDelay).String(),
	})

	err = <-monitor.Wait()
	if err != nil {
		logger.Error("exited-with-failure", err)
		os.Exit(1)
	}

	logger.Info("exited")
}

func loadConfig() (config.SupervisorConfig, error) {
	cfg := config.DefaultSupervisorConfig()

	if *configPath != "" {
		err := config.Load(*configPath, &cfg)
		if err != nil {
			return cfg, err
		}
	}

	if *listenAddress != "" {
		cfg.ListenAddress = *listenAddress
	}
	if *startDelay >= 0 {
		cfg.StartDelay = durationjson.Duration(*startDelay)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	return cfg, cfg.Validate()
}
