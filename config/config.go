package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"code.cloudfoundry.org/durationjson"
	"code.cloudfoundry.org/lager/v3"
	"github.com/clusterhq/gear"
	"github.com/clusterhq/gear/poller"
	"github.com/ghodss/yaml"
	multierror "github.com/hashicorp/go-multierror"
)

const (
	DefaultHost          = "127.0.0.1"
	DefaultListenAddress = "127.0.0.1:43273"
	DefaultLogLevel      = "info"
)

var (
	ErrHostRequired    = errors.New("host is required")
	ErrPortInvalid     = errors.New("port must be between 1 and 65535")
	ErrIntervalInvalid = errors.New("poll interval must be positive")
	ErrTimeoutInvalid  = errors.New("poll timeout must not be negative")
	ErrListenRequired  = errors.New("listen address is required")
	ErrDelayInvalid    = errors.New("start delay must not be negative")
)

// ClientConfig locates the supervisor and bounds readiness polling.
type ClientConfig struct {
	Host         string                `json:"host,omitempty"`
	Port         int                   `json:"port,omitempty"`
	PollInterval durationjson.Duration `json:"poll_interval,omitempty"`
	PollTimeout  durationjson.Duration `json:"poll_timeout,omitempty"`
	LogLevel     string                `json:"log_level,omitempty"`
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Host:         DefaultHost,
		Port:         gear.DefaultPort,
		PollInterval: durationjson.Duration(poller.DefaultInterval),
		PollTimeout:  durationjson.Duration(poller.DefaultTimeout),
		LogLevel:     DefaultLogLevel,
	}
}

func (c ClientConfig) Validate() error {
	var result *multierror.Error

	if c.Host == "" {
		result = multierror.Append(result, ErrHostRequired)
	}
	if c.Port < 1 || c.Port > 65535 {
		result = multierror.Append(result, ErrPortInvalid)
	}
	if c.PollInterval <= 0 {
		result = multierror.Append(result, ErrIntervalInvalid)
	}
	if c.PollTimeout < 0 {
		result = multierror.Append(result, ErrTimeoutInvalid)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		result = multierror.Append(result, err)
	}

	return result.ErrorOrNil()
}

// SupervisorConfig configures the fake supervisor server.
type SupervisorConfig struct {
	ListenAddress string                `json:"listen_address,omitempty"`
	StartDelay    durationjson.Duration `json:"start_delay,omitempty"`
	LogLevel      string                `json:"log_level,omitempty"`
}

func DefaultSupervisorConfig() SupervisorConfig {
	return SupervisorConfig{
		ListenAddress: DefaultListenAddress,
		StartDelay:    durationjson.Duration(time.Second),
		LogLevel:      DefaultLogLevel,
	}
}

func (c SupervisorConfig) Validate() error {
	var result *multierror.Error

	if c.ListenAddress == "" {
		result = multierror.Append(result, ErrListenRequired)
	}
	if c.StartDelay < 0 {
		result = multierror.Append(result, ErrDelayInvalid)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		result = multierror.Append(result, err)
	}

	return result.ErrorOrNil()
}

// Load overlays the JSON or YAML file at path onto config. Fields absent
// from the file keep their current values.
func Load(path string, config interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	err = yaml.Unmarshal(data, config)
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	return nil
}

func ParseLogLevel(level string) (lager.LogLevel, error) {
	switch level {
	case "debug":
		return lager.DEBUG, nil
	case "info", "":
		return lager.INFO, nil
	case "error":
		return lager.ERROR, nil
	case "fatal":
		return lager.FATAL, nil
	default:
		return lager.INFO, fmt.Errorf("unknown log level %q", level)
	}
}

// NewLogger returns a logger writing JSON lines to stderr at level.
func NewLogger(component, level string) (lager.Logger, error) {
	minLevel, err := ParseLogLevel(level)
	if err != nil {
		return nil, err
	}

	logger := lager.NewLogger(component)
	logger.RegisterSink(lager.NewWriterSink(os.Stderr, minLevel))
	return logger, nil
}
