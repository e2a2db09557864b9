package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// BootstrapFilename is the controller's bootstrap config file inside the config directory.
const BootstrapFilename = "controller_config.yaml"

// BootstrapConfig holds the initial configuration loaded from controller_config.yaml
type BootstrapConfig struct {
	Logging       LoggingConfig       `yaml:"logging"`
	Server        ServerConfig        `yaml:"server"`
	CommandServer CommandServerConfig `yaml:"command_server"`
	Simulation    SimulationConfig    `yaml:"simulation"`
	ZeroMQ        ZeroMQConfig        `yaml:"zeromq"`
	Data          DataConfig          `yaml:"data"`
}

// LoggingConfig holds logging settings from bootstrap
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogPath string `yaml:"log_path,omitempty"`
}

// ServerConfig holds the HTTP/WebSocket API settings. A zero port disables the API.
type ServerConfig struct {
	HTTPPort int `yaml:"http_port"`
}

// CommandServerConfig holds the raw TCP command listener settings
type CommandServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	BufferSize     int    `yaml:"buffer_size"`
	ErrorBackoffMs int    `yaml:"error_backoff_ms"`
}

// SimulationConfig holds settings for the simulated arm host
type SimulationConfig struct {
	BasicTimeStepMs     int     `yaml:"basic_time_step_ms"`
	MaxVelocity         float64 `yaml:"max_velocity"`
	FastForward         bool    `yaml:"fast_forward"`
	TelemetryIntervalMs int     `yaml:"telemetry_interval_ms"`
}

// ZeroMQConfig holds ZeroMQ bridge settings from bootstrap
type ZeroMQConfig struct {
	Enabled            bool   `yaml:"enabled"`
	RequestBindAddress string `yaml:"request_bind_address"`
	PublishBindAddress string `yaml:"publish_bind_address"`
}

// DataConfig holds data directory settings from bootstrap
type DataConfig struct {
	Directory       string `yaml:"directory"`
	PresetsFilename string `yaml:"presets_file"`
}

// Defaults for optional bootstrap fields.
const (
	DefaultCommandHost    = "localhost"
	DefaultCommandPort    = 65432
	DefaultBufferSize     = 1024
	DefaultErrorBackoffMs = 1000
	DefaultTimeStepMs     = 32
	DefaultMaxVelocity    = 1.0
	DefaultLogLevel       = "info"
)

// LoadBootstrapConfig loads the bootstrap configuration from controller_config.yaml
func LoadBootstrapConfig(configDir string) (*BootstrapConfig, error) {
	bootstrapConfigPath := filepath.Join(configDir, BootstrapFilename)

	data, err := os.ReadFile(bootstrapConfigPath)
	if err != nil {
		return nil, fmt.Errorf("error reading bootstrap config file '%s': %w", bootstrapConfigPath, err)
	}

	var bootstrapCfg BootstrapConfig
	if err := yaml.Unmarshal(data, &bootstrapCfg); err != nil {
		return nil, fmt.Errorf("error parsing bootstrap config file '%s': %w", bootstrapConfigPath, err)
	}

	if bootstrapCfg.Data.Directory == "" {
		return nil, fmt.Errorf("missing required field in bootstrap config: data.directory")
	}
	if bootstrapCfg.Data.PresetsFilename == "" {
		return nil, fmt.Errorf("missing required field in bootstrap config: data.presets_file")
	}
	if bootstrapCfg.ZeroMQ.Enabled {
		if bootstrapCfg.ZeroMQ.RequestBindAddress == "" {
			return nil, fmt.Errorf("missing required field in bootstrap config: zeromq.request_bind_address")
		}
		if bootstrapCfg.ZeroMQ.PublishBindAddress == "" {
			return nil, fmt.Errorf("missing required field in bootstrap config: zeromq.publish_bind_address")
		}
	}

	bootstrapCfg.applyDefaults()

	// Relative data directories are resolved against the config directory
	if !filepath.IsAbs(bootstrapCfg.Data.Directory) {
		bootstrapCfg.Data.Directory = filepath.Join(configDir, bootstrapCfg.Data.Directory)
	}

	return &bootstrapCfg, nil
}

func (c *BootstrapConfig) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.CommandServer.Host == "" {
		c.CommandServer.Host = DefaultCommandHost
	}
	if c.CommandServer.Port == 0 {
		c.CommandServer.Port = DefaultCommandPort
	}
	if c.CommandServer.BufferSize <= 0 {
		c.CommandServer.BufferSize = DefaultBufferSize
	}
	if c.CommandServer.ErrorBackoffMs <= 0 {
		c.CommandServer.ErrorBackoffMs = DefaultErrorBackoffMs
	}
	if c.Simulation.BasicTimeStepMs <= 0 {
		c.Simulation.BasicTimeStepMs = DefaultTimeStepMs
	}
	if c.Simulation.MaxVelocity <= 0 {
		c.Simulation.MaxVelocity = DefaultMaxVelocity
	}
}

// Address returns host:port for the command listener.
func (c CommandServerConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ErrorBackoff returns the pause after unexpected socket errors.
func (c CommandServerConfig) ErrorBackoff() time.Duration {
	return time.Duration(c.ErrorBackoffMs) * time.Millisecond
}

// PresetsPath returns the full path of the presets file.
func (c DataConfig) PresetsPath() string {
	return filepath.Join(c.Directory, c.PresetsFilename)
}

// TelemetryEvery converts the telemetry interval into a tick count. Zero disables telemetry.
func (c SimulationConfig) TelemetryEvery() int {
	if c.TelemetryIntervalMs <= 0 || c.BasicTimeStepMs <= 0 {
		return 0
	}
	n := c.TelemetryIntervalMs / c.BasicTimeStepMs
	if n < 1 {
		n = 1
	}
	return n
}
