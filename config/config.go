package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"farmbeats-monitor/internal/simulation"

	"github.com/spf13/viper"
)

const (
	SourceManual = "manual"
	SourceLive   = "live"
)

type Config struct {
	Simulation SimulationConfig `mapstructure:"simulation"`
	API        APIConfig        `mapstructure:"api"`
	MQTT       MQTTConfig       `mapstructure:"mqtt"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Weather    WeatherConfig    `mapstructure:"weather"`
	Device     DeviceConfig     `mapstructure:"device"`
}

type SimulationConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Condition  string        `mapstructure:"condition"`
	Source     string        `mapstructure:"source"`
	Interval   time.Duration `mapstructure:"interval"`
	DroneDelay time.Duration `mapstructure:"drone_delay"`
	FarmName   string        `mapstructure:"farm_name"`
}

type APIConfig struct {
	Port    int  `mapstructure:"port"`
	Enabled bool `mapstructure:"enabled"`
}

type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
}

type DatabaseConfig struct {
	Path      string        `mapstructure:"path"`
	Retention time.Duration `mapstructure:"retention"`
}

type WeatherConfig struct {
	Enabled   bool    `mapstructure:"enabled"`
	Provider  string  `mapstructure:"provider"`
	APIKey    string  `mapstructure:"api_key"`
	City      string  `mapstructure:"city"`
	Country   string  `mapstructure:"country"`
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
	Units     string  `mapstructure:"units"`
}

// DeviceConfig describes the simulated solar edge device exposed over Modbus TCP.
type DeviceConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Host    string        `mapstructure:"host"`
	Port    int           `mapstructure:"port"`
	SlaveID uint8         `mapstructure:"slave_id"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// InitialCondition returns the configured starting selection.
func (c SimulationConfig) InitialCondition() (simulation.WeatherCondition, error) {
	return simulation.ParseCondition(c.Condition)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("simulation.enabled", true)
	v.SetDefault("simulation.condition", "Sunny")
	v.SetDefault("simulation.source", SourceManual)
	v.SetDefault("simulation.interval", "30s")
	v.SetDefault("simulation.drone_delay", "1500ms")
	v.SetDefault("simulation.farm_name", "Zwickau Farm")
	v.SetDefault("api.port", 8046)
	v.SetDefault("api.enabled", true)
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.topic_prefix", "farmbeats")
	v.SetDefault("mqtt.client_id", "farmbeats-monitor")
	v.SetDefault("database.path", "file::memory:?cache=shared")
	v.SetDefault("database.retention", "720h")
	v.SetDefault("weather.enabled", false)
	v.SetDefault("weather.provider", "openmeteo")
	v.SetDefault("weather.api_key", "")
	v.SetDefault("weather.city", "Zwickau")
	v.SetDefault("weather.country", "DE")
	v.SetDefault("weather.latitude", 0)
	v.SetDefault("weather.longitude", 0)
	v.SetDefault("weather.units", "metric")
	v.SetDefault("device.enabled", false)
	v.SetDefault("device.host", "localhost")
	v.SetDefault("device.port", 5020)
	v.SetDefault("device.slave_id", 1)
	v.SetDefault("device.timeout", "5s")
}

func Load(configPath string) (*Config, error) {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/farmbeats-monitor")
	}

	setDefaults(v)

	v.SetEnvPrefix("FARMBEATS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if _, err := cfg.Simulation.InitialCondition(); err != nil {
		return nil, fmt.Errorf("simulation.condition: %w", err)
	}

	switch cfg.Simulation.Source {
	case SourceManual, SourceLive:
	default:
		return nil, fmt.Errorf("simulation.source: unsupported value %q", cfg.Simulation.Source)
	}

	return &cfg, nil
}

// Save writes the runtime-editable sections back to a YAML file.
func Save(configPath string, cfg *Config) error {
	if configPath == "" {
		configPath = "config.yaml"
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	// Keep whatever else the file holds.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	v.Set("simulation.condition", cfg.Simulation.Condition)
	v.Set("simulation.source", cfg.Simulation.Source)
	v.Set("weather.enabled", cfg.Weather.Enabled)
	v.Set("weather.provider", cfg.Weather.Provider)
	v.Set("weather.api_key", cfg.Weather.APIKey)
	v.Set("weather.city", cfg.Weather.City)
	v.Set("weather.country", cfg.Weather.Country)
	v.Set("weather.latitude", cfg.Weather.Latitude)
	v.Set("weather.longitude", cfg.Weather.Longitude)
	v.Set("weather.units", cfg.Weather.Units)

	return v.WriteConfigAs(configPath)
}
