package collector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"farmbeats-monitor/config"
	"farmbeats-monitor/internal/metrics"
	"farmbeats-monitor/internal/simulation"
	"farmbeats-monitor/internal/storage"
	"farmbeats-monitor/internal/weather"
)

// ErrLiveSource is returned when a manual selection is attempted while the
// condition follows live weather.
var ErrLiveSource = errors.New("selection follows live weather")

// Sink receives every resolved snapshot.
type Sink interface {
	Publish(m simulation.DerivedMetrics) error
}

// DeviceUpdater mirrors snapshots into the simulated device registers.
type DeviceUpdater interface {
	Update(m simulation.DerivedMetrics)
}

// Snapshot is the latest resolved selection.
type Snapshot struct {
	Timestamp time.Time                 `json:"timestamp"`
	Source    string                    `json:"source"`
	Metrics   simulation.DerivedMetrics `json:"metrics"`
	Weather   *weather.Data             `json:"weather,omitempty"`
}

type Collector struct {
	db        *storage.Database
	publisher Sink
	device    DeviceUpdater
	weather   weather.Provider
	source    string
	interval  time.Duration
	enabled   bool

	mu           sync.RWMutex
	selected     simulation.WeatherCondition
	latest       *Snapshot
	isCollecting bool
}

type CollectorConfig struct {
	Database  *storage.Database
	Publisher Sink
	Device    DeviceUpdater
	Weather   weather.Provider
	Source    string
	Condition simulation.WeatherCondition
	Interval  time.Duration
	Enabled   bool
}

func NewCollector(cfg CollectorConfig) *Collector {
	source := cfg.Source
	if source == "" {
		source = config.SourceManual
	}
	selected := cfg.Condition
	if !selected.Valid() {
		selected = simulation.Sunny
	}
	return &Collector{
		db:        cfg.Database,
		publisher: cfg.Publisher,
		device:    cfg.Device,
		weather:   cfg.Weather,
		source:    source,
		interval:  cfg.Interval,
		enabled:   cfg.Enabled,
		selected:  selected,
	}
}

// SetDevice attaches the device after construction; the device needs the
// collector as its selector.
func (c *Collector) SetDevice(d DeviceUpdater) {
	c.mu.Lock()
	c.device = d
	c.mu.Unlock()
}

// SetWeather swaps the live weather provider at runtime.
func (c *Collector) SetWeather(p weather.Provider) {
	c.mu.Lock()
	c.weather = p
	c.mu.Unlock()
}

func (c *Collector) Start(ctx context.Context) error {
	if !c.enabled {
		log.Println("Collector is disabled")
		return nil
	}
	if c.interval <= 0 {
		return fmt.Errorf("collector interval must be positive, got %s", c.interval)
	}

	c.mu.Lock()
	c.isCollecting = true
	c.mu.Unlock()

	log.Printf("Starting collector with interval %s (source=%s)", c.interval, c.source)

	if _, err := c.CollectOnce(ctx); err != nil {
		log.Printf("Error collecting snapshot: %v", err)
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Collector stopped")
			c.mu.Lock()
			c.isCollecting = false
			c.mu.Unlock()
			return nil
		case <-ticker.C:
			if _, err := c.CollectOnce(ctx); err != nil {
				log.Printf("Error collecting snapshot: %v", err)
			}
		}
	}
}

// currentCondition returns the condition to resolve. In live mode a weather
// failure keeps the last selection.
func (c *Collector) currentCondition(ctx context.Context) (simulation.WeatherCondition, string, *weather.Data) {
	c.mu.RLock()
	selected := c.selected
	provider := c.weather
	c.mu.RUnlock()

	if c.source != config.SourceLive || provider == nil {
		return selected, config.SourceManual, nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, 12*time.Second)
	defer cancel()

	data, err := provider.Get(fetchCtx)
	if err != nil {
		log.Printf("Weather fetch failed, keeping %s: %v", selected, err)
		return selected, config.SourceManual, nil
	}

	condition, ok := weather.Classify(data)
	if !ok {
		return selected, config.SourceManual, data
	}

	c.mu.Lock()
	c.selected = condition
	c.mu.Unlock()
	return condition, config.SourceLive, data
}

// CollectOnce resolves the current condition and fans the snapshot out to
// storage, MQTT and the device.
func (c *Collector) CollectOnce(ctx context.Context) (*Snapshot, error) {
	start := time.Now()
	condition, source, data := c.currentCondition(ctx)

	m, err := simulation.Resolve(condition)
	metrics.ObserveResolve(condition, err)
	if err != nil {
		metrics.ObserveCollect(metrics.ResultError, time.Since(start))
		return nil, err
	}

	snapshot := &Snapshot{
		Timestamp: time.Now(),
		Source:    source,
		Metrics:   m,
		Weather:   data,
	}

	c.mu.Lock()
	c.latest = snapshot
	device := c.device
	c.mu.Unlock()

	if c.db != nil {
		if err := c.db.SaveSnapshot(snapshot.Timestamp, source, m); err != nil {
			log.Printf("Error saving snapshot: %v", err)
		}
	}

	if c.publisher != nil {
		if err := c.publisher.Publish(m); err != nil {
			log.Printf("Error publishing to MQTT: %v", err)
		}
	}

	if device != nil {
		device.Update(m)
	}

	metrics.SetCurrent(m)
	metrics.ObserveCollect(metrics.ResultSuccess, time.Since(start))

	log.Printf("Collected: Weather=%s, Battery=%d%%, Solar=%s, Mode=%s",
		condition, m.BatteryLevelPercent, m.SolarInputLabel, m.OperatingMode)

	return snapshot, nil
}

// Select changes the manual selection and collects immediately. In live mode
// without a weather provider the manual selection is in effect.
func (c *Collector) Select(condition simulation.WeatherCondition) error {
	if !condition.Valid() {
		return &simulation.InvalidConditionError{Condition: condition}
	}

	c.mu.Lock()
	if c.source == config.SourceLive && c.weather != nil {
		c.mu.Unlock()
		return ErrLiveSource
	}
	c.selected = condition
	c.mu.Unlock()

	_, err := c.CollectOnce(context.Background())
	return err
}

func (c *Collector) Selected() simulation.WeatherCondition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selected
}

func (c *Collector) Source() string {
	return c.source
}

func (c *Collector) GetLatest() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest
}

func (c *Collector) IsCollecting() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isCollecting
}

type closer interface {
	Close()
}

func (c *Collector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cl, ok := c.publisher.(closer); ok {
		cl.Close()
	}
	if c.db != nil {
		c.db.Close()
	}
}
