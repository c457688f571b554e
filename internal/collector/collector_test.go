package collector

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"farmbeats-monitor/config"
	"farmbeats-monitor/internal/simulation"
	"farmbeats-monitor/internal/storage"
	"farmbeats-monitor/internal/weather"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu        sync.Mutex
	published []simulation.DerivedMetrics
	closed    bool
}

func (s *recordingSink) Publish(m simulation.DerivedMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, m)
	return nil
}

func (s *recordingSink) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.published)
}

type recordingDevice struct {
	last simulation.DerivedMetrics
}

func (d *recordingDevice) Update(m simulation.DerivedMetrics) {
	d.last = m
}

type stubProvider struct {
	data *weather.Data
	err  error
}

func (p *stubProvider) Get(ctx context.Context) (*weather.Data, error) {
	return p.data, p.err
}

func newTestDatabase(t *testing.T) *storage.Database {
	t.Helper()
	db, err := storage.NewDatabase(filepath.Join(t.TempDir(), "collector.db"))
	require.NoError(t, err)
	return db
}

func TestCollectOnceManual(t *testing.T) {
	db := newTestDatabase(t)
	sink := &recordingSink{}
	dev := &recordingDevice{}

	c := NewCollector(CollectorConfig{
		Database:  db,
		Publisher: sink,
		Device:    dev,
		Condition: simulation.Cloudy,
		Interval:  time.Minute,
		Enabled:   true,
	})
	defer c.Stop()

	snapshot, err := c.CollectOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, config.SourceManual, snapshot.Source)
	assert.Equal(t, 65, snapshot.Metrics.BatteryLevelPercent)
	assert.Equal(t, simulation.ModeConservation, snapshot.Metrics.OperatingMode)
	assert.Nil(t, snapshot.Weather)

	assert.Equal(t, 1, sink.count())
	assert.Equal(t, simulation.Cloudy, dev.last.Condition)
	assert.Same(t, snapshot, c.GetLatest())

	stored, err := db.GetLatestSnapshot()
	require.NoError(t, err)
	assert.Equal(t, "Cloudy", stored.Condition)
	assert.Equal(t, 65, stored.BatteryLevelPercent)
}

func TestNewCollectorDefaults(t *testing.T) {
	c := NewCollector(CollectorConfig{})
	assert.Equal(t, simulation.Sunny, c.Selected())
	assert.Equal(t, config.SourceManual, c.Source())
	assert.Nil(t, c.GetLatest())
	assert.False(t, c.IsCollecting())
}

func TestSelect(t *testing.T) {
	sink := &recordingSink{}
	c := NewCollector(CollectorConfig{Publisher: sink})

	require.NoError(t, c.Select(simulation.Storm))
	assert.Equal(t, simulation.Storm, c.Selected())

	latest := c.GetLatest()
	require.NotNil(t, latest)
	assert.Equal(t, 28, latest.Metrics.BatteryLevelPercent)
	assert.Equal(t, "10Wh/day", latest.Metrics.SolarInputLabel)
	assert.Equal(t, simulation.ModeDeepSleep, latest.Metrics.OperatingMode)
	assert.Equal(t, 1, sink.count())
}

func TestSelectInvalid(t *testing.T) {
	sink := &recordingSink{}
	c := NewCollector(CollectorConfig{Publisher: sink, Condition: simulation.Cloudy})

	err := c.Select(simulation.WeatherCondition(9))
	var invalid *simulation.InvalidConditionError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, simulation.Cloudy, c.Selected())
	assert.Nil(t, c.GetLatest())
	assert.Equal(t, 0, sink.count())
}

func TestSelectRejectedInLiveMode(t *testing.T) {
	c := NewCollector(CollectorConfig{
		Source:  config.SourceLive,
		Weather: &stubProvider{data: &weather.Data{Clouds: 10}},
	})
	assert.ErrorIs(t, c.Select(simulation.Storm), ErrLiveSource)
}

func TestSelectInLiveModeWithoutProvider(t *testing.T) {
	c := NewCollector(CollectorConfig{Source: config.SourceLive, Condition: simulation.Sunny})

	require.NoError(t, c.Select(simulation.Storm))
	assert.Equal(t, simulation.Storm, c.Selected())
	require.NotNil(t, c.GetLatest())
	assert.Equal(t, simulation.Storm, c.GetLatest().Metrics.Condition)
	assert.Equal(t, config.SourceManual, c.GetLatest().Source)

	c.SetWeather(&stubProvider{data: &weather.Data{Clouds: 10}})
	assert.ErrorIs(t, c.Select(simulation.Cloudy), ErrLiveSource)

	c.SetWeather(nil)
	require.NoError(t, c.Select(simulation.Cloudy))
	assert.Equal(t, simulation.Cloudy, c.Selected())
}

func TestCollectOnceLive(t *testing.T) {
	provider := &stubProvider{data: &weather.Data{Provider: "stub", Condition: "Rain", Rain1h: 2, Clouds: 95}}
	c := NewCollector(CollectorConfig{
		Source:    config.SourceLive,
		Weather:   provider,
		Condition: simulation.Sunny,
	})

	snapshot, err := c.CollectOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, config.SourceLive, snapshot.Source)
	assert.Equal(t, simulation.Cloudy, snapshot.Metrics.Condition)
	assert.Equal(t, simulation.Cloudy, c.Selected())
	require.NotNil(t, snapshot.Weather)
	assert.Equal(t, "stub", snapshot.Weather.Provider)
}

func TestCollectOnceLiveFallback(t *testing.T) {
	c := NewCollector(CollectorConfig{
		Source:    config.SourceLive,
		Weather:   &stubProvider{err: errors.New("offline")},
		Condition: simulation.Storm,
	})

	snapshot, err := c.CollectOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, config.SourceManual, snapshot.Source)
	assert.Equal(t, simulation.Storm, snapshot.Metrics.Condition)
	assert.Nil(t, snapshot.Weather)
}

func TestSetWeather(t *testing.T) {
	c := NewCollector(CollectorConfig{Source: config.SourceLive, Condition: simulation.Cloudy})

	snapshot, err := c.CollectOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, simulation.Cloudy, snapshot.Metrics.Condition)

	c.SetWeather(&stubProvider{data: &weather.Data{Condition: "Thunderstorm"}})
	snapshot, err = c.CollectOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, simulation.Storm, snapshot.Metrics.Condition)
}

func TestStartRejectsZeroInterval(t *testing.T) {
	c := NewCollector(CollectorConfig{Enabled: true})
	assert.Error(t, c.Start(context.Background()))
}

func TestStartDisabled(t *testing.T) {
	c := NewCollector(CollectorConfig{Enabled: false, Interval: time.Second})
	assert.NoError(t, c.Start(context.Background()))
	assert.Nil(t, c.GetLatest())
}

func TestStartCollectsUntilCancelled(t *testing.T) {
	sink := &recordingSink{}
	c := NewCollector(CollectorConfig{
		Publisher: sink,
		Interval:  10 * time.Millisecond,
		Enabled:   true,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool { return sink.count() >= 2 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, c.IsCollecting())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("collector did not stop")
	}
	assert.False(t, c.IsCollecting())

	c.Stop()
	assert.True(t, sink.closed)
}
