package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"farmbeats-monitor/config"
	"farmbeats-monitor/internal/collector"
	"farmbeats-monitor/internal/dashboard"
	"farmbeats-monitor/internal/device"
	"farmbeats-monitor/internal/metrics"
	"farmbeats-monitor/internal/modbus"
	"farmbeats-monitor/internal/simulation"
	"farmbeats-monitor/internal/storage"
	"farmbeats-monitor/internal/weather"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	weatherCacheTTL   = 10 * time.Minute
	defaultStatsSince = 24 * time.Hour
	defaultHistory    = 100
	maxHistory        = 1000
)

type Server struct {
	router      *gin.Engine
	server      *http.Server
	collector   *collector.Collector
	db          *storage.Database
	planner     *dashboard.DronePlanner
	port        int
	config      *config.Config
	configPath  string
	configMutex sync.RWMutex
	weatherMu   sync.Mutex
	weather     weather.Provider
	weatherData *weather.Data
	weatherAt   time.Time
}

type ServerConfig struct {
	Port       int
	Collector  *collector.Collector
	Database   *storage.Database
	Planner    *dashboard.DronePlanner
	Config     *config.Config
	ConfigPath string
}

func NewServer(cfg ServerConfig) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	appConfig := cfg.Config
	if appConfig == nil {
		appConfig = &config.Config{}
	}
	coll := cfg.Collector
	if coll == nil {
		coll = collector.NewCollector(collector.CollectorConfig{Database: cfg.Database})
	}
	planner := cfg.Planner
	if planner == nil {
		planner = dashboard.NewDronePlanner(appConfig.Simulation.DroneDelay)
	}

	s := &Server{
		router:     router,
		collector:  coll,
		db:         cfg.Database,
		planner:    planner,
		port:       cfg.Port,
		config:     appConfig,
		configPath: cfg.ConfigPath,
	}

	s.initWeatherProvider()
	s.setupRoutes()
	return s
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api/v1")
	{
		api.GET("/conditions", s.conditionsHandler)
		api.GET("/impact/:condition", s.impactHandler)
		api.GET("/impact/:condition/series", s.seriesHandler)

		api.GET("/simulation/current", s.currentHandler)
		api.PUT("/simulation/condition", s.selectConditionHandler)
		api.GET("/simulation/history", s.historyHandler)
		api.GET("/simulation/stats", s.statsHandler)

		api.GET("/dashboard/status", s.dashboardStatusHandler)
		api.GET("/dashboard/notifications", s.notificationsHandler)
		api.GET("/field-map", s.fieldMapHandler)
		api.GET("/soil-analytics", s.soilAnalyticsHandler)
		api.POST("/drone/plan", s.dronePlanHandler)

		api.GET("/weather/live", s.liveWeatherHandler)

		// Config routes
		api.GET("/config/weather", s.getWeatherConfigHandler)
		api.PUT("/config/weather", s.updateWeatherConfigHandler)
		api.POST("/config/device/test", s.testDeviceHandler)
	}
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.router,
	}

	log.Printf("API server starting on port %d", s.port)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// writeError maps domain errors onto HTTP status codes.
func writeError(c *gin.Context, err error) {
	var invalid *simulation.InvalidConditionError
	switch {
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_condition"})
	case errors.Is(err, collector.ErrLiveSource):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "live_source"})
	case errors.Is(err, dashboard.ErrInvalidFlightSettings):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_flight_settings"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"collecting": s.collector.IsCollecting(),
		"condition":  s.collector.Selected(),
		"source":     s.collector.Source(),
		"timestamp":  time.Now(),
	})
}

func (s *Server) conditionsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"conditions": simulation.Conditions(),
		"selected":   s.collector.Selected(),
	})
}

func (s *Server) impactHandler(c *gin.Context) {
	condition, err := simulation.ParseCondition(c.Param("condition"))
	if err == nil {
		var m simulation.DerivedMetrics
		m, err = simulation.Resolve(condition)
		metrics.ObserveResolve(condition, err)
		if err == nil {
			c.JSON(http.StatusOK, m)
			return
		}
	}
	writeError(c, err)
}

func (s *Server) seriesHandler(c *gin.Context) {
	condition, err := simulation.ParseCondition(c.Param("condition"))
	if err != nil {
		writeError(c, err)
		return
	}

	series, err := simulation.GenerateEnergySeries(condition)
	if err != nil {
		writeError(c, err)
		return
	}

	hours := make([]int, simulation.HoursPerDay)
	for h := range hours {
		hours[h] = h
	}
	c.JSON(http.StatusOK, gin.H{
		"condition": condition,
		"hours":     hours,
		"values":    series,
	})
}

func (s *Server) currentHandler(c *gin.Context) {
	snapshot := s.collector.GetLatest()
	if snapshot == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "No data available yet",
		})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

type selectConditionRequest struct {
	Condition string `json:"condition" binding:"required"`
}

func (s *Server) selectConditionHandler(c *gin.Context) {
	var req selectConditionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	condition, err := simulation.ParseCondition(req.Condition)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := s.collector.Select(condition); err != nil {
		writeError(c, err)
		return
	}

	log.Printf("Weather condition selected: %s", condition)
	c.JSON(http.StatusOK, s.collector.GetLatest())
}

func (s *Server) historyHandler(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "History storage is disabled"})
		return
	}

	fromStr := c.Query("from")
	toStr := c.Query("to")

	if fromStr != "" && toStr != "" {
		from, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'from' date format"})
			return
		}
		to, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'to' date format"})
			return
		}

		snapshots, err := s.db.GetSnapshotsByRange(from, to)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, snapshots)
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultHistory)))
	if err != nil || limit <= 0 || limit > maxHistory {
		limit = defaultHistory
	}

	snapshots, err := s.db.GetSnapshotsWithLimit(limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshots)
}

func (s *Server) statsHandler(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "History storage is disabled"})
		return
	}

	window := defaultStatsSince
	if raw := c.Query("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'window' duration"})
			return
		}
		window = parsed
	}

	since := time.Now().Add(-window)
	stats, err := s.db.GetConditionStats(since)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"since":      since,
		"conditions": stats,
	})
}

// currentMetrics falls back to resolving the selection before the first
// collection cycle has run.
func (s *Server) currentMetrics() (simulation.DerivedMetrics, error) {
	if snapshot := s.collector.GetLatest(); snapshot != nil {
		return snapshot.Metrics, nil
	}
	return simulation.Resolve(s.collector.Selected())
}

func (s *Server) dashboardStatusHandler(c *gin.Context) {
	m, err := s.currentMetrics()
	if err != nil {
		writeError(c, err)
		return
	}

	s.configMutex.RLock()
	farm := s.config.Simulation.FarmName
	s.configMutex.RUnlock()

	c.JSON(http.StatusOK, dashboard.BuildStatus(farm, m))
}

func (s *Server) notificationsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, dashboard.Notifications())
}

func (s *Server) fieldMapHandler(c *gin.Context) {
	c.JSON(http.StatusOK, dashboard.BuildFieldMap())
}

func (s *Server) soilAnalyticsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, dashboard.BuildSoilAnalytics())
}

func (s *Server) dronePlanHandler(c *gin.Context) {
	// An empty body plans with the default altitude and wind.
	var req dashboard.FlightRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		metrics.IncDronePlan(metrics.ResultError)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	plan, err := s.planner.Plan(c.Request.Context(), req)
	if err != nil {
		metrics.IncDronePlan(metrics.ResultError)
		writeError(c, err)
		return
	}

	metrics.IncDronePlan(metrics.ResultSuccess)
	c.JSON(http.StatusOK, plan)
}

func (s *Server) liveWeatherHandler(c *gin.Context) {
	now := time.Now()
	data := s.getWeather(now)
	if data == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Weather data unavailable"})
		return
	}

	resp := gin.H{
		"weather":  data,
		"daylight": data.IsDaylight(now),
	}
	if condition, ok := weather.Classify(data); ok {
		resp["condition"] = condition
	}
	c.JSON(http.StatusOK, resp)
}

type WeatherConfigResponse struct {
	Enabled   bool    `json:"enabled"`
	Provider  string  `json:"provider"`
	APIKey    string  `json:"api_key"`
	City      string  `json:"city"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Units     string  `json:"units"`
}

type WeatherConfigRequest struct {
	Enabled   bool    `json:"enabled"`
	Provider  string  `json:"provider"`
	APIKey    string  `json:"api_key"`
	City      string  `json:"city"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Units     string  `json:"units"`
}

func (s *Server) getWeatherConfigHandler(c *gin.Context) {
	s.configMutex.RLock()
	defer s.configMutex.RUnlock()

	cfg := s.config.Weather
	c.JSON(http.StatusOK, WeatherConfigResponse{
		Enabled:   cfg.Enabled,
		Provider:  cfg.Provider,
		APIKey:    cfg.APIKey,
		City:      cfg.City,
		Country:   cfg.Country,
		Latitude:  cfg.Latitude,
		Longitude: cfg.Longitude,
		Units:     cfg.Units,
	})
}

func (s *Server) updateWeatherConfigHandler(c *gin.Context) {
	var req WeatherConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if strings.TrimSpace(req.Provider) == "" {
		req.Provider = "openmeteo"
	}
	if strings.TrimSpace(req.Units) == "" {
		req.Units = "metric"
	}

	next := config.WeatherConfig{
		Enabled:   req.Enabled,
		Provider:  req.Provider,
		APIKey:    req.APIKey,
		City:      req.City,
		Country:   req.Country,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Units:     req.Units,
	}
	if _, err := weather.NewProvider(next); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.configMutex.Lock()
	s.config.Weather = next
	s.configMutex.Unlock()

	s.initWeatherProvider()

	if err := s.saveConfigToFile(); err != nil {
		log.Printf("Warning: Failed to save config to file: %v", err)
		c.JSON(http.StatusOK, gin.H{
			"message": "Configuration applied but not persisted to file",
			"warning": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Weather configuration updated successfully",
	})
}

type DeviceTestRequest struct {
	Host           string `json:"host" binding:"required"`
	Port           int    `json:"port" binding:"required,min=1,max=65535"`
	SlaveID        uint8  `json:"slave_id" binding:"required,min=1,max=255"`
	TimeoutSeconds int    `json:"timeout_seconds" binding:"required,min=1,max=60"`
}

// testDeviceHandler connects to a simulated device and decodes its registers
// without touching the running configuration.
func (s *Server) testDeviceHandler(c *gin.Context) {
	var req DeviceTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "success": false})
		return
	}

	timeout := time.Duration(req.TimeoutSeconds) * time.Second
	client := modbus.NewClient(req.Host, req.Port, req.SlaveID, timeout)
	if err := client.Connect(); err != nil {
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Connection failed: %v", err),
		})
		return
	}
	defer client.Close()

	reading, err := device.Read(client)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Failed to read device: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"reading": reading,
		"message": "Connection successful",
	})
}

func (s *Server) saveConfigToFile() error {
	s.configMutex.RLock()
	defer s.configMutex.RUnlock()

	configPath := s.configPath
	if configPath == "" {
		configPath = "config.yaml"
	}
	return config.Save(configPath, s.config)
}

// initWeatherProvider rebuilds the provider from config and hands it to the
// collector so live mode follows the new settings.
func (s *Server) initWeatherProvider() {
	s.weatherMu.Lock()
	defer s.weatherMu.Unlock()

	s.weather = nil
	s.weatherData = nil
	s.weatherAt = time.Time{}

	s.configMutex.RLock()
	cfg := s.config.Weather
	s.configMutex.RUnlock()

	provider, err := weather.NewProvider(cfg)
	if err != nil {
		log.Printf("Weather provider not available: %v", err)
	}
	if provider != nil {
		s.weather = provider
	}
	s.collector.SetWeather(provider)
}

func (s *Server) getWeather(now time.Time) *weather.Data {
	s.weatherMu.Lock()
	defer s.weatherMu.Unlock()

	if s.weather == nil {
		return nil
	}

	if s.weatherData != nil && now.Sub(s.weatherAt) < weatherCacheTTL {
		return s.weatherData
	}

	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()

	data, err := s.weather.Get(ctx)
	if err != nil {
		log.Printf("Weather fetch failed: %v", err)
		return s.weatherData
	}

	s.weatherData = data
	s.weatherAt = now
	return data
}
