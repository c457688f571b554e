package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MinAltitudeM     = 10
	MaxAltitudeM     = 50
	DefaultAltitudeM = 30

	planResultMessage = "Path Optimized: 30% Battery Saving predicted."
)

var ErrInvalidFlightSettings = errors.New("invalid flight settings")

var WindDirections = []string{"North", "East", "South", "West"}

type FlightRequest struct {
	AltitudeM     int    `json:"altitude_m"`
	WindDirection string `json:"wind_direction"`
}

type FlightPlan struct {
	ID            string  `json:"id"`
	AltitudeM     int     `json:"altitude_m"`
	WindDirection string  `json:"wind_direction"`
	Waypoints     []Point `json:"waypoints"`
	Annotation    string  `json:"annotation"`
	Message       string  `json:"message"`
}

// DronePlanner returns the fixed min-waypoint zig-zag coverage pattern. The
// delay is display latency only; nothing is computed while waiting.
type DronePlanner struct {
	delay time.Duration
}

func NewDronePlanner(delay time.Duration) *DronePlanner {
	if delay < 0 {
		delay = 0
	}
	return &DronePlanner{delay: delay}
}

func normalizeWindDirection(value string) (string, bool) {
	for _, d := range WindDirections {
		if strings.EqualFold(strings.TrimSpace(value), d) {
			return d, true
		}
	}
	return "", false
}

// Preview is the coverage path shown before the plan is requested.
func Preview() []Point {
	return points(
		[]float64{10, 20, 20, 30, 30, 40, 40, 50},
		[]float64{10, 10, 40, 40, 10, 10, 40, 40},
	)
}

func (p *DronePlanner) Plan(ctx context.Context, req FlightRequest) (*FlightPlan, error) {
	if req.AltitudeM == 0 {
		req.AltitudeM = DefaultAltitudeM
	}
	if req.AltitudeM < MinAltitudeM || req.AltitudeM > MaxAltitudeM {
		return nil, fmt.Errorf("%w: altitude %d m outside %d-%d m", ErrInvalidFlightSettings, req.AltitudeM, MinAltitudeM, MaxAltitudeM)
	}

	wind := WindDirections[0]
	if req.WindDirection != "" {
		var ok bool
		if wind, ok = normalizeWindDirection(req.WindDirection); !ok {
			return nil, fmt.Errorf("%w: unknown wind direction %q", ErrInvalidFlightSettings, req.WindDirection)
		}
	}

	if p.delay > 0 {
		timer := time.NewTimer(p.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return &FlightPlan{
		ID:            uuid.NewString(),
		AltitudeM:     req.AltitudeM,
		WindDirection: wind,
		Waypoints:     Preview(),
		Annotation:    fmt.Sprintf("Wind: %s", wind),
		Message:       planResultMessage,
	}, nil
}
