package telemetry

import (
	"fmt"
	"math"
	"time"

	"guidelight-panel/internal/errcode"
)

// Source is the randomness a Generator draws from. *rand.Rand satisfies it.
type Source interface {
	Float64() float64
	Intn(n int) int
}

// Bounds are the ranges a tick draws from. Upper bounds are exclusive.
type Bounds struct {
	TempMinC, TempMaxC float64
	CPUMin, CPUMax     int
	GPUMin, GPUMax     int
	GPU                bool
	BatteryFloor       float64
	BatteryDrainMax    float64
}

// Generator perturbs device metrics once per tick.
type Generator struct {
	DeviceID string
	Bounds   Bounds
	rand     Source
	now      func() time.Time
}

// NewGenerator creates a generator for a device.
func NewGenerator(deviceID string, b Bounds, src Source, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{DeviceID: deviceID, Bounds: b, rand: src, now: now}
}

// Tick updates m in place and returns the row to export. Any metric that
// landed outside its bounds is clamped and reported as a *ClampError.
func (g *Generator) Tick(m *Metrics) (Row, []error) {
	b := g.Bounds
	var clamped []error

	m.TemperatureC = g.uniform(b.TempMinC, b.TempMaxC)
	m.CPULoad = g.intn(b.CPUMin, b.CPUMax)
	if b.GPU {
		m.GPULoad = g.intn(b.GPUMin, b.GPUMax)
	}

	recharged := false
	next := m.Battery - g.rand.Float64()*b.BatteryDrainMax
	if next <= b.BatteryFloor {
		next = 100
		recharged = true
	}
	m.Battery = next

	if v, ok := clampFloat(m.TemperatureC, b.TempMinC, b.TempMaxC); !ok {
		clamped = append(clamped, outOfRange("temperature", m.TemperatureC, v))
		m.TemperatureC = v
	}
	if v, ok := clampInt(m.CPULoad, b.CPUMin, b.CPUMax); !ok {
		clamped = append(clamped, outOfRange("cpu_load", m.CPULoad, v))
		m.CPULoad = v
	}
	if b.GPU {
		if v, ok := clampInt(m.GPULoad, b.GPUMin, b.GPUMax); !ok {
			clamped = append(clamped, outOfRange("gpu_load", m.GPULoad, v))
			m.GPULoad = v
		}
	}
	if m.Battery > 100 {
		clamped = append(clamped, outOfRange("battery", m.Battery, 100.0))
		m.Battery = 100
	}

	return Row{
		DeviceID:     g.DeviceID,
		TemperatureC: m.TemperatureC,
		CPULoad:      m.CPULoad,
		GPULoad:      m.GPULoad,
		Battery:      m.Battery,
		Recharged:    recharged,
		Timestamp:    g.now().UTC(),
	}, clamped
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rand.Float64()*(hi-lo)
}

func (g *Generator) intn(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + g.rand.Intn(hi-lo)
}

// clampFloat keeps v in [lo,hi).
func clampFloat(v, lo, hi float64) (float64, bool) {
	switch {
	case v < lo:
		return lo, false
	case v >= hi:
		return math.Nextafter(hi, lo), false
	}
	return v, true
}

// clampInt keeps v in [lo,hi).
func clampInt(v, lo, hi int) (int, bool) {
	switch {
	case v < lo:
		return lo, false
	case v >= hi:
		return hi - 1, false
	}
	return v, true
}

// ClampError reports a metric that left its bounds and was clamped.
type ClampError struct {
	Metric  string
	Got     any
	Clamped any
}

func (e *ClampError) Error() string {
	return fmt.Sprintf("telemetry.Tick: %s: %s=%v clamped to %v", errcode.MetricOutOfRange, e.Metric, e.Got, e.Clamped)
}

func (e *ClampError) Code() errcode.Code { return errcode.MetricOutOfRange }

func (e *ClampError) Is(target error) bool { return target == errcode.MetricOutOfRange }

func outOfRange(metric string, got, clampedTo any) error {
	return &ClampError{Metric: metric, Got: got, Clamped: clampedTo}
}
