// Package engine runs the village: the daily scheduler, its phases and
// steps, the interventions an operator can make and the clock that drives
// days in real time.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Calendar.
const (
	DaysPerWeek   = 7
	DaysPerSeason = 90
)

// Engine drives a simulation forward one day per tick.
type Engine struct {
	Sim *Simulation

	mu       sync.Mutex
	speed    float64       // 1.0 = one day per interval, 0 = paused
	interval time.Duration // base time per simulated day
	running  bool

	// Callbacks, populated during setup.
	OnDay  func(r DayReport)
	OnWeek func(day int)
}

// NewEngine creates an engine for sim running one day per second.
func NewEngine(sim *Simulation) *Engine {
	return &Engine{
		Sim:      sim,
		speed:    1.0,
		interval: time.Second,
	}
}

// SetSpeed changes the speed multiplier. Zero pauses.
func (e *Engine) SetSpeed(speed float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.speed = max(0, speed)
}

// Speed returns the speed multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetInterval changes the base time per simulated day.
func (e *Engine) SetInterval(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.interval = d
}

// Running reports whether the loop is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Run advances days until ctx is cancelled or maxDays have run. maxDays <= 0
// runs forever.
func (e *Engine) Run(ctx context.Context, maxDays int) error {
	e.mu.Lock()
	e.running = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	slog.Info("simulation engine started", "day", e.Sim.CurrentDay(), "speed", e.Speed())
	for ran := 0; maxDays <= 0 || ran < maxDays; {
		e.mu.Lock()
		speed, interval := e.speed, e.interval
		e.mu.Unlock()

		if speed <= 0 {
			// Paused.
			if err := sleep(ctx, 100*time.Millisecond); err != nil {
				return e.stopped(err)
			}
			continue
		}

		start := time.Now()
		e.Step()
		ran++

		target := time.Duration(float64(interval) / speed)
		if elapsed := time.Since(start); elapsed < target {
			if err := sleep(ctx, target-elapsed); err != nil {
				return e.stopped(err)
			}
		} else if err := ctx.Err(); err != nil {
			return e.stopped(err)
		}
	}
	slog.Info("simulation engine finished", "day", e.Sim.CurrentDay())
	return nil
}

func (e *Engine) stopped(err error) error {
	slog.Info("simulation engine stopped", "day", e.Sim.CurrentDay())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Step simulates one day and fires the callbacks.
func (e *Engine) Step() DayReport {
	r := e.Sim.SimulateDay()
	if e.OnDay != nil {
		e.OnDay(r)
	}
	if r.Day%DaysPerWeek == 0 && e.OnWeek != nil {
		e.OnWeek(r.Day)
	}
	return r
}

// Advance runs n days immediately regardless of speed.
func (e *Engine) Advance(n int) []DayReport {
	out := make([]DayReport, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, e.Step())
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SimTime returns a human-readable date for a day number, starting at
// Spring Day 1, Year 1.
func SimTime(day int) string {
	if day < 1 {
		day = 1
	}
	d := day - 1
	seasons := d / DaysPerSeason
	seasonNames := [4]string{"Spring", "Summer", "Autumn", "Winter"}
	return fmt.Sprintf("%s Day %d, Year %d",
		seasonNames[seasons%4], d%DaysPerSeason+1, seasons/4+1)
}
