// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"context"
	"time"

	"github.com/loov/hrtime"
	log "github.com/sirupsen/logrus"
)

// DefaultFixedStep approximates a 60Hz simulation rate.
const DefaultFixedStep = 17 * time.Millisecond

// Clock is a monotonic time source
type Clock interface {
	Now() time.Duration
}

type hrClock struct{}

func (hrClock) Now() time.Duration {
	return hrtime.Now()
}

// Frame is driven by the FrameScheduler: updated in fixed steps,
// rendered once per iteration until it asks to close.
type Frame interface {
	ShouldClose() bool
	Update(dt time.Duration)
	Render() error
}

// NewFrameScheduler creates a fixed timestep scheduler. A nil clock
// uses the high resolution system clock.
func NewFrameScheduler(cfg TimeConfiguration, clock Clock) *FrameScheduler {
	step := cfg.FixedStep
	if step <= 0 {
		step = DefaultFixedStep
	}
	if clock == nil {
		clock = hrClock{}
	}
	return &FrameScheduler{
		step:           step,
		reportInterval: cfg.ReportInterval,
		clock:          clock,
		log:            log.WithField("component", "scheduler"),
	}
}

// FrameScheduler runs simulation updates at a fixed rate independent of
// how long frames take to render. Leftover time below one step carries over.
type FrameScheduler struct {
	step        time.Duration
	accumulator time.Duration
	elapsed     time.Duration

	frames         uint64
	reportInterval uint64

	clock Clock
	log   *log.Entry
}

// Step is the fixed update step
func (s *FrameScheduler) Step() time.Duration {
	return s.step
}

// Accumulator is the time carried over to the next frame
func (s *FrameScheduler) Accumulator() time.Duration {
	return s.accumulator
}

// Elapsed is the simulated time so far
func (s *FrameScheduler) Elapsed() time.Duration {
	return s.elapsed
}

// Frames is the number of rendered frames
func (s *FrameScheduler) Frames() uint64 {
	return s.frames
}

// Advance accounts for frameTime and calls update once per whole step
// available. It returns the number of steps taken.
func (s *FrameScheduler) Advance(frameTime time.Duration, update func(dt time.Duration)) int {
	if frameTime > 0 {
		s.accumulator += frameTime
	}
	steps := 0
	for s.accumulator >= s.step {
		update(s.step)
		s.accumulator -= s.step
		s.elapsed += s.step
		steps++
	}
	return steps
}

// Run drives f until it asks to close or ctx is cancelled. A render
// error stops the loop and is returned.
func (s *FrameScheduler) Run(ctx context.Context, f Frame) error {
	current := s.clock.Now()
	var worst time.Duration
	for !f.ShouldClose() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		now := s.clock.Now()
		frameTime := now - current
		current = now

		s.Advance(frameTime, f.Update)
		if err := f.Render(); err != nil {
			return err
		}
		s.frames++

		if frameTime > worst {
			worst = frameTime
		}
		if s.reportInterval > 0 && s.frames%s.reportInterval == 0 {
			s.log.WithFields(log.Fields{
				"frame":     s.frames,
				"frametime": frameTime,
				"worst":     worst,
				"elapsed":   s.elapsed,
			}).Info("frame time")
			worst = 0
		}
	}
	return nil
}
