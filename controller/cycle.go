// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package controller

import (
	"fmt"

	"github.com/GermanBionicSystems/speedctl/halfbridge"
	"github.com/GermanBionicSystems/speedctl/ramp"
	"github.com/GermanBionicSystems/speedctl/sampler"
	"periph.io/x/conn/v3/gpio"
)

// Blink holds the indicator thresholds, in ticks. The indicator toggles on the
// first cycle where the tick counter exceeds the threshold, so a threshold of
// 2 toggles every 3 cycles.
type Blink struct {
	// Fast is used while enabled.
	Fast uint8
	// Slow is used while disabled.
	Slow uint8
}

// DefaultBlink is about 5Hz and 0.7Hz at tick.DefaultPeriod.
var DefaultBlink = Blink{Fast: 2, Slow: 20}

// Config is what RunCycle needs.
type Config struct {
	Ramp  ramp.Config
	Blink Blink
}

// State is owned by the loop.
type State struct {
	// Current is the last duty produced by the ramp.
	Current ramp.Duty
	// Target is the duty derived from the last sample.
	Target ramp.Duty
	// Ticks counts cycles since the indicator last toggled. It is not reset
	// when the enable line changes.
	Ticks uint8
	// Indicator is the level of the status output.
	Indicator gpio.Level
}

// NewState returns the power on state: at rest, indicator off.
func NewState(c *ramp.Config) State {
	return State{Current: c.Rest, Target: c.Rest, Indicator: gpio.Low}
}

func (s State) String() string {
	return fmt.Sprintf("State{Current: %#04x, Target: %#04x, Ticks: %d, Indicator: %s}", s.Current, s.Target, s.Ticks, s.Indicator)
}

// Outputs is what a cycle asks the hardware to do.
type Outputs struct {
	// Next is the ramp result to hand to the output driver.
	Next ramp.Duty
	// Duty is Next once clamped, the value that reaches the bridge.
	Duty ramp.Duty
	// Toggle is set when the indicator changed.
	Toggle bool
}

// RunCycle advances s by one tick given the sampled inputs.
//
// An invalid reading is handled like a disabled one: the motor is sent back
// toward rest.
func RunCycle(s *State, in sampler.Reading, c *Config) Outputs {
	s.Ticks++
	var out Outputs

	threshold := c.Blink.Slow
	if in.Enabled {
		threshold = c.Blink.Fast
	}
	if s.Ticks > threshold {
		s.Indicator = !s.Indicator
		s.Ticks = 0
		out.Toggle = true
	}

	s.Target = c.Ramp.Target(in.Raw, in.Enabled && in.Valid, in.Forward)
	s.Current = c.Ramp.Step(s.Target, s.Current)
	out.Next = s.Current
	out.Duty = halfbridge.Clamp(&c.Ramp, s.Current)
	return out
}
