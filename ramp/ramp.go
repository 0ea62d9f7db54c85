// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ramp

import (
	"errors"
	"fmt"
	"math/bits"
)

// Duty is a PWM duty cycle in 10 bit fixed point units.
type Duty uint16

// Full is the largest value representable by the PWM peripheral.
const Full Duty = 0x03FF

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("ramp: invalid config")

// Config holds the constants of the control loop.
type Config struct {
	// MaxStep is the largest change of the applied duty per tick.
	MaxStep Duty
	// Rest is the zero speed duty. It is also used as the mask applied to the
	// scaled analog command, so Rest+1 must be a power of two.
	Rest Duty
	// Min and Max bound the duty written to the output.
	Min Duty
	Max Duty
	// Shift divides the 10 bit analog command into an offset from Rest.
	// Raising it lowers the top speed.
	Shift uint

	_ struct{}
}

// Default matches the reference board: a 16MHz part with PR2 set to 0xFF.
//
// Min and Max keep one MaxStep of headroom from both rails.
var Default = Config{
	MaxStep: 0x000F,
	Rest:    0x01FF,
	Min:     0x0000 + 0x000F + 1,
	Max:     0x03FF - 0x000F - 1,
	Shift:   2,
}

// Validate returns an error wrapping ErrInvalidConfig when the constants can't
// be used together.
func (c *Config) Validate() error {
	switch {
	case c.MaxStep == 0:
		return fmt.Errorf("%w: MaxStep must be at least 1", ErrInvalidConfig)
	case c.Min >= c.Rest || c.Rest >= c.Max:
		return fmt.Errorf("%w: want Min < Rest < Max, got %#04x, %#04x, %#04x", ErrInvalidConfig, c.Min, c.Rest, c.Max)
	case c.Max > Full:
		return fmt.Errorf("%w: Max %#04x exceeds %#04x", ErrInvalidConfig, c.Max, Full)
	case bits.OnesCount16(uint16(c.Rest)+1) != 1:
		return fmt.Errorf("%w: Rest %#04x is not a mask", ErrInvalidConfig, c.Rest)
	case c.Shift < 1 || c.Shift > 5:
		return fmt.Errorf("%w: Shift %d out of [1, 5]", ErrInvalidConfig, c.Shift)
	}
	return nil
}

func (c *Config) String() string {
	return fmt.Sprintf("ramp.Config{MaxStep: %#04x, Rest: %#04x, Min: %#04x, Max: %#04x, Shift: %d}", c.MaxStep, c.Rest, c.Min, c.Max, c.Shift)
}

// SafeSub returns a-b, or 0 when b is not smaller than a.
func SafeSub(a, b Duty) Duty {
	if b < a {
		return a - b
	}
	return 0
}

// Target derives the commanded duty from a sampled input.
//
// raw is the 10 bit analog command. When enabled is false the motor is sent to
// Rest regardless of the other inputs.
func (c *Config) Target(raw uint16, enabled, forward bool) Duty {
	if !enabled {
		return c.Rest
	}
	offset := Duty(raw>>c.Shift) & c.Rest
	if forward {
		return c.Rest + offset
	}
	return SafeSub(c.Rest, offset)
}

// Step returns the next duty to apply given the target and the previously
// applied duty.
//
// The result is always between previous and target inclusive and differs from
// previous by at most MaxStep.
func (c *Config) Step(target, previous Duty) Duty {
	switch {
	case target > previous:
		if target > previous+c.MaxStep {
			return previous + c.MaxStep
		}
		return previous + 1
	case target == previous:
		return target
	default:
		floor := SafeSub(previous, c.MaxStep)
		if target < floor {
			return floor
		}
		return SafeSub(previous, 1)
	}
}

// Converge returns the number of Step calls needed to move from to target.
func (c *Config) Converge(target, from Duty) int {
	n := 0
	for from != target {
		from = c.Step(target, from)
		n++
	}
	return n
}
