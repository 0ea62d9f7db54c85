// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ramp implements the duty cycle arithmetic of a bidirectional
// half-bridge speed controller.
//
// Duty values are 10 bit fixed point PWM units. Rest is the duty at which the
// half-bridge produces zero net speed; higher values turn the motor forward,
// lower values turn it in reverse.
//
// Step is an asymmetric slew limiter: a large error is closed at MaxStep units
// per tick, a small one at a single unit per tick so the output does not
// chatter around the target. Step never overshoots.
//
// Step knows nothing about the safe output window; clamping to [Min, Max] is
// the output driver's job. See package halfbridge.
package ramp
