// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package halfbridge drives a PWM output feeding a half-bridge with
// complementary outputs and dead band, as found on enhanced capture/compare
// peripherals.
//
// The duty is a 10 bit value: the low 2 bits and the high 8 bits live in two
// separate registers on the reference part. Split and Fields expose that
// representation; Dev writes through any periph gpio.PinOut that supports PWM.
//
// Every write is clamped into [Min, Max] first so the bridge is never driven
// fully on or fully off.
package halfbridge
