// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package controller runs the speed control loop.
//
// Each tick it samples the inputs, derives a target duty, moves the applied
// duty one bounded step toward it and writes the result to the half-bridge. A
// status indicator blinks fast while enabled and slowly while disabled.
//
// RunCycle is the whole cycle as a pure function on State. Dev wires it to the
// sampler, the output and a tick.Source.
package controller
