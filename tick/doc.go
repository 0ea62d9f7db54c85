// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package tick paces the control loop.
//
// A Source plays the part of a timer interrupt: the only thing it does on each
// tick is Pending.Raise. Loop is the cooperative main loop which notices the
// flag, runs one cycle and clears it.
//
// Pending is a single slot. A tick raised while the previous one is still
// being processed is coalesced rather than queued, so the loop never builds a
// backlog and always works on the freshest sample.
package tick
