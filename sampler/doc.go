// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sampler reads the speed command of the controller: a 10 bit analog
// value, an active low enable line and a direction line.
//
// The analog value comes from a Converter which is started and then polled
// until it reports completion, the way a GO/DONE bit is. A settle delay follows
// every conversion. The poll is bounded by Opts.Timeout unless it is negative.
package sampler
