// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package speedctl is a container for the parts of an open loop DC motor
// speed controller driving a half-bridge.
//
// ramp holds the duty arithmetic, sampler reads the speed command,
// halfbridge writes the PWM duty, tick paces the loop and controller ties
// them together. dutybar and panel render the controller status.
//
// cmd/speedctl runs the controller on a Linux host.
package speedctl
