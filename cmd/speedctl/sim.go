// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

// sweep is a Converter emulating a potentiometer turned back and forth over
// the full range in about 20 seconds.
type sweep struct {
	start time.Time
	v     uint16
}

func (s *sweep) Start() error {
	const half = 10 * time.Second
	e := time.Since(s.start) % (2 * half)
	if e > half {
		e = 2*half - e
	}
	s.v = uint16(int64(e) * 1023 / int64(half))
	return nil
}

func (s *sweep) Done() bool {
	return true
}

func (s *sweep) Result() (uint16, error) {
	return s.v, nil
}

func (s *sweep) String() string {
	return "sweep"
}

// simPins returns fakes: enabled, forward, with the direction flipping every
// 30 seconds.
func simPins() *pins {
	dir := &gpiotest.Pin{N: "DIR", L: gpio.High}
	go func() {
		for range time.Tick(30 * time.Second) {
			dir.Lock()
			dir.L = !dir.L
			dir.Unlock()
		}
	}()
	return &pins{
		pwm:    &gpiotest.Pin{N: "PWM", Num: 18},
		enable: &enableLow{Pin: gpiotest.Pin{N: "ENA", Num: 17}},
		dir:    dir,
		led:    &gpiotest.Pin{N: "LED", Num: 22},
		conv:   &sweep{start: time.Now()},
	}
}

// enableLow keeps the simulated enable line asserted even after the pull up
// set by the sampler.
type enableLow struct {
	gpiotest.Pin
}

func (e *enableLow) Read() gpio.Level {
	return gpio.Low
}
