// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sampler

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
)

// Mask keeps the 10 bits of a conversion result.
const Mask = 0x03FF

// ErrTimeout is returned by Sample when the conversion did not complete in
// time.
var ErrTimeout = errors.New("sampler: conversion timed out")

// Converter is a single channel analog to digital converter.
type Converter interface {
	// Start triggers a conversion.
	Start() error
	// Done reports whether the conversion started last has completed.
	Done() bool
	// Result returns the value of the last completed conversion, right
	// justified.
	Result() (uint16, error)
}

// Reading is one sample of the inputs.
type Reading struct {
	// Raw is the 10 bit analog command. It is 0 when Enabled is false as no
	// conversion is done then.
	Raw uint16
	// Enabled is true when the enable line is pulled low.
	Enabled bool
	// Forward is true when the direction line is high.
	Forward bool
	// Valid is false when the conversion failed. Raw is meaningless then.
	Valid bool
}

func (r Reading) String() string {
	return fmt.Sprintf("Reading{Raw: %d, Enabled: %t, Forward: %t, Valid: %t}", r.Raw, r.Enabled, r.Forward, r.Valid)
}

// Opts is the configuration of a Dev.
type Opts struct {
	// Settle is waited after each conversion before the result is read.
	Settle time.Duration
	// Timeout bounds the wait for a conversion. 0 selects the default;
	// a negative value waits forever.
	Timeout time.Duration
}

// DefaultOpts waits a bit more than 2 T_AD of the reference part and gives up
// on a conversion after a millisecond.
var DefaultOpts = Opts{
	Settle:  10 * time.Microsecond,
	Timeout: time.Millisecond,
}

// Dev samples the inputs.
type Dev struct {
	c      Converter
	enable gpio.PinIn
	dir    gpio.PinIn
	opts   Opts
}

// New returns a Dev that reads the analog command through c.
//
// enable is configured with a pull up so a floating line keeps the motor
// disabled.
func New(c Converter, enable, dir gpio.PinIn, opts *Opts) (*Dev, error) {
	if c == nil || enable == nil || dir == nil {
		return nil, errors.New("sampler: converter and pins are required")
	}
	d := &Dev{c: c, enable: enable, dir: dir, opts: *opts}
	if d.opts.Timeout == 0 {
		d.opts.Timeout = DefaultOpts.Timeout
	}
	if err := enable.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("sampler: enable: %w", err)
	}
	if err := dir.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("sampler: direction: %w", err)
	}
	return d, nil
}

// Sample reads the inputs.
//
// The conversion only runs while enabled. On a conversion failure the
// returned Reading has Valid set to false alongside the error.
func (d *Dev) Sample() (Reading, error) {
	r := Reading{
		Enabled: d.enable.Read() == gpio.Low,
		Forward: d.dir.Read() == gpio.High,
		Valid:   true,
	}
	if !r.Enabled {
		return r, nil
	}
	v, err := d.convert()
	if err != nil {
		r.Valid = false
		return r, err
	}
	r.Raw = v
	return r, nil
}

func (d *Dev) convert() (uint16, error) {
	if err := d.c.Start(); err != nil {
		return 0, fmt.Errorf("sampler: %w", err)
	}
	if d.opts.Timeout < 0 {
		for !d.c.Done() {
		}
	} else {
		deadline := time.Now().Add(d.opts.Timeout)
		for !d.c.Done() {
			if time.Now().After(deadline) {
				return 0, ErrTimeout
			}
		}
	}
	v, err := d.c.Result()
	if err != nil {
		return 0, fmt.Errorf("sampler: %w", err)
	}
	if d.opts.Settle > 0 {
		time.Sleep(d.opts.Settle)
	}
	return v & Mask, nil
}

// String implements conn.Resource.
func (d *Dev) String() string {
	return fmt.Sprintf("sampler{%v, enable=%s, dir=%s}", d.c, d.enable, d.dir)
}

// Halt implements conn.Resource.
//
// It halts the pins and the converter when it is itself a conn.Resource.
func (d *Dev) Halt() error {
	err := multierr.Combine(d.enable.Halt(), d.dir.Halt())
	if r, ok := d.c.(conn.Resource); ok {
		err = multierr.Append(err, r.Halt())
	}
	return err
}

var _ conn.Resource = &Dev{}
