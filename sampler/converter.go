// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sampler

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"periph.io/x/conn/v3/analog"
)

// scale maps v from [lo, hi] onto [0, Mask].
func scale(v, lo, hi int64) uint16 {
	if hi <= lo {
		return 0
	}
	if v <= lo {
		return 0
	}
	if v >= hi {
		return Mask
	}
	return uint16((v - lo) * Mask / (hi - lo))
}

// ADC adapts a periph analog pin to a Converter.
//
// periph pins convert synchronously so Start does the read and Done always
// reports true.
type ADC struct {
	p      analog.PinADC
	lo, hi int32
	last   analog.Sample
	err    error
}

// FromADC returns a Converter reading p. The range reported by p is used to
// scale samples to 10 bits.
func FromADC(p analog.PinADC) (*ADC, error) {
	lo, hi, err := p.Range()
	if err != nil {
		return nil, fmt.Errorf("sampler: %s: %w", p, err)
	}
	if hi.Raw <= lo.Raw {
		return nil, fmt.Errorf("sampler: %s: empty range [%d, %d]", p, lo.Raw, hi.Raw)
	}
	return &ADC{p: p, lo: lo.Raw, hi: hi.Raw}, nil
}

// Start implements Converter.
func (a *ADC) Start() error {
	a.last, a.err = a.p.Read()
	return a.err
}

// Done implements Converter.
func (a *ADC) Done() bool {
	return true
}

// Result implements Converter.
func (a *ADC) Result() (uint16, error) {
	if a.err != nil {
		return 0, a.err
	}
	return scale(int64(a.last.Raw), int64(a.lo), int64(a.hi)), nil
}

// Sample returns the last raw sample, including the measured voltage.
func (a *ADC) Sample() analog.Sample {
	return a.last
}

func (a *ADC) String() string {
	return a.p.String()
}

// Halt implements conn.Resource.
func (a *ADC) Halt() error {
	return a.p.Halt()
}

// IIO reads a Linux industrial I/O channel from sysfs, for example
// /sys/bus/iio/devices/iio:device0/in_voltage0_raw.
type IIO struct {
	// Path is the in_voltageN_raw attribute.
	Path string
	// Bits is the resolution of the converter behind Path, 12 for an ADS1015
	// or an MCP3208.
	Bits uint

	v   int64
	err error
}

// Start implements Converter.
func (i *IIO) Start() error {
	if i.Bits == 0 || i.Bits > 31 {
		i.err = fmt.Errorf("iio: invalid resolution %d", i.Bits)
		return i.err
	}
	b, err := os.ReadFile(i.Path)
	if err != nil {
		i.err = err
		return err
	}
	i.v, i.err = strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
	return i.err
}

// Done implements Converter.
func (i *IIO) Done() bool {
	return true
}

// Result implements Converter.
func (i *IIO) Result() (uint16, error) {
	if i.err != nil {
		return 0, i.err
	}
	if i.v < 0 {
		return 0, errors.New("iio: negative sample")
	}
	return scale(i.v, 0, int64(1)<<i.Bits-1), nil
}

func (i *IIO) String() string {
	return "iio:" + i.Path
}
