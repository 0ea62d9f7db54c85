// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package halfbridge

import (
	"errors"
	"fmt"
	"sync"

	"github.com/GermanBionicSystems/speedctl/ramp"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// DefaultFrequency is the carrier of the reference board: Fosc/4 with a 1:1
// prescaler and PR2 set to 0xFF.
const DefaultFrequency = 15625 * physic.Hertz

// Opts is the configuration of the output.
type Opts struct {
	// Ramp provides Min, Max and Rest.
	Ramp ramp.Config
	// Frequency is the PWM carrier. It is set once in New.
	Frequency physic.Frequency
}

// DefaultOpts is the recommended configuration.
var DefaultOpts = Opts{
	Ramp:      ramp.Default,
	Frequency: DefaultFrequency,
}

// Fields is the duty cycle as stored in the peripheral registers.
type Fields struct {
	// Low holds the 2 least significant bits (DCxB).
	Low uint8
	// High holds the 8 most significant bits (CCPRxL).
	High uint8
}

// Split returns the register representation of d. Bits above the 10th are
// dropped.
func Split(d ramp.Duty) Fields {
	return Fields{
		Low:  uint8(d & 0x0003),
		High: uint8((d >> 2) & 0x00FF),
	}
}

// Duty joins the two fields back.
func (f Fields) Duty() ramp.Duty {
	return ramp.Duty(f.High)<<2 | ramp.Duty(f.Low&0x03)
}

func (f Fields) String() string {
	return fmt.Sprintf("CCPRxL=%#02x DCxB=%d", f.High, f.Low)
}

// ToGPIO converts a 10 bit duty to the 24 bit scale used by gpio.PinOut.PWM.
func ToGPIO(d ramp.Duty) gpio.Duty {
	return gpio.Duty(d&ramp.Full) << 14
}

// Clamp forces d into [c.Min, c.Max].
//
// Max is checked first, so Min wins if the bounds are ever inverted.
func Clamp(c *ramp.Config, d ramp.Duty) ramp.Duty {
	if d > c.Max {
		d = c.Max
	}
	if d < c.Min {
		d = c.Min
	}
	return d
}

// Dev is a handle to the PWM output.
type Dev struct {
	p    gpio.PinOut
	opts Opts

	mu   sync.Mutex
	last ramp.Duty
}

// New returns a Dev writing to p and parks the output at Rest.
//
// p must support PWM.
func New(p gpio.PinOut, opts *Opts) (*Dev, error) {
	if p == nil {
		return nil, errors.New("halfbridge: pin is required")
	}
	if err := opts.Ramp.Validate(); err != nil {
		return nil, fmt.Errorf("halfbridge: %w", err)
	}
	if opts.Frequency <= 0 {
		return nil, fmt.Errorf("halfbridge: invalid frequency %s", opts.Frequency)
	}
	d := &Dev{p: p, opts: *opts}
	if err := d.Apply(opts.Ramp.Rest); err != nil {
		return nil, err
	}
	return d, nil
}

// Apply clamps duty into the safe window and writes it.
func (d *Dev) Apply(duty ramp.Duty) error {
	duty = Clamp(&d.opts.Ramp, duty)
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.p.PWM(ToGPIO(duty), d.opts.Frequency); err != nil {
		return fmt.Errorf("halfbridge: %w", err)
	}
	d.last = duty
	return nil
}

// Last returns the last value written, after clamping.
func (d *Dev) Last() ramp.Duty {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

// Registers returns the register representation of the last value written.
func (d *Dev) Registers() Fields {
	return Split(d.Last())
}

// String implements conn.Resource.
func (d *Dev) String() string {
	return fmt.Sprintf("halfbridge{%s, %s}", d.p, d.opts.Frequency)
}

// Halt implements conn.Resource.
//
// It parks the output at Rest, which is zero net speed on a half-bridge.
func (d *Dev) Halt() error {
	return d.Apply(d.opts.Ramp.Rest)
}

var _ conn.Resource = &Dev{}
