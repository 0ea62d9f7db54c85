// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/GermanBionicSystems/speedctl/ramp"
	"github.com/GermanBionicSystems/speedctl/sampler"
	"github.com/GermanBionicSystems/speedctl/tick"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
)

// Sampler reads the inputs. *sampler.Dev implements it.
type Sampler interface {
	Sample() (sampler.Reading, error)
}

// Output writes the duty. *halfbridge.Dev implements it.
type Output interface {
	conn.Resource
	Apply(d ramp.Duty) error
}

// Status is what observers see after each cycle.
type Status struct {
	State   State
	Reading sampler.Reading
	// Applied is the clamped duty written this cycle.
	Applied ramp.Duty
	Stats   tick.Stats
}

// Observer is notified after every cycle, from the loop goroutine. It must
// return quickly.
type Observer interface {
	Observe(s *Status) error
}

// Opts is the configuration of a Dev.
type Opts struct {
	Ramp  ramp.Config
	Blink Blink
	// Source paces the loop. Defaults to tick.Every(tick.DefaultPeriod).
	Source tick.Source
	// Logger defaults to logrus.StandardLogger().
	Logger logrus.FieldLogger
	// Observers are notified after each cycle, in order.
	Observers []Observer
}

// DefaultOpts is the configuration of the reference board.
var DefaultOpts = Opts{
	Ramp:  ramp.Default,
	Blink: DefaultBlink,
}

// Dev is the speed controller.
type Dev struct {
	in      Sampler
	out     Output
	led     gpio.PinOut
	cfg     Config
	source  tick.Source
	log     logrus.FieldLogger
	obs     []Observer
	pending *tick.Pending

	mu    sync.Mutex
	state State
	last  Status
}

// New returns a controller at rest with the indicator off.
func New(in Sampler, out Output, led gpio.PinOut, opts *Opts) (*Dev, error) {
	if in == nil || out == nil || led == nil {
		return nil, errors.New("controller: sampler, output and indicator are required")
	}
	if err := opts.Ramp.Validate(); err != nil {
		return nil, fmt.Errorf("controller: %w", err)
	}
	d := &Dev{
		in:      in,
		out:     out,
		led:     led,
		cfg:     Config{Ramp: opts.Ramp, Blink: opts.Blink},
		source:  opts.Source,
		log:     opts.Logger,
		obs:     append([]Observer(nil), opts.Observers...),
		pending: tick.NewPending(),
		state:   NewState(&opts.Ramp),
	}
	if d.source == nil {
		d.source = tick.Every(tick.DefaultPeriod)
	}
	if d.log == nil {
		d.log = logrus.StandardLogger()
	}
	d.log = d.log.WithField("dev", "speedctl")
	if err := led.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("controller: indicator: %w", err)
	}
	if err := out.Apply(opts.Ramp.Rest); err != nil {
		return nil, fmt.Errorf("controller: %w", err)
	}
	return d, nil
}

// Cycle runs one sample, ramp and apply cycle.
//
// A sampling error doesn't stop the cycle; the motor is sent toward rest and
// the error is returned along with any output error.
func (d *Dev) Cycle() error {
	r, errIn := d.in.Sample()

	d.mu.Lock()
	o := RunCycle(&d.state, r, &d.cfg)
	st := d.state
	d.mu.Unlock()

	err := multierr.Append(errIn, d.out.Apply(o.Next))
	if o.Toggle {
		err = multierr.Append(err, d.led.Out(st.Indicator))
	}

	s := Status{State: st, Reading: r, Applied: o.Duty, Stats: d.pending.Stats()}
	d.mu.Lock()
	d.last = s
	d.mu.Unlock()
	for _, ob := range d.obs {
		err = multierr.Append(err, ob.Observe(&s))
	}
	return err
}

// Run paces Cycle with the configured Source until ctx is done.
//
// Cycle errors are logged and the loop keeps going. Run returns ctx.Err(), or
// the Source error if it stopped on its own.
func (d *Dev) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srcErr := make(chan error, 1)
	go func() {
		err := d.source(ctx, d.pending)
		if ctx.Err() == nil {
			cancel()
		}
		srcErr <- err
	}()

	d.log.WithFields(logrus.Fields{
		"rest":    fmt.Sprintf("%#04x", d.cfg.Ramp.Rest),
		"min":     fmt.Sprintf("%#04x", d.cfg.Ramp.Min),
		"max":     fmt.Sprintf("%#04x", d.cfg.Ramp.Max),
		"maxStep": d.cfg.Ramp.MaxStep,
	}).Info("control loop started")

	_ = tick.Loop(ctx, d.pending, func() {
		if err := d.Cycle(); err != nil {
			d.log.WithError(err).Warn("cycle")
		}
	})

	err := <-srcErr
	d.log.WithField("ticks", d.pending.Stats()).Info("control loop stopped")
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return ctx.Err()
}

// State returns a copy of the loop state.
func (d *Dev) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Status returns what observers were last given.
func (d *Dev) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

// Stats returns the tick counters.
func (d *Dev) Stats() tick.Stats {
	return d.pending.Stats()
}

// String implements conn.Resource.
func (d *Dev) String() string {
	return fmt.Sprintf("speedctl{%s, led=%s}", d.out, d.led)
}

// Halt implements conn.Resource.
//
// It parks the output at rest and turns the indicator off.
func (d *Dev) Halt() error {
	return multierr.Combine(d.out.Halt(), d.led.Out(gpio.Low))
}

var _ conn.Resource = &Dev{}
