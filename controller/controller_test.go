// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package controller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/GermanBionicSystems/speedctl/halfbridge"
	"github.com/GermanBionicSystems/speedctl/ramp"
	"github.com/GermanBionicSystems/speedctl/sampler"
	"github.com/GermanBionicSystems/speedctl/tick"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

// script replays readings, then repeats the last one.
type script struct {
	mu  sync.Mutex
	in  []sampler.Reading
	err error
}

func (s *script) Sample() (sampler.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.in[0]
	if len(s.in) > 1 {
		s.in = s.in[1:]
	}
	if s.err != nil {
		r.Valid = false
	}
	return r, s.err
}

type recorder struct {
	mu  sync.Mutex
	got []Status
}

func (r *recorder) Observe(s *Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, *s)
	return nil
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

type rig struct {
	dev  *Dev
	pwm  *gpiotest.Pin
	led  *gpiotest.Pin
	out  *halfbridge.Dev
	rec  *recorder
	hook *test.Hook
}

func newRig(t *testing.T, in Sampler, src tick.Source) *rig {
	r := &rig{
		pwm: &gpiotest.Pin{N: "PWM0"},
		led: &gpiotest.Pin{N: "LED", L: gpio.High},
		rec: &recorder{},
	}
	var err error
	if r.out, err = halfbridge.New(r.pwm, &halfbridge.DefaultOpts); err != nil {
		t.Fatal(err)
	}
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	r.hook = hook
	opts := DefaultOpts
	opts.Source = src
	opts.Logger = logger
	opts.Observers = []Observer{r.rec}
	if r.dev, err = New(in, r.out, r.led, &opts); err != nil {
		t.Fatal(err)
	}
	return r
}

func TestNew(t *testing.T) {
	in := &script{in: []sampler.Reading{enabled}}
	r := newRig(t, in, nil)
	if r.led.L != gpio.Low {
		t.Fatal("indicator not turned off")
	}
	if r.out.Last() != ramp.Default.Rest {
		t.Fatalf("output at %#x", r.out.Last())
	}
	if got := r.dev.State(); got != NewState(&ramp.Default) {
		t.Fatalf("State() = %v", got)
	}
	if len(r.dev.String()) == 0 {
		t.Fatal("empty String()")
	}
}

func TestNew_errors(t *testing.T) {
	out, err := halfbridge.New(&gpiotest.Pin{}, &halfbridge.DefaultOpts)
	if err != nil {
		t.Fatal(err)
	}
	in := &script{in: []sampler.Reading{enabled}}
	if _, err := New(nil, out, &gpiotest.Pin{}, &DefaultOpts); err == nil {
		t.Fatal("expected error")
	}
	opts := DefaultOpts
	opts.Ramp.Shift = 0
	if _, err := New(in, out, &gpiotest.Pin{}, &opts); !errors.Is(err, ramp.ErrInvalidConfig) {
		t.Fatalf("New() = %v", err)
	}
}

func TestCycle(t *testing.T) {
	in := &script{in: []sampler.Reading{{Raw: 1023, Enabled: true, Forward: true, Valid: true}}}
	r := newRig(t, in, nil)
	for i := 0; i < 3; i++ {
		if err := r.dev.Cycle(); err != nil {
			t.Fatal(err)
		}
	}
	if got, want := r.out.Last(), ramp.Default.Rest+3*ramp.Default.MaxStep; got != want {
		t.Fatalf("output at %#x, want %#x", got, want)
	}
	if r.pwm.D != halfbridge.ToGPIO(r.out.Last()) {
		t.Fatalf("pwm duty = %v", r.pwm.D)
	}
	if r.led.L != gpio.High {
		t.Fatal("indicator did not toggle on the third cycle")
	}
	if n := r.rec.len(); n != 3 {
		t.Fatalf("observed %d cycles", n)
	}
	s := r.dev.Status()
	if s.Applied != r.out.Last() || s.State.Target != ramp.Default.Rest+255 {
		t.Fatalf("Status() = %+v", s)
	}
}

func TestCycle_samplerError(t *testing.T) {
	in := &script{in: []sampler.Reading{{Raw: 1023, Enabled: true, Forward: true}}, err: sampler.ErrTimeout}
	r := newRig(t, in, nil)
	err := r.dev.Cycle()
	if !errors.Is(err, sampler.ErrTimeout) {
		t.Fatalf("Cycle() = %v", err)
	}
	if got := r.dev.State().Target; got != ramp.Default.Rest {
		t.Fatalf("Target = %#x", got)
	}
}

func TestHalt(t *testing.T) {
	in := &script{in: []sampler.Reading{{Raw: 1023, Enabled: true, Forward: true, Valid: true}}}
	r := newRig(t, in, nil)
	for i := 0; i < 3; i++ {
		_ = r.dev.Cycle()
	}
	if err := r.dev.Halt(); err != nil {
		t.Fatal(err)
	}
	if r.out.Last() != ramp.Default.Rest {
		t.Fatalf("output at %#x", r.out.Last())
	}
	if r.led.L != gpio.Low {
		t.Fatal("indicator still on")
	}
}

// manual raises once per value sent on poke.
func manual(poke <-chan struct{}) tick.Source {
	return func(ctx context.Context, p *tick.Pending) error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-poke:
				p.Raise()
			}
		}
	}
}

func TestRun(t *testing.T) {
	in := &script{in: []sampler.Reading{enabled}}
	poke := make(chan struct{})
	r := newRig(t, in, manual(poke))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.dev.Run(ctx) }()

	for i := 1; i <= 4; i++ {
		poke <- struct{}{}
		deadline := time.Now().Add(time.Second)
		// The flag clears after the observers return.
		for r.rec.len() < i || r.dev.pending.IsSet() {
			if time.Now().After(deadline) {
				t.Fatalf("cycle %d did not run", i)
			}
			time.Sleep(time.Millisecond)
		}
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() = %v", err)
	}
	if got := r.dev.Stats().Raised; got < 4 {
		t.Fatalf("Raised = %d", got)
	}
	if len(r.hook.AllEntries()) < 2 {
		t.Fatalf("expected start and stop log entries, got %d", len(r.hook.AllEntries()))
	}
}

func TestRun_logsCycleErrors(t *testing.T) {
	in := &script{in: []sampler.Reading{enabled}, err: sampler.ErrTimeout}
	poke := make(chan struct{})
	r := newRig(t, in, manual(poke))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.dev.Run(ctx) }()

	poke <- struct{}{}
	deadline := time.Now().Add(time.Second)
	for r.rec.len() < 1 {
		if time.Now().After(deadline) {
			t.Fatal("cycle did not run")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done
	found := false
	for _, e := range r.hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "cycle" {
			found = true
		}
	}
	if !found {
		t.Fatal("cycle error was not logged")
	}
}

func TestRun_sourceError(t *testing.T) {
	in := &script{in: []sampler.Reading{enabled}}
	errSrc := errors.New("timer gone")
	r := newRig(t, in, func(ctx context.Context, p *tick.Pending) error { return errSrc })
	if err := r.dev.Run(context.Background()); !errors.Is(err, errSrc) {
		t.Fatalf("Run() = %v", err)
	}
}
