// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tick

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// DefaultPeriod is the overflow period of a 16 bit timer counting at 1MHz.
const DefaultPeriod = 65536 * time.Microsecond

// Pending is the work pending flag shared between a Source and Loop.
//
// The zero value is not usable, use NewPending.
type Pending struct {
	set  atomic.Bool
	wake chan struct{}

	raised    atomic.Uint64
	coalesced atomic.Uint64
}

// Stats counts what happened to the raised ticks.
type Stats struct {
	// Raised is the number of ticks that set the flag.
	Raised uint64
	// Coalesced is the number of ticks dropped because the flag was already
	// set.
	Coalesced uint64
}

func (s Stats) String() string {
	return fmt.Sprintf("raised=%d coalesced=%d", s.Raised, s.Coalesced)
}

// NewPending returns a cleared flag.
func NewPending() *Pending {
	return &Pending{wake: make(chan struct{}, 1)}
}

// Raise sets the flag unless it is already set. It returns false when the
// tick was coalesced.
//
// Raise does a bounded amount of work and never blocks.
func (p *Pending) Raise() bool {
	if !p.set.CompareAndSwap(false, true) {
		p.coalesced.Add(1)
		return false
	}
	p.raised.Add(1)
	select {
	case p.wake <- struct{}{}:
	default:
	}
	return true
}

// IsSet reports whether work is pending.
func (p *Pending) IsSet() bool {
	return p.set.Load()
}

// Clear acknowledges the pending work. Only the consumer calls it, after a
// full cycle.
func (p *Pending) Clear() {
	p.set.Store(false)
}

// Wake receives a value each time the flag goes from cleared to set.
func (p *Pending) Wake() <-chan struct{} {
	return p.wake
}

// Stats returns the counters.
func (p *Pending) Stats() Stats {
	return Stats{Raised: p.raised.Load(), Coalesced: p.coalesced.Load()}
}

// Loop runs cycle once per observed tick until ctx is done.
//
// cycle runs on the calling goroutine and the flag is cleared only after it
// returns.
func Loop(ctx context.Context, p *Pending, cycle func()) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.wake:
			if !p.IsSet() {
				continue
			}
			cycle()
			p.Clear()
		}
	}
}

// Source raises p on every tick until ctx is done.
type Source func(ctx context.Context, p *Pending) error

// Every returns a Source ticking at a fixed period.
func Every(period time.Duration) Source {
	return func(ctx context.Context, p *Pending) error {
		if period <= 0 {
			return fmt.Errorf("tick: invalid period %s", period)
		}
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				p.Raise()
			}
		}
	}
}

// edgePoll bounds WaitForEdge so cancellation is noticed.
const edgePoll = 100 * time.Millisecond

// OnEdge returns a Source ticking on edges of an external clock line, for
// example the output of an RTC square wave pin.
func OnEdge(pin gpio.PinIn, edge gpio.Edge) Source {
	return func(ctx context.Context, p *Pending) error {
		if pin == nil {
			return errors.New("tick: pin is required")
		}
		if edge == gpio.NoEdge {
			return errors.New("tick: an edge is required")
		}
		if err := pin.In(gpio.PullNoChange, edge); err != nil {
			return fmt.Errorf("tick: %s: %w", pin, err)
		}
		for ctx.Err() == nil {
			if pin.WaitForEdge(edgePoll) {
				p.Raise()
			}
		}
		return ctx.Err()
	}
}
