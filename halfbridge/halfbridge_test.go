// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package halfbridge

import (
	"errors"
	"testing"

	"github.com/GermanBionicSystems/speedctl/ramp"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
)

var errPin = errors.New("pin failure")

type failingPin struct {
	gpiotest.Pin
}

func (f *failingPin) PWM(duty gpio.Duty, freq physic.Frequency) error {
	return errPin
}

func TestSplit(t *testing.T) {
	for _, tc := range []struct {
		d    ramp.Duty
		want Fields
	}{
		{0x0000, Fields{}},
		{0x01FF, Fields{Low: 3, High: 0x7F}},
		{0x03EF, Fields{Low: 3, High: 0xFB}},
		{0x0010, Fields{Low: 0, High: 0x04}},
		{0x03FF, Fields{Low: 3, High: 0xFF}},
		{0x0402, Fields{Low: 2, High: 0x00}},
	} {
		got := Split(tc.d)
		if got != tc.want {
			t.Errorf("Split(%#x) = %v, want %v", tc.d, got, tc.want)
		}
		if j := got.Duty(); j != tc.d&ramp.Full {
			t.Errorf("Split(%#x).Duty() = %#x", tc.d, j)
		}
	}
}

func TestClamp(t *testing.T) {
	c := ramp.Default
	for d := 0; d <= 0xFFFF; d++ {
		got := Clamp(&c, ramp.Duty(d))
		if got < c.Min || got > c.Max {
			t.Fatalf("Clamp(%#x) = %#x", d, got)
		}
		if ramp.Duty(d) >= c.Min && ramp.Duty(d) <= c.Max && got != ramp.Duty(d) {
			t.Fatalf("Clamp(%#x) = %#x changed an in-range value", d, got)
		}
	}
}

func TestClamp_inverted(t *testing.T) {
	c := ramp.Config{Min: 0x0200, Max: 0x0100}
	if got := Clamp(&c, 0x0180); got != 0x0200 {
		t.Fatalf("Clamp() = %#x", got)
	}
}

func TestToGPIO(t *testing.T) {
	if got := ToGPIO(0); got != 0 {
		t.Fatalf("ToGPIO(0) = %v", got)
	}
	if got := ToGPIO(ramp.Full); got > gpio.DutyMax {
		t.Fatalf("ToGPIO(Full) = %v exceeds %v", got, gpio.DutyMax)
	}
	if got, want := ToGPIO(0x0200), gpio.Duty(0x0200)<<14; got != want {
		t.Fatalf("ToGPIO(0x200) = %v, want %v", got, want)
	}
}

func TestNew(t *testing.T) {
	p := &gpiotest.Pin{N: "PWM0", Num: 18}
	d, err := New(p, &DefaultOpts)
	if err != nil {
		t.Fatal(err)
	}
	if d.Last() != 0x01FF {
		t.Fatalf("Last() = %#x", d.Last())
	}
	if p.D != ToGPIO(0x01FF) {
		t.Fatalf("duty = %v", p.D)
	}
	if p.F != DefaultFrequency {
		t.Fatalf("frequency = %v", p.F)
	}
	if s := d.String(); len(s) == 0 {
		t.Fatal("empty String()")
	}
}

func TestNew_errors(t *testing.T) {
	if _, err := New(nil, &DefaultOpts); err == nil {
		t.Fatal("expected error for nil pin")
	}
	opts := DefaultOpts
	opts.Frequency = 0
	if _, err := New(&gpiotest.Pin{}, &opts); err == nil {
		t.Fatal("expected error for zero frequency")
	}
	opts = DefaultOpts
	opts.Ramp.MaxStep = 0
	if _, err := New(&gpiotest.Pin{}, &opts); !errors.Is(err, ramp.ErrInvalidConfig) {
		t.Fatalf("New() = %v", err)
	}
	if _, err := New(&failingPin{}, &DefaultOpts); !errors.Is(err, errPin) {
		t.Fatalf("New() = %v", err)
	}
}

func TestApply(t *testing.T) {
	p := &gpiotest.Pin{N: "PWM0"}
	d, err := New(p, &DefaultOpts)
	if err != nil {
		t.Fatal(err)
	}
	for _, tc := range []struct {
		in, want ramp.Duty
	}{
		{0x0000, 0x0010},
		{0x000F, 0x0010},
		{0x0010, 0x0010},
		{0x0200, 0x0200},
		{0x03EF, 0x03EF},
		{0x03F0, 0x03EF},
		{0xFFFF, 0x03EF},
	} {
		if err := d.Apply(tc.in); err != nil {
			t.Fatal(err)
		}
		if d.Last() != tc.want {
			t.Errorf("Apply(%#x): Last() = %#x, want %#x", tc.in, d.Last(), tc.want)
		}
		if p.D != ToGPIO(tc.want) {
			t.Errorf("Apply(%#x): duty = %v, want %v", tc.in, p.D, ToGPIO(tc.want))
		}
		if d.Registers() != Split(tc.want) {
			t.Errorf("Apply(%#x): Registers() = %v", tc.in, d.Registers())
		}
	}
}

func TestHalt(t *testing.T) {
	p := &gpiotest.Pin{N: "PWM0"}
	d, err := New(p, &DefaultOpts)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Apply(0x0300); err != nil {
		t.Fatal(err)
	}
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	if d.Last() != DefaultOpts.Ramp.Rest {
		t.Fatalf("Last() = %#x after Halt", d.Last())
	}
}
