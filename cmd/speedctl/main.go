// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// speedctl runs the half-bridge speed controller on a Linux host.
//
// The speed command is read from an iio ADC channel, enable and direction
// from two GPIOs. With -sim no hardware is touched: the pins are fakes and the
// command sweeps the full range.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/GermanBionicSystems/speedctl/controller"
	"github.com/GermanBionicSystems/speedctl/dutybar"
	"github.com/GermanBionicSystems/speedctl/halfbridge"
	"github.com/GermanBionicSystems/speedctl/panel"
	"github.com/GermanBionicSystems/speedctl/ramp"
	"github.com/GermanBionicSystems/speedctl/sampler"
	"github.com/GermanBionicSystems/speedctl/tick"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

type pins struct {
	pwm    gpio.PinOut
	enable gpio.PinIn
	dir    gpio.PinIn
	led    gpio.PinOut
	conv   sampler.Converter
}

func byName(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("no pin named %q", name)
	}
	return p, nil
}

func hostPins(pwm, enable, dir, led, iio string, bits uint) (*pins, error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	var p pins
	var err error
	if p.pwm, err = byName(pwm); err != nil {
		return nil, err
	}
	if p.enable, err = byName(enable); err != nil {
		return nil, err
	}
	if p.dir, err = byName(dir); err != nil {
		return nil, err
	}
	if p.led, err = byName(led); err != nil {
		return nil, err
	}
	p.conv = &sampler.IIO{Path: iio, Bits: bits}
	return &p, nil
}

func mainImpl() error {
	pwmName := flag.String("pwm", "GPIO18", "PWM capable pin driving the half-bridge")
	enableName := flag.String("enable", "GPIO17", "active low enable input")
	dirName := flag.String("dir", "GPIO27", "direction input, high is forward")
	ledName := flag.String("led", "GPIO22", "status indicator output")
	clockName := flag.String("clock", "", "pace the loop on rising edges of this pin instead of a timer")
	iio := flag.String("iio", "/sys/bus/iio/devices/iio:device0/in_voltage0_raw", "iio channel of the speed command")
	bits := flag.Uint("bits", 12, "resolution of the iio ADC")
	period := flag.Duration("period", tick.DefaultPeriod, "control loop period")
	convTimeout := flag.Duration("conv-timeout", sampler.DefaultOpts.Timeout, "ADC conversion timeout, negative to wait forever")
	freq := flag.Int64("freq", int64(halfbridge.DefaultFrequency/physic.Hertz), "PWM carrier in Hz")
	shift := flag.Uint("shift", ramp.Default.Shift, "speed range shift, 1 (fast) to 5 (slow)")
	sim := flag.Bool("sim", false, "simulate the hardware")
	bar := flag.Int("bar", 0, "show a duty bar of this many cells on the terminal")
	png := flag.String("png", "", "write a status panel snapshot to this file on exit")
	verbose := flag.String("v", "info", "log level")
	flag.Parse()
	if flag.NArg() != 0 {
		return errors.New("unexpected argument, try -help")
	}

	lvl, err := logrus.ParseLevel(*verbose)
	if err != nil {
		return err
	}
	log := logrus.New()
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := ramp.Default
	cfg.Shift = *shift
	if err := cfg.Validate(); err != nil {
		return err
	}

	var p *pins
	if *sim {
		p = simPins()
	} else if p, err = hostPins(*pwmName, *enableName, *dirName, *ledName, *iio, *bits); err != nil {
		return err
	}

	in, err := sampler.New(p.conv, p.enable, p.dir, &sampler.Opts{Settle: sampler.DefaultOpts.Settle, Timeout: *convTimeout})
	if err != nil {
		return err
	}
	defer in.Halt()
	out, err := halfbridge.New(p.pwm, &halfbridge.Opts{Ramp: cfg, Frequency: physic.Frequency(*freq) * physic.Hertz})
	if err != nil {
		return err
	}

	opts := controller.DefaultOpts
	opts.Ramp = cfg
	opts.Logger = log
	opts.Source = tick.Every(*period)
	if *clockName != "" {
		clk, err := byName(*clockName)
		if err != nil {
			return err
		}
		opts.Source = tick.OnEdge(clk, gpio.RisingEdge)
	}
	if *bar > 0 {
		b, err := dutybar.New(&cfg, &dutybar.Opts{X: *bar})
		if err != nil {
			return err
		}
		defer b.Halt()
		opts.Observers = append(opts.Observers, b)
	}
	var pnl *panel.Panel
	if *png != "" {
		if pnl, err = panel.New(&cfg, nil, &panel.DefaultOpts); err != nil {
			return err
		}
		opts.Observers = append(opts.Observers, pnl)
	}

	dev, err := controller.New(in, out, p.led, &opts)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"dev": dev.String(), "config": cfg.String(), "period": *period}).Info("starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err = dev.Run(ctx)
	if herr := dev.Halt(); herr != nil {
		log.WithError(herr).Error("halt")
	}
	if pnl != nil {
		if perr := pnl.SavePNG(*png); perr != nil {
			log.WithError(perr).Error("snapshot")
		}
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "speedctl: %s.\n", err)
		os.Exit(1)
	}
}
