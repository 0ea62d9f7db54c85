// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package dutybar shows the controller duty as a one line bar on a terminal
// using ANSI color codes.
//
// The bar spans the whole 10 bit duty range. The rest position is white, the
// applied duty is filled from rest in green when forward and red when in
// reverse, the target is yellow and the region outside the clamp window is
// dark gray. The last cell mirrors the status indicator.
package dutybar

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/GermanBionicSystems/speedctl/controller"
	"github.com/GermanBionicSystems/speedctl/ramp"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3/display"
)

// Opts represents the options available for this display.
type Opts struct {
	// X is the number of cells of the bar, not counting the indicator.
	X       int
	Palette *ansi256.Palette
	// W defaults to a colorable stdout.
	W io.Writer

	_ struct{}
}

var (
	colorRest      = color.NRGBA{255, 255, 255, 255}
	colorForward   = color.NRGBA{0, 200, 0, 255}
	colorReverse   = color.NRGBA{200, 0, 0, 255}
	colorTarget    = color.NRGBA{255, 200, 0, 255}
	colorClamped   = color.NRGBA{40, 40, 40, 255}
	colorIndicator = color.NRGBA{0, 80, 255, 255}
	colorOff       = color.NRGBA{0, 0, 0, 255}
)

// Dev is a duty bar that outputs to a terminal.
type Dev struct {
	w       io.Writer
	l       int
	palette ansi256.Palette
	cfg     ramp.Config

	img    *image.NRGBA
	pixels []byte
	buf    bytes.Buffer
	label  string
}

// New returns a Dev for a controller configured with cfg.
func New(cfg *ramp.Config, opts *Opts) (*Dev, error) {
	if opts.X < 2 {
		return nil, errors.New("dutybar: X must be at least 2")
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := opts.W
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	l := opts.X + 1
	return &Dev{
		w:       w,
		l:       l,
		palette: *p,
		cfg:     *cfg,
		img:     image.NewNRGBA(image.Rect(0, 0, l, 1)),
		pixels:  make([]byte, 3*l),
	}, nil
}

func (d *Dev) String() string {
	return "DutyBar"
}

// Halt implements conn.Resource.
//
// It resets the terminal colors and moves to the next line.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\n\033[0m"))
	return err
}

// cell returns the bar cell covering duty v.
func (d *Dev) cell(v ramp.Duty) int {
	x := int(v) * (d.l - 1) / (int(ramp.Full) + 1)
	if x > d.l-2 {
		x = d.l - 2
	}
	return x
}

// Observe implements controller.Observer.
func (d *Dev) Observe(s *controller.Status) error {
	bar := d.l - 1
	lo, hi := d.cell(d.cfg.Min), d.cell(d.cfg.Max)
	rest, applied, target := d.cell(d.cfg.Rest), d.cell(s.Applied), d.cell(s.State.Target)
	fill := colorForward
	from, to := rest, applied
	if applied < rest {
		fill = colorReverse
		from, to = applied, rest
	}
	for x := 0; x < bar; x++ {
		c := colorOff
		switch {
		case x < lo || x > hi:
			c = colorClamped
		case x == rest:
			c = colorRest
		case x == target:
			c = colorTarget
		case x >= from && x <= to:
			c = fill
		}
		d.img.SetNRGBA(x, 0, c)
	}
	if s.State.Indicator {
		d.img.SetNRGBA(bar, 0, colorIndicator)
	} else {
		d.img.SetNRGBA(bar, 0, colorOff)
	}
	d.label = fmt.Sprintf(" %#04x -> %#04x", s.Applied, s.State.Target)
	return d.Draw(d.Bounds(), d.img, image.Point{})
}

// Write accepts a stream of raw RGB pixels and writes it to the terminal.
func (d *Dev) Write(pixels []byte) (int, error) {
	if len(pixels)%3 != 0 {
		return 0, errors.New("dutybar: invalid RGB stream length")
	}
	copy(d.pixels, pixels)
	return d.refresh()
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return color.NRGBAModel
}

// Bounds implements display.Drawer.
func (d *Dev) Bounds() image.Rectangle {
	return image.Rectangle{Max: image.Point{X: d.l, Y: 1}}
}

// Draw implements display.Drawer.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	r = r.Intersect(d.Bounds())
	srcR := src.Bounds()
	srcR.Min = srcR.Min.Add(sp)
	if dX := r.Dx(); dX < srcR.Dx() {
		srcR.Max.X = srcR.Min.X + dX
	}
	deltaX3 := 3 * (r.Min.X - srcR.Min.X)
	for sX := srcR.Min.X; sX < srcR.Max.X; sX++ {
		r16, g16, b16, _ := src.At(sX, srcR.Min.Y).RGBA()
		dX3 := 3*sX + deltaX3
		d.pixels[dX3] = byte(r16 >> 8)
		d.pixels[dX3+1] = byte(g16 >> 8)
		d.pixels[dX3+2] = byte(b16 >> 8)
	}
	_, err := d.refresh()
	return err
}

func (d *Dev) refresh() (int, error) {
	d.buf.Reset()
	_, _ = d.buf.WriteString("\r\033[0m")
	for i := 0; i < len(d.pixels)/3; i++ {
		c := color.NRGBA{d.pixels[3*i], d.pixels[3*i+1], d.pixels[3*i+2], 255}
		_, _ = io.WriteString(&d.buf, d.palette.Block(c))
	}
	_, _ = d.buf.WriteString("\033[0m")
	_, _ = d.buf.WriteString(d.label)
	_, err := d.buf.WriteTo(d.w)
	return len(d.pixels), err
}

var _ display.Drawer = &Dev{}
var _ controller.Observer = &Dev{}
var _ fmt.Stringer = &Dev{}
