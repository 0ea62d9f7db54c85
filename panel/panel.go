// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package panel renders the controller status as an image, for a small
// display or a PNG snapshot.
//
// The panel shows the applied and target duty, the direction, the number of
// ticks the ramp needs to reach the target, a gauge of the duty over the full
// range and a dot mirroring the status indicator.
package panel

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/GermanBionicSystems/speedctl/controller"
	"github.com/GermanBionicSystems/speedctl/ramp"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"periph.io/x/conn/v3/display"
)

// Opts is the configuration of a Panel.
type Opts struct {
	// W and H are used when no display is given.
	W, H int
	// Size is the font size in points.
	Size float64
}

// DefaultOpts fits a 128x64 OLED.
var DefaultOpts = Opts{W: 128, H: 64, Size: 10}

// Panel draws the status.
type Panel struct {
	dst  display.Drawer
	cfg  ramp.Config
	face font.Face
	w, h int

	mu   sync.Mutex
	last image.Image
}

// New returns a Panel. dst may be nil, in which case images are only kept for
// Last and SavePNG.
func New(cfg *ramp.Config, dst display.Drawer, opts *Opts) (*Panel, error) {
	w, h := opts.W, opts.H
	if dst != nil {
		w, h = dst.Bounds().Dx(), dst.Bounds().Dy()
	}
	if w < 32 || h < 32 {
		return nil, fmt.Errorf("panel: %dx%d is too small", w, h)
	}
	if opts.Size <= 0 {
		return nil, errors.New("panel: invalid font size")
	}
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("panel: %w", err)
	}
	return &Panel{
		dst:  dst,
		cfg:  *cfg,
		face: truetype.NewFace(f, &truetype.Options{Size: opts.Size}),
		w:    w,
		h:    h,
	}, nil
}

func direction(s *controller.Status) string {
	switch {
	case !s.Reading.Enabled:
		return "STOP"
	case !s.Reading.Valid:
		return "NO ADC"
	case s.Reading.Forward:
		return "FWD"
	default:
		return "REV"
	}
}

// gaugeX maps a duty to a horizontal position inside the gauge.
func gaugeX(v ramp.Duty, x0, w float64) float64 {
	return x0 + float64(v)*w/float64(ramp.Full)
}

// Render draws s.
func (p *Panel) Render(s *controller.Status) image.Image {
	w, h := float64(p.w), float64(p.h)
	dc := gg.NewContext(p.w, p.h)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetRGB(0, 0, 0)
	dc.SetFontFace(p.face)

	_, th := dc.MeasureString("0")
	pad := 2.0
	dc.DrawString(fmt.Sprintf("%#04x > %#04x", s.Applied, s.State.Target), pad, pad+th)
	dc.DrawString(fmt.Sprintf("%s  eta %d", direction(s), p.cfg.Converge(s.State.Target, s.State.Current)), pad, 2*(pad+th))

	// Gauge.
	gx, gw := pad, w-2*pad-10
	gy, gh := h-pad-10, 8.0
	dc.DrawRectangle(gx, gy, gw, gh)
	dc.Stroke()
	rest := gaugeX(p.cfg.Rest, gx, gw)
	applied := gaugeX(s.Applied, gx, gw)
	from, to := rest, applied
	if to < from {
		from, to = to, from
	}
	dc.DrawRectangle(from, gy, to-from, gh)
	dc.Fill()
	dc.DrawLine(rest, gy-2, rest, gy+gh+2)
	dc.Stroke()
	for _, v := range []ramp.Duty{p.cfg.Min, p.cfg.Max} {
		x := gaugeX(v, gx, gw)
		dc.DrawLine(x, gy, x, gy+gh)
	}
	dc.Stroke()

	// Indicator.
	dc.DrawCircle(w-pad-4, gy+gh/2, 3)
	if s.State.Indicator {
		dc.Fill()
	} else {
		dc.Stroke()
	}
	return dc.Image()
}

// Observe implements controller.Observer.
func (p *Panel) Observe(s *controller.Status) error {
	img := p.Render(s)
	p.mu.Lock()
	p.last = img
	p.mu.Unlock()
	if p.dst == nil {
		return nil
	}
	return p.dst.Draw(p.dst.Bounds(), img, image.Point{})
}

// Last returns the last rendered image, nil before the first cycle.
func (p *Panel) Last() image.Image {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// SavePNG writes the last rendered image to path.
func (p *Panel) SavePNG(path string) error {
	img := p.Last()
	if img == nil {
		return errors.New("panel: nothing rendered yet")
	}
	return gg.SavePNG(path, img)
}

var _ controller.Observer = &Panel{}
