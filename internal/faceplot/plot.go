package faceplot

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/fexlab/auviz/internal/feat"
)

// ErrBadValue marks AU vectors a plot cannot be produced from: wrong
// length or non-finite intensities. Callers treat these as per-frame
// (soft) failures.
var ErrBadValue = errors.New("bad AU value")

// Figure size in inches; pixel dimensions scale with DPI.
const (
	figWidthIn  = 5.0
	figHeightIn = 6.0
)

// Heatmap color ramp endpoints (low -> high activation).
var (
	heatLow  = colorful.Color{R: 1.0, G: 0.96, B: 0.78}
	heatHigh = colorful.Color{R: 0.75, G: 0.05, B: 0.05}
)

var sketchGray = color.RGBA{90, 90, 90, 255}

// Plotter renders AU intensity vectors into schematic face heatmaps.
// A single Plotter is safe to reuse across frames; it holds no
// per-frame state.
type Plotter struct {
	dpi    int
	width  int
	height int
}

// New creates a plotter for the given DPI. Canvas dimensions are forced
// even so the frames can be encoded as yuv420p without rescaling.
func New(dpi int) *Plotter {
	if dpi <= 0 {
		dpi = 100
	}
	return &Plotter{
		dpi:    dpi,
		width:  evenPixels(figWidthIn * float64(dpi)),
		height: evenPixels(figHeightIn * float64(dpi)),
	}
}

// Size returns the pixel dimensions of rendered figures
func (p *Plotter) Size() (width, height int) {
	return p.width, p.height
}

// Plot renders one frame's AU vector in full-heatmap muscle mode. The
// vector must carry one finite intensity per canonical AU column.
func (p *Plotter) Plot(aus []float64, title string) (*image.RGBA, error) {
	if len(aus) != len(feat.AUColumns) {
		return nil, fmt.Errorf("%w: expected %d AU intensities, got %d",
			ErrBadValue, len(feat.AUColumns), len(aus))
	}
	for i, v := range aus {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %s is not finite", ErrBadValue, feat.AUColumns[i])
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	// Heatmap first, sketch lines on top so the face stays legible
	// under strong activations.
	for i, name := range feat.AUColumns {
		intensity := clamp01(aus[i])
		for _, r := range muscleRegions[name] {
			p.fillRegion(img, r, intensity)
		}
	}

	p.drawSketch(img)
	p.drawTitle(img, title)

	return img, nil
}

func (p *Plotter) drawSketch(img *image.RGBA) {
	p.strokeEllipse(img, faceOutline)
	p.strokeArc(img, leftBrow, math.Pi, 2*math.Pi)
	p.strokeArc(img, mirror(leftBrow), math.Pi, 2*math.Pi)
	p.strokeEllipse(img, leftEye)
	p.strokeEllipse(img, mirror(leftEye))
	p.strokeEllipse(img, mouth)
	p.drawLine(img, noseTop, noseBottom)
}

func (p *Plotter) drawTitle(img *image.RGBA, title string) {
	if title == "" {
		return
	}
	face := basicfont.Face7x13
	adv := font.MeasureString(face, title)
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: face,
		Dot: fixed.Point26_6{
			X: (fixed.I(p.width) - adv) / 2,
			Y: fixed.I(face.Height + 6),
		},
	}
	d.DrawString(title)
}

// fillRegion alpha-blends a muscle ellipse onto the canvas. Both the
// ramp color and the opacity follow the activation so idle muscles stay
// close to the background.
func (p *Plotter) fillRegion(img *image.RGBA, r region, intensity float64) {
	c := heatLow.BlendLuv(heatHigh, intensity)
	alpha := 0.2 + 0.7*intensity

	cx := r.cx * float64(p.width)
	cy := r.cy * float64(p.height)
	rx := r.rx * float64(p.width)
	ry := r.ry * float64(p.height)

	x0, x1 := int(cx-rx), int(cx+rx)+1
	y0, y1 := int(cy-ry), int(cy+ry)+1
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			if x < 0 || y < 0 || x >= p.width || y >= p.height {
				continue
			}
			dx := (float64(x) - cx) / rx
			dy := (float64(y) - cy) / ry
			if dx*dx+dy*dy > 1 {
				continue
			}
			blendPixel(img, x, y, c, alpha)
		}
	}
}

func (p *Plotter) strokeEllipse(img *image.RGBA, r region) {
	p.strokeArc(img, r, 0, 2*math.Pi)
}

func (p *Plotter) strokeArc(img *image.RGBA, r region, from, to float64) {
	cx := r.cx * float64(p.width)
	cy := r.cy * float64(p.height)
	rx := r.rx * float64(p.width)
	ry := r.ry * float64(p.height)

	steps := int(4 * (rx + ry))
	if steps < 32 {
		steps = 32
	}
	for i := 0; i <= steps; i++ {
		theta := from + (to-from)*float64(i)/float64(steps)
		x := int(cx + rx*math.Cos(theta))
		y := int(cy + ry*math.Sin(theta))
		setPixel(img, x, y, sketchGray)
	}
}

func (p *Plotter) drawLine(img *image.RGBA, a, b point) {
	x0 := a.x * float64(p.width)
	y0 := a.y * float64(p.height)
	x1 := b.x * float64(p.width)
	y1 := b.y * float64(p.height)

	steps := int(math.Max(math.Abs(x1-x0), math.Abs(y1-y0))) + 1
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		setPixel(img, int(x0+(x1-x0)*t), int(y0+(y1-y0)*t), sketchGray)
	}
}

func setPixel(img *image.RGBA, x, y int, c color.RGBA) {
	if !(image.Point{x, y}).In(img.Bounds()) {
		return
	}
	img.SetRGBA(x, y, c)
}

func blendPixel(img *image.RGBA, x, y int, c colorful.Color, alpha float64) {
	old := img.RGBAAt(x, y)
	img.SetRGBA(x, y, color.RGBA{
		R: blendChannel(c.R, old.R, alpha),
		G: blendChannel(c.G, old.G, alpha),
		B: blendChannel(c.B, old.B, alpha),
		A: 255,
	})
}

func blendChannel(top float64, bottom uint8, alpha float64) uint8 {
	v := alpha*top*255 + (1-alpha)*float64(bottom)
	if v > 255 {
		v = 255
	}
	return uint8(v + 0.5)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func evenPixels(v float64) int {
	n := int(v)
	if n%2 != 0 {
		n++
	}
	return n
}
