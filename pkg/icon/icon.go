// Package icon renders the tray icon for each refresh status.
//
// Icons are 48×48 PNGs:
//   - Idle: slate circle with "L"
//   - Loading: blue circle with three dots
//   - OK: green circle with "L"
//   - Error: red square with "!"
//
// Shape and glyph differ per state so color-blind users can tell them apart.
package icon

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Size is the standard system tray icon size (48×48 for KDE/GNOME).
const Size = 48

// Status is what the tray icon shows.
type Status int

// Tray statuses.
const (
	Idle Status = iota
	Loading
	OK
	Error
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case OK:
		return "ok"
	case Error:
		return "error"
	default:
		return "idle"
	}
}

var (
	slate = color.RGBA{100, 116, 139, 255}
	blue  = color.RGBA{37, 99, 235, 255}
	green = color.RGBA{40, 167, 69, 255}
	red   = color.RGBA{220, 53, 69, 255}
	white = color.RGBA{255, 255, 255, 255}
)

// Render draws the icon for s.
func Render(s Status) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, Size, Size))

	switch s {
	case Loading:
		fillCircle(img, blue, Size/2)
		for i := range 3 {
			dot(img, Size/4+i*Size/4, Size/2, 4)
		}
	case OK:
		fillCircle(img, green, Size/2)
		drawBoldText(img, "L", Size/2, Size/2)
	case Error:
		fillSquare(img, red)
		drawBoldText(img, "!", Size/2, Size/2)
	default:
		fillCircle(img, slate, Size/2)
		drawBoldText(img, "L", Size/2, Size/2)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func fillCircle(img *image.RGBA, fill color.RGBA, radius int) {
	r := float64(radius)
	for py := range Size {
		for px := range Size {
			dx := float64(px) - r + 0.5
			dy := float64(py) - r + 0.5
			if math.Sqrt(dx*dx+dy*dy) <= r {
				img.Set(px, py, fill)
			}
		}
	}
}

func fillSquare(img *image.RGBA, fill color.RGBA) {
	for py := range Size {
		for px := range Size {
			img.Set(px, py, fill)
		}
	}
}

func dot(img *image.RGBA, cx, cy, radius int) {
	for py := cy - radius; py <= cy+radius; py++ {
		for px := cx - radius; px <= cx+radius; px++ {
			dx, dy := px-cx, py-cy
			if dx*dx+dy*dy <= radius*radius {
				img.Set(px, py, white)
			}
		}
	}
}

// drawBoldText centers text on (centerX, centerY) in Go's monospace bold font.
func drawBoldText(img *image.RGBA, text string, centerX, centerY int) {
	face, err := opentype.Parse(gomonobold.TTF)
	if err != nil {
		return // plain colored icon without glyph
	}
	fontFace, err := opentype.NewFace(face, &opentype.FaceOptions{Size: 32, DPI: 72})
	if err != nil {
		return
	}
	defer fontFace.Close() //nolint:errcheck // Close error is not critical for rendering

	bounds, advance := font.BoundString(fontFace, text)
	visualCenter := (bounds.Max.Y + bounds.Min.Y) / 2
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(white),
		Face: fontFace,
		Dot:  fixed.Point26_6{X: fixed.I(centerX - advance.Ceil()/2), Y: fixed.I(centerY) - visualCenter},
	}
	drawer.DrawString(text)
}

// Cache renders each status once.
type Cache struct {
	icons map[Status][]byte
	mu    sync.Mutex
}

// NewCache creates an icon cache.
func NewCache() *Cache {
	return &Cache{icons: make(map[Status][]byte)}
}

// Get returns the icon for s, rendering it on first use.
func (c *Cache) Get(s Status) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if data, ok := c.icons[s]; ok {
		return data, nil
	}
	data, err := Render(s)
	if err != nil {
		return nil, err
	}
	c.icons[s] = data
	return data, nil
}
