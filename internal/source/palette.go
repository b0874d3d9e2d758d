package source

import (
	"math/rand"
	"time"

	"github.com/fatih/color"
)

// DefaultPalette returns the colors used to tag sources.
func DefaultPalette() []*color.Color {
	return []*color.Color{
		color.New(color.Bold, color.FgHiCyan),
		color.New(color.Bold, color.FgHiMagenta),
		color.New(color.Bold, color.FgHiGreen),
		color.New(color.Bold, color.FgHiYellow),
		color.New(color.Bold, color.FgHiBlue),
		color.New(color.FgCyan),
		color.New(color.FgMagenta),
		color.New(color.FgGreen),
		color.New(color.FgYellow),
		color.New(color.FgBlue),
	}
}

// Palette hands out source colors in a pseudo-random order. A Palette is not
// safe for concurrent use.
type Palette struct {
	colors []*color.Color
	order  []int
	next   int
}

// NewPalette builds a palette over colors, shuffled by seed. A zero seed uses
// the current time; an empty color list uses DefaultPalette.
func NewPalette(seed int64, colors []*color.Color) *Palette {
	if len(colors) == 0 {
		colors = DefaultPalette()
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	return &Palette{colors: colors, order: rng.Perm(len(colors))}
}

// Next returns the next color. Colors repeat only after the whole palette has
// been used once.
func (p *Palette) Next() *color.Color {
	c := p.colors[p.order[p.next%len(p.order)]]
	p.next++
	return c
}

// Assign returns a copy of sources with a color set on each one.
func (p *Palette) Assign(sources []Source) []Source {
	out := make([]Source, len(sources))
	for i, src := range sources {
		src.Color = p.Next()
		out[i] = src
	}
	return out
}
