// internal/tui/component/sparkline.go
package component

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/prediction-pump/internal/tui/style"
)

// Sparkline renders a static data series as a row of block characters.
// The explorer uses it to preview the shape of the price curve from zero
// supply to max supply.
type Sparkline struct {
	data  []float64
	width int
	color lipgloss.Color
}

// NewSparkline creates a sparkline of the given width.
func NewSparkline(width int) *Sparkline {
	return &Sparkline{
		width: width,
		color: style.DefaultPalette().Primary,
	}
}

// SetData replaces the data points. More points than the width are
// downsampled by simple striding; fewer points render left-aligned.
func (s *Sparkline) SetData(data []float64) *Sparkline {
	s.data = make([]float64, len(data))
	copy(s.data, data)
	return s
}

// SetWidth resizes the sparkline.
func (s *Sparkline) SetWidth(width int) *Sparkline {
	if width > 0 {
		s.width = width
	}
	return s
}

// SetColor overrides the block color.
func (s *Sparkline) SetColor(color lipgloss.Color) *Sparkline {
	s.color = color
	return s
}

// View renders the sparkline as a single styled line.
func (s *Sparkline) View() string {
	blocks := s.generateBlocks()
	return lipgloss.NewStyle().Foreground(s.color).Render(blocks)
}

// Blocks returns the raw, unstyled block string. Tests and width
// calculations use this form.
func (s *Sparkline) Blocks() string {
	return s.generateBlocks()
}

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

func (s *Sparkline) generateBlocks() string {
	if len(s.data) == 0 {
		return strings.Repeat("▁", s.width)
	}

	points := s.resample()

	min, max := points[0], points[0]
	for _, v := range points {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	// All values equal: a flat mid-height line reads better than noise.
	if min == max {
		return strings.Repeat("▄", len(points))
	}

	var b strings.Builder
	for _, v := range points {
		normalized := (v - min) / (max - min)
		idx := int(normalized * float64(len(sparkChars)-1))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteRune(sparkChars[idx])
	}
	return b.String()
}

// resample fits the data into at most width points.
func (s *Sparkline) resample() []float64 {
	if len(s.data) <= s.width {
		return s.data
	}
	if s.width <= 1 {
		return s.data[len(s.data)-1:]
	}
	out := make([]float64, s.width)
	for i := 0; i < s.width; i++ {
		// Pick the source point proportionally; the last output point
		// always maps onto the last input point.
		idx := i * (len(s.data) - 1) / (s.width - 1)
		out[i] = s.data[idx]
	}
	return out
}
