// internal/tui/component/sparkline_test.go
package component

import "testing"

func TestSparklineEmptyData(t *testing.T) {
	s := NewSparkline(5)

	if got := s.Blocks(); got != "▁▁▁▁▁" {
		t.Errorf("empty sparkline = %q, want baseline row", got)
	}
}

func TestSparklineFlatData(t *testing.T) {
	s := NewSparkline(10).SetData([]float64{5, 5, 5})

	if got := s.Blocks(); got != "▄▄▄" {
		t.Errorf("flat sparkline = %q, want mid-height row", got)
	}
}

func TestSparklineRamp(t *testing.T) {
	s := NewSparkline(10).SetData([]float64{0, 1, 2, 3})

	if got := s.Blocks(); got != "▁▃▅█" {
		t.Errorf("ramp sparkline = %q, want ▁▃▅█", got)
	}
}

func TestSparklineResamplesWideData(t *testing.T) {
	data := make([]float64, 100)
	for i := range data {
		data[i] = float64(i)
	}

	s := NewSparkline(4).SetData(data)
	blocks := []rune(s.Blocks())

	if len(blocks) != 4 {
		t.Fatalf("resampled width = %d, want 4", len(blocks))
	}
	if blocks[0] != '▁' {
		t.Errorf("first block = %q, want ▁", blocks[0])
	}
	if blocks[3] != '█' {
		t.Errorf("last block = %q, want █ (must include the final point)", blocks[3])
	}
}

func TestSparklineSingleColumn(t *testing.T) {
	data := make([]float64, 10)
	for i := range data {
		data[i] = float64(i)
	}

	s := NewSparkline(1).SetData(data)

	if got := s.Blocks(); got != "▄" {
		t.Errorf("single column sparkline = %q, want ▄", got)
	}
}
