package raster

import (
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeClamps(t *testing.T) {
	cases := []struct {
		value, min, max, want float64
	}{
		{0.5, 0, 1, 0.5},
		{-2, -1, 1, 0},
		{2, -1, 1, 1},
		{0, -1, 1, 0.5},
		{5, 3, 3, 0}, // degenerate window
	}
	for _, c := range cases {
		if got := normalize(c.value, c.min, c.max); got != c.want {
			t.Errorf("normalize(%v, %v, %v) = %v, want %v", c.value, c.min, c.max, got, c.want)
		}
	}
}

func TestValueToColorRamp(t *testing.T) {
	if c := valueToColor(0); c.R != 0 || c.G != 0 || c.B != 255 {
		t.Errorf("low end should be blue, got %+v", c)
	}
	if c := valueToColor(0.5); c.R != 0 || c.G != 255 || c.B != 0 {
		t.Errorf("midpoint should be green, got %+v", c)
	}
	if c := valueToColor(1); c.R != 255 || c.G != 0 || c.B != 0 {
		t.Errorf("high end should be red, got %+v", c)
	}
}

func TestPercentile(t *testing.T) {
	sorted := []float32{1, 2, 3, 4, 5}
	if got := percentile(sorted, 0); got != 1 {
		t.Errorf("p0 = %v, want 1", got)
	}
	if got := percentile(sorted, 100); got != 5 {
		t.Errorf("p100 = %v, want 5", got)
	}
	if got := percentile(sorted, 50); got != 3 {
		t.Errorf("p50 = %v, want 3", got)
	}
	if got := percentile([]float32{7}, 98); got != 7 {
		t.Errorf("single sample percentile = %v, want 7", got)
	}
}

func TestStretchChannel(t *testing.T) {
	data := make([]float32, 100)
	for i := range data {
		data[i] = float32(i + 1)
	}
	out := stretchChannel(data, StretchParams{LowPercentile: 2, HighPercentile: 98, Gamma: 1})

	if out[0] != 0 {
		t.Errorf("lowest sample = %d, want 0 after stretch", out[0])
	}
	if out[99] != 255 {
		t.Errorf("highest sample = %d, want 255 after stretch", out[99])
	}
	for i := 1; i < len(out); i++ {
		if out[i] < out[i-1] {
			t.Fatalf("stretch is not monotonic at %d: %d < %d", i, out[i], out[i-1])
		}
	}
}

func TestStretchChannelNaNAndConstant(t *testing.T) {
	nan := float32(math.NaN())
	out := stretchChannel([]float32{nan, 4, 4, 4}, DefaultStretch)
	if out[0] != 0 {
		t.Errorf("NaN pixel = %d, want 0", out[0])
	}
	// constant channel falls back to a one-unit window instead of dividing by zero
	for _, v := range out[1:] {
		if v > 255 {
			t.Errorf("constant channel produced out-of-range value %d", v)
		}
	}
}

func TestWriteIndexQuicklook(t *testing.T) {
	grid := testGrid(2, 2)
	nan := float32(math.NaN())
	idx := SpectralIndex{ID: NDVI, Grid: grid, Data: []float32{0.9, -0.2, 0.35, nan}}

	path := filepath.Join(t.TempDir(), "ndvi", "ql.png")
	if err := WriteIndexQuicklook(path, idx, DefaultQuicklookRanges[NDVI]); err != nil {
		t.Fatalf("WriteIndexQuicklook failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("quicklook not written: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("quicklook is not a valid PNG: %v", err)
	}
	if img.Bounds().Dx() != 2 || img.Bounds().Dy() != 2 {
		t.Errorf("quicklook size = %v, want 2x2", img.Bounds())
	}

	r, g, b, _ := img.At(1, 1).RGBA()
	if r != 0 || g != 0 || b != 0 {
		t.Errorf("nodata pixel rendered as (%d,%d,%d), want black", r>>8, g>>8, b>>8)
	}
}

func TestWriteRGBPNG(t *testing.T) {
	grid := testGrid(2, 1)
	rgb := RGBComposite{
		R:    []uint8{255, 0},
		G:    []uint8{0, 255},
		B:    []uint8{0, 0},
		Grid: grid,
	}

	path := filepath.Join(t.TempDir(), "rgb.png")
	if err := WriteRGBPNG(path, rgb); err != nil {
		t.Fatalf("WriteRGBPNG failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("invalid PNG: %v", err)
	}
	r, g, _, _ := img.At(0, 0).RGBA()
	if r>>8 != 255 || g>>8 != 0 {
		t.Errorf("pixel (0,0) = (%d,%d), want red", r>>8, g>>8)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temporary file left behind after rename")
	}
}

func TestWritePNGAtomicFailureLeavesNothing(t *testing.T) {
	// a path whose parent is a regular file cannot be created, and the
	// failure must not leave a temporary file either
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(blocker, "rgb.png")

	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	if err := writePNGAtomic(path, img); err == nil {
		t.Fatal("expected an error writing under a regular file")
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temporary file left behind after failed write")
	}
}
