package raster

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/fogleman/gg"
)

// QuicklookRange is the fixed display window an index is stretched into.
// Values outside the window clamp; the underlying GeoTIFF is never clamped.
type QuicklookRange struct {
	Min, Max float64
}

// DefaultQuicklookRanges follow the usual display conventions: vegetation
// rarely exceeds 0.9 NDVI, the water indices span the full ratio range.
var DefaultQuicklookRanges = map[IndexID]QuicklookRange{
	NDVI:  {Min: -0.2, Max: 0.9},
	NDWI:  {Min: -1, Max: 1},
	MNDWI: {Min: -1, Max: 1},
}

func normalize(value, min, max float64) float64 {
	if max == min {
		return 0
	}
	norm := (value - min) / (max - min)
	if norm < 0 {
		return 0
	}
	if norm > 1 {
		return 1
	}
	return norm
}

func valueToColor(norm float64) color.RGBA {
	var r, g, b uint8
	if norm <= 0.5 {
		// Transition from blue to green
		ratio := norm / 0.5
		r = 0
		g = uint8(255 * ratio)
		b = uint8(255 * (1 - ratio))
	} else {
		// Transition from green to red
		ratio := (norm - 0.5) / 0.5
		r = uint8(255 * ratio)
		g = uint8(255 * (1 - ratio))
		b = 0
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// WriteIndexQuicklook renders an 8-bit PNG of the index through the fixed
// display window. Nodata pixels come out black.
func WriteIndexQuicklook(path string, idx SpectralIndex, rng QuicklookRange) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return &ExportError{Path: path, Err: err}
	}
	grid := idx.Grid
	if len(idx.Data) != grid.Pixels() {
		return &ExportError{Path: path, Err: fmt.Errorf("index %s has %d samples, grid expects %d", idx.ID, len(idx.Data), grid.Pixels())}
	}

	dc := gg.NewContext(grid.Width, grid.Height)
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			v := float64(idx.Data[y*grid.Width+x])
			if math.IsNaN(v) {
				dc.SetRGB(0, 0, 0)
			} else {
				clr := valueToColor(normalize(v, rng.Min, rng.Max))
				dc.SetRGB(float64(clr.R)/255, float64(clr.G)/255, float64(clr.B)/255)
			}
			dc.SetPixel(x, y)
		}
	}
	if err := writePNGAtomic(path, dc.Image()); err != nil {
		return &ExportError{Path: path, Err: err}
	}
	return nil
}

// writePNGAtomic encodes to a temporary name and renames into place, the same
// way the GeoTIFF exporters do, so a failed encode leaves nothing behind.
func writePNGAtomic(path string, img image.Image) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// StretchParams control the fixed quicklook stretch for reflectance channels.
type StretchParams struct {
	LowPercentile  float64
	HighPercentile float64
	Gamma          float64
}

// DefaultStretch is the 2/98 percentile window with a mild brightening gamma.
var DefaultStretch = StretchParams{LowPercentile: 2, HighPercentile: 98, Gamma: 1.15}

// StretchRGB maps three reflectance bands into an 8-bit true-color composite.
// Each channel is stretched independently over its finite positive samples;
// pixels with no usable sample in a channel render as 0 there.
func StretchRGB(red, green, blue Band, p StretchParams) RGBComposite {
	return RGBComposite{
		R:    stretchChannel(red.Data, p),
		G:    stretchChannel(green.Data, p),
		B:    stretchChannel(blue.Data, p),
		Grid: red.Grid,
	}
}

func stretchChannel(data []float32, p StretchParams) []uint8 {
	finite := make([]float32, 0, len(data))
	for _, v := range data {
		if !math.IsNaN(float64(v)) && v > 0 {
			finite = append(finite, v)
		}
	}
	lo, hi := float32(0), float32(1)
	if len(finite) > 0 {
		sort.Slice(finite, func(i, j int) bool { return finite[i] < finite[j] })
		lo = percentile(finite, p.LowPercentile)
		hi = percentile(finite, p.HighPercentile)
		if hi <= lo {
			lo = finite[0]
			hi = finite[len(finite)-1]
			if hi <= lo {
				hi = lo + 1
			}
		}
	}

	gamma := p.Gamma
	if gamma == 0 {
		gamma = 1
	}
	out := make([]uint8, len(data))
	for i, v := range data {
		if math.IsNaN(float64(v)) {
			continue
		}
		norm := normalize(float64(v), float64(lo), float64(hi))
		norm = math.Pow(norm, 1/gamma)
		out[i] = uint8(norm*255 + 0.5)
	}
	return out
}

// percentile over an ascending slice, linear interpolation between ranks.
func percentile(sorted []float32, pct float64) float32 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := pct / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if upper >= len(sorted) {
		upper = len(sorted) - 1
	}
	frac := float32(rank - float64(lower))
	return sorted[lower] + (sorted[upper]-sorted[lower])*frac
}

// WriteRGBPNG writes the composite as a plain PNG for visual inspection.
func WriteRGBPNG(path string, rgb RGBComposite) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return &ExportError{Path: path, Err: err}
	}
	grid := rgb.Grid
	img := image.NewRGBA(image.Rect(0, 0, grid.Width, grid.Height))
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			i := y*grid.Width + x
			img.Set(x, y, color.RGBA{R: rgb.R[i], G: rgb.G[i], B: rgb.B[i], A: 255})
		}
	}

	if err := writePNGAtomic(path, img); err != nil {
		return &ExportError{Path: path, Err: err}
	}
	return nil
}
