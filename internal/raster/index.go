package raster

import (
	"fmt"
	"math"
)

// IndexID names a band-ratio spectral index.
type IndexID string

const (
	NDVI  IndexID = "NDVI"  // vegetation: (B08-B04)/(B08+B04)
	NDWI  IndexID = "NDWI"  // open water, McFeeters: (B03-B08)/(B03+B08)
	MNDWI IndexID = "MNDWI" // water vs built-up, Xu: (B03-B11)/(B03+B11)
)

// AllIndices in the order products are written.
var AllIndices = []IndexID{NDVI, NDWI, MNDWI}

type indexDef struct {
	a, b BandID // (a - b) / (a + b)
}

var indexDefs = map[IndexID]indexDef{
	NDVI:  {a: B08, b: B04},
	NDWI:  {a: B03, b: B08},
	MNDWI: {a: B03, b: B11},
}

// Bands returns the two band roles an index is computed from.
func (id IndexID) Bands() (BandID, BandID, error) {
	def, ok := indexDefs[id]
	if !ok {
		return "", "", fmt.Errorf("unknown spectral index %q", id)
	}
	return def.a, def.b, nil
}

// SpectralIndex is a computed index on the reference grid. Masked and
// singular pixels hold NaN; zero is always a legitimate index value.
type SpectralIndex struct {
	ID   IndexID
	Data []float32
	Grid ReferenceGrid
}

// NormalizedDifference computes (a-b)/(a+b) element-wise. The result is NaN
// where the denominator is exactly zero, where either input is NaN, or where
// the mask rejects the pixel. Values are not clamped to [-1,1]: reflectance
// noise outside the nominal range is a signal worth keeping visible.
func NormalizedDifference(a, b []float32, mask []bool) []float32 {
	nan := float32(math.NaN())
	out := make([]float32, len(a))
	for i := range out {
		if mask != nil && !mask[i] {
			out[i] = nan
			continue
		}
		av, bv := a[i], b[i]
		den := av + bv
		if den == 0 || math.IsNaN(float64(den)) {
			out[i] = nan
			continue
		}
		out[i] = (av - bv) / den
	}
	return out
}

// ComputeIndex evaluates one index from aligned bands and the validity mask.
// Every input must already live on the same reference grid.
func ComputeIndex(id IndexID, bands map[BandID]Band, mask []bool) (SpectralIndex, error) {
	aID, bID, err := id.Bands()
	if err != nil {
		return SpectralIndex{}, err
	}
	a, ok := bands[aID]
	if !ok {
		return SpectralIndex{}, fmt.Errorf("index %s requires band %s, which was not loaded", id, aID)
	}
	b, ok := bands[bID]
	if !ok {
		return SpectralIndex{}, fmt.Errorf("index %s requires band %s, which was not loaded", id, bID)
	}
	if len(a.Data) != len(b.Data) || (mask != nil && len(mask) != len(a.Data)) {
		return SpectralIndex{}, fmt.Errorf("index %s inputs are not aligned: %s has %d samples, %s has %d, mask has %d",
			id, aID, len(a.Data), bID, len(b.Data), len(mask))
	}

	return SpectralIndex{
		ID:   id,
		Data: NormalizedDifference(a.Data, b.Data, mask),
		Grid: a.Grid,
	}, nil
}
