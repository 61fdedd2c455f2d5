package raster

import (
	"errors"
	"math"

	"github.com/airbusgeo/godal"
)

// BandID is the semantic role of a raster layer, not a file path.
type BandID string

const (
	B02 BandID = "B02" // blue, 10m
	B03 BandID = "B03" // green, 10m, reference grid donor
	B04 BandID = "B04" // red, 10m
	B08 BandID = "B08" // NIR, 10m
	B11 BandID = "B11" // SWIR1, 20m
	SCL BandID = "SCL" // scene classification, 20m, categorical
)

// BandClass separates continuous reflectance from categorical layers. The
// resampling method is a pure function of the class: interpolating a
// classification layer would fabricate class codes that never existed.
type BandClass int

const (
	Continuous BandClass = iota
	Categorical
)

func (id BandID) Class() BandClass {
	if id == SCL {
		return Categorical
	}
	return Continuous
}

func (c BandClass) ResamplingAlg() godal.ResamplingAlg {
	if c == Categorical {
		return godal.Nearest
	}
	return godal.Bilinear
}

// Band is a single layer aligned to the reference grid. Data is row-major,
// Grid.Width*Grid.Height samples. Continuous bands use NaN for nodata;
// categorical bands use class 0 (no-data).
type Band struct {
	ID   BandID
	Data []float32
	Grid ReferenceGrid
}

// LoadBand reads one band file and aligns it to the reference grid. Sources
// already on the grid are returned as read; everything else is resampled with
// the method dictated by the band class. Source nodata is never interpolated
// into the result.
func LoadBand(id BandID, path string, grid ReferenceGrid) (Band, error) {
	ds, err := godal.Open(path)
	if err != nil {
		return Band{}, &BandLoadError{Band: id, Path: path, Err: err}
	}
	defer ds.Close()

	gt, err := ds.GeoTransform()
	if err != nil {
		return Band{}, &BandLoadError{Band: id, Path: path, Err: err}
	}
	st := ds.Structure()
	if st.NBands < 1 {
		return Band{}, &BandLoadError{Band: id, Path: path, Err: errors.New("no raster bands in file")}
	}
	if !overlaps(grid, gt, st.SizeX, st.SizeY) {
		return Band{}, &BandLoadError{Band: id, Path: path, Err: errors.New("source extent does not overlap reference grid")}
	}

	src := ds.Bands()[0]
	nodata, hasNodata := src.NoData()

	data := make([]float32, grid.Pixels())
	if st.SizeX == grid.Width && st.SizeY == grid.Height && grid.SameTransform(gt) {
		if err := src.Read(0, 0, data, grid.Width, grid.Height); err != nil {
			return Band{}, &BandLoadError{Band: id, Path: path, Err: err}
		}
		if hasNodata {
			substituteNodata(id.Class(), data, nodata)
		}
		return Band{ID: id, Data: data, Grid: grid}, nil
	}

	// Source pixel window covering the reference grid extent. For full-tile
	// bands this is the whole source; with an AOI crop it is a sub-window.
	sx := int(math.Round((grid.GeoTransform[0] - gt[0]) / gt[1]))
	sy := int(math.Round((grid.GeoTransform[3] - gt[3]) / gt[5]))
	sw := int(math.Round(float64(grid.Width) * grid.PixelWidth() / gt[1]))
	sh := int(math.Round(float64(grid.Height) * grid.PixelHeight() / gt[5]))
	if sx < 0 || sy < 0 || sw < 1 || sh < 1 || sx+sw > st.SizeX || sy+sh > st.SizeY {
		return Band{}, &BandLoadError{Band: id, Path: path, Err: errors.New("reference grid extent exceeds source coverage")}
	}

	alg := id.Class().ResamplingAlg()
	err = src.Read(sx, sy, data, grid.Width, grid.Height,
		godal.Window(sw, sh), godal.Resampling(alg))
	if err != nil {
		return Band{}, &BandLoadError{Band: id, Path: path, Err: err}
	}

	if hasNodata {
		if id.Class() == Continuous {
			// Bilinear smears nodata into neighbours, so the nodata footprint
			// is resolved separately with nearest and punched back out.
			footprint := make([]float32, grid.Pixels())
			err = src.Read(sx, sy, footprint, grid.Width, grid.Height,
				godal.Window(sw, sh), godal.Resampling(godal.Nearest))
			if err != nil {
				return Band{}, &BandLoadError{Band: id, Path: path, Err: err}
			}
			nd := float32(nodata)
			hit := make([]bool, grid.Pixels())
			for i, v := range footprint {
				hit[i] = v == nd
			}
			// The nearest footprint only marks targets within half a source
			// pixel of a nodata centre, but bilinear support reaches a full
			// source pixel. Widen the footprint by the remaining half so no
			// target keeps a value interpolated from a nodata sample.
			rx := int(math.Ceil(gt[1] / grid.PixelWidth() / 2))
			ry := int(math.Ceil(gt[5] / grid.PixelHeight() / 2))
			dilateMask(hit, grid.Width, grid.Height, rx, ry)
			nan := float32(math.NaN())
			for i, set := range hit {
				if set {
					data[i] = nan
				}
			}
		} else {
			substituteNodata(Categorical, data, nodata)
		}
	}
	return Band{ID: id, Data: data, Grid: grid}, nil
}

// dilateMask grows set pixels by rx columns and ry rows, in place.
func dilateMask(mask []bool, width, height, rx, ry int) {
	if rx < 1 && ry < 1 {
		return
	}
	out := make([]bool, len(mask))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !mask[y*width+x] {
				continue
			}
			for dy := -ry; dy <= ry; dy++ {
				ny := y + dy
				if ny < 0 || ny >= height {
					continue
				}
				for dx := -rx; dx <= rx; dx++ {
					nx := x + dx
					if nx < 0 || nx >= width {
						continue
					}
					out[ny*width+nx] = true
				}
			}
		}
	}
	copy(mask, out)
}

func substituteNodata(class BandClass, data []float32, nodata float64) {
	nd := float32(nodata)
	var sub float32
	if class == Continuous {
		sub = float32(math.NaN())
	}
	for i, v := range data {
		if v == nd {
			data[i] = sub
		}
	}
}

func overlaps(grid ReferenceGrid, gt [6]float64, sizeX, sizeY int) bool {
	gMinX, gMinY, gMaxX, gMaxY := grid.Bounds()
	sMinX := gt[0]
	sMaxY := gt[3]
	sMaxX := sMinX + gt[1]*float64(sizeX)
	sMinY := sMaxY + gt[5]*float64(sizeY)
	return sMinX < gMaxX && gMinX < sMaxX && sMinY < gMaxY && gMinY < sMaxY
}
