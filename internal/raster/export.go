package raster

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/airbusgeo/godal"
)

var gtiffCreationOptions = []string{"COMPRESS=DEFLATE", "PREDICTOR=2", "TILED=YES"}

// WriteIndexGeoTIFF writes a computed index as a single-band float32 GeoTIFF
// carrying the reference grid's transform and projection, with NaN declared
// as the nodata value. The file is written to a temporary name and renamed
// into place so a failed export leaves nothing behind.
func WriteIndexGeoTIFF(path string, idx SpectralIndex) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return &ExportError{Path: path, Err: err}
	}
	tmp := path + ".tmp"
	if err := writeIndexDataset(tmp, idx); err != nil {
		os.Remove(tmp)
		return &ExportError{Path: path, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return &ExportError{Path: path, Err: err}
	}
	return nil
}

func writeIndexDataset(path string, idx SpectralIndex) error {
	grid := idx.Grid
	if len(idx.Data) != grid.Pixels() {
		return fmt.Errorf("index %s has %d samples, grid expects %d", idx.ID, len(idx.Data), grid.Pixels())
	}

	ds, err := godal.Create(godal.GTiff, path, 1, godal.Float32, grid.Width, grid.Height,
		godal.CreationOption(gtiffCreationOptions...))
	if err != nil {
		return err
	}
	if err := ds.SetGeoTransform(grid.GeoTransform); err != nil {
		ds.Close()
		return err
	}
	if err := ds.SetProjection(grid.Projection); err != nil {
		ds.Close()
		return err
	}

	band := ds.Bands()[0]
	if err := band.SetNoData(math.NaN()); err != nil {
		ds.Close()
		return err
	}
	if err := band.Write(0, 0, idx.Data, grid.Width, grid.Height); err != nil {
		ds.Close()
		return err
	}
	return ds.Close()
}

// RGBComposite is a stretched 8-bit true-color image on the reference grid.
// Channels are row-major, one byte per pixel.
type RGBComposite struct {
	R, G, B []uint8
	Grid    ReferenceGrid
}

// WriteRGBGeoTIFF writes the composite as a georeferenced 3-band uint8 GeoTIFF.
func WriteRGBGeoTIFF(path string, rgb RGBComposite) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return &ExportError{Path: path, Err: err}
	}
	tmp := path + ".tmp"
	if err := writeRGBDataset(tmp, rgb); err != nil {
		os.Remove(tmp)
		return &ExportError{Path: path, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return &ExportError{Path: path, Err: err}
	}
	return nil
}

func writeRGBDataset(path string, rgb RGBComposite) error {
	grid := rgb.Grid
	for _, ch := range [][]uint8{rgb.R, rgb.G, rgb.B} {
		if len(ch) != grid.Pixels() {
			return fmt.Errorf("rgb channel has %d samples, grid expects %d", len(ch), grid.Pixels())
		}
	}

	ds, err := godal.Create(godal.GTiff, path, 3, godal.Byte, grid.Width, grid.Height,
		godal.CreationOption(gtiffCreationOptions...))
	if err != nil {
		return err
	}
	if err := ds.SetGeoTransform(grid.GeoTransform); err != nil {
		ds.Close()
		return err
	}
	if err := ds.SetProjection(grid.Projection); err != nil {
		ds.Close()
		return err
	}

	bands := ds.Bands()
	for i, ch := range [][]uint8{rgb.R, rgb.G, rgb.B} {
		if err := bands[i].Write(0, 0, ch, grid.Width, grid.Height); err != nil {
			ds.Close()
			return err
		}
	}
	return ds.Close()
}
