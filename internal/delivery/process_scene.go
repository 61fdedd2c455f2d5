package delivery

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sync"

	"github.com/basin-watch/basin-watch-api-poc/internal/aoi"
	"github.com/basin-watch/basin-watch-api-poc/internal/catalog"
	"github.com/basin-watch/basin-watch-api-poc/internal/raster"
	"github.com/gammazero/workerpool"
)

// Options configure one processing run. Zero values mean: all indices, RGB
// composite on, full scene extent, 4 load workers.
type Options struct {
	Indices    []raster.IndexID
	SkipRGB    bool
	AOIPath    string
	Workers    int
	MaskPolicy *raster.MaskPolicy
}

func (o Options) indices() []raster.IndexID {
	if len(o.Indices) == 0 {
		return raster.AllIndices
	}
	return o.Indices
}

func (o Options) workers() int {
	if o.Workers <= 0 {
		return 4
	}
	return o.Workers
}

// IndexStats summarize one exported index for the batch report.
type IndexStats struct {
	Index         raster.IndexID `json:"index"`
	Min           float64        `json:"min"`
	Max           float64        `json:"max"`
	Mean          float64        `json:"mean"`
	ValidFraction float64        `json:"valid_fraction"`
}

// SceneResult records what a scene run produced.
type SceneResult struct {
	SceneID  string       `json:"scene_id"`
	Products []string     `json:"products"`
	Stats    []IndexStats `json:"stats"`
	RGBPath  string       `json:"rgb_path,omitempty"`
}

// ProcessScene runs the full pipeline for one scene: resolve the reference
// grid from B03, load and align every band, build the validity mask, compute
// the indices and export GeoTIFFs plus quicklooks. A band failure aborts the
// scene before anything is written; an export failure is collected per
// product and already-written products stay.
func ProcessScene(scene catalog.Scene, outRoot string, opts Options) (*SceneResult, error) {
	if err := scene.VerifyBands(catalog.RequiredBands); err != nil {
		return nil, err
	}

	grid, err := raster.ResolveReferenceGrid(scene.BandPath(raster.B03))
	if err != nil {
		return nil, err
	}
	if opts.AOIPath != "" {
		bound, err := aoi.LoadBound(opts.AOIPath)
		if err != nil {
			return nil, err
		}
		window, err := aoi.Window(bound, grid)
		if err != nil {
			return nil, err
		}
		grid = grid.Crop(window)
	}

	bands, err := loadBands(scene, grid, catalog.RequiredBands, opts.workers())
	if err != nil {
		return nil, err
	}

	policy := raster.DefaultMaskPolicy()
	if opts.MaskPolicy != nil {
		policy = *opts.MaskPolicy
	}
	mask, err := raster.BuildValidityMask(bands[raster.SCL], policy)
	if err != nil {
		return nil, err
	}

	result := &SceneResult{SceneID: scene.ID}
	var exportErrs []error

	indexDir := filepath.Join(outRoot, "indices", scene.ID)
	for _, id := range opts.indices() {
		idx, err := raster.ComputeIndex(id, bands, mask)
		if err != nil {
			return nil, err
		}

		tifPath := filepath.Join(indexDir, fmt.Sprintf("%s_%s.tif", scene.ID, id))
		if err := raster.WriteIndexGeoTIFF(tifPath, idx); err != nil {
			exportErrs = append(exportErrs, err)
		} else {
			result.Products = append(result.Products, tifPath)
		}

		pngPath := filepath.Join(indexDir, fmt.Sprintf("%s_%s.png", scene.ID, id))
		rng, ok := raster.DefaultQuicklookRanges[id]
		if !ok {
			rng = raster.QuicklookRange{Min: -1, Max: 1}
		}
		if err := raster.WriteIndexQuicklook(pngPath, idx, rng); err != nil {
			exportErrs = append(exportErrs, err)
		} else {
			result.Products = append(result.Products, pngPath)
		}

		result.Stats = append(result.Stats, summarize(idx))
	}

	if !opts.SkipRGB {
		rgb := raster.StretchRGB(bands[raster.B04], bands[raster.B03], bands[raster.B02], raster.DefaultStretch)
		rgbDir := filepath.Join(outRoot, "rgb", scene.ID)

		tifPath := filepath.Join(rgbDir, fmt.Sprintf("%s_RGB.tif", scene.ID))
		if err := raster.WriteRGBGeoTIFF(tifPath, rgb); err != nil {
			exportErrs = append(exportErrs, err)
		} else {
			result.Products = append(result.Products, tifPath)
		}

		pngPath := filepath.Join(rgbDir, fmt.Sprintf("%s_RGB.png", scene.ID))
		if err := raster.WriteRGBPNG(pngPath, rgb); err != nil {
			exportErrs = append(exportErrs, err)
		} else {
			result.Products = append(result.Products, pngPath)
			result.RGBPath = pngPath
		}
	}

	return result, errors.Join(exportErrs...)
}

// loadBands reads every band concurrently. Band loads are independent; the
// only ordering that matters is that the grid exists before any of them and
// all of them finish before masking starts.
func loadBands(scene catalog.Scene, grid raster.ReferenceGrid, ids []raster.BandID, workers int) (map[raster.BandID]raster.Band, error) {
	var (
		mu    sync.Mutex
		bands = make(map[raster.BandID]raster.Band, len(ids))
	)

	wp := workerpool.New(workers)
	errChan := make(chan error, 1)
	var stopProcessing sync.Once

	for _, id := range ids {
		id := id
		wp.Submit(func() {
			band, err := raster.LoadBand(id, scene.BandPath(id), grid)
			if err != nil {
				stopProcessing.Do(func() { errChan <- err })
				return
			}
			mu.Lock()
			bands[id] = band
			mu.Unlock()
		})
	}

	go func() {
		wp.StopWait()
		close(errChan)
	}()

	if err := <-errChan; err != nil {
		return nil, err
	}
	return bands, nil
}

func summarize(idx raster.SpectralIndex) IndexStats {
	stats := IndexStats{Index: idx.ID, Min: math.Inf(1), Max: math.Inf(-1)}
	var sum float64
	var valid int
	for _, v := range idx.Data {
		f := float64(v)
		if math.IsNaN(f) {
			continue
		}
		valid++
		sum += f
		if f < stats.Min {
			stats.Min = f
		}
		if f > stats.Max {
			stats.Max = f
		}
	}
	if valid == 0 {
		// zeros with ValidFraction 0, NaN would not survive the JSON cache
		stats.Min, stats.Max, stats.Mean = 0, 0, 0
		return stats
	}
	stats.Mean = sum / float64(valid)
	if len(idx.Data) > 0 {
		stats.ValidFraction = float64(valid) / float64(len(idx.Data))
	}
	return stats
}
