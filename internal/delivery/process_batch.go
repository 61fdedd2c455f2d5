package delivery

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/basin-watch/basin-watch-api-poc/internal/cache"
	"github.com/basin-watch/basin-watch-api-poc/internal/catalog"
	"github.com/basin-watch/basin-watch-api-poc/output"
	"github.com/schollz/progressbar/v3"
)

// BatchSummary aggregates a multi-scene run.
type BatchSummary struct {
	Results []*SceneResult
	Skipped []string
	Failed  map[string]error
}

// ProcessBatch runs every scene under scenesRoot. Scenes are isolated: one
// failing scene is recorded and the rest still process. Scenes whose inputs
// and outputs are unchanged since the last run are skipped via the file
// cache; reprocessing is always safe, the cache only avoids the work.
func ProcessBatch(scenesRoot, outRoot string, opts Options) (BatchSummary, error) {
	scenes, err := catalog.ListScenes(scenesRoot)
	if err != nil {
		return BatchSummary{}, err
	}

	summary := BatchSummary{Failed: map[string]error{}}
	sceneCache := cache.NewFileCache[SceneResult](filepath.Join(outRoot, ".cache"))
	progressBar := progressbar.Default(int64(len(scenes)), "Processing scenes")

	for _, scene := range scenes {
		key := sceneKey(sceneCache, scene, opts)
		if cached, ok := sceneCache.Get(key); ok && productsExist(cached.Products) {
			summary.Skipped = append(summary.Skipped, scene.ID)
			summary.Results = append(summary.Results, &cached)
			progressBar.Add(1)
			continue
		}

		result, err := ProcessScene(scene, outRoot, opts)
		if err != nil {
			summary.Failed[scene.ID] = err
			progressBar.Add(1)
			continue
		}

		summary.Results = append(summary.Results, result)
		if err := sceneCache.Set(key, *result); err != nil {
			fmt.Printf("Warning: failed to cache scene %s: %v\n", scene.ID, err)
		}
		progressBar.Add(1)
	}

	if len(summary.Results) == 0 {
		return summary, fmt.Errorf("no scene processed successfully out of %d", len(scenes))
	}

	csvPath := filepath.Join(outRoot, "summary.csv")
	if err := output.CreateSummaryCSV(csvPath, summaryRows(summary)); err != nil {
		return summary, err
	}

	if paths := rgbPaths(summary); len(paths) >= 2 {
		comparePath := filepath.Join(outRoot, "compare", "scenes_compare.png")
		if err := output.CreateCompareImage(comparePath, paths); err != nil {
			fmt.Printf("Warning: failed to create comparison image: %v\n", err)
		}
	}

	return summary, nil
}

func sceneKey(c *cache.FileCache[SceneResult], scene catalog.Scene, opts Options) string {
	paths := make([]string, 0, len(catalog.RequiredBands))
	for _, id := range catalog.RequiredBands {
		paths = append(paths, scene.BandPath(id))
	}
	return c.GenerateKey(scene.ID, opts.AOIPath, opts.SkipRGB, fmt.Sprint(opts.indices()), c.FingerprintFiles(paths...))
}

func productsExist(paths []string) bool {
	if len(paths) == 0 {
		return false
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

func summaryRows(summary BatchSummary) []output.SummaryRow {
	rows := []output.SummaryRow{}
	for _, r := range summary.Results {
		for _, s := range r.Stats {
			rows = append(rows, output.SummaryRow{
				SceneID:       r.SceneID,
				Index:         string(s.Index),
				Min:           s.Min,
				Max:           s.Max,
				Mean:          s.Mean,
				ValidFraction: s.ValidFraction,
			})
		}
	}
	return rows
}

func rgbPaths(summary BatchSummary) []string {
	paths := []string{}
	for _, r := range summary.Results {
		if r.RGBPath != "" {
			paths = append(paths, r.RGBPath)
		}
		if len(paths) == 3 {
			break
		}
	}
	return paths
}
