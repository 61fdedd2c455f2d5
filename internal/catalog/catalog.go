package catalog

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/basin-watch/basin-watch-api-poc/internal/raster"
)

// RequiredBands is everything a full product run consumes: the three 10m
// visible bands, NIR, SWIR1 and the classification layer.
var RequiredBands = []raster.BandID{raster.B02, raster.B03, raster.B04, raster.B08, raster.B11, raster.SCL}

// bandResolution is the native ground sample distance encoded in the
// downloaded file names.
var bandResolution = map[raster.BandID]string{
	raster.B02: "10m",
	raster.B03: "10m",
	raster.B04: "10m",
	raster.B08: "10m",
	raster.B11: "20m",
	raster.SCL: "20m",
}

var bandExtensions = []string{".jp2", ".tif"}

// Scene is one downloaded acquisition: a directory holding one file per band,
// named <scene>_<band>_<resolution>.<ext>. The directory name is the scene id.
type Scene struct {
	ID  string
	Dir string
}

// ResolveScene wraps a scene directory. The directory must exist; band files
// are checked separately so the error can name exactly what is missing.
func ResolveScene(dir string) (Scene, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return Scene{}, fmt.Errorf("failed to open scene directory: %v", err)
	}
	if !info.IsDir() {
		return Scene{}, fmt.Errorf("scene path %s is not a directory", dir)
	}
	return Scene{ID: filepath.Base(dir), Dir: dir}, nil
}

// BandPath returns the on-disk location of a band file, trying the known
// extensions. When no file exists, the primary (.jp2) path is returned so
// error messages name the expected file.
func (s Scene) BandPath(id raster.BandID) string {
	base := fmt.Sprintf("%s_%s_%s", s.ID, id, bandResolution[id])
	for _, ext := range bandExtensions {
		p := filepath.Join(s.Dir, base+ext)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return filepath.Join(s.Dir, base+bandExtensions[0])
}

// VerifyBands checks every required band file exists and is readable before
// any raster work starts, so a scene fails loudly instead of producing an
// index from a partial band set.
func (s Scene) VerifyBands(ids []raster.BandID) error {
	for _, id := range ids {
		path := s.BandPath(id)
		if _, err := os.Stat(path); err != nil {
			return &raster.BandLoadError{Band: id, Path: path, Err: err}
		}
	}
	return nil
}

// ListScenes returns a Scene per subdirectory of root, sorted by name.
func ListScenes(root string) ([]Scene, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenes folder: %v", err)
	}

	scenes := []Scene{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		scenes = append(scenes, Scene{ID: e.Name(), Dir: filepath.Join(root, e.Name())})
	}
	if len(scenes) == 0 {
		return nil, fmt.Errorf("no scene directories found in %s", root)
	}
	return scenes, nil
}
