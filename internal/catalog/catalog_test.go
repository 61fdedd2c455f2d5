package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/basin-watch/basin-watch-api-poc/internal/raster"
)

func stageScene(t *testing.T, root, id string, bands []raster.BandID) Scene {
	t.Helper()
	dir := filepath.Join(root, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	for _, b := range bands {
		name := id + "_" + string(b) + "_" + bandResolution[b] + ".jp2"
		if err := os.WriteFile(filepath.Join(dir, name), []byte("stub"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return Scene{ID: id, Dir: dir}
}

func TestBandPath(t *testing.T) {
	root := t.TempDir()
	scene := stageScene(t, root, "S2A_T52SDG_20240717", []raster.BandID{raster.B03, raster.SCL})

	b03 := scene.BandPath(raster.B03)
	if filepath.Base(b03) != "S2A_T52SDG_20240717_B03_10m.jp2" {
		t.Errorf("B03 path = %s, want the 10m jp2 name", b03)
	}
	scl := scene.BandPath(raster.SCL)
	if filepath.Base(scl) != "S2A_T52SDG_20240717_SCL_20m.jp2" {
		t.Errorf("SCL path = %s, want the 20m jp2 name", scl)
	}

	// a missing band still resolves to the expected primary name for error messages
	b11 := scene.BandPath(raster.B11)
	if filepath.Base(b11) != "S2A_T52SDG_20240717_B11_20m.jp2" {
		t.Errorf("missing band path = %s", b11)
	}
}

func TestBandPathPrefersExistingExtension(t *testing.T) {
	root := t.TempDir()
	scene := stageScene(t, root, "scene1", nil)
	tif := filepath.Join(scene.Dir, "scene1_B04_10m.tif")
	if err := os.WriteFile(tif, []byte("stub"), 0644); err != nil {
		t.Fatal(err)
	}

	if got := scene.BandPath(raster.B04); got != tif {
		t.Errorf("BandPath = %s, want the existing tif %s", got, tif)
	}
}

func TestVerifyBands(t *testing.T) {
	root := t.TempDir()
	scene := stageScene(t, root, "scene1", []raster.BandID{raster.B02, raster.B03, raster.B04, raster.B08, raster.B11})

	if err := scene.VerifyBands([]raster.BandID{raster.B03, raster.B04}); err != nil {
		t.Errorf("VerifyBands failed on staged bands: %v", err)
	}

	err := scene.VerifyBands(RequiredBands)
	var loadErr *raster.BandLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("got %T (%v), want *BandLoadError for the missing SCL", err, err)
	}
	if loadErr.Band != raster.SCL {
		t.Errorf("error names band %s, want %s", loadErr.Band, raster.SCL)
	}
}

func TestResolveScene(t *testing.T) {
	root := t.TempDir()
	stageScene(t, root, "scene1", nil)

	scene, err := ResolveScene(filepath.Join(root, "scene1"))
	if err != nil {
		t.Fatalf("ResolveScene failed: %v", err)
	}
	if scene.ID != "scene1" {
		t.Errorf("scene id = %s, want scene1", scene.ID)
	}

	if _, err := ResolveScene(filepath.Join(root, "missing")); err == nil {
		t.Error("expected error for a missing scene directory")
	}
}

func TestListScenes(t *testing.T) {
	root := t.TempDir()
	stageScene(t, root, "sceneB", nil)
	stageScene(t, root, "sceneA", nil)
	// loose files are not scenes
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	scenes, err := ListScenes(root)
	if err != nil {
		t.Fatalf("ListScenes failed: %v", err)
	}
	if len(scenes) != 2 {
		t.Fatalf("got %d scenes, want 2", len(scenes))
	}
	if scenes[0].ID != "sceneA" || scenes[1].ID != "sceneB" {
		t.Errorf("scenes = %s, %s, want sceneA, sceneB", scenes[0].ID, scenes[1].ID)
	}

	if _, err := ListScenes(filepath.Join(root, "empty")); err == nil {
		t.Error("expected error for a missing scenes folder")
	}
}
