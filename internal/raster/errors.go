package raster

import "fmt"

// GridResolutionError means the designated reference band could not be turned
// into a usable grid. It is fatal for the whole run.
type GridResolutionError struct {
	Path string
	Err  error
}

func (e *GridResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve reference grid from %s: %v", e.Path, e.Err)
}

func (e *GridResolutionError) Unwrap() error { return e.Err }

// BandLoadError means a required band file is missing, unreadable, or does not
// overlap the reference grid. It is fatal for the scene it belongs to.
type BandLoadError struct {
	Band BandID
	Path string
	Err  error
}

func (e *BandLoadError) Error() string {
	return fmt.Sprintf("failed to load band %s from %s: %v", e.Band, e.Path, e.Err)
}

func (e *BandLoadError) Unwrap() error { return e.Err }

// ExportError means one output product could not be written. Products already
// written stay in place.
type ExportError struct {
	Path string
	Err  error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("failed to export %s: %v", e.Path, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }
