package output

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
)

const comparePanelSide = 1400

// CreateCompareImage lays the RGB quicklooks of up to three scenes side by
// side in one PNG, each panel scaled down to a bounded width so tile-sized
// quicklooks stay viewable.
func CreateCompareImage(path string, quicklookPaths []string) error {
	if len(quicklookPaths) == 0 {
		return fmt.Errorf("no quicklooks given for comparison image")
	}
	if len(quicklookPaths) > 3 {
		quicklookPaths = quicklookPaths[:3]
	}

	panels := make([]image.Image, 0, len(quicklookPaths))
	maxHeight := 0
	totalWidth := 0
	for _, p := range quicklookPaths {
		img, err := gg.LoadPNG(p)
		if err != nil {
			return fmt.Errorf("failed to load quicklook %s: %v", p, err)
		}
		panels = append(panels, img)
		w, h := panelSize(img)
		totalWidth += w
		if h > maxHeight {
			maxHeight = h
		}
	}

	dc := gg.NewContext(totalWidth, maxHeight)
	dc.SetRGB(0, 0, 0)
	dc.Clear()

	offsetX := 0
	for _, img := range panels {
		w, _ := panelSize(img)
		scale := float64(w) / float64(img.Bounds().Dx())
		dc.Push()
		dc.Translate(float64(offsetX), 0)
		dc.Scale(scale, scale)
		dc.DrawImage(img, 0, 0)
		dc.Pop()
		offsetX += w
	}

	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create compare folder: %v", err)
	}
	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("failed to save comparison image: %v", err)
	}

	fmt.Println("Comparison image created successfully as", path)
	return nil
}

func panelSize(img image.Image) (int, int) {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	if w <= comparePanelSide {
		return w, h
	}
	scaled := h * comparePanelSide / w
	return comparePanelSide, scaled
}
