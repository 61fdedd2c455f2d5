package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	"github.com/airbusgeo/godal"
	"github.com/basin-watch/basin-watch-api-poc/internal/catalog"
	"github.com/basin-watch/basin-watch-api-poc/internal/delivery"
	"github.com/basin-watch/basin-watch-api-poc/internal/notification"
	"github.com/basin-watch/basin-watch-api-poc/internal/raster"
	"github.com/common-nighthawk/go-figure"
	bannercolor "github.com/fatih/color"
	"github.com/joho/godotenv"
)

func printBanner() {
	// Print the banner with go-figure
	figure1 := figure.NewFigure("Basin", "isometric1", true)
	figure2 := figure.NewFigure("Watch", "isometric1", true)
	bannercolor.Cyan(figure1.String())
	bannercolor.Cyan(figure2.String())
	fmt.Println()
}

func parseIndices(arg string) ([]raster.IndexID, error) {
	if arg == "" {
		return nil, nil
	}
	ids := []raster.IndexID{}
	for _, name := range strings.Split(arg, ",") {
		id := raster.IndexID(strings.ToUpper(strings.TrimSpace(name)))
		if _, _, err := id.Bands(); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// notifyBatchOutcome routes the batch summary to the error webhook as soon
// as any scene failed, and to the success webhook otherwise.
func notifyBatchOutcome(failedCount int, message string) error {
	if failedCount > 0 {
		return notification.SendDiscordErrorNotification(message)
	}
	return notification.SendDiscordSuccessNotification(message)
}

func run() error {
	scenesRoot := flag.String("scenes", "", "folder holding one subdirectory per scene")
	outRoot := flag.String("out", "", "output folder for index, rgb and compare products")
	aoiPath := flag.String("aoi", "", "optional GeoJSON area of interest to crop products to")
	indicesArg := flag.String("indices", "", "comma separated subset of NDVI,NDWI,MNDWI (default all)")
	skipRGB := flag.Bool("skip-rgb", false, "do not build the true-color composite")
	workers := flag.Int("workers", 4, "concurrent band loads per scene")
	download := flag.Bool("download", false, "fetch missing band files from the Copernicus data space first")
	flag.Parse()

	if *scenesRoot == "" || *outRoot == "" {
		flag.Usage()
		return fmt.Errorf("both --scenes and --out are required")
	}

	indices, err := parseIndices(*indicesArg)
	if err != nil {
		return err
	}

	godal.RegisterAll()

	if *download {
		downloader, err := catalog.NewDownloader(context.Background())
		if err != nil {
			return err
		}
		scenes, err := catalog.ListScenes(*scenesRoot)
		if err != nil {
			return err
		}
		for _, scene := range scenes {
			if err := downloader.FetchMissing(context.Background(), scene, catalog.RequiredBands); err != nil {
				return err
			}
		}
	}

	opts := delivery.Options{
		Indices: indices,
		SkipRGB: *skipRGB,
		AOIPath: *aoiPath,
		Workers: *workers,
	}

	summary, err := delivery.ProcessBatch(*scenesRoot, *outRoot, opts)
	if err != nil {
		return err
	}

	for sceneID, sceneErr := range summary.Failed {
		fmt.Printf("\033[31mScene %s failed: %s\033[0m\n", sceneID, sceneErr.Error())
	}
	if len(summary.Skipped) > 0 {
		fmt.Printf("\033[33mSkipped %d unchanged scene(s): %s\033[0m\n", len(summary.Skipped), strings.Join(summary.Skipped, ", "))
	}
	fmt.Printf("\033[32mProcessed %d scene(s), outputs at: %s\033[0m\n", len(summary.Results), *outRoot)

	message := fmt.Sprintf("Basin Watch\n\nProcessed %d scene(s), %d failed.\nOutputs at: %s", len(summary.Results), len(summary.Failed), *outRoot)
	if err := notifyBatchOutcome(len(summary.Failed), message); err != nil {
		fmt.Printf("\033[31mFailed to send notification: %s\033[0m\n", err.Error())
	}

	if len(summary.Failed) > 0 {
		return fmt.Errorf("%d scene(s) failed", len(summary.Failed))
	}
	return nil
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("\n\033[31mPANIC: %v\033[0m\n", r)
			errMessage := fmt.Sprintf("Basin Watch panic:\n\n%v\n\nStack trace:\n%s", r, debug.Stack())
			if err := notification.SendDiscordErrorNotification(errMessage); err != nil {
				fmt.Printf("\033[31mFailed to send notification: %s\033[0m\n", err.Error())
			}
			os.Exit(1)
		}
	}()

	printBanner()

	// the .env file is optional, credentials can come from the environment
	if err := godotenv.Load(".env"); err != nil {
		godotenv.Load("../.env")
	}

	if err := run(); err != nil {
		fmt.Printf("\n\033[31mError: %s\033[0m\n", err.Error())
		notification.SendDiscordErrorNotification(fmt.Sprintf("Basin Watch\n\n%s", err.Error()))
		os.Exit(1)
	}
}
