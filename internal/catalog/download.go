package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/basin-watch/basin-watch-api-poc/internal/properties"
	"github.com/basin-watch/basin-watch-api-poc/internal/raster"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/errgroup"
)

const downloadRetries = 5

// Downloader fetches band files from the Copernicus data space using OAuth2
// client credentials. It is an optional collaborator: scenes staged on disk
// by other means never touch it.
type Downloader struct {
	client  *http.Client
	baseURL string
}

func NewDownloader(ctx context.Context) (*Downloader, error) {
	clientID := properties.CopernicusClientID()
	clientSecret := properties.CopernicusClientSecret()
	tokenURL := properties.CopernicusTokenURL()
	baseURL := properties.CopernicusAssetBaseURL()
	if clientID == "" || clientSecret == "" || tokenURL == "" || baseURL == "" {
		return nil, fmt.Errorf("missing required environment variables: COPERNICUS_CLIENT_ID, COPERNICUS_CLIENT_SECRET, COPERNICUS_TOKEN_URL, or COPERNICUS_ASSET_BASE_URL")
	}

	config := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}
	return &Downloader{client: config.Client(ctx), baseURL: baseURL}, nil
}

// FetchMissing downloads any band files the scene directory lacks. Bands are
// independent, so they download concurrently; the first failure cancels the
// rest.
func (d *Downloader) FetchMissing(ctx context.Context, scene Scene, ids []raster.BandID) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		path := scene.BandPath(id)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		g.Go(func() error {
			url := fmt.Sprintf("%s/%s/%s_%s_%s.jp2", d.baseURL, scene.ID, scene.ID, id, bandResolution[id])
			if err := d.fetch(ctx, url, path); err != nil {
				return &raster.BandLoadError{Band: id, Path: path, Err: err}
			}
			return nil
		})
	}
	return g.Wait()
}

func (d *Downloader) fetch(ctx context.Context, url, path string) error {
	var lastErr error
	for attempt := 1; attempt <= downloadRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := d.client.Do(req)
		if err != nil {
			lastErr = err
		} else if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
			if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized {
				return fmt.Errorf("unauthorized access, check your client ID and secret")
			}
		} else {
			err = writeBody(resp.Body, path)
			resp.Body.Close()
			if err == nil {
				return nil
			}
			lastErr = err
		}

		fmt.Printf("Attempt %d failed for %s: %v\n", attempt, url, lastErr)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
		}
	}
	return fmt.Errorf("failed to download after %d attempts: %v", downloadRetries, lastErr)
}

func writeBody(body io.Reader, path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
