// Package dataset downloads remote epoch datasets into the local store.
// Motor-imagery recordings are published as JSON-lines epoch dumps; the
// fetcher pulls one over HTTP and imports it, so a pipeline run can start
// from an empty data directory.
package dataset

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"eeg-pipeline/internal/epochs"
	"eeg-pipeline/internal/storage"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// Fetcher downloads epoch datasets over HTTP.
type Fetcher struct {
	client *resty.Client
	store  *storage.Store
}

// NewFetcher creates a fetcher writing into store.
func NewFetcher(store *storage.Store, timeout time.Duration) *Fetcher {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRetryCount(3)
	client.SetRetryWaitTime(5 * time.Second)

	return &Fetcher{
		client: client,
		store:  store,
	}
}

// Fetch downloads the JSON-lines epoch dump at url, validates every
// epoch and appends them to the store in dataset order. Returns the
// number of imported epochs.
func (f *Fetcher) Fetch(url string) (int, error) {
	log.Info().Str("url", url).Msg("Fetching epoch dataset")

	resp, err := f.client.R().Get(url)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch dataset: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return 0, fmt.Errorf("dataset server returned status %d", resp.StatusCode())
	}

	eps, err := epochs.Read(bytes.NewReader(resp.Body()))
	if err != nil {
		return 0, fmt.Errorf("failed to decode dataset: %w", err)
	}
	if len(eps) == 0 {
		return 0, fmt.Errorf("dataset at %s contains no epochs", url)
	}

	if err := f.store.StoreEpochs(eps); err != nil {
		return 0, fmt.Errorf("failed to import dataset: %w", err)
	}

	log.Info().Int("epochs", len(eps)).Msg("Dataset imported")
	return len(eps), nil
}
