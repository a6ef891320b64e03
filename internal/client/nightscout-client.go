package client

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/claresloggett/nightscout-backup/internal/config"
	"github.com/claresloggett/nightscout-backup/internal/model"
)

// Nightscout is the HTTP page fetcher for the two Nightscout collections
// (entries and treatments). One GET per page, no retry/backoff: a transport
// error or non-200 status propagates and aborts the run.
type Nightscout struct {
	baseURL string // normalized with trailing slash by config
	http    *http.Client
	logger  *log.Logger
}

func NewNightscout(baseURL string, timeout time.Duration, logger *log.Logger) *Nightscout {
	return &Nightscout{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// FetchPage requests up to count records of the collection, newest-first.
// before == "" requests the unconstrained first page; otherwise only records
// with dateField strictly below before are returned. An empty slice means
// the collection is exhausted.
func (c *Nightscout) FetchPage(ctx context.Context, collection, dateField string, count int, before string) ([]*model.Record, error) {
	requestURL := fmt.Sprintf("%sapi/v1/%s.json?count=%d", c.baseURL, collection, count)
	if before != "" {
		requestURL += fmt.Sprintf("&find[%s][$lt]=%s", dateField, url.QueryEscape(before))
	}
	c.logger.Printf("[fetch] GET %s", requestURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", collection, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: reading response: %w", collection, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status %d: %s", collection, resp.StatusCode, config.Truncate(body, 256))
	}

	return model.DecodePage(body)
}
