// internal/metadata/fetch.go
package metadata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	documentTTL     = 5 * time.Minute
	maxDocumentSize = 1 << 20
)

type cachedDocument struct {
	doc       *Document
	fetchedAt time.Time
}

// Fetcher reads token documents through an HTTP gateway and caches them
// for a short while. Documents are immutable once pinned.
type Fetcher struct {
	gateway    string
	cache      sync.Map
	logger     *zap.Logger
	httpClient *http.Client
}

func NewFetcher(gateway string, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		gateway: gateway,
		logger:  logger.Named("metadata_fetcher"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Fetch resolves uri (ipfs:// or http(s)://) into a Document.
func (f *Fetcher) Fetch(ctx context.Context, uri string) (*Document, error) {
	if doc, ok := f.fromCache(uri); ok {
		return doc, nil
	}

	url := GatewayURL(f.gateway, uri)
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, fmt.Errorf("cannot fetch %q without a gateway", uri)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}

	f.cache.Store(uri, cachedDocument{doc: doc, fetchedAt: time.Now()})
	f.logger.Debug("metadata fetched", zap.String("uri", uri), zap.String("symbol", doc.Symbol))
	return doc, nil
}

func (f *Fetcher) fromCache(uri string) (*Document, bool) {
	if value, ok := f.cache.Load(uri); ok {
		entry := value.(cachedDocument)
		if time.Since(entry.fetchedAt) < documentTTL {
			return entry.doc, true
		}
		f.cache.Delete(uri)
	}
	return nil, false
}
