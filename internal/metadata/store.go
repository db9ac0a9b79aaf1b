// internal/metadata/store.go
package metadata

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// Store keeps a blob and returns a URI it can be fetched from.
type Store interface {
	Put(ctx context.Context, name, contentType string, data []byte) (uri string, err error)
}

// Publish uploads the optional image, points the document at it and
// uploads the document. It returns the document URI.
func Publish(ctx context.Context, s Store, doc Document, image []byte) (string, error) {
	if len(image) > 0 {
		ct, err := ValidateImage(image)
		if err != nil {
			return "", err
		}
		uri, err := s.Put(ctx, imageName(doc.Symbol, ct), ct, image)
		if err != nil {
			return "", fmt.Errorf("failed to upload image: %w", err)
		}
		doc.Image = uri
	}

	data, err := doc.Marshal()
	if err != nil {
		return "", err
	}
	uri, err := s.Put(ctx, strings.ToLower(doc.Symbol)+".json", "application/json", data)
	if err != nil {
		return "", fmt.Errorf("failed to upload metadata: %w", err)
	}
	return uri, nil
}

// HTTPConfig configures a pinning service upload endpoint.
type HTTPConfig struct {
	Endpoint string
	// Gateway, when set, turns returned CIDs into gateway URLs instead of
	// ipfs:// URIs.
	Gateway string
	Token   string
	Timeout time.Duration
	// MaxElapsed bounds retries of failed uploads. Pinning is content
	// addressed, so repeating an upload is harmless.
	MaxElapsed time.Duration
}

// HTTPStore uploads blobs as multipart/form-data to a pinning endpoint.
type HTTPStore struct {
	config     HTTPConfig
	httpClient *http.Client
	logger     *zap.Logger
}

func NewHTTPStore(cfg HTTPConfig, logger *zap.Logger) *HTTPStore {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxElapsed <= 0 {
		cfg.MaxElapsed = time.Minute
	}
	return &HTTPStore{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.Named("metadata"),
	}
}

// pinResponse covers the CID field names used by common pinning APIs.
type pinResponse struct {
	IpfsHash string `json:"IpfsHash"`
	Hash     string `json:"Hash"`
	CID      string `json:"cid"`
	Value    struct {
		CID string `json:"cid"`
	} `json:"value"`
}

func (r pinResponse) cid() string {
	for _, c := range []string{r.IpfsHash, r.Hash, r.CID, r.Value.CID} {
		if c != "" {
			return c
		}
	}
	return ""
}

func (s *HTTPStore) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	op := func() (string, error) {
		return s.upload(ctx, name, contentType, data)
	}
	cid, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(s.config.MaxElapsed),
		backoff.WithNotify(func(err error, d time.Duration) {
			s.logger.Debug("Retrying upload", zap.String("name", name), zap.Error(err), zap.Duration("backoff", d))
		}))
	if err != nil {
		return "", err
	}

	s.logger.Info("Uploaded", zap.String("name", name), zap.String("cid", cid), zap.Int("bytes", len(data)))
	return GatewayURL(s.config.Gateway, "ipfs://"+cid), nil
}

func (s *HTTPStore) upload(ctx context.Context, name, contentType string, data []byte) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to build upload: %w", err))
	}
	if _, err := part.Write(data); err != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to build upload: %w", err))
	}
	if err := w.Close(); err != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to build upload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.Endpoint, &body)
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if s.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.Token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("pinning service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return "", backoff.Permanent(err)
		}
		return "", err
	}

	var pin pinResponse
	if err := json.NewDecoder(resp.Body).Decode(&pin); err != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to decode pinning response: %w", err))
	}
	cid := pin.cid()
	if cid == "" {
		return "", backoff.Permanent(errors.New("pinning response carries no CID"))
	}
	return cid, nil
}

// GatewayURL rewrites an ipfs:// URI through gateway. Other URIs and an
// empty gateway leave uri unchanged.
func GatewayURL(gateway, uri string) string {
	cid, ok := strings.CutPrefix(uri, "ipfs://")
	if !ok || gateway == "" {
		return uri
	}
	return strings.TrimRight(gateway, "/") + "/ipfs/" + cid
}

// MemoryStore keeps blobs in memory under a content hash. It backs dry runs
// and tests.
type MemoryStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
	types map[string]string
	// Err, when set, fails every Put.
	Err error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte), types: make(map[string]string)}
}

func (m *MemoryStore) Put(_ context.Context, _ string, contentType string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	sum := sha256.Sum256(data)
	uri := "mem://" + hex.EncodeToString(sum[:])
	m.blobs[uri] = append([]byte(nil), data...)
	m.types[uri] = contentType
	return uri, nil
}

// Get returns a stored blob and its content type.
func (m *MemoryStore) Get(uri string) ([]byte, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[uri]
	return data, m.types[uri], ok
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}
