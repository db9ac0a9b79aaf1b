package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestValidateImage(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    string
		wantErr bool
	}{
		{name: "png", data: pngHeader, want: "image/png"},
		{name: "gif", data: []byte("GIF89a\x01\x00\x01\x00"), want: "image/gif"},
		{name: "jpeg", data: []byte("\xff\xd8\xff\xe0\x00\x10JFIF"), want: "image/jpeg"},
		{name: "webp", data: []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), want: "image/webp"},
		{name: "text", data: []byte("hello world"), wantErr: true},
		{name: "empty", data: nil, wantErr: true},
		{name: "too large", data: append(append([]byte(nil), pngHeader...), make([]byte, MaxImageBytes)...), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct, err := ValidateImage(tt.data)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidImage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ct)
		})
	}
}

func TestPublishToMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	doc := Document{
		Name:    "Moon",
		Symbol:  "MOON",
		Links:   Links{Website: "https://moon.example"},
		Options: Options{AutoRenounce: true},
	}

	uri, err := Publish(context.Background(), store, doc, pngHeader)
	require.NoError(t, err)
	assert.Equal(t, 2, store.Len())

	data, ct, ok := store.Get(uri)
	require.True(t, ok)
	assert.Equal(t, "application/json", ct)

	got, err := ParseDocument(data)
	require.NoError(t, err)
	assert.Equal(t, "MOON", got.Symbol)
	assert.True(t, got.Options.AutoRenounce)
	assert.Equal(t, "https://moon.example", got.Links.Website)

	_, imgType, ok := store.Get(got.Image)
	require.True(t, ok)
	assert.Equal(t, "image/png", imgType)
}

func TestPublishRejectsBadImageBeforeUpload(t *testing.T) {
	store := NewMemoryStore()
	_, err := Publish(context.Background(), store, Document{Symbol: "X"}, []byte("not an image"))
	assert.ErrorIs(t, err, ErrInvalidImage)
	assert.Equal(t, 0, store.Len())
}

func TestHTTPStoreUploadsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		body, _ := io.ReadAll(file)

		assert.Equal(t, "moon.json", header.Filename)
		assert.Equal(t, "application/json", header.Header.Get("Content-Type"))
		assert.Equal(t, `{"a":1}`, string(body))
		_ = json.NewEncoder(w).Encode(map[string]string{"IpfsHash": "bafyCID"})
	}))
	defer srv.Close()

	store := NewHTTPStore(HTTPConfig{Endpoint: srv.URL, Token: "secret"}, zaptest.NewLogger(t))
	uri, err := store.Put(context.Background(), "moon.json", "application/json", []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, "ipfs://bafyCID", uri)

	gw := NewHTTPStore(HTTPConfig{Endpoint: srv.URL, Token: "secret", Gateway: "https://gw.example/"}, zaptest.NewLogger(t))
	uri, err = gw.Put(context.Background(), "moon.json", "application/json", []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, "https://gw.example/ipfs/bafyCID", uri)
}

func TestHTTPStoreRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"value":{"cid":"bafyRetry"}}`))
	}))
	defer srv.Close()

	store := NewHTTPStore(HTTPConfig{Endpoint: srv.URL, MaxElapsed: 10 * time.Second}, zaptest.NewLogger(t))
	uri, err := store.Put(context.Background(), "x.png", "image/png", pngHeader)
	require.NoError(t, err)
	assert.Equal(t, "ipfs://bafyRetry", uri)
	assert.Equal(t, int32(2), hits.Load())
}

func TestHTTPStoreDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	store := NewHTTPStore(HTTPConfig{Endpoint: srv.URL}, zaptest.NewLogger(t))
	_, err := store.Put(context.Background(), "x.png", "image/png", pngHeader)
	assert.ErrorContains(t, err, "status 401: bad token")
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetcherCachesDocuments(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/ipfs/bafyDoc", r.URL.Path)
		data, _ := Document{Name: "Moon", Symbol: "MOON"}.Marshal()
		_, _ = io.Copy(w, bytes.NewReader(data))
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, zaptest.NewLogger(t))
	for i := 0; i < 3; i++ {
		doc, err := f.Fetch(context.Background(), "ipfs://bafyDoc")
		require.NoError(t, err)
		assert.Equal(t, "MOON", doc.Symbol)
	}
	assert.Equal(t, int32(1), hits.Load())

	_, err := NewFetcher("", zaptest.NewLogger(t)).Fetch(context.Background(), "ipfs://bafyDoc")
	assert.Error(t, err)
}

func TestMemoryStoreFailure(t *testing.T) {
	store := NewMemoryStore()
	store.Err = errors.New("offline")
	_, err := Publish(context.Background(), store, Document{Symbol: "X"}, nil)
	assert.ErrorContains(t, err, "failed to upload metadata: offline")
}
