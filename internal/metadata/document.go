// internal/metadata/document.go

// Package metadata builds and stores the off-chain token document that
// createToken references. Storage is optional: callers treat any failure
// as "no metadata".
package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// MaxImageBytes is the largest accepted token image.
const MaxImageBytes = 5 << 20

var ErrInvalidImage = errors.New("invalid token image")

var imageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type Links struct {
	Twitter  string `json:"twitter,omitempty"`
	Telegram string `json:"telegram,omitempty"`
	Website  string `json:"website,omitempty"`
}

type Options struct {
	AutoRenounce bool `json:"autoRenounce"`
	LockLP       bool `json:"lockLP"`
}

// Document is the JSON stored next to a token.
type Document struct {
	Name        string  `json:"name"`
	Symbol      string  `json:"symbol"`
	Description string  `json:"description,omitempty"`
	Image       string  `json:"image,omitempty"`
	Links       Links   `json:"links"`
	Options     Options `json:"options"`
	Owner       string  `json:"owner,omitempty"`
}

func (d Document) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return data, nil
}

func ParseDocument(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return &d, nil
}

// ValidateImage checks size and sniffs the content type from the bytes
// themselves, never from the file name.
func ValidateImage(data []byte) (contentType string, err error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty file", ErrInvalidImage)
	}
	if len(data) > MaxImageBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds %d MB", ErrInvalidImage, len(data), MaxImageBytes>>20)
	}
	ct := http.DetectContentType(data)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	if _, ok := imageTypes[ct]; !ok {
		return "", fmt.Errorf("%w: unsupported type %s (png, jpeg, gif or webp)", ErrInvalidImage, ct)
	}
	return ct, nil
}

// imageName gives the uploaded image a stable name derived from the symbol.
func imageName(symbol, contentType string) string {
	return strings.ToLower(symbol) + imageTypes[contentType]
}
