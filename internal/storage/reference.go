package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gabriel-vasile/mimetype"

	"tryon/internal/domain"
	"tryon/internal/imagegen"
)

// ReferenceAsset loads the stitch pattern image once and shares it read-only
// across generations. A failed read is retried on the next call.
type ReferenceAsset struct {
	store *FileStore
	key   string

	mu     sync.Mutex
	loaded *imagegen.ReferenceAsset
}

// NewReferenceAsset binds the asset stored under key.
func NewReferenceAsset(store *FileStore, key string) *ReferenceAsset {
	return &ReferenceAsset{store: store, key: key}
}

// Load implements imagegen.ReferenceSource.
func (r *ReferenceAsset) Load(ctx context.Context) (imagegen.ReferenceAsset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded != nil {
		return *r.loaded, nil
	}

	data, err := r.store.Read(ctx, r.key)
	if err != nil {
		return imagegen.ReferenceAsset{}, err
	}
	if len(data) == 0 {
		return imagegen.ReferenceAsset{}, errors.New("storage: reference asset is empty")
	}
	mediaType := mimetype.Detect(data).String()
	if !domain.IsImageMediaType(mediaType) {
		return imagegen.ReferenceAsset{}, fmt.Errorf("storage: reference asset %s is %s, not an image", r.key, mediaType)
	}

	r.loaded = &imagegen.ReferenceAsset{MediaType: mediaType, Data: data}
	return *r.loaded, nil
}

var _ imagegen.ReferenceSource = (*ReferenceAsset)(nil)
