package imagegen

import (
	"context"
	"encoding/base64"
)

// Photo is the caller's upload together with its declared media type.
type Photo struct {
	Data      []byte
	MediaType string
}

// InlineData is binary content embedded in a request or response part.
type InlineData struct {
	MediaType string
	Data      []byte
}

// Part is one element of a multimodal exchange. Exactly one of Text or Inline
// is expected to be set.
type Part struct {
	Text   string
	Inline *InlineData
}

// Response is what a provider returned. Parts may be empty when the provider
// declined the request.
type Response struct {
	Parts        []Part
	FinishReason string
	BlockReason  string
}

// Result is a successfully generated preview.
type Result struct {
	MediaType string
	Data      []byte
}

// DataURI renders the result for the browser.
func (r Result) DataURI() string {
	return "data:" + r.MediaType + ";base64," + base64.StdEncoding.EncodeToString(r.Data)
}

// Provider is the narrow boundary to the hosted image model. Any returned
// error is treated as the provider being unavailable unless it wraps
// ErrMissingCredentials or ErrMalformedResponse, or is a RetryableError that
// reports false.
type Provider interface {
	SendMultimodalRequest(ctx context.Context, parts []Part) (*Response, error)
}

// RetryableError is implemented by provider errors that know whether the same
// request can succeed later.
type RetryableError interface {
	error
	Retryable() bool
}

// ReferenceAsset is the crochet stitch pattern sent with every request.
type ReferenceAsset struct {
	MediaType string
	Data      []byte
}

// ReferenceSource loads the reference asset.
type ReferenceSource interface {
	Load(ctx context.Context) (ReferenceAsset, error)
}

// Counter receives one increment per finished generation.
type Counter interface {
	Inc(ctx context.Context, name string, labels map[string]string, n int64)
}
