package imagegen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"tryon/internal/domain"
	"tryon/internal/metrics"
)

// Options wires a Pipeline.
type Options struct {
	Provider  Provider
	Reference ReferenceSource
	Template  InstructionTemplate
	Logger    *zerolog.Logger
	Metrics   Counter
}

// Pipeline turns a photo and a color into a single preview image. It keeps no
// state between calls and never retries.
type Pipeline struct {
	provider  Provider
	reference ReferenceSource
	template  InstructionTemplate
	logger    zerolog.Logger
	metrics   Counter
}

// NewPipeline validates opts.
func NewPipeline(opts Options) (*Pipeline, error) {
	if opts.Provider == nil {
		return nil, errors.New("imagegen: provider is required")
	}
	if opts.Reference == nil {
		return nil, errors.New("imagegen: reference source is required")
	}
	logger := zerolog.New(io.Discard)
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Pipeline{
		provider:  opts.Provider,
		reference: opts.Reference,
		template:  opts.Template,
		logger:    logger.With().Str("component", "imagegen").Logger(),
		metrics:   opts.Metrics,
	}, nil
}

// Generate runs validation, reference loading, request composition, the
// provider call and result extraction in that order. Every failure is an
// *Error.
func (p *Pipeline) Generate(ctx context.Context, photo Photo, color string) (res *Result, err error) {
	start := time.Now()
	logger := p.logger
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		logger = l.With().Str("component", "imagegen").Logger()
	}

	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = newError(KindInternal, "unexpected failure", fmt.Errorf("panic: %v", r))
		}
		p.finish(ctx, logger, start, res, err)
	}()

	c, err := validate(photo, color)
	if err != nil {
		return nil, err
	}

	ref, err := p.reference.Load(ctx)
	if err != nil {
		return nil, newError(KindAssetUnavailable, "reference pattern is unavailable", err)
	}
	if len(ref.Data) == 0 {
		return nil, newError(KindAssetUnavailable, "reference pattern is empty", nil)
	}

	parts := p.compose(ref, photo, c)

	resp, err := p.provider.SendMultimodalRequest(ctx, parts)
	if err != nil {
		return nil, classifyProviderError(err)
	}
	if resp == nil {
		return nil, newError(KindInternal, "provider returned no response", ErrMalformedResponse)
	}

	result, ok := extract(resp)
	if !ok {
		msg := "the model did not return an image"
		if resp.BlockReason != "" {
			msg = fmt.Sprintf("%s (blocked: %s)", msg, resp.BlockReason)
		}
		return nil, newError(KindNoImageReturned, msg, nil)
	}
	return result, nil
}

func validate(photo Photo, color string) (domain.Color, error) {
	if len(photo.Data) == 0 {
		return "", newError(KindInvalidInput, "missing image or color", domain.ErrEmptyPhoto)
	}
	if color == "" {
		return "", newError(KindInvalidInput, "missing image or color", nil)
	}
	if !domain.IsImageMediaType(photo.MediaType) {
		return "", newError(KindInvalidInput, "uploaded file is not an image", domain.ErrNotImage)
	}
	c, err := domain.ParseColor(color)
	if err != nil {
		return "", newError(KindInvalidInput, "unsupported color", err)
	}
	return c, nil
}

// compose builds the three parts in the order the instruction refers to
// them: image 1 is the pattern, image 2 the person.
func (p *Pipeline) compose(ref ReferenceAsset, photo Photo, c domain.Color) []Part {
	return []Part{
		{Inline: &InlineData{MediaType: ref.MediaType, Data: ref.Data}},
		{Inline: &InlineData{MediaType: photo.MediaType, Data: photo.Data}},
		{Text: p.template.Render(c)},
	}
}

func extract(resp *Response) (*Result, bool) {
	for _, part := range resp.Parts {
		if part.Inline == nil || len(part.Inline.Data) == 0 {
			continue
		}
		mediaType := part.Inline.MediaType
		if mediaType == "" {
			mediaType = "image/png"
		}
		return &Result{MediaType: mediaType, Data: part.Inline.Data}, true
	}
	return nil, false
}

func classifyProviderError(err error) *Error {
	var retryable RetryableError
	switch {
	case errors.Is(err, ErrMissingCredentials):
		return newError(KindInternal, "image provider is not configured", err)
	case errors.Is(err, ErrMalformedResponse):
		return newError(KindInternal, "image provider sent an unreadable response", err)
	case errors.As(err, &retryable) && !retryable.Retryable():
		return newError(KindInternal, "image provider rejected the request", err)
	default:
		return newError(KindProviderUnavailable, "image provider is unavailable, please try again later", err)
	}
}

func (p *Pipeline) finish(ctx context.Context, logger zerolog.Logger, start time.Time, res *Result, err error) {
	outcome := "success"
	if err != nil {
		outcome = string(KindOf(err))
	}
	if p.metrics != nil {
		p.metrics.Inc(ctx, metrics.GenerationsTotal, map[string]string{"outcome": outcome}, 1)
	}

	if err == nil {
		w, h := imageDimensions(res.Data)
		logger.Info().
			Str("media_type", res.MediaType).
			Int("bytes", len(res.Data)).
			Int("width", w).
			Int("height", h).
			Dur("duration", time.Since(start)).
			Msg("preview generated")
		return
	}

	event := logger.Error()
	switch KindOf(err) {
	case KindInvalidInput:
		event = logger.Info()
	case KindNoImageReturned, KindProviderUnavailable:
		event = logger.Warn()
	}
	event.Err(err).
		Str("outcome", outcome).
		Dur("duration", time.Since(start)).
		Msg("preview generation failed")
}
