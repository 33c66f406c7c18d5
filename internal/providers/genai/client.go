package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tryon/internal/imagegen"
	"tryon/internal/infra"
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client sends multimodal generateContent calls to Gemini and asks for image
// output only.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gemini status %d", e.StatusCode)
	}
	return fmt.Sprintf("gemini status %d: %s", e.StatusCode, e.Message)
}

// Retryable reports whether the same request may succeed later. Throttling,
// timeouts and server errors qualify; other 4xx answers do not.
func (e *StatusError) Retryable() bool {
	switch {
	case e.StatusCode == http.StatusRequestTimeout, e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= http.StatusInternalServerError:
		return true
	default:
		return false
	}
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiPromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates     []geminiCandidate     `json:"candidates"`
	PromptFeedback *geminiPromptFeedback `json:"promptFeedback,omitempty"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// NewClient constructs a Gemini client. An empty API key is accepted here and
// reported by the first request.
func NewClient(opts Options) (*Client, error) {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("genai: invalid base url: %w", err)
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gemini-3-pro-image-preview"
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: client,
		logger:     logger,
	}, nil
}

// Model returns the configured Gemini model identifier.
func (c *Client) Model() string {
	return c.model
}

// HasCredentials reports whether an API key is configured.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// SendMultimodalRequest implements imagegen.Provider. Parts are sent in order
// as a single user turn.
func (c *Client) SendMultimodalRequest(ctx context.Context, parts []imagegen.Part) (*imagegen.Response, error) {
	if c.apiKey == "" {
		c.logger.Error().Str("model", c.model).Msg("genai: GOOGLE_AI_API_KEY is not set")
		return nil, fmt.Errorf("gemini: %w", imagegen.ErrMissingCredentials)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: encodeParts(parts),
		}},
		GenerationConfig: &geminiGenerationConfig{ResponseModalities: []string{"IMAGE"}},
	}

	var response geminiGenerateContentResponse
	if err := c.invokeGemini(ctx, fmt.Sprintf("/models/%s:generateContent", url.PathEscape(c.model)), payload, &response); err != nil {
		return nil, err
	}

	out, err := decodeResponse(response)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("model", c.model).
		Int("candidates", len(response.Candidates)).
		Int("parts", len(out.Parts)).
		Str("finish_reason", out.FinishReason).
		Str("block_reason", out.BlockReason).
		Msg("genai: generateContent completed")

	return out, nil
}

func encodeParts(parts []imagegen.Part) []geminiPart {
	out := make([]geminiPart, 0, len(parts))
	for _, part := range parts {
		if part.Inline != nil {
			out = append(out, geminiPart{InlineData: &geminiInlineData{
				MimeType: part.Inline.MediaType,
				Data:     base64.StdEncoding.EncodeToString(part.Inline.Data),
			}})
			continue
		}
		out = append(out, geminiPart{Text: part.Text})
	}
	return out
}

// decodeResponse flattens the first candidate. Later candidates are ignored
// because only one preview is ever requested.
func decodeResponse(resp geminiGenerateContentResponse) (*imagegen.Response, error) {
	out := &imagegen.Response{}
	if resp.PromptFeedback != nil {
		out.BlockReason = resp.PromptFeedback.BlockReason
	}
	if len(resp.Candidates) == 0 {
		return out, nil
	}
	candidate := resp.Candidates[0]
	out.FinishReason = candidate.FinishReason
	for _, part := range candidate.Content.Parts {
		if part.InlineData != nil && part.InlineData.Data != "" {
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("decode inline data: %w: %v", imagegen.ErrMalformedResponse, err)
			}
			out.Parts = append(out.Parts, imagegen.Part{Inline: &imagegen.InlineData{
				MediaType: part.InlineData.MimeType,
				Data:      data,
			}})
			continue
		}
		out.Parts = append(out.Parts, imagegen.Part{Text: part.Text})
	}
	return out, nil
}

func (c *Client) invokeGemini(ctx context.Context, path string, payload any, out any) error {
	endpoint := c.baseURL + path
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		var apiErr geminiErrorResponse
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
			return &StatusError{StatusCode: resp.StatusCode, Message: apiErr.Error.Message}
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
			return fmt.Errorf("decode gemini response: %w: %v", imagegen.ErrMalformedResponse, err)
		}
		return fmt.Errorf("read gemini response: %w", err)
	}
	return nil
}

var (
	_ imagegen.Provider       = (*Client)(nil)
	_ imagegen.RetryableError = (*StatusError)(nil)
)
