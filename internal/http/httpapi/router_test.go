package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"tryon/internal/http/handlers"
	"tryon/internal/imagegen"
	"tryon/internal/infra"
	"tryon/internal/metrics"
	"tryon/internal/session"
)

type scriptedProvider struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, parts []imagegen.Part) (*imagegen.Response, error)
}

func (p *scriptedProvider) SendMultimodalRequest(ctx context.Context, parts []imagegen.Part) (*imagegen.Response, error) {
	p.mu.Lock()
	p.calls++
	fn := p.fn
	p.mu.Unlock()
	return fn(ctx, parts)
}

func (p *scriptedProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fixedReference struct{}

func (fixedReference) Load(context.Context) (imagegen.ReferenceAsset, error) {
	return imagegen.ReferenceAsset{MediaType: "image/jpeg", Data: []byte("stitch-pattern")}, nil
}

var previewBytes = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}

func returnsPreview(context.Context, []imagegen.Part) (*imagegen.Response, error) {
	return &imagegen.Response{Parts: []imagegen.Part{
		{Text: "done"},
		{Inline: &imagegen.InlineData{MediaType: "image/png", Data: previewBytes}},
	}}, nil
}

type testEnv struct {
	handler  http.Handler
	server   *httptest.Server
	client   *http.Client
	provider *scriptedProvider
	registry *metrics.Registry
}

func newTestEnv(t *testing.T, fn func(context.Context, []imagegen.Part) (*imagegen.Response, error), opts ...func(*infra.Config)) *testEnv {
	t.Helper()
	cfg := &infra.Config{
		AppEnv:                 "test",
		ImageProvider:          infra.ProviderSynthetic,
		RateLimitPerMin:        100,
		SessionRateLimitPerMin: 100,
		MaxUploadBytes:         1 << 20,
		SessionTTL:             time.Minute,
		AllowedOrigins:         []string{"http://localhost:3000"},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	provider := &scriptedProvider{fn: fn}
	registry := metrics.NewRegistry()
	logger := zerolog.Nop()
	pipeline, err := imagegen.NewPipeline(imagegen.Options{
		Provider:  provider,
		Reference: fixedReference{},
		Logger:    &logger,
		Metrics:   registry,
	})
	require.NoError(t, err)

	app := handlers.NewApp(cfg, logger, pipeline, session.NewStore(cfg.SessionTTL, cfg.MaxSessions), registry)
	handler := NewRouter(app)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testEnv{handler: handler, server: srv, client: client, provider: provider, registry: registry}
}

func samplePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartForm(t *testing.T, color, contentType string, data []byte) (io.Reader, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if color != "" {
		require.NoError(t, mw.WriteField("color", color))
	}
	if data != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="me.png"`)
		if contentType != "" {
			h.Set("Content-Type", contentType)
		}
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) putColor(t *testing.T, c string) *http.Response {
	t.Helper()
	return e.do(t, http.MethodPut, "/v1/session/color", strings.NewReader(`{"color":"`+c+`"}`), "application/json")
}

func (e *testEnv) putPhoto(t *testing.T, data []byte) *http.Response {
	t.Helper()
	body, ct := multipartForm(t, "", "image/png", data)
	return e.do(t, http.MethodPut, "/v1/session/photo", body, ct)
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func TestStatelessGenerateSuccess(t *testing.T) {
	env := newTestEnv(t, returnsPreview)
	body, ct := multipartForm(t, "Sky-Blue", "image/png", samplePNG(t))

	resp := env.do(t, http.MethodPost, "/api/generate", body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeJSON[map[string]string](t, resp)
	require.Equal(t, "data:image/png;base64,iVBORw0K", out["imageUrl"])
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	require.EqualValues(t, 1, env.registry.Value(metrics.GenerationsTotal, map[string]string{"outcome": "success"}))
}

func TestStatelessGenerateRejectsBadInput(t *testing.T) {
	env := newTestEnv(t, returnsPreview)

	tests := []struct {
		name        string
		color       string
		contentType string
		data        []byte
	}{
		{name: "missing color", contentType: "image/png", data: samplePNG(t)},
		{name: "missing image", color: "coral"},
		{name: "unknown color", color: "teal", contentType: "image/png", data: samplePNG(t)},
		{name: "not an image", color: "coral", contentType: "application/pdf", data: []byte("%PDF-1.4")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			body, ct := multipartForm(t, tc.color, tc.contentType, tc.data)
			resp := env.do(t, http.MethodPost, "/api/generate", body, ct)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			require.Equal(t, "invalid_input", decodeJSON[errorBody](t, resp).Code)
		})
	}
	require.Zero(t, env.provider.Calls())
}

func TestStatelessGenerateDetectsMissingContentType(t *testing.T) {
	env := newTestEnv(t, returnsPreview)
	body, ct := multipartForm(t, "mint", "", samplePNG(t))
	resp := env.do(t, http.MethodPost, "/api/generate", body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStatelessGenerateFailures(t *testing.T) {
	tests := []struct {
		name string
		fn   func(context.Context, []imagegen.Part) (*imagegen.Response, error)
		code string
	}{
		{
			name: "provider down",
			fn: func(context.Context, []imagegen.Part) (*imagegen.Response, error) {
				return nil, errors.New("connection refused")
			},
			code: "provider_unavailable",
		},
		{
			name: "text only",
			fn: func(context.Context, []imagegen.Part) (*imagegen.Response, error) {
				return &imagegen.Response{Parts: []imagegen.Part{{Text: "I cannot do that"}}}, nil
			},
			code: "no_image_returned",
		},
		{
			name: "missing key",
			fn: func(context.Context, []imagegen.Part) (*imagegen.Response, error) {
				return nil, imagegen.ErrMissingCredentials
			},
			code: "internal_error",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, tc.fn)
			body, ct := multipartForm(t, "peach", "image/png", samplePNG(t))
			resp := env.do(t, http.MethodPost, "/api/generate", body, ct)
			require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
			out := decodeJSON[errorBody](t, resp)
			require.Equal(t, tc.code, out.Code)
			require.NotEmpty(t, out.Error)
			require.Equal(t, 1, env.provider.Calls())
		})
	}
}

func TestStatelessGenerateUploadTooLarge(t *testing.T) {
	env := newTestEnv(t, returnsPreview)
	big := make([]byte, 2<<20)
	body, ct := multipartForm(t, "coral", "image/png", big)
	req := httptest.NewRequest(http.MethodPost, "/api/generate", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	require.Contains(t, rec.Body.String(), "payload_too_large")
	require.Zero(t, env.provider.Calls())
}

func TestSessionWizardFlow(t *testing.T) {
	env := newTestEnv(t, returnsPreview)

	resp := env.do(t, http.MethodPost, "/v1/session", nil, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	snap := decodeJSON[session.Snapshot](t, resp)
	require.NotEmpty(t, snap.ID)
	require.Equal(t, []session.Step{session.StepColor}, snap.AllowedSteps)
	require.EqualValues(t, 1, env.registry.Value(metrics.SessionsCreatedTotal, nil))

	resp = env.do(t, http.MethodGet, "/v1/session/steps/3", nil, "")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/v1/session/steps/1", resp.Header.Get("Location"))

	resp = env.putColor(t, "lavender")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "lavender", string(decodeJSON[session.Snapshot](t, resp).Color))

	resp = env.do(t, http.MethodGet, "/v1/session/steps/3", nil, "")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/v1/session/steps/2", resp.Header.Get("Location"))

	resp = env.putPhoto(t, samplePNG(t))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, decodeJSON[session.Snapshot](t, resp).HasPhoto)

	resp = env.do(t, http.MethodGet, "/v1/session/steps/3", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/v1/session/generate", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	gen := decodeJSON[struct {
		ImageURL string           `json:"imageUrl"`
		Session  session.Snapshot `json:"session"`
	}](t, resp)
	require.True(t, strings.HasPrefix(gen.ImageURL, "data:image/png;base64,"))
	require.True(t, gen.Session.HasResult)
	require.False(t, gen.Session.Generating)

	resp = env.do(t, http.MethodGet, "/v1/session/result", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	require.Equal(t, "attachment; filename=crochet-bandana-pro.png", resp.Header.Get("Content-Disposition"))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, previewBytes, data)

	resp = env.do(t, http.MethodDelete, "/v1/session/result", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap = decodeJSON[session.Snapshot](t, resp)
	require.False(t, snap.HasResult)
	require.True(t, snap.HasPhoto)

	resp = env.do(t, http.MethodDelete, "/v1/session", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap = decodeJSON[session.Snapshot](t, resp)
	require.Empty(t, snap.Color)
	require.False(t, snap.HasPhoto)
}

func TestSessionRequiresCookie(t *testing.T) {
	env := newTestEnv(t, returnsPreview)
	resp := env.do(t, http.MethodGet, "/v1/session", nil, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "session_not_found", decodeJSON[errorBody](t, resp).Code)
}

func TestSessionRejectsBadInput(t *testing.T) {
	env := newTestEnv(t, returnsPreview)
	env.do(t, http.MethodPost, "/v1/session", nil, "")

	resp := env.putColor(t, "teal")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPut, "/v1/session/color", strings.NewReader(`{}`), "application/json")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "color is required", decodeJSON[errorBody](t, resp).Error)

	body, ct := multipartForm(t, "", "text/plain", []byte("hello"))
	resp = env.do(t, http.MethodPut, "/v1/session/photo", body, ct)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "uploaded file is not an image", decodeJSON[errorBody](t, resp).Error)

	resp = env.do(t, http.MethodGet, "/v1/session/steps/7", nil, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/v1/session/generate", nil, "")
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "not_ready", decodeJSON[errorBody](t, resp).Code)

	resp = env.do(t, http.MethodGet, "/v1/session/result", nil, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Zero(t, env.provider.Calls())
}

// blockingProvider parks every call until release is closed.
func blockingProvider(started chan<- struct{}, release <-chan struct{}) func(context.Context, []imagegen.Part) (*imagegen.Response, error) {
	return func(ctx context.Context, parts []imagegen.Part) (*imagegen.Response, error) {
		started <- struct{}{}
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return returnsPreview(ctx, parts)
	}
}

func TestSessionGenerateSingleInFlight(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	env := newTestEnv(t, blockingProvider(started, release))
	env.do(t, http.MethodPost, "/v1/session", nil, "")
	env.putColor(t, "rose")
	env.putPhoto(t, samplePNG(t))

	done := make(chan int, 1)
	go func() {
		req, _ := http.NewRequest(http.MethodPost, env.server.URL+"/v1/session/generate", nil)
		resp, err := env.client.Do(req)
		if err != nil {
			done <- 0
			return
		}
		resp.Body.Close()
		done <- resp.StatusCode
	}()
	<-started

	resp := env.do(t, http.MethodPost, "/v1/session/generate", nil, "")
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "generation_in_flight", decodeJSON[errorBody](t, resp).Code)

	resp = env.do(t, http.MethodGet, "/v1/session", nil, "")
	require.True(t, decodeJSON[session.Snapshot](t, resp).Generating)

	close(release)
	require.Equal(t, http.StatusOK, <-done)
	require.Equal(t, 1, env.provider.Calls())
}

func TestSessionGenerateDiscardsStaleResult(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	env := newTestEnv(t, blockingProvider(started, release))
	env.do(t, http.MethodPost, "/v1/session", nil, "")
	env.putColor(t, "sage")
	env.putPhoto(t, samplePNG(t))

	done := make(chan *http.Response, 1)
	go func() {
		req, _ := http.NewRequest(http.MethodPost, env.server.URL+"/v1/session/generate", nil)
		resp, err := env.client.Do(req)
		if err != nil {
			done <- nil
			return
		}
		done <- resp
	}()
	<-started

	require.Equal(t, http.StatusOK, env.putColor(t, "mint").StatusCode)
	close(release)

	resp := <-done
	require.NotNil(t, resp)
	defer resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "stale_result", decodeJSON[errorBody](t, resp).Code)

	snap := decodeJSON[session.Snapshot](t, env.do(t, http.MethodGet, "/v1/session", nil, ""))
	require.False(t, snap.HasResult)
	require.False(t, snap.Generating)
	require.Equal(t, "mint", string(snap.Color))
}

func TestSessionGenerateSurvivesClientDisconnect(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	env := newTestEnv(t, blockingProvider(started, release))
	env.do(t, http.MethodPost, "/v1/session", nil, "")
	env.putColor(t, "coral")
	env.putPhoto(t, samplePNG(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		req, _ := http.NewRequestWithContext(ctx, http.MethodPost, env.server.URL+"/v1/session/generate", nil)
		resp, err := env.client.Do(req)
		if err == nil {
			resp.Body.Close()
		}
		done <- err
	}()
	<-started

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	close(release)

	resultReady := func() bool {
		resp, err := env.client.Get(env.server.URL + "/v1/session/result")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}
	require.Eventually(t, resultReady, 2*time.Second, 10*time.Millisecond)
	require.EqualValues(t, 1, env.registry.Value(metrics.GenerationsTotal, map[string]string{"outcome": "success"}))
	require.Zero(t, env.registry.Value(metrics.GenerationsTotal, map[string]string{"outcome": "provider_unavailable"}))
}

func TestSessionGenerateFailureKeepsState(t *testing.T) {
	env := newTestEnv(t, func(context.Context, []imagegen.Part) (*imagegen.Response, error) {
		return nil, errors.New("503 from upstream")
	})
	env.do(t, http.MethodPost, "/v1/session", nil, "")
	env.putColor(t, "sunshine")
	env.putPhoto(t, samplePNG(t))

	resp := env.do(t, http.MethodPost, "/v1/session/generate", nil, "")
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Equal(t, "provider_unavailable", decodeJSON[errorBody](t, resp).Code)

	snap := decodeJSON[session.Snapshot](t, env.do(t, http.MethodGet, "/v1/session", nil, ""))
	require.False(t, snap.Generating)
	require.True(t, snap.HasPhoto)
	require.Equal(t, "sunshine", string(snap.Color))
}

func TestColorsHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, returnsPreview)

	resp := env.do(t, http.MethodGet, "/v1/colors", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	colors := decodeJSON[struct {
		Colors []struct {
			Value string `json:"value"`
			Name  string `json:"name"`
			Hex   string `json:"hex"`
		} `json:"colors"`
	}](t, resp)
	require.Len(t, colors.Colors, 8)
	require.Equal(t, "sky-blue", colors.Colors[4].Value)
	require.Equal(t, "Sky Blue", colors.Colors[4].Name)

	resp = env.do(t, http.MethodGet, "/v1/healthz", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", decodeJSON[map[string]any](t, resp)["status"])

	resp = env.do(t, http.MethodGet, "/v1/metrics?format=text", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/plain")

	// The access log counts after the response is written.
	labels := map[string]string{"method": http.MethodGet, "status": "2xx"}
	require.Eventually(t, func() bool {
		return env.registry.Value(metrics.HTTPRequestsTotal, labels) == 3
	}, time.Second, 10*time.Millisecond)
}

func TestRateLimitOnGenerate(t *testing.T) {
	env := newTestEnv(t, returnsPreview)
	var last int
	for i := 0; i < 101; i++ {
		body, ct := multipartForm(t, "coral", "image/png", samplePNG(t))
		last = env.do(t, http.MethodPost, "/api/generate", body, ct).StatusCode
	}
	require.Equal(t, http.StatusTooManyRequests, last)
}

func TestCreateSessionAtCapacity(t *testing.T) {
	env := newTestEnv(t, returnsPreview, func(cfg *infra.Config) { cfg.MaxSessions = 1 })

	resp := env.do(t, http.MethodPost, "/v1/session", nil, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/v1/session", nil, "")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Equal(t, "60", resp.Header.Get("Retry-After"))
	require.Equal(t, "too_many_sessions", decodeJSON[errorBody](t, resp).Code)
	require.EqualValues(t, 1, env.registry.Value(metrics.SessionsCreatedTotal, nil))

	// Resetting keeps the id, so the visitor already holding a session is unaffected.
	resp = env.do(t, http.MethodDelete, "/v1/session", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, http.StatusOK, env.putColor(t, "mint").StatusCode)
}

func TestRateLimitOnSessionWrites(t *testing.T) {
	env := newTestEnv(t, returnsPreview, func(cfg *infra.Config) { cfg.SessionRateLimitPerMin = 3 })

	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/v1/session", nil, "").StatusCode)
	require.Equal(t, http.StatusOK, env.putPhoto(t, samplePNG(t)).StatusCode)
	require.Equal(t, http.StatusOK, env.putPhoto(t, samplePNG(t)).StatusCode)

	resp := env.putPhoto(t, samplePNG(t))
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.Equal(t, "rate_limited", decodeJSON[errorBody](t, resp).Code)

	resp = env.do(t, http.MethodPost, "/v1/session", nil, "")
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// Color changes are cheap and stay unlimited.
	require.Equal(t, http.StatusOK, env.putColor(t, "rose").StatusCode)
}

func TestForwardedForOnlyHonouredWhenTrusted(t *testing.T) {
	createWithForwardedFor := func(t *testing.T, env *testEnv, ip string) int {
		t.Helper()
		req := httptest.NewRequest(http.MethodPost, "/v1/session", nil)
		req.RemoteAddr = "198.51.100.10:4000"
		req.Header.Set("X-Forwarded-For", ip)
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		return rec.Code
	}

	t.Run("untrusted", func(t *testing.T) {
		env := newTestEnv(t, returnsPreview, func(cfg *infra.Config) { cfg.SessionRateLimitPerMin = 2 })
		require.Equal(t, http.StatusCreated, createWithForwardedFor(t, env, "203.0.113.1"))
		require.Equal(t, http.StatusCreated, createWithForwardedFor(t, env, "203.0.113.2"))
		require.Equal(t, http.StatusTooManyRequests, createWithForwardedFor(t, env, "203.0.113.3"))
	})

	t.Run("trusted proxy", func(t *testing.T) {
		env := newTestEnv(t, returnsPreview, func(cfg *infra.Config) {
			cfg.SessionRateLimitPerMin = 2
			cfg.TrustProxyHeaders = true
		})
		for i := 1; i <= 3; i++ {
			require.Equal(t, http.StatusCreated, createWithForwardedFor(t, env, fmt.Sprintf("203.0.113.%d", i)))
		}
		require.Equal(t, http.StatusCreated, createWithForwardedFor(t, env, "203.0.113.1"))
		require.Equal(t, http.StatusTooManyRequests, createWithForwardedFor(t, env, "203.0.113.1"))
	})
}
