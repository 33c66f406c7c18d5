package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"tryon/internal/imagegen"
	"tryon/internal/infra"
	"tryon/internal/metrics"
	"tryon/internal/session"
)

// Generator produces a preview from a photo and a color token.
// *imagegen.Pipeline satisfies it.
type Generator interface {
	Generate(ctx context.Context, photo imagegen.Photo, color string) (*imagegen.Result, error)
}

type App struct {
	Config    *infra.Config
	Logger    infra.Logger
	Generator Generator
	Sessions  *session.Store
	Registry  *metrics.Registry
}

func NewApp(cfg *infra.Config, logger infra.Logger, gen Generator, sessions *session.Store, reg *metrics.Registry) *App {
	return &App{
		Config:    cfg,
		Logger:    logger,
		Generator: gen,
		Sessions:  sessions,
		Registry:  reg,
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, msg string) {
	a.json(w, status, errorResponse{Error: msg, Code: code})
}

// generationError renders a pipeline failure. The pipeline has already
// logged it.
func (a *App) generationError(w http.ResponseWriter, err error) {
	var genErr *imagegen.Error
	if !errors.As(err, &genErr) {
		genErr = &imagegen.Error{Kind: imagegen.KindInternal, Message: "unexpected failure", Err: err}
	}
	a.error(w, genErr.Kind.HTTPStatus(), string(genErr.Kind), genErr.UserMessage())
}

func (a *App) logger(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &a.Logger
}
