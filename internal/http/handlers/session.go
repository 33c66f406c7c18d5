package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"tryon/internal/domain"
	"tryon/internal/imagegen"
	"tryon/internal/metrics"
	"tryon/internal/session"
)

const (
	sessionCookie  = "tryon_session"
	resultBaseName = "crochet-bandana-pro"
)

type sessionGenerateResponse struct {
	ImageURL string           `json:"imageUrl"`
	Session  session.Snapshot `json:"session"`
}

type stepResponse struct {
	Step    session.Step     `json:"step"`
	Session session.Snapshot `json:"session"`
}

func (a *App) setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.Config.AppEnv == "production",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(a.Config.SessionTTL.Seconds()),
	})
}

// currentSession resolves the cookie. On a miss it writes a 404 and returns
// false.
func (a *App) currentSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	var id string
	if c, err := r.Cookie(sessionCookie); err == nil {
		id = c.Value
	}
	sess, err := a.Sessions.Get(r.Context(), id)
	if err != nil {
		a.error(w, http.StatusNotFound, "session_not_found", "session expired, please start again")
		return nil, false
	}
	// Sliding expiry applies to the cookie as well.
	a.setSessionCookie(w, sess.ID)
	return sess, true
}

func (a *App) CreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := a.Sessions.Create(r.Context())
	if errors.Is(err, session.ErrTooManySessions) {
		w.Header().Set("Retry-After", "60")
		a.error(w, http.StatusServiceUnavailable, "too_many_sessions", "too many visitors right now, please try again shortly")
		return
	}
	if err != nil {
		a.logger(r).Error().Err(err).Msg("create session")
		a.error(w, http.StatusInternalServerError, "internal_error", "could not start a session")
		return
	}
	a.Registry.Inc(r.Context(), metrics.SessionsCreatedTotal, nil, 1)
	a.setSessionCookie(w, sess.ID)
	a.json(w, http.StatusCreated, sess.Snapshot())
}

func (a *App) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.currentSession(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, sess.Snapshot())
}

// ResetSession clears color, photo and preview but keeps the session id.
func (a *App) ResetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.currentSession(w, r)
	if !ok {
		return
	}
	sess.Reset()
	a.json(w, http.StatusOK, sess.Snapshot())
}

var validate = validator.New()

type setColorRequest struct {
	Color string `json:"color" validate:"required,max=32"`
}

func (a *App) SetColor(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.currentSession(w, r)
	if !ok {
		return
	}
	var req setColorRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, string(imagegen.KindInvalidInput), "invalid payload")
		return
	}
	if err := validate.Struct(req); err != nil {
		a.error(w, http.StatusBadRequest, string(imagegen.KindInvalidInput), "color is required")
		return
	}
	c, err := domain.ParseColor(req.Color)
	if err != nil {
		a.error(w, http.StatusBadRequest, string(imagegen.KindInvalidInput), "unsupported color")
		return
	}
	if err := sess.SetColor(c); err != nil {
		a.error(w, http.StatusBadRequest, string(imagegen.KindInvalidInput), "unsupported color")
		return
	}
	a.json(w, http.StatusOK, sess.Snapshot())
}

func (a *App) SetPhoto(w http.ResponseWriter, r *http.Request) {
	defer cleanupForm(r)
	sess, ok := a.currentSession(w, r)
	if !ok {
		return
	}
	up, err := a.readUpload(w, r)
	if err != nil {
		a.uploadError(w, err)
		return
	}
	err = sess.SetPhoto(session.Photo{
		Data:      up.Photo.Data,
		MediaType: up.Photo.MediaType,
		Filename:  up.Filename,
	})
	switch {
	case errors.Is(err, domain.ErrEmptyPhoto):
		a.error(w, http.StatusBadRequest, string(imagegen.KindInvalidInput), "missing image")
		return
	case errors.Is(err, domain.ErrNotImage):
		a.error(w, http.StatusBadRequest, string(imagegen.KindInvalidInput), "uploaded file is not an image")
		return
	case err != nil:
		a.error(w, http.StatusInternalServerError, string(imagegen.KindInternal), err.Error())
		return
	}
	a.json(w, http.StatusOK, sess.Snapshot())
}

// GenerateForSession runs the pipeline on the session's color and photo. The
// result is stored only if neither changed while the provider was working.
// The provider call outlives the request so a dropped connection still leaves
// the preview ready for the next GET /v1/session/result.
func (a *App) GenerateForSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.currentSession(w, r)
	if !ok {
		return
	}
	ticket, err := sess.BeginGeneration()
	switch {
	case errors.Is(err, session.ErrNotReady):
		a.error(w, http.StatusConflict, "not_ready", "choose a color and upload a photo first")
		return
	case errors.Is(err, session.ErrGenerationInFlight):
		a.error(w, http.StatusConflict, "generation_in_flight", "a preview is already being generated")
		return
	case err != nil:
		a.error(w, http.StatusInternalServerError, string(imagegen.KindInternal), err.Error())
		return
	}

	ctx := context.WithoutCancel(r.Context())
	if a.Config.ProviderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Config.ProviderTimeout)
		defer cancel()
	}

	photo := imagegen.Photo{Data: ticket.Photo.Data, MediaType: ticket.Photo.MediaType}
	res, err := a.Generator.Generate(ctx, photo, string(ticket.Color))
	if err != nil {
		sess.AbortGeneration(ticket)
		a.generationError(w, err)
		return
	}

	if !sess.CompleteGeneration(ticket, session.Result{MediaType: res.MediaType, Data: res.Data}) {
		a.logger(r).Info().Str("session_id", sess.ID).Msg("discarding preview for changed session")
		a.error(w, http.StatusConflict, "stale_result", "your choices changed while the preview was generated")
		return
	}
	a.json(w, http.StatusOK, sessionGenerateResponse{ImageURL: res.DataURI(), Session: sess.Snapshot()})
}

// DownloadResult sends the preview as an attachment.
func (a *App) DownloadResult(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.currentSession(w, r)
	if !ok {
		return
	}
	res, ok := sess.Result()
	if !ok {
		a.error(w, http.StatusNotFound, "no_result", "no preview has been generated yet")
		return
	}
	w.Header().Set("Content-Type", res.MediaType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.%s", resultBaseName, domain.FileExtension(res.MediaType)))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Data)
}

func (a *App) ClearResult(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.currentSession(w, r)
	if !ok {
		return
	}
	sess.ClearResult()
	a.json(w, http.StatusOK, sess.Snapshot())
}

// EnterStep answers 200 when the visitor may open the step and otherwise
// redirects to the first step whose prerequisite is missing.
func (a *App) EnterStep(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.currentSession(w, r)
	if !ok {
		return
	}
	n, err := strconv.Atoi(chi.URLParam(r, "step"))
	if err != nil {
		a.error(w, http.StatusBadRequest, string(imagegen.KindInvalidInput), "unknown step")
		return
	}
	target, err := sess.FirstBlockedStep(session.Step(n))
	if err != nil {
		a.error(w, http.StatusBadRequest, string(imagegen.KindInvalidInput), "unknown step")
		return
	}
	if target != session.Step(n) {
		http.Redirect(w, r, fmt.Sprintf("/v1/session/steps/%d", target), http.StatusSeeOther)
		return
	}
	a.json(w, http.StatusOK, stepResponse{Step: target, Session: sess.Snapshot()})
}
