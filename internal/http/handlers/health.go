package handlers

import (
	"net/http"

	"tryon/internal/domain"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"provider": a.Config.ImageProvider,
		"sessions": a.Sessions.Len(),
	})
}

// Colors lists the palette offered on the first step.
func (a *App) Colors(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{"colors": domain.Swatches()})
}
