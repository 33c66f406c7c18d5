package handlers

import "net/http"

// Metrics exposes the counter registry; ?format=text switches to plain lines.
func (a *App) Metrics(w http.ResponseWriter, r *http.Request) {
	a.Registry.ServeHTTP(w, r)
}
