package handlers

import "net/http"

type generateResponse struct {
	ImageURL string `json:"imageUrl"`
}

// Generate is the stateless endpoint: multipart "image" and "color" in, a
// data URI out.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	defer cleanupForm(r)
	up, err := a.readUpload(w, r)
	if err != nil {
		a.logger(r).Debug().Err(err).Msg("rejecting upload")
		a.uploadError(w, err)
		return
	}

	res, err := a.Generator.Generate(r.Context(), up.Photo, r.FormValue(colorField))
	if err != nil {
		a.generationError(w, err)
		return
	}
	a.json(w, http.StatusOK, generateResponse{ImageURL: res.DataURI()})
}
