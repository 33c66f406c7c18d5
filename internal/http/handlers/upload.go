package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"tryon/internal/imagegen"
)

const (
	uploadField = "image"
	colorField  = "color"

	// formOverhead leaves room for multipart boundaries and the color field.
	formOverhead = 64 << 10
)

var errUploadTooLarge = errors.New("upload exceeds size limit")

type upload struct {
	Photo    imagegen.Photo
	Filename string
}

// readUpload parses the multipart form and returns the "image" file. A
// missing file yields an empty upload; the caller decides whether that is an
// error.
func (a *App) readUpload(w http.ResponseWriter, r *http.Request) (upload, error) {
	limit := a.Config.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+formOverhead)
	if err := r.ParseMultipartForm(limit); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
			return upload{}, errUploadTooLarge
		}
		return upload{}, fmt.Errorf("parse multipart form: %w", err)
	}

	file, header, err := r.FormFile(uploadField)
	if errors.Is(err, http.ErrMissingFile) {
		return upload{}, nil
	}
	if err != nil {
		return upload{}, fmt.Errorf("read %s field: %w", uploadField, err)
	}
	defer file.Close()

	if header.Size > limit {
		return upload{}, errUploadTooLarge
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return upload{}, fmt.Errorf("read upload: %w", err)
	}

	mediaType := strings.TrimSpace(header.Header.Get("Content-Type"))
	if (mediaType == "" || mediaType == "application/octet-stream") && len(data) > 0 {
		mediaType = mimetype.Detect(data).String()
	}
	return upload{
		Photo:    imagegen.Photo{Data: data, MediaType: mediaType},
		Filename: header.Filename,
	}, nil
}

func (a *App) uploadError(w http.ResponseWriter, err error) {
	if errors.Is(err, errUploadTooLarge) {
		a.error(w, http.StatusRequestEntityTooLarge, "payload_too_large",
			fmt.Sprintf("photo must be at most %d bytes", a.Config.MaxUploadBytes))
		return
	}
	a.error(w, http.StatusBadRequest, string(imagegen.KindInvalidInput), "invalid upload form")
}

func cleanupForm(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}
