package domain

import "errors"

var (
	ErrUnknownColor = errors.New("unknown color")
	ErrNotImage     = errors.New("media type is not an image")
	ErrEmptyPhoto   = errors.New("photo is empty")
)
