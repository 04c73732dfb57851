package repository

import "errors"

// Error kinds shared by every layer. Callers match them with errors.Is.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("file not found")
	ErrIO         = errors.New("i/o error")
	ErrBind       = errors.New("bind failed")
	ErrNetwork    = errors.New("network error")
)
