package photos

import "errors"

var (
	ErrMissingFile      = errors.New("file is required")
	ErrEmptyFile        = errors.New("file is empty")
	ErrFileTooLarge     = errors.New("file is too large")
	ErrUnsupportedMedia = errors.New("only images and PDF documents are supported")
	ErrInvalidName      = errors.New("invalid file name")
)
