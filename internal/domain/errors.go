package domain

import "errors"

var (
	ErrNotFound           = errors.New("document not found")
	ErrUnauthorized       = errors.New("admin login required")
	ErrUnsupportedType    = errors.New("unsupported file type")
	ErrPersistence        = errors.New("calendar could not be saved")
	ErrTransport          = errors.New("email could not be sent")
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrUnknownSlot        = errors.New("unknown document slot")
	ErrInvalidEvent       = errors.New("invalid calendar event")
	ErrFeatureDisabled    = errors.New("feature disabled")
	ErrInvalidInput       = errors.New("invalid input")
)
