package domain

import "errors"

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrInvalidPayload       = errors.New("invalid notification payload")
	ErrInvalidVariant       = errors.New("invalid variant")
	ErrInvalidPushBody      = errors.New("provide either {rendered}, or {title,message[,...]}, or {type,data}")
	ErrDuplicateRequest     = errors.New("duplicate request")
)
