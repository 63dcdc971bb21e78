package errors

import "fmt"

var (
	ErrWorkerPanic          = fmt.Errorf("worker panic")
	ErrSessionAlreadyJoined = fmt.Errorf("session already joined")
	ErrSessionClosed        = fmt.Errorf("session closed")
	ErrDeliveryTimeout      = fmt.Errorf("delivery timeout")
	ErrDeliveryPanic        = fmt.Errorf("delivery panic")
	ErrIngestionTimeout     = fmt.Errorf("ingestion timeout")
	ErrMalformedFrame       = fmt.Errorf("malformed frame")
	ErrEmptyText            = fmt.Errorf("empty text")
	ErrInvalidLabel         = fmt.Errorf("invalid label")
	ErrInvalidRecord        = fmt.Errorf("invalid stored record")
)
