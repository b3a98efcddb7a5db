package errors

import "fmt"

var (
	ErrRoomNotFound     = fmt.Errorf("room not found")
	ErrStoreUnavailable = fmt.Errorf("store unavailable")
	ErrMalformedPayload = fmt.Errorf("malformed payload")
	ErrWorkerPanic      = fmt.Errorf("worker panic")
)
