package errors

import "fmt"

var (
	ErrStorageUnavailable   = fmt.Errorf("backing store unavailable")
	ErrInvalidMessage       = fmt.Errorf("message needs text or an attachment")
	ErrSizeExceeded         = fmt.Errorf("attachment exceeds the size ceiling")
	ErrTypeRejected         = fmt.Errorf("attachment type is not allowed")
	ErrUploadFailed         = fmt.Errorf("attachment upload failed")
	ErrDedupConflict        = fmt.Errorf("concurrent conversation creation conflict")
	ErrConversationNotFound = fmt.Errorf("conversation not found")
	ErrNotEnoughMembers     = fmt.Errorf("a conversation needs at least two participants")
	ErrWorkerPanic          = fmt.Errorf("worker panic")
)
