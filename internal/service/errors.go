package service

import "errors"

// Service-level error taxonomy. Expected, user-recoverable conditions are
// distinct sentinels so the transport layer can report them to the sender
// alone as named error events. ErrStorage covers any transactional
// read/write failure; it is logged with full context where it occurs and
// surfaced to the sender as a generic failure.
var (
	ErrRoomNotFound         = errors.New("room not found")
	ErrUnitNotFound         = errors.New("unit not found")
	ErrForbidden            = errors.New("forbidden")
	ErrAdminReadOnly        = errors.New("admin overlay session is read-only")
	ErrInvalidPassword      = errors.New("invalid room password")
	ErrRoomNotEmpty         = errors.New("cannot delete room with other users present")
	ErrInvalidAction        = errors.New("invalid action data")
	ErrStorage              = errors.New("storage failure")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrRegistrationFailed   = errors.New("registration failed: username already exists")
)
