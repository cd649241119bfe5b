package repository

import (
	"errors"
	"fmt"
)

// Shared repository errors. Implementations map engine-specific failures
// (gorm.ErrRecordNotFound, MySQL duplicate-key, redis.Nil) onto these so the
// service layer never inspects driver errors.
var (
	ErrNotFound       = errors.New("repository: record not found")
	ErrDuplicateEntry = errors.New("repository: duplicate entry")
)

// Entity-specific not-found errors. Each wraps ErrNotFound so callers that
// only care about the miss can match on that, while callers that need to
// know which entity was missing can match the specific sentinel.
var (
	ErrRoomNotFound = fmt.Errorf("%w: room", ErrNotFound)
	ErrUserNotFound = fmt.Errorf("%w: user", ErrNotFound)
	ErrUnitNotFound = fmt.Errorf("%w: unit", ErrNotFound)
)
