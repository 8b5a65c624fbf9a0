package moderator

import (
	"errors"

	"resistance-moderator/internal/future"
	"resistance-moderator/internal/pool"
	"resistance-moderator/internal/seat"
)

// ErrRouting is a join or part the moderator cannot attribute to any seat.
var ErrRouting = errors.New("routing_error")

// IsFatal reports errors that mean the moderator's view of the chat is out
// of sync with the engine. The process stops on them.
func IsFatal(err error) bool {
	return errors.Is(err, seat.ErrProtocol) ||
		errors.Is(err, seat.ErrReplyPending) ||
		errors.Is(err, ErrRouting) ||
		errors.Is(err, future.ErrAlreadySet) ||
		errors.Is(err, pool.ErrDoubleRelease) ||
		errors.Is(err, pool.ErrUnknownSlot)
}
