package services

import (
	"errors"
	"fmt"

	"worldroom/models"
	"worldroom/store"
)

// Error kinds. Every error returned by GameService matches exactly one of
// these under errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrTransient    = errors.New("temporarily unavailable")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func newError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

func validationError(format string, args ...interface{}) error {
	return newError(ErrValidation, fmt.Sprintf(format, args...))
}

var (
	ErrRoomNotFound   = newError(ErrNotFound, "room not found")
	ErrPlayerNotFound = newError(ErrNotFound, "player not found")
	ErrRoundNotFound  = newError(ErrNotFound, "round not found")
	ErrGameNotFound   = newError(ErrNotFound, "game not found")

	ErrNameTaken        = newError(ErrConflict, "player name already taken in this room")
	ErrGameNotCurrent   = newError(ErrConflict, "game is not the current game of an active round")
	ErrAlreadyCompleted = newError(ErrConflict, "player has already completed this game")
	ErrAlreadyGuessed   = newError(ErrConflict, "country already guessed in this game")
	ErrRoundStarted     = newError(ErrConflict, "round has already started")
	ErrRoundNotActive   = newError(ErrConflict, "round is not active")
	ErrPlayersNotDone   = newError(ErrConflict, "not all players have completed the current game")
	ErrRoundInProgress  = newError(ErrConflict, "room already has an active round")
	ErrRoomFinished     = newError(ErrConflict, "room is finished")
	ErrCatalogExhausted = newError(ErrConflict, "no unused countries left to draw")
	ErrStaleState       = newError(ErrConflict, "state changed, reload and retry")

	ErrNotHost   = newError(ErrForbidden, "only the host can do that")
	ErrNotInRoom = newError(ErrForbidden, "player is not in this room")

	ErrEmptyName        = newError(ErrValidation, "name must not be empty")
	ErrEmptyGuess       = newError(ErrValidation, "guess must not be empty")
	ErrUnknownCountry   = newError(ErrValidation, "unknown country")
	ErrInvalidHintLevel = newError(ErrValidation, "hint level must be between 1 and 4")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrNotFound, "not_found"},
	{ErrConflict, "conflict"},
	{ErrValidation, "validation"},
	{ErrTransient, "transient"},
	{ErrForbidden, "forbidden"},
	{ErrUnauthorized, "unauthorized"},
}

// Kind names the error kind of err, or "internal" when it has none.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "internal"
}

func hasKind(err error) bool { return Kind(err) != "internal" }

// storeError turns a datastore failure into a service error. notFound is
// used when the record is missing.
func storeError(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case hasKind(err):
		return err
	case errors.Is(err, store.ErrNotFound):
		return notFound
	case errors.Is(err, store.ErrDuplicate), errors.Is(err, store.ErrStale):
		return ErrStaleState
	case errors.Is(err, models.ErrRoundNotWaiting):
		return ErrRoundStarted
	case errors.Is(err, models.ErrRoundNotActive):
		return ErrRoundNotActive
	}
	return fmt.Errorf("%w: %v", ErrTransient, err)
}
