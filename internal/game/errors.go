package game

import "errors"

var (
	ErrNotAuthenticated   = errors.New("no authenticated caller identity")
	ErrNotFound           = errors.New("not found")
	ErrInvalidPlayer      = errors.New("invalid player for this operation")
	ErrGameNotActive      = errors.New("game is not in progress")
	ErrForbidden          = errors.New("only the host may do that")
	ErrPreconditionFailed = errors.New("precondition failed")
)
