package services

import "errors"

// Engine errors. Every operation either fully commits or fails with one of
// these; partial updates are never observable to callers.
var (
	ErrPoolNotFound         = errors.New("pool not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrHoldingNotFound      = errors.New("holding not found")
	ErrDistributionNotFound = errors.New("distribution not found")
	ErrUnauthorized         = errors.New("caller is not authorized")
	ErrInvalidParameter     = errors.New("invalid parameter")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrPoolInactive         = errors.New("pool is inactive")
	ErrCapacityExceeded     = errors.New("purchase exceeds pool capacity")
	ErrInsufficientShares   = errors.New("insufficient shares")
	ErrNothingToClaim       = errors.New("nothing to claim")
	ErrInsufficientBalance  = errors.New("insufficient token balance")
	ErrGatewayFailure       = errors.New("token gateway failure")
)
