package service

import "errors"

// Expected business conditions are returned as sentinels so callers can map
// them to responses with errors.Is. Storage failures wrap and propagate.
var (
	ErrInvalidCredentials    = errors.New("invalid_credentials")
	ErrAccountInactive       = errors.New("account_inactive")
	ErrAccountLocked         = errors.New("account_locked")
	ErrSecondFactorRequired  = errors.New("second_factor_required")
	ErrSecondFactorInvalid   = errors.New("second_factor_invalid")
	ErrSessionLocked         = errors.New("session_locked")
	ErrTokenExpiredOrInvalid = errors.New("token_expired_or_invalid")
	ErrUnauthorized          = errors.New("unauthorized")
)
