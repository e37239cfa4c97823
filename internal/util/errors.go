package util

import "errors"

var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrVerificationFailed     = errors.New("could not verify quiz access")
	ErrLimitExceeded          = errors.New("free quiz limit reached")
	ErrPersistenceFailed      = errors.New("quiz attempt could not be saved")
	ErrMalformedRequest       = errors.New("malformed request")

	ErrUserNotFound         = errors.New("user not found")
	ErrEmailRegistered      = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrSessionNotFound      = errors.New("quiz session not found")
	ErrAttemptNotFound      = errors.New("quiz attempt not found")
	ErrQuestionNotFound     = errors.New("question not found")
	ErrSectionNotFound      = errors.New("study section not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
	ErrPaymentProvider      = errors.New("payment provider error")
)
