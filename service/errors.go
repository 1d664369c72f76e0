package service

import "errors"

// Admission and settlement rejections
var (
	ErrRateLimited         = errors.New("rate limit exceeded")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrMarketNotFound      = errors.New("market not found")
	ErrBettingClosed       = errors.New("betting is closed for this market")
	ErrInvalidOutcome      = errors.New("outcome does not belong to market")
	ErrDuplicateWager      = errors.New("wager already placed on this market")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrWalletNotFound      = errors.New("wallet not found")
)

// Market management
var (
	ErrTooFewOutcomes      = errors.New("market needs at least two outcomes")
	ErrMarketFinished      = errors.New("market is finished")
	ErrInvalidStatus       = errors.New("invalid market status transition")
	ErrInvalidMarketFields = errors.New("invalid market fields")
)

// Users and access
var (
	ErrUserNotFound           = errors.New("user not found")
	ErrInvalidTelegramPayload = errors.New("invalid telegram login payload")
	ErrUserBanned             = errors.New("user is banned")
	ErrNotWhitelisted         = errors.New("user is not whitelisted")
	ErrAdminOnly              = errors.New("admin access required")
)

// Chat
var (
	ErrEmptyMessage    = errors.New("message is empty")
	ErrMessageTooLong  = errors.New("message is too long")
	ErrUserMuted       = errors.New("user is muted")
	ErrMessageNotFound = errors.New("message not found")
)
