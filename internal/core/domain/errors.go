package domain

import "errors"

var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrForbidden            = errors.New("forbidden")
	ErrVentureNotFound      = errors.New("venture not found")
	ErrOfficeNotFound       = errors.New("office not found")
	ErrCarrierNotFound      = errors.New("carrier not found")
	ErrLoadNotFound         = errors.New("load not found")
	ErrIncidentNotFound     = errors.New("incident not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrAlreadyClaimed       = errors.New("conversation already claimed")
	ErrNotClaimedByUser     = errors.New("conversation not claimed by user")
	ErrDuplicateMessage     = errors.New("duplicate inbound message")
	ErrInvalidUserID        = errors.New("invalid user id")
	ErrInvalidVentureID     = errors.New("invalid venture id")
	ErrRuleNotFound         = errors.New("incentive rule not found")
	ErrInvalidDay           = errors.New("invalid day")
	ErrDraftingUnavailable  = errors.New("drafting assistant unavailable")
	ErrPromptRejected       = errors.New("prompt rejected by guardrails")
	ErrDraftingRateLimited  = errors.New("drafting rate limit exceeded")
)
