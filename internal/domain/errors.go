package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrRateLimited        = errors.New("rate limited")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrLockHeld           = errors.New("lock already held")
	ErrWSDisconnect       = errors.New("websocket disconnected")
	ErrPollerStopped      = errors.New("poller stopped")
	ErrInvalidOpportunity = errors.New("invalid arbitrage opportunity")
	ErrOpportunityExpired = errors.New("arbitrage opportunity expired")
	ErrDuplicate          = errors.New("duplicate request")
	ErrInvalidStrategy    = errors.New("invalid strategy")
	ErrInvalidPosition    = errors.New("invalid position")
	ErrRiskLimit          = errors.New("risk limit exceeded")

	// Wallet connection failures are classified into these three buckets.
	ErrWalletNotFound     = errors.New("wallet not found")
	ErrWalletDeclined     = errors.New("wallet connection declined")
	ErrWalletNotConnected = errors.New("wallet not connected")
	ErrSigningFailed      = errors.New("signing failed")
)
