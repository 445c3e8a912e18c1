// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pegvm

import "errors"

// Every failed invocation wraps exactly one of these.
var (
	ErrAuthorization       = errors.New("unauthorized")
	ErrAlreadyInitialized  = errors.New("already initialized")
	ErrAlreadyProcessed    = errors.New("transaction already processed")
	ErrProtocolViolation   = errors.New("protocol violation")
	ErrSignerNotConfigured = errors.New("signer not configured")
	ErrSignerMismatch      = errors.New("signer pubkey must be targeted with supplementary output")
	ErrInvalidInputCount   = errors.New("must only send synthetic as input")
	ErrArithmeticOverflow  = errors.New("arithmetic overflow")
	ErrInvalidCall         = errors.New("invalid call")
)

// Causes of ErrProtocolViolation raised by message validation.
var (
	ErrEdictsNotAllowed       = errors.New("message cannot contain edicts, only a pointer")
	ErrMissingPointer         = errors.New("no pointer in message")
	ErrPointerOutOfRange      = errors.New("pointer cannot be a protomessage")
	ErrSelfReferencingPointer = errors.New("pointer cannot be equal to output spendable by synthetic")
)
