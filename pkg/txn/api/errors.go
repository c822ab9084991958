/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package api

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a failure returned to callers
type Kind string

const (
	// BootstrapError indicates that enrollment or channel initialization failed
	BootstrapError Kind = "BootstrapError"
	// EnrollmentNotReady indicates that the channel handle is not usable
	EnrollmentNotReady Kind = "EnrollmentNotReady"
	// ProposalTimeout indicates that no peer answered within the wait window
	ProposalTimeout Kind = "ProposalTimeout"
	// EndorsementFailure indicates that the peers answered but the endorsement policy was not satisfied
	EndorsementFailure Kind = "EndorsementFailure"
	// CommitFailure indicates that the endorsed transaction could not be ordered
	CommitFailure Kind = "CommitFailure"
	// QueryFailure indicates that a query could not be answered or decoded
	QueryFailure Kind = "QueryFailure"
	// NotFound indicates that the queried key has no record. It is not a transport failure.
	NotFound Kind = "NotFound"
	// InvalidRequest indicates that a request failed validation before being sent
	InvalidRequest Kind = "InvalidRequest"
)

// Error is a typed failure carrying the offending business key and,
// where available, the per-peer responses
type Error struct {
	Kind      Kind
	Key       string
	Responses []*EndorsementResponse
	Cause     error
}

// NewError returns a new typed error
func NewError(kind Kind, key string, cause error) *Error {
	return &Error{Kind: kind, Key: key, Cause: cause}
}

// WithResponses attaches the per-peer responses to the error
func (e *Error) WithResponses(responses []*EndorsementResponse) *Error {
	e.Responses = responses
	return e
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Key != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Key)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// KindOf returns the kind of the first typed error in the chain
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsKind returns true if the error chain contains a typed error of the given kind
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// IsNotFound returns true if the error indicates that the queried key has no record
func IsNotFound(err error) bool {
	return IsKind(err, NotFound)
}
