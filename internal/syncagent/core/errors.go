package core

import (
	"errors"
	"fmt"
)

// Kind classifies a synchronization or connection failure.
// A Kind is itself an error so it can be matched with errors.Is.
type Kind string

func (k Kind) Error() string { return string(k) }

const (
	NotConnected   Kind = "NotConnected"
	NoProject      Kind = "NoProject"
	ExportEmpty    Kind = "ExportEmpty"
	ExportFailed   Kind = "ExportFailed"
	EncodingFailed Kind = "EncodingFailed"
	TransportError Kind = "TransportError"
	AuthRejected   Kind = "AuthRejected"
	EngineRejected Kind = "EngineRejected"
	SyncInProgress Kind = "SyncInProgress"
	SyncTimeout    Kind = "SyncTimeout"
	// Fatal covers unexpected failures (e.g. a panicking exporter) while preparing a sync.
	Fatal Kind = "Fatal"
)

// Error carries a Kind, an optional human readable detail and the underlying cause.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func NewError(kind Kind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the Kind carried by err, or "" if err does not carry one.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return ""
}
