package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/carlosrabelo/terminalnator/domain/entities"
)

var (
	ErrAuthFailed        = errors.New("authentication failed")
	ErrTimeout           = errors.New("timed out")
	ErrUnreachable       = errors.New("device unreachable")
	ErrUnsupportedDevice = errors.New("unsupported device")

	ErrBusy            = errors.New("session busy")
	ErrClosed          = errors.New("session closed")
	ErrOverflow        = errors.New("output exceeded buffer limit")
	ErrTransport       = errors.New("transport failure")
	ErrCommandRejected = errors.New("command rejected by device")
)

// ConnectKind classifies failures while opening a session.
type ConnectKind int

const (
	ConnectAuthFailed ConnectKind = iota
	ConnectTimeout
	ConnectUnreachable
	ConnectUnsupportedDevice
)

func (k ConnectKind) sentinel() error {
	switch k {
	case ConnectAuthFailed:
		return ErrAuthFailed
	case ConnectTimeout:
		return ErrTimeout
	case ConnectUnsupportedDevice:
		return ErrUnsupportedDevice
	default:
		return ErrUnreachable
	}
}

func (k ConnectKind) String() string {
	return k.sentinel().Error()
}

// ConnectError reports why Open failed.
type ConnectError struct {
	Kind      ConnectKind
	ProfileID int
	Host      string
	Op        string
	Err       error
}

func (e *ConnectError) Error() string {
	msg := fmt.Sprintf("profile %d (%s): %s: %s", e.ProfileID, e.Host, e.Op, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConnectError) Unwrap() error { return e.Err }

func (e *ConnectError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// ErrorKind classifies failures of an open session.
type ErrorKind int

const (
	KindBusy ErrorKind = iota
	KindClosed
	KindOverflow
	KindTimeout
	KindTransport
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindBusy:
		return ErrBusy
	case KindClosed:
		return ErrClosed
	case KindOverflow:
		return ErrOverflow
	case KindTimeout:
		return ErrTimeout
	default:
		return ErrTransport
	}
}

func (k ErrorKind) String() string {
	return k.sentinel().Error()
}

// Error is returned by operations on an open session.
type Error struct {
	Kind      ErrorKind
	ProfileID int
	Op        string
	Err       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("profile %d: %s: %s", e.ProfileID, e.Op, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// PartialFailure is returned by PushConfig when it stops before the last line.
// Completed holds the results of lines 0..FailedAt-1.
type PartialFailure struct {
	Completed []entities.CommandResult
	FailedAt  int
	Err       error
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("config push stopped at line %d after %d completed: %v", e.FailedAt+1, len(e.Completed), e.Err)
}

func (e *PartialFailure) Unwrap() error { return e.Err }

// RejectedError carries the device output of a line that matched the family
// error pattern.
type RejectedError struct {
	Command string
	Output  string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%q: %s", e.Command, errorLine(e.Output))
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrCommandRejected
}

// errorLine picks the line a device used to complain, falling back to the
// first non-empty line.
func errorLine(s string) string {
	first := ""
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "%") {
			return line
		}
		if first == "" {
			first = line
		}
	}
	return first
}
