package ports

import (
	"context"
	"errors"
	"time"

	"github.com/carlosrabelo/terminalnator/domain/entities"
)

var (
	// ErrReadTimeout is returned by Channel.Read when no data arrived in time.
	ErrReadTimeout = errors.New("read timeout")
	// ErrAuthFailed marks handshake failures caused by rejected credentials.
	ErrAuthFailed = errors.New("authentication failed")
	// ErrUnreachable marks dial failures.
	ErrUnreachable = errors.New("device unreachable")
)

// Target describes where and as whom a transport connects
type Target struct {
	Host     string
	Port     int
	Username string
	Password string
}

// Transport opens line-oriented channels to devices
type Transport interface {
	Connect(ctx context.Context, target Target, timeout time.Duration) (Channel, error)
}

// Channel is an interactive shell stream. Implementations need not be safe for
// concurrent Reads, but Close may be called while a Read is blocked.
type Channel interface {
	Write(p []byte) error
	Read(timeout time.Duration) ([]byte, error)
	Close() error
}

// LoginChannel is implemented by channels that authenticate in-band after
// connecting, such as Telnet.
type LoginChannel interface {
	LoginSequence(username, password string) []entities.AuthPrompt
}
