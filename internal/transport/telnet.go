package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/ziutek/telnet"

	"github.com/carlosrabelo/terminalnator/domain/entities"
	"github.com/carlosrabelo/terminalnator/domain/ports"
	"github.com/carlosrabelo/terminalnator/internal/logging"
)

// TelnetTransport opens plain telnet connections. Authentication happens
// in-band, so the channel advertises the prompts the session must answer.
type TelnetTransport struct {
	logger *slog.Logger
}

// NewTelnetTransport creates a telnet transport
func NewTelnetTransport(logger *slog.Logger) *TelnetTransport {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &TelnetTransport{logger: logger}
}

// Connect dials the target. Login is left to the caller.
func (t *TelnetTransport) Connect(ctx context.Context, target ports.Target, timeout time.Duration) (ports.Channel, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if d, ok := ctx.Deadline(); ok {
		if remaining := time.Until(d); remaining < timeout {
			timeout = remaining
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	addr := net.JoinHostPort(target.Host, strconv.Itoa(target.Port))
	conn, err := telnet.DialTimeout("tcp", addr, timeout)
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return nil, fmt.Errorf("telnet connect to %s: %w", addr, context.DeadlineExceeded)
		}
		return nil, fmt.Errorf("failed to connect to %s via telnet: %w: %v", addr, ports.ErrUnreachable, err)
	}
	conn.SetUnixWriteMode(true)
	t.logger.Debug("telnet connected", "addr", addr)

	return &TelnetChannel{streamChannel: newStreamChannel(conn, conn, conn.Close)}, nil
}

// TelnetChannel is a telnet stream that requires in-band login.
type TelnetChannel struct {
	*streamChannel
}

// LoginSequence returns the username and password prompts to answer.
func (c *TelnetChannel) LoginSequence(username, password string) []entities.AuthPrompt {
	return entities.LoginSequence(username, password)
}
