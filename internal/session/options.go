package session

import (
	"log/slog"
	"time"

	"github.com/carlosrabelo/terminalnator/domain/ports"
	"github.com/carlosrabelo/terminalnator/internal/logging"
	"github.com/carlosrabelo/terminalnator/internal/prompt"
	"github.com/carlosrabelo/terminalnator/platform"
)

const (
	DefaultConnectTimeout = 30 * time.Second
	DefaultCommandTimeout = 60 * time.Second
)

// Options tune how a session is opened and run.
type Options struct {
	Matcher        *prompt.Matcher
	Audit          ports.AuditLog
	Logger         *slog.Logger
	ConnectTimeout time.Duration
	// IdleTimeout closes the session after this long without commands. Zero
	// keeps it open until closed explicitly.
	IdleTimeout time.Duration
	// Strict fails Open with UnsupportedDevice when no family can be resolved.
	Strict bool
	// DisablePaging sends the driver's paging commands after login for
	// known families.
	DisablePaging bool
	// Driver overrides the platform named in the profile.
	Driver platform.Driver
}

// Option configures a session.
type Option func(*Options)

func defaultOptions() Options {
	return Options{
		ConnectTimeout: DefaultConnectTimeout,
		DisablePaging:  true,
	}
}

func WithMatcher(m *prompt.Matcher) Option {
	return func(o *Options) { o.Matcher = m }
}

func WithAuditLog(a ports.AuditLog) Option {
	return func(o *Options) { o.Audit = a }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

func WithConnectTimeout(d time.Duration) Option {
	return func(o *Options) { o.ConnectTimeout = d }
}

func WithIdleTimeout(d time.Duration) Option {
	return func(o *Options) { o.IdleTimeout = d }
}

func WithStrict(strict bool) Option {
	return func(o *Options) { o.Strict = strict }
}

func WithDisablePaging(disable bool) Option {
	return func(o *Options) { o.DisablePaging = disable }
}

func WithDriver(d platform.Driver) Option {
	return func(o *Options) { o.Driver = d }
}

func (o *Options) fill() {
	if o.Matcher == nil {
		o.Matcher = prompt.New()
	}
	if o.Audit == nil {
		o.Audit = ports.NopAuditLog{}
	}
	if o.Logger == nil {
		o.Logger = logging.NewNop()
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
}
