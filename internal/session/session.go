package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carlosrabelo/terminalnator/domain/entities"
	"github.com/carlosrabelo/terminalnator/domain/ports"
	"github.com/carlosrabelo/terminalnator/internal/prompt"
	"github.com/carlosrabelo/terminalnator/platform"
)

// State is the lifecycle position of a session.
type State int

const (
	StateConnecting State = iota
	StateAuthenticating
	StateEscalating
	StateReady
	StateBusy
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateEscalating:
		return "escalating"
	case StateReady:
		return "ready"
	case StateBusy:
		return "busy"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "invalid"
	}
}

// Close reasons recorded with the closing and closed transitions.
const (
	ReasonDisconnect = "disconnect"
	ReasonIdle       = "idle"
	ReasonTimeout    = "timeout"
	ReasonOverflow   = "overflow"
	ReasonTransport  = "transport"
	ReasonOpenFailed = "open-failed"
	ReasonPanic      = "panic"
)

const (
	enableCommand  = "enable"
	secretPrompt   = "assword:"
	pagingContinue = " "
	readPoll       = 50 * time.Millisecond
)

// Session is one interactive command line on a device. It owns its channel
// exclusively and runs one command at a time.
type Session struct {
	id      string
	profile entities.Profile
	family  entities.DeviceFamily
	driver  platform.Driver
	channel ports.Channel
	opts    Options
	logger  *slog.Logger

	// cmdMu is held for the duration of a command or push.
	cmdMu sync.Mutex

	mu           sync.Mutex
	state        State
	lastActivity time.Time
	idleTimer    *time.Timer
	hooks        []func(*Session)

	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

// Open connects to the device described by profile and returns a Ready
// session. On failure the channel is closed and a *ConnectError is returned.
func Open(ctx context.Context, transport ports.Transport, profile entities.Profile, creds entities.Credentials, opts ...Option) (*Session, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.fill()

	id := uuid.NewString()
	s := &Session{
		id:           id,
		profile:      profile,
		family:       profile.Family,
		driver:       o.Driver,
		opts:         o,
		logger:       o.Logger.With("profile_id", profile.ID, "session_id", id),
		lastActivity: time.Now(),
		done:         make(chan struct{}),
	}
	if s.family == "" {
		s.family = entities.FamilyUnknown
	}
	s.record(ports.EventState, StateConnecting.String(), "")

	if err := s.open(ctx, transport, creds); err != nil {
		s.closeWithReason(ReasonOpenFailed)
		s.record(ports.EventError, err.Error(), "open")
		s.logger.Warn("session open failed", "host", profile.Host, "err", err)
		return nil, err
	}

	s.mu.Lock()
	s.state = StateReady
	if o.IdleTimeout > 0 {
		s.idleTimer = time.AfterFunc(o.IdleTimeout, s.idleCheck)
	}
	s.mu.Unlock()
	s.record(ports.EventState, StateReady.String(), "")
	s.logger.Info("session ready", "host", profile.Host, "family", s.family)
	return s, nil
}

func (s *Session) open(ctx context.Context, transport ports.Transport, creds entities.Credentials) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.ConnectTimeout)
	defer cancel()

	target := ports.Target{
		Host:     s.profile.Host,
		Port:     s.profile.Port,
		Username: s.profile.Username,
		Password: creds.Password,
	}
	if target.Port == 0 {
		target.Port = entities.DefaultPort(s.profile.TransportName())
	}
	ch, err := transport.Connect(ctx, target, s.opts.ConnectTimeout)
	if err != nil {
		return s.connectError("dial", err)
	}
	s.mu.Lock()
	s.channel = ch
	s.mu.Unlock()

	if err := s.resolveDriver(); err != nil {
		return err
	}

	s.setState(StateAuthenticating, "")
	var login []entities.AuthPrompt
	if lc, ok := ch.(ports.LoginChannel); ok {
		login = lc.LoginSequence(s.profile.Username, creds.Password)
	}
	banner, err := s.authenticate(ctx, login)
	if err != nil {
		return err
	}

	if !s.family.Known() {
		s.family = s.opts.Matcher.DetectFamily(banner)
	}
	if !s.family.Known() && s.opts.Strict {
		return &ConnectError{
			Kind:      ConnectUnsupportedDevice,
			ProfileID: s.profile.ID,
			Host:      s.profile.Host,
			Op:        "detect family",
			Err:       fmt.Errorf("prompt %q matches no known family", prompt.TrailingLine(banner)),
		}
	}

	if s.family.RequiresEscalation() && creds.Secret != "" && bytes.HasSuffix(bytes.TrimSpace(prompt.TrailingLine(banner)), []byte(">")) {
		s.setState(StateEscalating, "")
		if err := s.escalate(ctx, creds.Secret); err != nil {
			return err
		}
	}

	if s.opts.DisablePaging && s.family.Known() {
		for _, cmd := range s.pagingCommands() {
			s.record(ports.EventCommand, cmd, "")
			if _, err := s.exec(ctx, cmd); err != nil {
				return s.connectError("disable paging", err)
			}
		}
	}
	return nil
}

// resolveDriver picks the driver from options or the profile platform. A
// driver also supplies the family when the profile leaves it unknown.
func (s *Session) resolveDriver() error {
	if s.driver == nil && s.profile.Platform != "" {
		driver, err := platform.Get(s.profile.Platform)
		if err != nil {
			return &ConnectError{
				Kind:      ConnectUnsupportedDevice,
				ProfileID: s.profile.ID,
				Host:      s.profile.Host,
				Op:        "resolve platform",
				Err:       err,
			}
		}
		s.driver = driver
	}
	if !s.family.Known() && s.driver != nil && s.driver.Family().Known() {
		s.family = s.driver.Family()
	}
	return nil
}

func (s *Session) pagingCommands() []string {
	if s.driver != nil {
		return s.driver.DisablePagingCommands()
	}
	return []string{"terminal length 0"}
}

// authenticate answers in-band login prompts, then reads until the first
// device prompt and returns everything read.
func (s *Session) authenticate(ctx context.Context, login []entities.AuthPrompt) ([]byte, error) {
	var buf bytes.Buffer
	next := 0
	for {
		tail := prompt.TrailingLine(buf.Bytes())
		if i := matchLoginStep(tail, login, next); i >= 0 {
			if err := s.channel.Write([]byte(login[i].SendCmd + "\n")); err != nil {
				return nil, s.connectError("login", err)
			}
			buf.Reset()
			next = i + 1
			continue
		}
		if loginRepeated(tail, login[:next]) {
			return nil, &ConnectError{
				Kind:      ConnectAuthFailed,
				ProfileID: s.profile.ID,
				Host:      s.profile.Host,
				Op:        "login",
				Err:       errors.New("device asked for credentials again"),
			}
		}
		if buf.Len() > 0 && s.bannerComplete(buf.Bytes()) {
			return buf.Bytes(), nil
		}
		if err := s.readChunk(ctx, &buf); err != nil {
			return nil, s.connectError("read banner", err)
		}
	}
}

// bannerComplete reports whether the banner ends in a prompt. Before the
// family is known any family's prompt counts.
func (s *Session) bannerComplete(buf []byte) bool {
	if s.opts.Matcher.Classify(buf, s.family) == prompt.Complete {
		return true
	}
	return !s.family.Known() && s.opts.Matcher.DetectFamily(buf).Known()
}

func matchLoginStep(tail []byte, login []entities.AuthPrompt, from int) int {
	for i := from; i < len(login); i++ {
		if bytes.Contains(tail, []byte(login[i].WaitFor)) {
			return i
		}
	}
	return -1
}

func loginRepeated(tail []byte, login []entities.AuthPrompt) bool {
	for _, step := range login {
		if bytes.Contains(tail, []byte(step.WaitFor)) {
			return true
		}
	}
	return false
}

// escalate runs enable and answers the secret prompt.
func (s *Session) escalate(ctx context.Context, secret string) error {
	s.record(ports.EventCommand, enableCommand, "")
	if err := s.channel.Write([]byte(enableCommand + "\n")); err != nil {
		return s.connectError("enable", err)
	}
	var buf bytes.Buffer
	sent := false
	for {
		tail := prompt.TrailingLine(buf.Bytes())
		if bytes.Contains(tail, []byte(secretPrompt)) {
			if sent {
				return &ConnectError{
					Kind:      ConnectAuthFailed,
					ProfileID: s.profile.ID,
					Host:      s.profile.Host,
					Op:        "enable",
					Err:       errors.New("privileged mode secret rejected"),
				}
			}
			if err := s.channel.Write([]byte(secret + "\n")); err != nil {
				return s.connectError("enable", err)
			}
			sent = true
			buf.Reset()
			continue
		}
		if buf.Len() > 0 && s.opts.Matcher.Classify(buf.Bytes(), s.family) == prompt.Complete {
			if bytes.HasSuffix(bytes.TrimSpace(tail), []byte("#")) {
				return nil
			}
			return &ConnectError{
				Kind:      ConnectAuthFailed,
				ProfileID: s.profile.ID,
				Host:      s.profile.Host,
				Op:        "enable",
				Err:       errors.New("privileged mode secret rejected"),
			}
		}
		if err := s.readChunk(ctx, &buf); err != nil {
			return s.connectError("enable", err)
		}
	}
}

// connectError maps transport and context failures to a *ConnectError.
func (s *Session) connectError(op string, err error) error {
	var ce *ConnectError
	if errors.As(err, &ce) {
		return err
	}
	kind := ConnectUnreachable
	switch {
	case errors.Is(err, ports.ErrAuthFailed):
		kind = ConnectAuthFailed
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), errors.Is(err, ErrTimeout):
		kind = ConnectTimeout
	}
	return &ConnectError{Kind: kind, ProfileID: s.profile.ID, Host: s.profile.Host, Op: op, Err: err}
}

// readChunk appends the next piece of output to buf. It polls the channel so
// that ctx is honoured even when the device is silent.
func (s *Session) readChunk(ctx context.Context, buf *bytes.Buffer) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		wait := readPoll
		if d, ok := ctx.Deadline(); ok {
			if remaining := time.Until(d); remaining < wait {
				wait = remaining
			}
		}
		if wait <= 0 {
			return context.DeadlineExceeded
		}
		chunk, err := s.channel.Read(wait)
		if errors.Is(err, ports.ErrReadTimeout) {
			continue
		}
		if err != nil {
			return err
		}
		buf.Write(chunk)
		return nil
	}
}

// ID returns the session uuid.
func (s *Session) ID() string { return s.id }

// ProfileID returns the id of the profile the session was opened for.
func (s *Session) ProfileID() int { return s.profile.ID }

// Profile returns the profile the session was opened for.
func (s *Session) Profile() entities.Profile { return s.profile }

// Family returns the resolved device family.
func (s *Session) Family() entities.DeviceFamily { return s.family }

// Driver returns the platform driver, or nil when none was resolved.
func (s *Session) Driver() platform.Driver { return s.driver }

// Channel returns the underlying shell channel. Callers must not read from
// or write to it while the session is open.
func (s *Session) Channel() ports.Channel { return s.channel }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastActivity returns when the last command finished.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Done is closed once the session reaches Closed and its close hooks ran.
func (s *Session) Done() <-chan struct{} { return s.done }

// OnClose registers fn to run after the session is closed. If the session is
// already closed fn runs immediately.
func (s *Session) OnClose(fn func(*Session)) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		fn(s)
		return
	}
	s.hooks = append(s.hooks, fn)
	s.mu.Unlock()
}

// Close tears the session down. It is safe to call more than once and from
// several goroutines; the channel is closed exactly once.
func (s *Session) Close() error {
	return s.closeWithReason(ReasonDisconnect)
}

func (s *Session) closeWithReason(reason string) error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = StateClosing
		if s.idleTimer != nil {
			s.idleTimer.Stop()
		}
		ch := s.channel
		s.mu.Unlock()
		s.record(ports.EventState, StateClosing.String(), reason)

		defer func() {
			s.mu.Lock()
			s.state = StateClosed
			hooks := s.hooks
			s.hooks = nil
			s.mu.Unlock()
			s.record(ports.EventState, StateClosed.String(), reason)
			s.logger.Info("session closed", "reason", reason)
			for _, fn := range hooks {
				fn(s)
			}
			close(s.done)
		}()
		if ch != nil {
			s.closeErr = ch.Close()
		}
	})
	return s.closeErr
}

func (s *Session) setState(st State, reason string) {
	s.mu.Lock()
	if s.state == StateClosing || s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = st
	s.mu.Unlock()
	s.record(ports.EventState, st.String(), reason)
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// idleCheck closes the session once it has been idle for IdleTimeout.
func (s *Session) idleCheck() {
	if !s.cmdMu.TryLock() {
		s.resetIdle(s.opts.IdleTimeout)
		return
	}
	defer s.cmdMu.Unlock()

	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return
	}
	remaining := s.opts.IdleTimeout - time.Since(s.lastActivity)
	s.mu.Unlock()
	if remaining > 0 {
		s.resetIdle(remaining)
		return
	}
	s.logger.Debug("closing idle session", "idle_timeout", s.opts.IdleTimeout)
	s.closeWithReason(ReasonIdle)
}

func (s *Session) resetIdle(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idleTimer != nil && s.state != StateClosing && s.state != StateClosed {
		s.idleTimer.Reset(d)
	}
}

func (s *Session) record(kind ports.EventKind, detail, reason string) {
	s.opts.Audit.Record(ports.Event{
		Timestamp: time.Now(),
		ProfileID: s.profile.ID,
		SessionID: s.id,
		Kind:      kind,
		Detail:    detail,
		Reason:    reason,
	})
}

// String identifies the session in logs.
func (s *Session) String() string {
	return fmt.Sprintf("session %s (profile %d, %s)", s.id, s.profile.ID, s.State())
}
