// Package cli implements the ciscoctl command line: profile management and
// device sessions driven through the registry.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/carlosrabelo/terminalnator/domain/entities"
	"github.com/carlosrabelo/terminalnator/domain/ports"
	"github.com/carlosrabelo/terminalnator/internal/audit"
	"github.com/carlosrabelo/terminalnator/internal/config"
	"github.com/carlosrabelo/terminalnator/internal/logging"
	"github.com/carlosrabelo/terminalnator/internal/metrics"
	"github.com/carlosrabelo/terminalnator/internal/prompt"
	"github.com/carlosrabelo/terminalnator/internal/registry"
	"github.com/carlosrabelo/terminalnator/internal/session"
	"github.com/carlosrabelo/terminalnator/internal/snmp"
	"github.com/carlosrabelo/terminalnator/internal/store"
	"github.com/carlosrabelo/terminalnator/internal/transport"
)

const (
	EnvPassword = "TERMINALNATOR_PASSWORD"
	EnvSecret   = "TERMINALNATOR_SECRET"
)

// App bundles everything a command needs.
type App struct {
	Config     *config.Config
	ConfigPath string
	Logger     *slog.Logger
	Store      *store.Store
	Registry   *registry.Registry
	Transports transport.Set
	Matcher    *prompt.Matcher
	Audit      ports.AuditLog
	Metrics    *metrics.Collector
	Prober     *snmp.Prober
	Prompter   Prompter

	In  *bufio.Reader
	Out io.Writer

	closers []func() error
	cancel  context.CancelFunc
}

// Options are the global flags that override the configuration file.
type Options struct {
	ConfigPath  string
	LogLevel    string
	MetricsAddr string
	Strict      bool

	// FallbackLogFile is used when the configuration sets no log_file.
	FallbackLogFile string

	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Bootstrap loads the configuration and builds the application graph.
func Bootstrap(ctx context.Context, opts Options) (*App, error) {
	cfg, path, err := config.Resolve(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if opts.MetricsAddr != "" {
		cfg.MetricsAddr = opts.MetricsAddr
	}
	if opts.Strict {
		cfg.Strict = true
	}
	if cfg.LogFile == "" {
		cfg.LogFile = opts.FallbackLogFile
	}

	logger, closeLog, err := logging.Open(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	lines := bufio.NewReader(opts.In)
	app := &App{
		Config:     cfg,
		ConfigPath: path,
		Logger:     logger,
		Matcher:    prompt.New(prompt.WithMaxBuffer(cfg.MaxBuffer)),
		Metrics:    metrics.NewCollector(),
		Prompter:   NewTermPrompter(opts.In, lines, opts.Err),
		In:         lines,
		Out:        opts.Out,
		closers:    []func() error{closeLog},
	}
	if path != "" {
		logger.Debug("configuration loaded", "path", path)
	}

	if err := app.openStore(ctx); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.openAudit(); err != nil {
		app.Close()
		return nil, err
	}

	hostKeys, err := transport.HostKeyCallback(cfg.SSH.KnownHosts, cfg.SSH.InsecureIgnoreHostKey)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Transports = transport.Set{
		SSH: transport.NewSSHTransport(transport.SSHOptions{
			HostKeyCallback:  hostKeys,
			LegacyAlgorithms: cfg.SSH.LegacyAlgorithms,
			KeepAlive:        cfg.SSH.KeepAlive.Std(),
			Logger:           logger,
		}),
		Telnet: transport.NewTelnetTransport(logger),
	}
	app.Registry = registry.New(cfg.MaxSessions, registry.WithLogger(logger))
	app.Prober = snmp.NewProber(cfg.SNMP.Community, cfg.SNMP.Port, cfg.SNMP.Timeout.Std(), logger)

	if cfg.MetricsAddr != "" {
		serveCtx, cancel := context.WithCancel(context.Background())
		app.cancel = cancel
		go func() {
			if err := metrics.Serve(serveCtx, cfg.MetricsAddr, app.Metrics, logger); err != nil {
				logger.Error("metrics endpoint stopped", "err", err)
			}
		}()
	}
	return app, nil
}

func (a *App) openStore(ctx context.Context) error {
	var repo ports.ProfileRepository
	switch a.Config.ProfileBackend {
	case config.BackendRedis:
		r := store.NewRedisRepository(a.Config.Redis.Addr, a.Config.Redis.Password, a.Config.Redis.DB,
			store.WithPrefix(a.Config.Redis.Prefix))
		a.closers = append(a.closers, r.Close)
		repo = r
	default:
		repo = store.NewFileRepository(a.Config.ProfilesFile)
	}
	s, err := store.Open(ctx, repo)
	if err != nil {
		return err
	}
	a.Store = s
	return nil
}

func (a *App) openAudit() error {
	sinks := audit.Multi{a.Metrics}
	if a.Config.AuditFile != "" {
		rec, err := audit.OpenFile(a.Config.AuditFile, 0)
		if err != nil {
			return err
		}
		a.Metrics.RegisterDropped(rec.Dropped)
		a.closers = append(a.closers, rec.Close)
		sinks = append(sinks, rec)
	}
	a.Audit = sinks
	return nil
}

// Close ends every open session and releases files and connections.
func (a *App) Close() error {
	if a.Registry != nil {
		a.Registry.Shutdown()
	}
	if a.cancel != nil {
		a.cancel()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) sessionOptions() []session.Option {
	opts := []session.Option{
		session.WithLogger(a.Logger),
		session.WithStrict(a.Config.Strict),
		session.WithDisablePaging(a.Config.PagingDisabled()),
		session.WithConnectTimeout(a.Config.ConnectTimeout.Std()),
		session.WithIdleTimeout(a.Config.IdleTimeout.Std()),
	}
	if a.Matcher != nil {
		opts = append(opts, session.WithMatcher(a.Matcher))
	}
	if a.Audit != nil {
		opts = append(opts, session.WithAuditLog(a.Audit))
	}
	return opts
}

// Session returns the live session for a profile, connecting when needed.
// Credentials are only asked for when a new connection is made.
func (a *App) Session(ctx context.Context, id int) (*session.Session, error) {
	if s, ok := a.Registry.Get(id); ok {
		return s, nil
	}
	profile, err := a.Store.Get(id)
	if err != nil {
		return nil, err
	}
	creds, err := a.credentials(profile)
	if err != nil {
		return nil, err
	}
	return a.Connect(ctx, id, creds)
}

// Connect acquires the session for a profile with the given credentials.
func (a *App) Connect(ctx context.Context, id int, creds entities.Credentials) (*session.Session, error) {
	profile, err := a.Store.Get(id)
	if err != nil {
		return nil, err
	}
	tr, err := a.Transports.For(profile.TransportName())
	if err != nil {
		return nil, err
	}
	a.Logger.Info("connecting", "profile_id", id, "address", profile.Address(), "transport", profile.TransportName())
	return a.Registry.Acquire(ctx, id, func(ctx context.Context) (*session.Session, error) {
		return session.Open(ctx, tr, profile, creds, a.sessionOptions()...)
	})
}

// Disconnect closes the session of a profile, if any.
func (a *App) Disconnect(id int) error {
	return a.Registry.Release(id)
}

// Profiles lists the stored profiles.
func (a *App) Profiles() []entities.Profile {
	return a.Store.List()
}

// AddProfile validates and stores a new profile.
func (a *App) AddProfile(ctx context.Context, p entities.Profile) (int, error) {
	return a.Store.AddProfile(ctx, p)
}

// RemoveProfile deletes a profile and closes its session.
func (a *App) RemoveProfile(ctx context.Context, id int) (bool, error) {
	if err := a.Registry.Release(id); err != nil {
		a.Logger.Warn("failed to close session", "profile_id", id, "err", err)
	}
	return a.Store.Remove(ctx, id)
}

func (a *App) credentials(p entities.Profile) (entities.Credentials, error) {
	var creds entities.Credentials
	creds.Password = os.Getenv(EnvPassword)
	if creds.Password == "" {
		pw, err := a.Prompter.Password(fmt.Sprintf("Password for %s@%s: ", p.Username, p.Host))
		if err != nil {
			return creds, err
		}
		creds.Password = pw
	}
	if !escalates(p) {
		return creds, nil
	}
	creds.Secret = os.Getenv(EnvSecret)
	if creds.Secret == "" {
		secret, err := a.Prompter.Password("Enable secret (blank to skip): ")
		if err != nil {
			return creds, err
		}
		creds.Secret = secret
	}
	return creds, nil
}

// escalates reports whether a profile may need an enable secret. Profiles
// without a known family could turn out to need one after detection.
func escalates(p entities.Profile) bool {
	return p.Family.RequiresEscalation() || !p.Family.Known()
}
