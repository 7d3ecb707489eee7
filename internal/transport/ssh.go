package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/carlosrabelo/terminalnator/domain/ports"
	"github.com/carlosrabelo/terminalnator/internal/logging"
)

const (
	DefaultTimeout = 30 * time.Second
	DefaultTerm    = "vt100"
	DefaultWidth   = 511
	DefaultHeight  = 24
)

// Algorithms accepted in addition to the library defaults when talking to old
// IOS images that only offer CBC ciphers and SHA-1 key exchange.
var (
	legacyCiphers = []string{
		"aes128-gcm@openssh.com",
		"aes256-gcm@openssh.com",
		"chacha20-poly1305@openssh.com",
		"aes128-ctr",
		"aes192-ctr",
		"aes256-ctr",
		"aes128-cbc",
		"3des-cbc",
	}
	legacyKeyExchanges = []string{
		"curve25519-sha256",
		"ecdh-sha2-nistp256",
		"ecdh-sha2-nistp384",
		"ecdh-sha2-nistp521",
		"diffie-hellman-group14-sha256",
		"diffie-hellman-group14-sha1",
		"diffie-hellman-group1-sha1",
	}
	legacyHostKeyAlgorithms = []string{
		ssh.KeyAlgoED25519,
		ssh.KeyAlgoECDSA256,
		ssh.KeyAlgoRSASHA512,
		ssh.KeyAlgoRSASHA256,
		ssh.KeyAlgoRSA,
	}
)

// SSHOptions configures the SSH transport
type SSHOptions struct {
	HostKeyCallback  ssh.HostKeyCallback
	LegacyAlgorithms bool
	KeepAlive        time.Duration
	TermType         string
	Width            int
	Height           int
	Logger           *slog.Logger
}

// SSHTransport opens interactive PTY shells over SSH
type SSHTransport struct {
	opts SSHOptions
}

// NewSSHTransport creates a new SSH transport with the given options
func NewSSHTransport(opts SSHOptions) *SSHTransport {
	if opts.HostKeyCallback == nil {
		opts.HostKeyCallback = ssh.InsecureIgnoreHostKey()
	}
	if opts.TermType == "" {
		opts.TermType = DefaultTerm
	}
	if opts.Width == 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height == 0 {
		opts.Height = DefaultHeight
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	return &SSHTransport{opts: opts}
}

// ClientConfig builds the ssh client configuration for a target.
func (t *SSHTransport) ClientConfig(target ports.Target, timeout time.Duration) *ssh.ClientConfig {
	cfg := &ssh.ClientConfig{
		User: target.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(target.Password),
			ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range questions {
					answers[i] = target.Password
				}
				return answers, nil
			}),
		},
		HostKeyCallback: t.opts.HostKeyCallback,
		Timeout:         timeout,
	}
	if t.opts.LegacyAlgorithms {
		cfg.Config.Ciphers = legacyCiphers
		cfg.Config.KeyExchanges = legacyKeyExchanges
		cfg.HostKeyAlgorithms = legacyHostKeyAlgorithms
	}
	return cfg
}

// Connect dials the target, authenticates and starts a shell on a PTY.
func (t *SSHTransport) Connect(ctx context.Context, target ports.Target, timeout time.Duration) (ports.Channel, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	addr := net.JoinHostPort(target.Host, strconv.Itoa(target.Port))
	dialer := &net.Dialer{Timeout: timeout}
	rawConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s via SSH: %w: %v", addr, ports.ErrUnreachable, err)
	}

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = rawConn.SetDeadline(deadline)

	clientConn, chans, reqs, err := ssh.NewClientConn(rawConn, addr, t.ClientConfig(target, timeout))
	if err != nil {
		rawConn.Close()
		if strings.Contains(err.Error(), "unable to authenticate") {
			return nil, fmt.Errorf("SSH login to %s rejected: %w", addr, ports.ErrAuthFailed)
		}
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, fmt.Errorf("SSH handshake with %s: %w", addr, context.DeadlineExceeded)
		}
		return nil, fmt.Errorf("failed to establish SSH client connection to %s: %w", addr, err)
	}
	_ = rawConn.SetDeadline(time.Time{})

	client := ssh.NewClient(clientConn, chans, reqs)
	session, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create SSH session for %s: %w", addr, err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 9600,
		ssh.TTY_OP_OSPEED: 9600,
	}
	if err := session.RequestPty(t.opts.TermType, t.opts.Height, t.opts.Width, modes); err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("failed to request PTY for %s: %w", addr, err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("failed to get stdin pipe for %s: %w", addr, err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("failed to get stdout pipe for %s: %w", addr, err)
	}
	if err := session.Shell(); err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("failed to start shell for %s: %w", addr, err)
	}

	t.opts.Logger.Debug("ssh shell started", "addr", addr, "user", target.Username)

	ch := &SSHChannel{client: client, stop: make(chan struct{})}
	ch.streamChannel = newStreamChannel(stdout, stdin, func() error {
		close(ch.stop)
		session.Close()
		return client.Close()
	})
	if t.opts.KeepAlive > 0 {
		go ch.keepAlive(t.opts.KeepAlive, t.opts.Logger)
	}
	return ch, nil
}

// SSHChannel is an interactive shell over SSH. It exposes the client so file
// transfers can reuse the authenticated connection.
type SSHChannel struct {
	*streamChannel
	client *ssh.Client
	stop   chan struct{}
}

// Client returns the underlying SSH client.
func (c *SSHChannel) Client() *ssh.Client {
	return c.client
}

func (c *SSHChannel) keepAlive(interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, _, err := c.client.SendRequest("keepalive@openssh.com", true, nil); err != nil {
				logger.Warn("ssh keepalive failed, closing channel", "err", err)
				c.Close()
				return
			}
		case <-c.stop:
			return
		}
	}
}
