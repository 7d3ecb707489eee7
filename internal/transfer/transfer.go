// Package transfer copies configuration files to and from devices over the
// SSH connection of an open session.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	scp "github.com/bramvdbogaerde/go-scp"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/carlosrabelo/terminalnator/domain/ports"
)

const (
	ProtocolSCP  = "scp"
	ProtocolSFTP = "sftp"

	// DefaultPermissions is the mode given to files uploaded over scp.
	DefaultPermissions = "0644"
)

// ErrNoSSHClient is returned for channels that are not backed by SSH.
var ErrNoSSHClient = errors.New("transfer requires an ssh session")

// Client moves files between the local host and a device.
type Client interface {
	Upload(ctx context.Context, r io.Reader, size int64, remotePath string) error
	Download(ctx context.Context, remotePath string, w io.Writer) error
	Close() error
}

// ClientFrom extracts the ssh client from a session channel.
func ClientFrom(ch ports.Channel) (*ssh.Client, error) {
	provider, ok := ch.(interface{ Client() *ssh.Client })
	if !ok || provider.Client() == nil {
		return nil, ErrNoSSHClient
	}
	return provider.Client(), nil
}

// New opens a transfer client of the given protocol on an ssh connection.
func New(conn *ssh.Client, protocol string) (Client, error) {
	switch protocol {
	case ProtocolSCP:
		c, err := scp.NewClientBySSH(conn)
		if err != nil {
			return nil, fmt.Errorf("failed to create scp client: %w", err)
		}
		return &scpClient{client: c}, nil
	case ProtocolSFTP, "":
		c, err := sftp.NewClient(conn)
		if err != nil {
			return nil, fmt.Errorf("failed to create sftp client: %w", err)
		}
		return NewSFTP(c), nil
	default:
		return nil, fmt.Errorf("unsupported transfer protocol %q", protocol)
	}
}

// UploadFile copies a local file to remotePath.
func UploadFile(ctx context.Context, c Client, localPath, remotePath string) (int64, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open local file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to get file info: %w", err)
	}
	if err := c.Upload(ctx, f, info.Size(), remotePath); err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// DownloadFile copies remotePath into a new local file.
func DownloadFile(ctx context.Context, c Client, remotePath, localPath string) error {
	f, err := os.OpenFile(localPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create local file: %w", err)
	}
	if err := c.Download(ctx, remotePath, f); err != nil {
		f.Close()
		os.Remove(localPath)
		return err
	}
	return f.Close()
}

type scpClient struct {
	client scp.Client
}

func (c *scpClient) Upload(ctx context.Context, r io.Reader, size int64, remotePath string) error {
	if err := c.client.CopyPassThru(ctx, r, remotePath, DefaultPermissions, size, nil); err != nil {
		return fmt.Errorf("scp upload to %s: %w", remotePath, err)
	}
	return nil
}

func (c *scpClient) Download(ctx context.Context, remotePath string, w io.Writer) error {
	if err := c.client.CopyFromRemotePassThru(ctx, w, remotePath, nil); err != nil {
		return fmt.Errorf("scp download of %s: %w", remotePath, err)
	}
	return nil
}

func (c *scpClient) Close() error {
	c.client.Close()
	return nil
}

// SFTPClient implements Client on top of an sftp session.
type SFTPClient struct {
	client *sftp.Client
}

// NewSFTP wraps an existing sftp client.
func NewSFTP(c *sftp.Client) *SFTPClient {
	return &SFTPClient{client: c}
}

// Upload writes r to remotePath, truncating an existing file.
func (c *SFTPClient) Upload(ctx context.Context, r io.Reader, size int64, remotePath string) error {
	stop := context.AfterFunc(ctx, func() { c.client.Close() })
	defer stop()

	dst, err := c.client.Create(remotePath)
	if err != nil {
		return c.wrap(ctx, fmt.Errorf("failed to create remote file %s: %w", remotePath, err))
	}
	n, err := io.Copy(dst, r)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return c.wrap(ctx, fmt.Errorf("sftp upload to %s: %w", remotePath, err))
	}
	if size >= 0 && n != size {
		return fmt.Errorf("sftp upload to %s: wrote %d of %d bytes", remotePath, n, size)
	}
	return nil
}

// Download copies remotePath into w.
func (c *SFTPClient) Download(ctx context.Context, remotePath string, w io.Writer) error {
	stop := context.AfterFunc(ctx, func() { c.client.Close() })
	defer stop()

	src, err := c.client.Open(remotePath)
	if err != nil {
		return c.wrap(ctx, fmt.Errorf("failed to open remote file %s: %w", remotePath, err))
	}
	defer src.Close()
	if _, err := io.Copy(w, src); err != nil {
		return c.wrap(ctx, fmt.Errorf("sftp download of %s: %w", remotePath, err))
	}
	return nil
}

// Close ends the sftp session. The ssh connection stays open.
func (c *SFTPClient) Close() error {
	return c.client.Close()
}

func (c *SFTPClient) wrap(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ctx.Err(), err)
	}
	return err
}
