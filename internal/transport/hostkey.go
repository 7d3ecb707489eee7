package transport

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// HostKeyCallback builds the host key policy for SSH connections.
// With insecure set every key is accepted. Otherwise keys are checked against
// knownHostsPath, and unknown hosts are appended on first use. A changed key is
// always rejected.
func HostKeyCallback(knownHostsPath string, insecure bool) (ssh.HostKeyCallback, error) {
	if insecure {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	if knownHostsPath == "" {
		return nil, fmt.Errorf("known_hosts path is required unless host key checking is disabled")
	}
	if err := os.MkdirAll(filepath.Dir(knownHostsPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create known_hosts directory: %w", err)
	}
	f, err := os.OpenFile(knownHostsPath, os.O_CREATE|os.O_RDONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open known_hosts file %s: %w", knownHostsPath, err)
	}
	f.Close()

	tofu := &trustOnFirstUse{path: knownHostsPath}
	return tofu.check, nil
}

type trustOnFirstUse struct {
	path string
	mu   sync.Mutex
}

func (t *trustOnFirstUse) check(hostname string, remote net.Addr, key ssh.PublicKey) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	callback, err := knownhosts.New(t.path)
	if err != nil {
		return fmt.Errorf("failed to load known_hosts: %w", err)
	}
	err = callback(hostname, remote, key)
	if err == nil {
		return nil
	}
	var keyErr *knownhosts.KeyError
	if !errors.As(err, &keyErr) || len(keyErr.Want) > 0 {
		return err
	}

	line := knownhosts.Line([]string{knownhosts.Normalize(hostname)}, key)
	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open known_hosts for writing: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("failed to record host key for %s: %w", hostname, err)
	}
	return nil
}
