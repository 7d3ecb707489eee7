package transport

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carlosrabelo/terminalnator/domain/ports"
)

func TestSetFor(t *testing.T) {
	ssh := NewSSHTransport(SSHOptions{})
	telnet := NewTelnetTransport(nil)
	set := Set{SSH: ssh, Telnet: telnet}

	tests := []struct {
		name    string
		want    ports.Transport
		wantErr bool
	}{
		{"", ssh, false},
		{"ssh", ssh, false},
		{"telnet", telnet, false},
		{"serial", nil, true},
	}
	for _, tt := range tests {
		got, err := set.For(tt.name)
		if tt.wantErr {
			assert.Error(t, err, tt.name)
			continue
		}
		require.NoError(t, err, tt.name)
		assert.Same(t, tt.want, got, tt.name)
	}

	_, err := Set{}.For("telnet")
	assert.Error(t, err)
}

func listenerTarget(t *testing.T, ln net.Listener) ports.Target {
	t.Helper()
	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return ports.Target{Host: host, Port: port, Username: "admin", Password: "secret"}
}

func TestTelnetTransportConnect(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte("Username: "))
		buf := make([]byte, 64)
		conn.Read(buf)
	}()

	ch, err := NewTelnetTransport(nil).Connect(context.Background(), listenerTarget(t, ln), time.Second)
	require.NoError(t, err)
	defer ch.Close()

	login, ok := ch.(ports.LoginChannel)
	require.True(t, ok)
	seq := login.LoginSequence("admin", "secret")
	require.Len(t, seq, 2)
	assert.Equal(t, "admin", seq[0].SendCmd)

	chunk, err := ch.Read(time.Second)
	require.NoError(t, err)
	assert.Contains(t, string(chunk), "Username:")
}

func TestTelnetTransportUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	target := listenerTarget(t, ln)
	ln.Close()

	_, err = NewTelnetTransport(nil).Connect(context.Background(), target, time.Second)
	assert.ErrorIs(t, err, ports.ErrUnreachable)
}

func TestSSHTransportUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	target := listenerTarget(t, ln)
	ln.Close()

	_, err = NewSSHTransport(SSHOptions{}).Connect(context.Background(), target, time.Second)
	assert.ErrorIs(t, err, ports.ErrUnreachable)
}

func TestSSHClientConfigLegacy(t *testing.T) {
	target := ports.Target{Username: "admin", Password: "secret"}

	plain := NewSSHTransport(SSHOptions{}).ClientConfig(target, time.Second)
	assert.Empty(t, plain.Config.Ciphers)
	assert.Len(t, plain.Auth, 2)

	legacy := NewSSHTransport(SSHOptions{LegacyAlgorithms: true}).ClientConfig(target, time.Second)
	assert.Contains(t, legacy.Config.Ciphers, "aes128-cbc")
	assert.Contains(t, legacy.Config.KeyExchanges, "diffie-hellman-group1-sha1")
	assert.Equal(t, "admin", legacy.User)
}
