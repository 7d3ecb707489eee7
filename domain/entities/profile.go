package entities

import (
	"net"
	"strconv"
)

const (
	TransportSSH    = "ssh"
	TransportTelnet = "telnet"

	DefaultSSHPort    = 22
	DefaultTelnetPort = 23
)

// Profile stores how to reach one device. Passwords are never part of it.
type Profile struct {
	ID        int          `yaml:"id" json:"id"`
	Host      string       `yaml:"host" json:"host"`
	Port      int          `yaml:"port" json:"port"`
	Username  string       `yaml:"username" json:"username"`
	Family    DeviceFamily `yaml:"device_family" json:"device_family"`
	Transport string       `yaml:"transport,omitempty" json:"transport,omitempty"`
	Platform  string       `yaml:"platform,omitempty" json:"platform,omitempty"`
}

// Address returns host:port, defaulting the port from the transport.
func (p Profile) Address() string {
	port := p.Port
	if port == 0 {
		port = DefaultPort(p.TransportName())
	}
	return net.JoinHostPort(p.Host, strconv.Itoa(port))
}

// TransportName returns the configured transport, ssh when unset.
func (p Profile) TransportName() string {
	if p.Transport == "" {
		return TransportSSH
	}
	return p.Transport
}

// DefaultPort returns the well-known port of a transport.
func DefaultPort(transport string) int {
	if transport == TransportTelnet {
		return DefaultTelnetPort
	}
	return DefaultSSHPort
}

// Credentials are supplied per connect and never persisted.
type Credentials struct {
	Password string
	Secret   string // privilege escalation secret
}
