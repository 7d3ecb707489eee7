package transport

import (
	"fmt"

	"github.com/carlosrabelo/terminalnator/domain/entities"
	"github.com/carlosrabelo/terminalnator/domain/ports"
)

// Set holds one transport per wire protocol.
type Set struct {
	SSH    ports.Transport
	Telnet ports.Transport
}

// For returns the transport registered for a protocol name. An empty name
// selects SSH.
func (s Set) For(name string) (ports.Transport, error) {
	switch name {
	case "", entities.TransportSSH:
		if s.SSH == nil {
			return nil, fmt.Errorf("ssh transport not configured")
		}
		return s.SSH, nil
	case entities.TransportTelnet:
		if s.Telnet == nil {
			return nil, fmt.Errorf("telnet transport not configured")
		}
		return s.Telnet, nil
	default:
		return nil, fmt.Errorf("unsupported transport: %s", name)
	}
}
