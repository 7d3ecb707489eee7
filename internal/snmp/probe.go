// Package snmp identifies a device's operating system from its SNMP sysDescr
// without opening a shell session.
package snmp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/carlosrabelo/terminalnator/internal/logging"
	"github.com/carlosrabelo/terminalnator/platform"
)

const (
	OIDSysDescr = ".1.3.6.1.2.1.1.1.0"
	OIDSysName  = ".1.3.6.1.2.1.1.5.0"

	DefaultPort    = 161
	DefaultTimeout = 2 * time.Second
)

// SystemInfo is what a probe learned about a device
type SystemInfo struct {
	Host     string
	Descr    string
	Name     string
	Platform platform.Driver // nil when sysDescr matched no driver
}

// querier is the subset of gosnmp.GoSNMP the prober uses
type querier interface {
	Get(oids []string) (*gosnmp.SnmpPacket, error)
	Close() error
}

type gosnmpQuerier struct {
	*gosnmp.GoSNMP
}

func (q gosnmpQuerier) Close() error {
	if q.Conn == nil {
		return nil
	}
	return q.Conn.Close()
}

// Prober queries devices with SNMP v2c
type Prober struct {
	Community string
	Port      uint16
	Timeout   time.Duration
	Retries   int
	Logger    *slog.Logger

	dial func(ctx context.Context, host string) (querier, error)
}

// NewProber returns a prober for the given community.
func NewProber(community string, port int, timeout time.Duration, logger *slog.Logger) *Prober {
	if port == 0 {
		port = DefaultPort
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Prober{
		Community: community,
		Port:      uint16(port),
		Timeout:   timeout,
		Retries:   1,
		Logger:    logger,
	}
	p.dial = p.connect
	return p
}

func (p *Prober) connect(ctx context.Context, host string) (querier, error) {
	client := &gosnmp.GoSNMP{
		Target:    host,
		Port:      p.Port,
		Community: p.Community,
		Version:   gosnmp.Version2c,
		Timeout:   p.Timeout,
		Retries:   p.Retries,
		Transport: "udp",
		Context:   ctx,
	}
	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to %s via SNMP: %w", host, err)
	}
	return gosnmpQuerier{client}, nil
}

// Probe reads sysDescr and sysName from host and matches a platform driver.
func (p *Prober) Probe(ctx context.Context, host string) (SystemInfo, error) {
	info := SystemInfo{Host: host}
	q, err := p.dial(ctx, host)
	if err != nil {
		return info, err
	}
	defer q.Close()

	result, err := q.Get([]string{OIDSysDescr, OIDSysName})
	if err != nil {
		return info, fmt.Errorf("failed to query system group on %s: %w", host, err)
	}
	if result.Error != gosnmp.NoError {
		return info, fmt.Errorf("snmp error from %s: %s", host, result.Error)
	}

	for _, v := range result.Variables {
		switch v.Name {
		case OIDSysDescr:
			info.Descr = decodeString(v)
		case OIDSysName:
			info.Name = decodeString(v)
		}
	}
	if info.Descr == "" {
		return info, fmt.Errorf("sysDescr not returned by %s", host)
	}

	p.Logger.Debug("snmp system group", "host", host, "sys_name", info.Name)
	drv, err := platform.Detect(info.Descr)
	if err != nil {
		return info, err
	}
	info.Platform = drv
	return info, nil
}

func decodeString(v gosnmp.SnmpPDU) string {
	switch v.Type {
	case gosnmp.OctetString:
		if b, ok := v.Value.([]byte); ok {
			return strings.TrimSpace(string(b))
		}
	case gosnmp.NoSuchObject, gosnmp.NoSuchInstance, gosnmp.Null:
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%v", v.Value))
}
