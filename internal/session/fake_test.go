package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/carlosrabelo/terminalnator/domain/entities"
	"github.com/carlosrabelo/terminalnator/domain/ports"
)

var errFakeClosed = errors.New("fake channel closed")

// fakeDevice is a scripted channel. respond is called for every write and
// its chunks are queued as device output.
type fakeDevice struct {
	out        chan []byte
	closed     chan struct{}
	closeOnce  sync.Once
	closeCalls atomic.Int32

	mu      sync.Mutex
	writes  []string
	respond func(input string) []string
}

func newFakeDevice(banner string, respond func(string) []string) *fakeDevice {
	d := &fakeDevice{
		out:     make(chan []byte, 256),
		closed:  make(chan struct{}),
		respond: respond,
	}
	if banner != "" {
		d.out <- []byte(banner)
	}
	return d
}

func (d *fakeDevice) Write(p []byte) error {
	select {
	case <-d.closed:
		return errFakeClosed
	default:
	}
	d.mu.Lock()
	d.writes = append(d.writes, string(p))
	respond := d.respond
	d.mu.Unlock()
	if respond == nil {
		return nil
	}
	for _, chunk := range respond(string(p)) {
		d.out <- []byte(chunk)
	}
	return nil
}

func (d *fakeDevice) Read(timeout time.Duration) ([]byte, error) {
	select {
	case <-d.closed:
		return nil, errFakeClosed
	default:
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case chunk := <-d.out:
		return chunk, nil
	case <-d.closed:
		return nil, errFakeClosed
	case <-timer.C:
		return nil, ports.ErrReadTimeout
	}
}

func (d *fakeDevice) Close() error {
	d.closeCalls.Add(1)
	d.closeOnce.Do(func() { close(d.closed) })
	return nil
}

func (d *fakeDevice) Writes() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.writes...)
}

// loginDevice is a fakeDevice that needs in-band login, like telnet.
type loginDevice struct {
	*fakeDevice
}

func (d *loginDevice) LoginSequence(username, password string) []entities.AuthPrompt {
	return entities.LoginSequence(username, password)
}

type fakeTransport struct {
	channel  ports.Channel
	err      error
	connects atomic.Int32
	target   ports.Target
}

func (t *fakeTransport) Connect(ctx context.Context, target ports.Target, timeout time.Duration) (ports.Channel, error) {
	t.connects.Add(1)
	t.target = target
	if t.err != nil {
		return nil, t.err
	}
	return t.channel, nil
}

// echoDevice answers every line with its echo, the scripted output and the
// prompt.
func echoDevice(prompt string, outputs map[string]string) func(string) []string {
	return func(input string) []string {
		cmd := strings.TrimSuffix(input, "\n")
		body := outputs[cmd]
		if body != "" {
			body += "\r\n"
		}
		return []string{cmd + "\r\n" + body + prompt}
	}
}

type recordingAudit struct {
	mu     sync.Mutex
	events []ports.Event
}

func (a *recordingAudit) Record(e ports.Event) {
	a.mu.Lock()
	a.events = append(a.events, e)
	a.mu.Unlock()
}

func (a *recordingAudit) Events() []ports.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]ports.Event(nil), a.events...)
}

func (a *recordingAudit) States() []string {
	var out []string
	for _, e := range a.Events() {
		if e.Kind == ports.EventState {
			out = append(out, e.Detail)
		}
	}
	return out
}

func (a *recordingAudit) Commands() []string {
	var out []string
	for _, e := range a.Events() {
		if e.Kind == ports.EventCommand {
			out = append(out, e.Detail)
		}
	}
	return out
}

func genericProfile() entities.Profile {
	return entities.Profile{
		ID:       1,
		Host:     "10.0.0.1",
		Port:     22,
		Username: "op",
		Family:   entities.FamilyGenericLine,
	}
}
