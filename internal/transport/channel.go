package transport

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/carlosrabelo/terminalnator/domain/ports"
)

// BufferSize is the read chunk size used when pumping device output.
const BufferSize = 4096

// ErrChannelClosed is returned by operations on a closed channel.
var ErrChannelClosed = errors.New("channel closed")

// streamChannel adapts a blocking reader/writer pair to ports.Channel. A pump
// goroutine owns the reader so Read can time out without touching deadlines.
type streamChannel struct {
	w       io.Writer
	data    chan []byte
	failed  chan struct{}
	done    chan struct{}
	readErr error

	closeFn   func() error
	closeOnce sync.Once
	closeErr  error
	writeMu   sync.Mutex
}

func newStreamChannel(r io.Reader, w io.Writer, closeFn func() error) *streamChannel {
	c := &streamChannel{
		w:       w,
		data:    make(chan []byte, 64),
		failed:  make(chan struct{}),
		done:    make(chan struct{}),
		closeFn: closeFn,
	}
	go c.pump(r)
	return c
}

func (c *streamChannel) pump(r io.Reader) {
	buffer := make([]byte, BufferSize)
	for {
		n, err := r.Read(buffer)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buffer[:n])
			select {
			case c.data <- chunk:
			case <-c.done:
				return
			}
		}
		if err != nil {
			c.readErr = err
			close(c.failed)
			return
		}
	}
}

// Write sends raw bytes to the device.
func (c *streamChannel) Write(p []byte) error {
	select {
	case <-c.done:
		return ErrChannelClosed
	default:
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := c.w.Write(p)
	return err
}

// Read returns the next chunk of output or ports.ErrReadTimeout.
func (c *streamChannel) Read(timeout time.Duration) ([]byte, error) {
	select {
	case <-c.done:
		return nil, ErrChannelClosed
	default:
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case chunk := <-c.data:
		return chunk, nil
	case <-c.failed:
		select {
		case chunk := <-c.data:
			return chunk, nil
		default:
		}
		return nil, c.readErr
	case <-c.done:
		return nil, ErrChannelClosed
	case <-timer.C:
		return nil, ports.ErrReadTimeout
	}
}

// Close releases the underlying connection once.
func (c *streamChannel) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.closeFn != nil {
			c.closeErr = c.closeFn()
		}
	})
	return c.closeErr
}
