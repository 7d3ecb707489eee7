package transport

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carlosrabelo/terminalnator/domain/ports"
)

func newPipeChannel(t *testing.T) (*streamChannel, *io.PipeWriter, *io.PipeReader) {
	t.Helper()
	deviceOut, deviceOutW := io.Pipe()
	deviceInR, deviceIn := io.Pipe()
	ch := newStreamChannel(deviceOut, deviceIn, func() error {
		deviceOutW.Close()
		return deviceIn.Close()
	})
	t.Cleanup(func() { ch.Close() })
	return ch, deviceOutW, deviceInR
}

func TestStreamChannelRead(t *testing.T) {
	ch, device, _ := newPipeChannel(t)

	go device.Write([]byte("Router#"))

	chunk, err := ch.Read(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "Router#", string(chunk))
}

func TestStreamChannelReadTimeout(t *testing.T) {
	ch, _, _ := newPipeChannel(t)

	_, err := ch.Read(20 * time.Millisecond)
	assert.ErrorIs(t, err, ports.ErrReadTimeout)
}

func TestStreamChannelWrite(t *testing.T) {
	ch, _, deviceIn := newPipeChannel(t)

	received := make(chan string, 1)
	go func() {
		buf := make([]byte, 64)
		n, _ := deviceIn.Read(buf)
		received <- string(buf[:n])
	}()

	require.NoError(t, ch.Write([]byte("show version\n")))
	select {
	case got := <-received:
		assert.Equal(t, "show version\n", got)
	case <-time.After(time.Second):
		t.Fatal("write never reached the device")
	}
}

func TestStreamChannelRemoteClose(t *testing.T) {
	ch, device, _ := newPipeChannel(t)

	go func() {
		device.Write([]byte("bye"))
		device.Close()
	}()

	chunk, err := ch.Read(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "bye", string(chunk))

	_, err = ch.Read(time.Second)
	assert.ErrorIs(t, err, io.EOF)
}

func TestStreamChannelCloseIdempotent(t *testing.T) {
	ch, _, _ := newPipeChannel(t)

	calls := 0
	inner := ch.closeFn
	ch.closeFn = func() error {
		calls++
		return inner()
	}

	assert.NoError(t, ch.Close())
	assert.NoError(t, ch.Close())
	assert.Equal(t, 1, calls)

	assert.ErrorIs(t, ch.Write([]byte("x")), ErrChannelClosed)
	_, err := ch.Read(time.Second)
	assert.ErrorIs(t, err, ErrChannelClosed)
}
