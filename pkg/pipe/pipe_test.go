package pipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipe_WriteThenRead(t *testing.T) {
	p, err := New(false)
	require.Nil(t, err)
	defer p.Close()

	msg := []byte("failed to exec within child process: no such file or directory")
	require.Nil(t, p.Write(msg))

	buf, err := p.Read()
	require.Nil(t, err)
	assert.Equal(t, msg, buf)
}

func TestPipe_ReadAfterWriteEndClosed(t *testing.T) {
	p, err := New(false)
	require.Nil(t, err)
	defer p.Close()

	// nothing written, closing the write end signals success
	p.CloseWrite()

	buf, err := p.Read()
	require.Nil(t, err)
	assert.Len(t, buf, 0)
}

func TestPipe_IdempotentClose(t *testing.T) {
	p, err := New(false)
	require.Nil(t, err)

	p.CloseRead()
	p.CloseRead()
	p.CloseWrite()
	p.CloseWrite()

	assert.Equal(t, -1, p.ReadFd())
	assert.Equal(t, -1, p.WriteFd())

	// teardown after explicit closes must not double-release
	p.Close()
	p.Close()
}

func TestPipe_CloseOnExecFlag(t *testing.T) {
	p, err := New(true)
	require.Nil(t, err)
	defer p.Close()

	assert.NotEqual(t, -1, p.ReadFd())
	assert.NotEqual(t, -1, p.WriteFd())
}
