package wire

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("phase-1 advertise message")

	require.NoError(t, WriteFrame(&buf, payload))
	got, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestWriteFrameRejectsOversizedPayload(t *testing.T) {
	var buf bytes.Buffer
	err := WriteFrame(&buf, make([]byte, MaxFrameSize+1))
	assert.Error(t, err)
}

func TestReadFrameReportsTruncatedStream(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("hello world")))

	truncated := bytes.NewReader(buf.Bytes()[:6])
	_, err := ReadFrame(truncated)
	assert.True(t, errors.Is(err, ErrTransport))
}

func TestReadFrameRejectsOversizedLengthPrefix(t *testing.T) {
	var lenBuf [4]byte
	lenBuf[0] = 0xff // trivially larger than MaxFrameSize
	_, err := ReadFrame(bytes.NewReader(lenBuf[:]))
	assert.True(t, errors.Is(err, ErrTransport))
}
