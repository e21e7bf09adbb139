package wire

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastReceiveRoundTrip(t *testing.T) {
	recvConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer recvConn.Close()

	sendConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer sendConn.Close()

	payload := make([]byte, DatagramSize*2+37)
	for i := range payload {
		payload[i] = byte(i)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- BroadcastPayload(sendConn, recvConn.LocalAddr().(*net.UDPAddr), payload)
	}()

	got, err := ReceiveBroadcast(recvConn)
	require.NoError(t, err)
	require.NoError(t, <-errCh)
	assert.Equal(t, payload, got)
}
