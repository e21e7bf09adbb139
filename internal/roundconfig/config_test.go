package roundconfig

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultThreshold(t *testing.T) {
	assert.Equal(t, 4, DefaultThreshold(5))
	assert.Equal(t, 8, DefaultThreshold(10))
	assert.Equal(t, 1, DefaultThreshold(1))
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default(5, 10)
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadFields(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"n too low", Config{N: 0, T: 1, W: time.Second, ShapeSize: 1, ConsistencyGrace: time.Second}},
		{"t too low", Config{N: 5, T: 0, W: time.Second, ShapeSize: 1, ConsistencyGrace: time.Second}},
		{"t exceeds n", Config{N: 5, T: 6, W: time.Second, ShapeSize: 1, ConsistencyGrace: time.Second}},
		{"non-positive wait", Config{N: 5, T: 4, W: 0, ShapeSize: 1, ConsistencyGrace: time.Second}},
		{"non-positive shape", Config{N: 5, T: 4, W: time.Second, ShapeSize: 0, ConsistencyGrace: time.Second}},
		{"non-positive grace", Config{N: 5, T: 4, W: time.Second, ShapeSize: 1, ConsistencyGrace: 0}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Error(t, c.cfg.Validate())
		})
	}
}

func TestResolveAddr(t *testing.T) {
	addr := &net.TCPAddr{IP: net.IPv4zero, Port: 20000}
	assert.Equal(t, "127.0.0.1:20000", ResolveAddr(addr))
}
