package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chenjunbao/secureagg/pkg/party"
	"github.com/chenjunbao/secureagg/pkg/wire"
)

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	in := ConsistencyReply{ID: party.ID("party-1"), Dissent: true}

	b, err := Marshal(in)
	require.NoError(t, err)

	var out ConsistencyReply
	require.NoError(t, Unmarshal(b, &out))
	assert.Equal(t, in, out)
}

func TestUnmarshalWrapsDecodeError(t *testing.T) {
	var out ConsistencyReply
	err := Unmarshal([]byte{0xff, 0xff, 0xff}, &out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, wire.ErrDecode))
}

func TestNewPushRoundTrip(t *testing.T) {
	in := ConsistencyReply{ID: party.ID("party-2")}
	push, err := NewPush("consistency-reply", in)
	require.NoError(t, err)
	assert.Equal(t, "consistency-reply", push.Kind)

	var out ConsistencyReply
	require.NoError(t, Unmarshal(push.Body, &out))
	assert.Equal(t, in, out)
}

func TestCanonicalIDsIsSorted(t *testing.T) {
	set := map[party.ID]struct{}{"charlie": {}, "alice": {}, "bob": {}}
	got := CanonicalIDs(set)
	assert.Equal(t, []party.ID{"alice", "bob", "charlie"}, got)
}
