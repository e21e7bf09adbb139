package aggregator

import (
	"net"
	"time"

	"github.com/chenjunbao/secureagg/internal/protocol"
	"github.com/chenjunbao/secureagg/pkg/crypto/shamir"
	"github.com/chenjunbao/secureagg/pkg/party"
	"github.com/chenjunbao/secureagg/pkg/vector"
)

// roundCtx is the round-scoped state for one execution of the
// protocol, owned by Server.RunRound and torn down at the end of it.
// This replaces the source's global phase-handler state (spec §9):
// every handler receives a pointer to the round's own roundCtx instead
// of mutating class-level fields shared across rounds.
type roundCtx struct {
	roundID []byte

	advertiseBarrier  *barrier[protocol.AdvertiseMsg]
	shareBarrier      *barrier[protocol.ShareMsg]
	maskBarrier       *barrier[protocol.MaskedMsg]
	consistencyBarrier *barrier[protocol.ConsistencyReply]
	unmaskBarrier     *barrier[protocol.UnmaskMsg]

	u1, u2, u3, u4 map[party.ID]struct{}

	keyDir        map[party.ID]protocol.KeyBundle
	inboxAddrs    map[party.ID]string
	broadcastAddrs map[party.ID]string

	// inbox[v][u] = ciphertext u addressed to v in phase 2.
	inbox map[party.ID]map[party.ID][]byte

	maskedY map[party.ID]vector.Vector

	consSigs    map[party.ID][]byte
	dissentedAt map[party.ID]time.Time

	privKeyShares map[party.ID][]shamir.Share
	seedShares    map[party.ID][]shamir.Share

	// udpConn is the aggregator's send-only socket for the phase-1
	// key-directory delivery (spec §4.2's per-client UDP unicast).
	udpConn *net.UDPConn
}

func newRoundCtx(roundID []byte) *roundCtx {
	return &roundCtx{
		roundID:            roundID,
		advertiseBarrier:   newBarrier[protocol.AdvertiseMsg](),
		shareBarrier:       newBarrier[protocol.ShareMsg](),
		maskBarrier:        newBarrier[protocol.MaskedMsg](),
		consistencyBarrier: newBarrier[protocol.ConsistencyReply](),
		unmaskBarrier:      newBarrier[protocol.UnmaskMsg](),
		keyDir:             make(map[party.ID]protocol.KeyBundle),
		inboxAddrs:         make(map[party.ID]string),
		broadcastAddrs:     make(map[party.ID]string),
		inbox:              make(map[party.ID]map[party.ID][]byte),
		maskedY:            make(map[party.ID]vector.Vector),
		consSigs:           make(map[party.ID][]byte),
		dissentedAt:        make(map[party.ID]time.Time),
		privKeyShares:      make(map[party.ID][]shamir.Share),
		seedShares:         make(map[party.ID][]shamir.Share),
	}
}

// dialInbox opens a short-lived TCP connection to id's registered
// inbox address.
func (r *roundCtx) dialInbox(id party.ID) (net.Conn, error) {
	return net.Dial("tcp", r.inboxAddrs[id])
}
