// Package client implements the participant side of the five-phase
// protocol (spec §4.4): a linear five-step program backed by two
// background listener goroutines (a UDP listener for the key
// directory and a TCP listener for inbox and consistency pushes) that
// feed the main flow over channels, grounded on the generate-then-wait-for-peers shape of the
// teacher's keygen rounds and wired to `golang.org/x/sync/errgroup`
// for the listener lifecycle the same way the teacher uses it for its
// own concurrent round handlers.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chenjunbao/secureagg/internal/keydir"
	"github.com/chenjunbao/secureagg/internal/protocol"
	"github.com/chenjunbao/secureagg/internal/roundconfig"
	"github.com/chenjunbao/secureagg/pkg/crypto/aead"
	"github.com/chenjunbao/secureagg/pkg/crypto/curvegroup"
	"github.com/chenjunbao/secureagg/pkg/crypto/prg"
	"github.com/chenjunbao/secureagg/pkg/crypto/shamir"
	"github.com/chenjunbao/secureagg/pkg/crypto/signer"
	"github.com/chenjunbao/secureagg/pkg/crypto/transcript"
	"github.com/chenjunbao/secureagg/pkg/party"
	"github.com/chenjunbao/secureagg/pkg/vector"
	"github.com/chenjunbao/secureagg/pkg/wire"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Client is one round participant.
type Client struct {
	ID         party.ID
	LongTermSK *secp256k1.PrivateKey
	LongTerm   keydir.Directory

	ServerAddrs roundconfig.ServerAddrs

	// InboxListenAddr and BroadcastListenAddr are the local addresses
	// this client binds (e.g. ":0" to let the OS pick a free port, or a
	// fixed ":20010" in a real deployment).
	InboxListenAddr     string
	BroadcastListenAddr string

	// InboxAdvertiseAddr and BroadcastAdvertiseAddr are what the
	// aggregator is told to dial back (spec §6 "Inbox delivery"/
	// "Consistency"). If empty, they default to the bound listener's
	// own port on 127.0.0.1 — the common case for same-host simulation,
	// where InboxListenAddr is ":0" and the advertised port can only be
	// known after binding.
	InboxAdvertiseAddr     string
	BroadcastAdvertiseAddr string

	Config roundconfig.Config
	Input  vector.Vector

	// DropAfterPhase simulates a dropout for testing (spec §8 "Concrete
	// end-to-end scenarios"): 0 means complete the round normally;
	// N in [1,4] means complete phases 1..N and then stop without
	// submitting phase N+1, the same as a client that silently
	// disappears mid-round.
	DropAfterPhase int

	Log *slog.Logger
}

// Run executes one round to completion and returns the first error
// the client's flow hit, or nil once it finished (or simulated a
// dropout via DropAfterPhase).
func (c *Client) Run(ctx context.Context, roundID []byte) error {
	if c.Log == nil {
		c.Log = slog.Default()
	}
	rs := newRoundState()

	g, gctx := errgroup.WithContext(ctx)
	pushListener, err := net.Listen("tcp", c.InboxListenAddr)
	if err != nil {
		return fmt.Errorf("client: listening on inbox addr: %w", err)
	}
	defer pushListener.Close()

	broadcastConn, err := net.ListenPacket("udp", c.BroadcastListenAddr)
	if err != nil {
		return fmt.Errorf("client: listening on broadcast addr: %w", err)
	}
	defer broadcastConn.Close()
	udpConn, ok := broadcastConn.(*net.UDPConn)
	if !ok {
		return fmt.Errorf("client: broadcast socket is not udp")
	}

	inboxAdvertise := c.InboxAdvertiseAddr
	if inboxAdvertise == "" {
		inboxAdvertise = advertiseAddr(pushListener.Addr())
	}
	broadcastAdvertise := c.BroadcastAdvertiseAddr
	if broadcastAdvertise == "" {
		broadcastAdvertise = advertiseAddr(udpConn.LocalAddr())
	}

	g.Go(func() error { return c.runPushListener(gctx, pushListener, rs) })
	g.Go(func() error { return c.runBroadcastListener(gctx, udpConn, rs) })

	flowErr := make(chan error, 1)
	g.Go(func() error {
		err := c.runFlow(gctx, roundID, rs, inboxAdvertise, broadcastAdvertise)
		flowErr <- err
		return err
	})

	select {
	case err := <-flowErr:
		pushListener.Close()
		udpConn.Close()
		_ = g.Wait()
		return err
	case <-gctx.Done():
		return g.Wait()
	}
}

// runPushListener accepts every aggregator-initiated connection
// (inbox delivery, consistency push and redistribution) and routes
// the envelope's body to the matching channel in rs.
func (c *Client) runPushListener(ctx context.Context, l net.Listener, rs *roundState) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return nil
			}
		}
		go func() {
			defer conn.Close()
			var env protocol.PushMessage
			body, err := wire.ReadFrame(conn)
			if err != nil {
				c.Log.Warn("client: malformed push", "err", err)
				return
			}
			if err := protocol.Unmarshal(body, &env); err != nil {
				c.Log.Warn("client: malformed push envelope", "err", err)
				return
			}
			switch env.Kind {
			case protocol.PushKindInbox:
				var m protocol.Inbox
				if err := protocol.Unmarshal(env.Body, &m); err == nil {
					rs.inboxCh <- m
				}
			case protocol.PushKindConsistencyRequest:
				var m protocol.ConsistencyRequest
				if err := protocol.Unmarshal(env.Body, &m); err == nil {
					rs.consReqCh <- m
				}
			case protocol.PushKindConsistencyBroadcast:
				var m protocol.ConsistencyBroadcast
				if err := protocol.Unmarshal(env.Body, &m); err == nil {
					rs.consBcastCh <- m
				}
			}
		}()
	}
}

func (c *Client) runBroadcastListener(ctx context.Context, conn *net.UDPConn, rs *roundState) error {
	for {
		payload, err := wire.ReceiveBroadcast(conn)
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return nil
			}
		}
		var dir protocol.KeyDir
		if err := protocol.Unmarshal(payload, &dir); err != nil {
			c.Log.Warn("client: malformed key directory", "err", err)
			continue
		}
		rs.keyDirCh <- dir
	}
}

func dial(addr string) (net.Conn, error) {
	return net.DialTimeout("tcp", addr, 10*time.Second)
}

func sendFrame(addr string, v interface{}) error {
	body, err := protocol.Marshal(v)
	if err != nil {
		return err
	}
	conn, err := dial(addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	return wire.WriteFrame(conn, body)
}

// runFlow is the five linear steps of spec §4.4.
func (c *Client) runFlow(ctx context.Context, roundID []byte, rs *roundState, inboxAdvertise, broadcastAdvertise string) error {
	// Step 1: generate ephemeral keys, advertise, receive the directory.
	keys, err := generateEphemeral()
	if err != nil {
		return fmt.Errorf("client %s: generating ephemeral keys: %w", c.ID, err)
	}
	bundle := protocol.KeyBundle{
		ID:   c.ID,
		CPub: curvegroup.MarshalPub(keys.c.Pub),
		SPub: curvegroup.MarshalPub(keys.s.Pub),
	}
	bundle.Sig = signer.Sign(c.LongTermSK, bundle.SignedBytes())
	adv := protocol.AdvertiseMsg{
		Bundle:        bundle,
		InboxAddr:     inboxAdvertise,
		BroadcastAddr: broadcastAdvertise,
	}
	if err := sendFrame(c.ServerAddrs.Advertise, adv); err != nil {
		return fmt.Errorf("client %s: advertising: %w", c.ID, err)
	}

	var keyDir protocol.KeyDir
	select {
	case keyDir = <-rs.keyDirCh:
	case <-time.After(c.Config.W):
		return fmt.Errorf("client %s: timed out waiting for key directory", c.ID)
	case <-ctx.Done():
		return ctx.Err()
	}
	u1 := make(party.IDSlice, 0, len(keyDir.Entries))
	for id := range keyDir.Entries {
		if id != c.ID {
			u1 = append(u1, id)
		}
	}
	u1 = u1.Sort()
	for _, id := range u1 {
		peer := keyDir.Entries[id]
		longTerm, ok := c.LongTerm[id]
		if !ok || !signer.Verify(longTerm, peer.SignedBytes(), peer.Sig) {
			return fmt.Errorf("client %s: peer %s: %w", c.ID, id, ErrSignatureInvalid)
		}
	}
	if c.DropAfterPhase == 1 {
		return nil
	}

	// Step 2: split and distribute shares of our ephemeral scalar and
	// self-mask seed, then collect what peers sent us.
	selfSeed, err := randomSeed()
	if err != nil {
		return fmt.Errorf("client %s: drawing self-mask seed: %w", c.ID, err)
	}
	n := len(u1)
	skShares, err := shamir.Split(curvegroup.MarshalPriv(keys.s.Priv), c.Config.T, n)
	if err != nil {
		return fmt.Errorf("client %s: splitting private key: %w", c.ID, err)
	}
	seedShares, err := shamir.Split(seedBytes(selfSeed), c.Config.T, n)
	if err != nil {
		return fmt.Errorf("client %s: splitting seed: %w", c.ID, err)
	}

	cts := make(map[party.ID][]byte, n)
	for i, peerID := range u1 {
		peer := keyDir.Entries[peerID]
		peerCPub, err := curvegroup.UnmarshalPub(peer.CPub)
		if err != nil {
			return fmt.Errorf("client %s: parsing %s's c_pub: %w", c.ID, peerID, err)
		}
		shared, err := curvegroup.Agree(keys.c.Priv, peerCPub)
		if err != nil {
			return fmt.Errorf("client %s: agreeing with %s: %w", c.ID, peerID, err)
		}
		key := transcript.KDF(shared)
		nonce := transcript.Nonce(string(c.ID), string(peerID), roundID)
		payload := protocol.SharePayload{
			From:      c.ID,
			To:        peerID,
			ShareSK:   protocol.ShareXY(skShares[i]),
			ShareSeed: protocol.ShareXY(seedShares[i]),
		}
		plaintext, err := protocol.Marshal(payload)
		if err != nil {
			return fmt.Errorf("client %s: encoding share for %s: %w", c.ID, peerID, err)
		}
		ct, err := aead.Encrypt(key, nonce, plaintext)
		if err != nil {
			return fmt.Errorf("client %s: sealing share for %s: %w", c.ID, peerID, err)
		}
		cts[peerID] = ct
	}
	if err := sendFrame(c.ServerAddrs.Share, protocol.ShareMsg{ID: c.ID, Cts: cts}); err != nil {
		return fmt.Errorf("client %s: submitting shares: %w", c.ID, err)
	}

	var inbox protocol.Inbox
	select {
	case inbox = <-rs.inboxCh:
	case <-time.After(c.Config.W):
		return fmt.Errorf("client %s: timed out waiting for inbox", c.ID)
	case <-ctx.Done():
		return ctx.Err()
	}

	receivedSK := make(map[party.ID]shamir.Share)
	receivedSeed := make(map[party.ID]shamir.Share)
	u2 := make(party.IDSlice, 0, len(inbox.Cts)+1)
	u2 = append(u2, c.ID)
	for senderID, ct := range inbox.Cts {
		sender, ok := keyDir.Entries[senderID]
		if !ok {
			continue
		}
		senderCPub, err := curvegroup.UnmarshalPub(sender.CPub)
		if err != nil {
			continue
		}
		shared, err := curvegroup.Agree(keys.c.Priv, senderCPub)
		if err != nil {
			continue
		}
		key := transcript.KDF(shared)
		nonce := transcript.Nonce(string(senderID), string(c.ID), roundID)
		plaintext, err := aead.Decrypt(key, nonce, ct)
		if err != nil {
			c.Log.Warn("client: dropping undecryptable share", "from", senderID, "err", err)
			continue
		}
		var payload protocol.SharePayload
		if err := protocol.Unmarshal(plaintext, &payload); err != nil {
			continue
		}
		receivedSK[senderID] = shamir.Share(payload.ShareSK)
		receivedSeed[senderID] = shamir.Share(payload.ShareSeed)
		u2 = append(u2, senderID)
	}
	u2 = u2.Sort()
	if c.DropAfterPhase == 2 {
		return nil
	}

	// Step 3: compute and submit the masked input.
	y, err := c.computeMaskedInput(keys, keyDir, u2, selfSeed)
	if err != nil {
		return fmt.Errorf("client %s: masking input: %w", c.ID, err)
	}
	if err := sendFrame(c.ServerAddrs.Masking, protocol.MaskedMsg{ID: c.ID, Y: []float64(y)}); err != nil {
		return fmt.Errorf("client %s: submitting masked input: %w", c.ID, err)
	}
	if c.DropAfterPhase == 3 {
		return nil
	}

	// Step 4: acknowledge the proposed survivor set, then verify every
	// signature the aggregator redistributes before trusting U4.
	var req protocol.ConsistencyRequest
	select {
	case req = <-rs.consReqCh:
	case <-time.After(c.Config.W):
		return fmt.Errorf("client %s: timed out waiting for consistency request", c.ID)
	case <-ctx.Done():
		return ctx.Err()
	}
	u3ids := party.IDSlice(req.U3).Sort()
	expectBytes := transcript.HashSet(party.Strings(u3ids))
	sig := signer.Sign(c.LongTermSK, expectBytes)
	if err := sendFrame(c.ServerAddrs.Consistency, protocol.ConsistencyReply{ID: c.ID, Sig: sig}); err != nil {
		return fmt.Errorf("client %s: submitting consistency ack: %w", c.ID, err)
	}

	var bcast protocol.ConsistencyBroadcast
	select {
	case bcast = <-rs.consBcastCh:
	case <-time.After(c.Config.W):
		return fmt.Errorf("client %s: timed out waiting for consistency redistribution", c.ID)
	case <-ctx.Done():
		return ctx.Err()
	}
	for _, id := range u3ids {
		longTerm, ok := c.LongTerm[id]
		s, present := bcast.Sigs[id]
		if !ok || !present || !signer.Verify(longTerm, expectBytes, s) {
			// spec §4.4 step 4: a mismatch sends dissent on the same
			// endpoint as the signed reply, distinguished by an explicit
			// field (spec §9 object-graph-serializer REDESIGN FLAG), then
			// the client aborts locally without waiting for the round to
			// fail through the aggregator's grace window.
			if derr := sendFrame(c.ServerAddrs.Consistency, protocol.ConsistencyReply{ID: c.ID, Dissent: true}); derr != nil {
				c.Log.Warn("client: dissent delivery failed", "err", derr)
			}
			return fmt.Errorf("client %s: %w: peer %s signed a different survivor set", c.ID, ErrSignatureInvalid, id)
		}
	}
	if c.DropAfterPhase == 4 {
		return nil
	}

	// Step 5: reveal exactly one kind of share per peer, and never the
	// share of its own seed — that would hand anyone with t inbox
	// shares the ability to strip this client's self-mask on their own.
	// The choice between the two is decided by membership in U3 (the
	// set that submitted a masked input in phase 3, carried in the
	// consistency request as u3ids), not by who the aggregator ends up
	// confirming into U4: a peer that submitted in phase 3 but then
	// drops before its own consistency ack lands still needs its
	// self-mask share released, since its masked input is already
	// baked into the sum the aggregator is unmasking.
	unmask := protocol.UnmaskMsg{
		ID:            c.ID,
		PrivKeyShares: make(map[party.ID]protocol.ShareXY),
		SeedShares:    make(map[party.ID]protocol.ShareXY),
	}
	u3Set := make(map[party.ID]struct{}, len(u3ids))
	for _, id := range u3ids {
		u3Set[id] = struct{}{}
	}
	for peerID, sh := range receivedSK {
		if _, live := u3Set[peerID]; !live {
			unmask.PrivKeyShares[peerID] = protocol.ShareXY(sh)
		}
	}
	for peerID, sh := range receivedSeed {
		if _, live := u3Set[peerID]; live {
			unmask.SeedShares[peerID] = protocol.ShareXY(sh)
		}
	}
	if err := sendFrame(c.ServerAddrs.Unmask, unmask); err != nil {
		return fmt.Errorf("client %s: submitting unmask shares: %w", c.ID, err)
	}
	return nil
}

// computeMaskedInput adds the self-mask and every pairwise mask this
// client contributes (spec §3, §4.1): y_u = x_u + p_u +
// sum_{v in u2, v != u} sign(u,v) * p_{u,v}.
func (c *Client) computeMaskedInput(keys ephemeralKeys, keyDir protocol.KeyDir, u2 party.IDSlice, selfSeed uint32) (vector.Vector, error) {
	y := make(vector.Vector, len(c.Input))
	copy(y, c.Input)
	y.AddInPlace(vector.Vector(prg.Expand(selfSeed, len(c.Input))))

	for _, peerID := range u2 {
		if peerID == c.ID {
			continue
		}
		peer, ok := keyDir.Entries[peerID]
		if !ok {
			return nil, fmt.Errorf("missing key bundle for %s", peerID)
		}
		peerSPub, err := curvegroup.UnmarshalPub(peer.SPub)
		if err != nil {
			return nil, err
		}
		shared, err := curvegroup.Agree(keys.s.Priv, peerSPub)
		if err != nil {
			return nil, err
		}
		seed := transcript.Seed(shared)
		pUV := vector.Vector(prg.Expand(seed, len(c.Input)))
		if party.PairSign(c.ID, peerID) < 0 {
			y.SubInPlace(pUV)
		} else {
			y.AddInPlace(pUV)
		}
	}
	return y, nil
}

