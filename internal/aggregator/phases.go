package aggregator

import (
	"fmt"
	"net"
	"time"

	"github.com/chenjunbao/secureagg/internal/protocol"
	"github.com/chenjunbao/secureagg/internal/roundconfig"
	"github.com/chenjunbao/secureagg/pkg/crypto/shamir"
	"github.com/chenjunbao/secureagg/pkg/crypto/signer"
	"github.com/chenjunbao/secureagg/pkg/crypto/transcript"
	"github.com/chenjunbao/secureagg/pkg/party"
	"github.com/chenjunbao/secureagg/pkg/vector"
	"github.com/chenjunbao/secureagg/pkg/wire"
)

// startListeners opens the five TCP phase listeners plus the
// aggregator's send-only UDP socket, and launches one accept loop per
// TCP listener. Listeners stay open for the whole round: a client
// ahead of schedule simply has its submission queued in the relevant
// phase's barrier before that phase's wait begins, which Put already
// handles safely.
func (s *Server) startListeners(rc *roundCtx) ([]net.Listener, roundconfig.ServerAddrs, error) {
	specs := []struct {
		addr    string
		dst     *string
		handler func(net.Conn, *roundCtx)
	}{
		{s.Addrs.Advertise, new(string), s.handleAdvertiseConn},
		{s.Addrs.Share, new(string), s.handleShareConn},
		{s.Addrs.Masking, new(string), s.handleMaskConn},
		{s.Addrs.Consistency, new(string), s.handleConsistencyConn},
		{s.Addrs.Unmask, new(string), s.handleUnmaskConn},
	}
	listeners := make([]net.Listener, 0, len(specs))
	for i, sp := range specs {
		l, err := net.Listen("tcp", sp.addr)
		if err != nil {
			closeAll(listeners)
			return nil, roundconfig.ServerAddrs{}, fmt.Errorf("listening on %s: %w", sp.addr, err)
		}
		listeners = append(listeners, l)
		*specs[i].dst = roundconfig.ResolveAddr(l.Addr())
		go s.acceptLoop(l, rc, sp.handler)
	}

	udpConn, err := net.ListenUDP("udp", nil)
	if err != nil {
		closeAll(listeners)
		return nil, roundconfig.ServerAddrs{}, fmt.Errorf("opening udp socket: %w", err)
	}
	rc.udpConn = udpConn

	resolved := roundconfig.ServerAddrs{
		Advertise:   *specs[0].dst,
		Share:       *specs[1].dst,
		Masking:     *specs[2].dst,
		Consistency: *specs[3].dst,
		Unmask:      *specs[4].dst,
	}
	return listeners, resolved, nil
}

func (s *Server) acceptLoop(l net.Listener, rc *roundCtx, handle func(net.Conn, *roundCtx)) {
	for {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		go func() {
			defer conn.Close()
			handle(conn, rc)
		}()
	}
}

// readMsg reads one length-prefixed cbor frame into v.
func readMsg(conn net.Conn, v interface{}) error {
	body, err := wire.ReadFrame(conn)
	if err != nil {
		return err
	}
	return protocol.Unmarshal(body, v)
}

// pushFrame dials addr, writes one cbor-encoded frame, and closes.
func pushFrame(addr string, v interface{}) error {
	body, err := protocol.Marshal(v)
	if err != nil {
		return err
	}
	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return err
	}
	defer conn.Close()
	return wire.WriteFrame(conn, body)
}

// --- Phase 1: advertise ----------------------------------------------

func (s *Server) handleAdvertiseConn(conn net.Conn, rc *roundCtx) {
	var msg protocol.AdvertiseMsg
	if err := readMsg(conn, &msg); err != nil {
		s.Log.Warn("phase1: malformed submission", "err", err)
		return
	}
	longTerm, ok := s.LongTerm[msg.Bundle.ID]
	if !ok {
		s.Log.Warn("phase1: unknown id", "id", msg.Bundle.ID)
		return
	}
	if !signer.Verify(longTerm, msg.Bundle.SignedBytes(), msg.Bundle.Sig) {
		s.Log.Warn("phase1: bad signature", "id", msg.Bundle.ID)
		return
	}
	rc.advertiseBarrier.Put(msg.Bundle.ID, msg)
}

func (s *Server) phase1Advertise(rc *roundCtx) error {
	advertised := rc.advertiseBarrier.Wait(s.Config.N, s.Config.W)
	if len(advertised) < s.Config.T {
		return fmt.Errorf("phase1 advertise: %w: got %d, need %d", ErrInsufficientSubmissions, len(advertised), s.Config.T)
	}
	rc.u1 = make(map[party.ID]struct{}, len(advertised))
	for id, msg := range advertised {
		rc.u1[id] = struct{}{}
		rc.keyDir[id] = msg.Bundle
		rc.inboxAddrs[id] = msg.InboxAddr
		rc.broadcastAddrs[id] = msg.BroadcastAddr
	}

	dir := protocol.KeyDir{Entries: rc.keyDir}
	body, err := protocol.Marshal(dir)
	if err != nil {
		return fmt.Errorf("phase1 advertise: encoding key directory: %w", err)
	}
	for id := range rc.u1 {
		udpAddr, err := net.ResolveUDPAddr("udp", rc.broadcastAddrs[id])
		if err != nil {
			s.Log.Warn("phase1: bad broadcast addr", "id", id, "err", err)
			continue
		}
		if err := wire.BroadcastPayload(rc.udpConn, udpAddr, body); err != nil {
			s.Log.Warn("phase1: key directory delivery failed", "id", id, "err", err)
		}
	}
	return nil
}

// --- Phase 2: share ----------------------------------------------------

func (s *Server) handleShareConn(conn net.Conn, rc *roundCtx) {
	var msg protocol.ShareMsg
	if err := readMsg(conn, &msg); err != nil {
		s.Log.Warn("phase2: malformed submission", "err", err)
		return
	}
	if _, ok := rc.u1[msg.ID]; !ok {
		return
	}
	rc.shareBarrier.Put(msg.ID, msg)
}

func (s *Server) phase2Share(rc *roundCtx) error {
	submitted := rc.shareBarrier.Wait(len(rc.u1), s.Config.W)
	if len(submitted) < s.Config.T {
		return fmt.Errorf("phase2 share: %w: got %d, need %d", ErrInsufficientSubmissions, len(submitted), s.Config.T)
	}
	rc.u2 = make(map[party.ID]struct{}, len(submitted))
	for sender, msg := range submitted {
		rc.u2[sender] = struct{}{}
		for recipient, ct := range msg.Cts {
			if rc.inbox[recipient] == nil {
				rc.inbox[recipient] = make(map[party.ID][]byte)
			}
			rc.inbox[recipient][sender] = ct
		}
	}

	for recipient := range rc.u2 {
		cts := make(map[party.ID][]byte, len(rc.inbox[recipient]))
		for sender, ct := range rc.inbox[recipient] {
			if _, ok := rc.u2[sender]; ok {
				cts[sender] = ct
			}
		}
		push, err := protocol.NewPush(protocol.PushKindInbox, protocol.Inbox{Cts: cts})
		if err != nil {
			s.Log.Warn("phase2: encoding inbox push failed", "id", recipient, "err", err)
			continue
		}
		if err := pushFrame(rc.inboxAddrs[recipient], push); err != nil {
			s.Log.Warn("phase2: inbox delivery failed", "id", recipient, "err", err)
		}
	}
	return nil
}

// --- Phase 3: masking ----------------------------------------------------

func (s *Server) handleMaskConn(conn net.Conn, rc *roundCtx) {
	var msg protocol.MaskedMsg
	if err := readMsg(conn, &msg); err != nil {
		s.Log.Warn("phase3: malformed submission", "err", err)
		return
	}
	if _, ok := rc.u2[msg.ID]; !ok {
		return
	}
	if len(msg.Y) != s.Config.ShapeSize {
		s.Log.Warn("phase3: shape mismatch", "id", msg.ID, "got", len(msg.Y), "want", s.Config.ShapeSize)
		return
	}
	rc.maskBarrier.Put(msg.ID, msg)
}

func (s *Server) phase3Mask(rc *roundCtx) error {
	submitted := rc.maskBarrier.Wait(len(rc.u2), s.Config.W)
	if len(submitted) < s.Config.T {
		return fmt.Errorf("phase3 masking: %w: got %d, need %d", ErrInsufficientSubmissions, len(submitted), s.Config.T)
	}
	rc.u3 = make(map[party.ID]struct{}, len(submitted))
	for id, msg := range submitted {
		rc.u3[id] = struct{}{}
		rc.maskedY[id] = vector.Vector(msg.Y)
	}
	return nil
}

// --- Phase 4: consistency ----------------------------------------------

func (s *Server) handleConsistencyConn(conn net.Conn, rc *roundCtx) {
	var msg protocol.ConsistencyReply
	if err := readMsg(conn, &msg); err != nil {
		s.Log.Warn("phase4: malformed submission", "err", err)
		return
	}
	if _, ok := rc.u3[msg.ID]; !ok {
		return
	}
	rc.consistencyBarrier.Put(msg.ID, msg)
}

// phase4Consistency pushes the proposed survivor set U3 to every
// phase-3 survivor, then waits for signed acknowledgements. Once the
// threshold t is reached it grants a short extra grace window (spec
// §4.3 P4) for a straggler's late dissent to still register before the
// round commits, instead of closing the instant t replies arrive.
func (s *Server) phase4Consistency(rc *roundCtx) error {
	u3ids := party.NewIDSlice(rc.u3)
	req, err := protocol.NewPush(protocol.PushKindConsistencyRequest, protocol.ConsistencyRequest{U3: u3ids})
	if err != nil {
		return fmt.Errorf("phase4 consistency: encoding request: %w", err)
	}
	for id := range rc.u3 {
		go func(id party.ID) {
			if err := pushFrame(rc.inboxAddrs[id], req); err != nil {
				s.Log.Warn("phase4: consistency push failed", "id", id, "err", err)
			}
		}(id)
	}

	deadline := time.NewTimer(s.Config.W)
	defer deadline.Stop()
	var grace *time.Timer
	defer func() {
		if grace != nil {
			grace.Stop()
		}
	}()
loop:
	for {
		n := rc.consistencyBarrier.Len()
		if n >= len(rc.u3) {
			break
		}
		if grace == nil && n >= s.Config.T {
			grace = time.NewTimer(s.Config.ConsistencyGrace)
		}
		var graceC <-chan time.Time
		if grace != nil {
			graceC = grace.C
		}
		select {
		case <-rc.consistencyBarrier.changed:
			continue
		case <-graceC:
			break loop
		case <-deadline.C:
			break loop
		}
	}
	replies := rc.consistencyBarrier.snapshot()

	for _, reply := range replies {
		if reply.Dissent {
			return ErrConsistencyViolation
		}
	}

	expectBytes := transcript.HashSet(party.Strings(u3ids))
	rc.u4 = make(map[party.ID]struct{}, len(replies))
	for id, reply := range replies {
		longTerm, ok := s.LongTerm[id]
		if !ok || !signer.Verify(longTerm, expectBytes, reply.Sig) {
			s.Log.Warn("phase4: bad consistency signature", "id", id)
			continue
		}
		rc.u4[id] = struct{}{}
		rc.consSigs[id] = reply.Sig
	}
	if len(rc.u4) < s.Config.T {
		return fmt.Errorf("phase4 consistency: %w: got %d, need %d", ErrInsufficientSubmissions, len(rc.u4), s.Config.T)
	}

	bcast, err := protocol.NewPush(protocol.PushKindConsistencyBroadcast, protocol.ConsistencyBroadcast{Sigs: rc.consSigs})
	if err != nil {
		return fmt.Errorf("phase4 consistency: encoding redistribution: %w", err)
	}
	for id := range rc.u4 {
		if err := pushFrame(rc.inboxAddrs[id], bcast); err != nil {
			s.Log.Warn("phase4: consistency redistribution failed", "id", id, "err", err)
		}
	}
	return nil
}

// --- Phase 5: unmask -----------------------------------------------------

func (s *Server) handleUnmaskConn(conn net.Conn, rc *roundCtx) {
	var msg protocol.UnmaskMsg
	if err := readMsg(conn, &msg); err != nil {
		s.Log.Warn("phase5: malformed submission", "err", err)
		return
	}
	if _, ok := rc.u4[msg.ID]; !ok {
		return
	}
	rc.unmaskBarrier.Put(msg.ID, msg)
}

func (s *Server) phase5Unmask(rc *roundCtx) error {
	submitted := rc.unmaskBarrier.Wait(len(rc.u4), s.Config.W)
	if len(submitted) < s.Config.T {
		return fmt.Errorf("phase5 unmask: %w: got %d, need %d", ErrInsufficientSubmissions, len(submitted), s.Config.T)
	}
	for _, msg := range submitted {
		for peer, sh := range msg.PrivKeyShares {
			rc.privKeyShares[peer] = append(rc.privKeyShares[peer], shamir.Share{X: sh.X, Y: sh.Y})
		}
		for peer, sh := range msg.SeedShares {
			rc.seedShares[peer] = append(rc.seedShares[peer], shamir.Share{X: sh.X, Y: sh.Y})
		}
	}
	return nil
}
