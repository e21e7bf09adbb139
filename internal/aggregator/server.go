// Package aggregator implements the server side of the five-phase
// protocol (spec §4.3): one TCP listener per phase, a UDP socket for
// the phase-1 key-directory delivery, and the final unmasking
// computation.
package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/chenjunbao/secureagg/internal/keydir"
	"github.com/chenjunbao/secureagg/internal/roundconfig"
	"github.com/chenjunbao/secureagg/pkg/vector"
)

// Addrs is the set of listen addresses for the five TCP phase
// endpoints (spec §6's port table; defaults match the spec but are
// configurable since a real deployment rarely gets to bind literal
// port 20000 on every host).
type Addrs = roundconfig.ServerAddrs

// DefaultAddrs returns the default port assignment from spec §6,
// bound to all interfaces.
func DefaultAddrs() Addrs {
	return roundconfig.DefaultServerAddrs()
}

// Server is the aggregator. It is safe to run one round at a time;
// RunRound tears down all per-round state via clean() before
// returning.
type Server struct {
	Config   roundconfig.Config
	Addrs    Addrs
	LongTerm keydir.Directory
	Log      *slog.Logger

	// Ready, if non-nil, receives the round's resolved listen addresses
	// once every phase listener is bound — useful when Addrs uses ":0"
	// wildcard ports (same-host simulation/tests) and callers need to
	// learn the actual ports before handing them to clients. RunRound
	// sends exactly once per round and never blocks on it (buffer of 1
	// is assumed, or a receiver already waiting).
	Ready chan<- roundconfig.ServerAddrs
}

// NewServer constructs a Server with the given configuration.
func NewServer(cfg roundconfig.Config, addrs Addrs, longterm keydir.Directory, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{Config: cfg, Addrs: addrs, LongTerm: longterm, Log: log}
}

// RunRound drives one complete execution of the five phases and
// returns the aggregate sum of the participating clients' inputs.
func (s *Server) RunRound(ctx context.Context, roundID []byte) (vector.Vector, error) {
	if err := s.Config.Validate(); err != nil {
		return nil, err
	}
	rc := newRoundCtx(roundID)
	defer rc.clean()

	listeners, resolved, err := s.startListeners(rc)
	if err != nil {
		return nil, fmt.Errorf("aggregator: starting listeners: %w", err)
	}
	defer closeAll(listeners)
	defer rc.udpConn.Close()

	if s.Ready != nil {
		select {
		case s.Ready <- resolved:
		default:
		}
	}

	log := s.Log.With("round", fmt.Sprintf("%x", roundID))

	log.Info("phase1: advertise: waiting", "expected", s.Config.N)
	if err := s.phase1Advertise(rc); err != nil {
		return nil, err
	}
	log.Info("phase1: advertise: done", "survivors", len(rc.u1))

	log.Info("phase2: share: waiting", "expected", len(rc.u1))
	if err := s.phase2Share(rc); err != nil {
		return nil, err
	}
	log.Info("phase2: share: done", "survivors", len(rc.u2))

	log.Info("phase3: masking: waiting", "expected", len(rc.u2))
	if err := s.phase3Mask(rc); err != nil {
		return nil, err
	}
	log.Info("phase3: masking: done", "survivors", len(rc.u3))

	log.Info("phase4: consistency: waiting", "expected", len(rc.u3))
	if err := s.phase4Consistency(rc); err != nil {
		return nil, err
	}
	log.Info("phase4: consistency: done", "survivors", len(rc.u4))

	log.Info("phase5: unmask: waiting", "expected", len(rc.u4))
	if err := s.phase5Unmask(rc); err != nil {
		return nil, err
	}
	log.Info("phase5: unmask: done")

	sum, err := computeUnmask(s.Config.ShapeSize, rc)
	if err != nil {
		return nil, fmt.Errorf("aggregator: unmasking: %w", err)
	}
	return sum, nil
}

func closeAll(ls []net.Listener) {
	for _, l := range ls {
		_ = l.Close()
	}
}

// clean drops every round-scoped collection (key directory, callback
// addresses, inboxes, masked inputs, signatures and share pools) so
// nothing outlives the round, matching spec §5's "round-end clean()
// operation". The barriers and participant sets are left for the
// garbage collector along with the roundCtx itself.
func (r *roundCtx) clean() {
	r.keyDir = nil
	r.inboxAddrs = nil
	r.broadcastAddrs = nil
	r.inbox = nil
	r.maskedY = nil
	r.consSigs = nil
	r.dissentedAt = nil
	r.privKeyShares = nil
	r.seedShares = nil
}
