// Package controller drives one or more rounds of the five-phase
// protocol end to end: it owns the shared roundconfig.Config, starts
// the aggregator and every client, and tears down round-scoped state
// between rounds (spec §5 "round-end clean() operation"). It is the
// component the CLI's simulate path and the end-to-end test suites
// plug into, grounded on `protocols/cmp/fault_tolerance.go`'s
// generation/snapshot reset pattern — adapted here to resetting a
// single round's full state instead of a persisted chain of key-resharing
// generations.
package controller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/chenjunbao/secureagg/internal/aggregator"
	"github.com/chenjunbao/secureagg/internal/client"
	"github.com/chenjunbao/secureagg/internal/keydir"
	"github.com/chenjunbao/secureagg/internal/roundconfig"
	"github.com/chenjunbao/secureagg/pkg/party"
	"github.com/chenjunbao/secureagg/pkg/vector"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// ClientSpec is one participant's round-scoped material: its identity,
// long-term signing key, input vector, and the two local endpoints the
// aggregator will dial back (spec §6 "Inbox delivery"/"Consistency").
type ClientSpec struct {
	ID         party.ID
	LongTermSK *secp256k1.PrivateKey

	InboxListenAddr     string
	BroadcastListenAddr string

	Input vector.Vector

	// DropAfterPhase simulates a dropout (spec §8) — see client.Client.
	DropAfterPhase int
}

// Round orchestrates one execution of the protocol across an
// in-process aggregator and n in-process clients, communicating over
// real localhost TCP/UDP sockets exactly as a deployed aggregator and
// remote clients would (spec §4.3, §4.4). This is the harness the
// CLI's `simulate` subcommand and the package's end-to-end test suites
// both build on.
type Round struct {
	Config   roundconfig.Config
	Addrs    roundconfig.ServerAddrs
	LongTerm keydir.Directory
	Clients  []ClientSpec

	Log *slog.Logger
}

// Result is the outcome of one round: the aggregate sum if the round
// succeeded, and the individual errors any client encountered (a
// dropped or misbehaving client never fails the round by itself —
// only the aggregator's per-phase threshold does, spec §7).
type Result struct {
	Sum        vector.Vector
	ServerErr  error
	ClientErrs map[party.ID]error
}

// Run drives one round to completion. It returns once the aggregator
// has produced a result (or failed) and every client goroutine has
// exited, so the caller can immediately start a fresh Round with new
// round-scoped state (spec §5: "no carry-over between rounds is
// permitted" — nothing here is reused across calls to Run).
func (r *Round) Run(ctx context.Context, roundID []byte) Result {
	log := r.Log
	if log == nil {
		log = slog.Default()
	}

	ready := make(chan roundconfig.ServerAddrs, 1)
	server := aggregator.NewServer(r.Config, r.Addrs, r.LongTerm, log)
	server.Ready = ready

	type serverOutcome struct {
		sum vector.Vector
		err error
	}
	serverDone := make(chan serverOutcome, 1)
	go func() {
		sum, err := server.RunRound(ctx, roundID)
		serverDone <- serverOutcome{sum: sum, err: err}
	}()

	// Wait for the aggregator's listeners to bind before dialing it —
	// needed when r.Addrs uses ":0" wildcard ports (same-host
	// simulation/tests), since the real ports are only known afterward.
	var serverAddrs roundconfig.ServerAddrs
	select {
	case serverAddrs = <-ready:
	case outcome := <-serverDone:
		return Result{Sum: outcome.sum, ServerErr: outcome.err, ClientErrs: nil}
	case <-ctx.Done():
		return Result{ServerErr: ctx.Err()}
	}

	var mu sync.Mutex
	clientErrs := make(map[party.ID]error, len(r.Clients))
	g, gctx := errgroup.WithContext(ctx)
	for _, spec := range r.Clients {
		spec := spec
		g.Go(func() error {
			c := &client.Client{
				ID:                  spec.ID,
				LongTermSK:          spec.LongTermSK,
				LongTerm:            r.LongTerm,
				ServerAddrs:         serverAddrs,
				InboxListenAddr:     spec.InboxListenAddr,
				BroadcastListenAddr: spec.BroadcastListenAddr,
				Config:              r.Config,
				Input:               spec.Input,
				DropAfterPhase:      spec.DropAfterPhase,
				Log:                 log.With("client", spec.ID),
			}
			if err := c.Run(gctx, roundID); err != nil {
				log.Warn("controller: client exited with error", "id", spec.ID, "err", err)
				mu.Lock()
				clientErrs[spec.ID] = err
				mu.Unlock()
			}
			return nil
		})
	}
	// Client failures are reported, not propagated: a client erroring
	// out of its round is exactly a dropout from the aggregator's point
	// of view (spec §7.4 "equivalent to a missed deadline").
	_ = g.Wait()

	outcome := <-serverDone
	return Result{Sum: outcome.sum, ServerErr: outcome.err, ClientErrs: clientErrs}
}

// ExitCode surfaces the process exit code for a Result's server error,
// per spec §6 "Exit semantics".
func ExitCode(res Result) int {
	return aggregator.ExitCode(res.ServerErr)
}

// FormatClientErrs renders a Result's per-client errors for logging or
// CLI output.
func FormatClientErrs(res Result) string {
	if len(res.ClientErrs) == 0 {
		return "none"
	}
	out := ""
	for id, err := range res.ClientErrs {
		if out != "" {
			out += "; "
		}
		out += fmt.Sprintf("%s: %v", id, err)
	}
	return out
}
