package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/chenjunbao/secureagg/internal/controller"
	"github.com/chenjunbao/secureagg/internal/keydir"
	"github.com/chenjunbao/secureagg/internal/roundconfig"
	"github.com/chenjunbao/secureagg/pkg/party"
	"github.com/chenjunbao/secureagg/pkg/vector"
)

var (
	simN         int
	simT         int
	simShapeSize int
	simDrops     []string

	simulateCmd = &cobra.Command{
		Use:   "simulate",
		Short: "Simulate a full round in one process",
		Long: `Run an in-process aggregator and --n in-process clients through
one round of the five-phase protocol (spec §4), communicating over
real localhost TCP/UDP sockets. Useful for exercising the scenarios in
spec §8 without standing up separate processes.`,
		RunE: runSimulate,
	}
)

func init() {
	simulateCmd.Flags().IntVar(&simN, "n", 5, "Number of clients")
	simulateCmd.Flags().IntVar(&simT, "t", 0, "Threshold (default ceil(0.8*n))")
	simulateCmd.Flags().IntVar(&simShapeSize, "shape-size", 4, "Input vector length")
	simulateCmd.Flags().StringSliceVar(&simDrops, "drop", nil, "id=phase pairs simulating a dropout after that phase (spec §8), e.g. party-2=3")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if simN < 1 {
		return fmt.Errorf("simulate: --n must be positive")
	}

	drops, err := parseDrops(simDrops)
	if err != nil {
		return err
	}

	ids := make([]party.ID, simN)
	longTerm := make(keydir.Directory, simN)
	sks := make(map[party.ID]*secp256k1.PrivateKey, simN)
	for i := 0; i < simN; i++ {
		id := party.ID(fmt.Sprintf("party-%d", i+1))
		sk, err := secp256k1.GeneratePrivateKey()
		if err != nil {
			return fmt.Errorf("simulate: generating key for %s: %w", id, err)
		}
		ids[i] = id
		sks[id] = sk
		longTerm[id] = sk.PubKey()
	}

	cfg := roundconfig.Default(simN, simShapeSize)
	if simT > 0 {
		cfg.T = simT
	}

	want := vector.Zero(simShapeSize)
	specs := make([]controller.ClientSpec, 0, simN)
	for _, id := range ids {
		input, err := randomVector(simShapeSize)
		if err != nil {
			return err
		}
		// A client dropping after phase 3 or later has already submitted
		// its masked input, so a completed round's aggregate includes it.
		if drops[id] == 0 || drops[id] >= 3 {
			want.AddInPlace(input)
		}
		specs = append(specs, controller.ClientSpec{
			ID:                  id,
			LongTermSK:          sks[id],
			InboxListenAddr:     ":0",
			BroadcastListenAddr: ":0",
			Input:               input,
			DropAfterPhase:      drops[id],
		})
	}

	round := &controller.Round{
		Config:   cfg,
		Addrs:    roundconfig.ServerAddrs{Advertise: ":0", Share: ":0", Masking: ":0", Consistency: ":0", Unmask: ":0"},
		LongTerm: longTerm,
		Clients:  specs,
		Log:      newLogger(),
	}

	roundID := make([]byte, 16)
	if _, err := rand.Read(roundID); err != nil {
		return fmt.Errorf("simulate: generating round id: %w", err)
	}

	res := round.Run(context.Background(), roundID)
	fmt.Printf("client errors: %s\n", controller.FormatClientErrs(res))
	if res.ServerErr != nil {
		fmt.Printf("round failed: %v\n", res.ServerErr)
		return nil
	}
	fmt.Printf("aggregate sum:  %v\n", res.Sum)
	fmt.Printf("expected sum:   %v (clients that submitted a masked input)\n", want)
	return nil
}

// parseDrops turns "id=phase" strings into a lookup of dropout phases.
func parseDrops(raw []string) (map[party.ID]int, error) {
	out := make(map[party.ID]int, len(raw))
	for _, entry := range raw {
		id, phaseStr, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("simulate: malformed --drop %q, want id=phase", entry)
		}
		phase, err := strconv.Atoi(phaseStr)
		if err != nil {
			return nil, fmt.Errorf("simulate: malformed phase in --drop %q: %w", entry, err)
		}
		out[party.ID(id)] = phase
	}
	return out, nil
}

func randomVector(n int) (vector.Vector, error) {
	out := make(vector.Vector, n)
	for i := range out {
		var buf [8]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return nil, err
		}
		var bits uint64
		for _, b := range buf {
			bits = bits<<8 | uint64(b)
		}
		// Scale into a small, human-legible range.
		out[i] = float64(bits%1000) / 10
	}
	return out, nil
}
