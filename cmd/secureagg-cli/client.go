package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chenjunbao/secureagg/internal/client"
	"github.com/chenjunbao/secureagg/internal/keydir"
	"github.com/chenjunbao/secureagg/internal/roundconfig"
	"github.com/chenjunbao/secureagg/pkg/party"
	"github.com/chenjunbao/secureagg/pkg/vector"
)

var (
	clientID         string
	clientInput      string
	clientInboxAddr  string
	clientBcastAddr  string
	clientN          int
	clientT          int
	clientDropAfter  int
	clientRoundID    string
	clientServerAddr roundconfig.ServerAddrs

	clientCmd = &cobra.Command{
		Use:   "client",
		Short: "Run one client through a single round",
		Long: `Run the client side of a single round of the five-phase protocol
(spec §4.4) against a running aggregator, submitting --input as this
client's contribution to the aggregate sum.`,
		RunE: runClient,
	}
)

func init() {
	def := roundconfig.DefaultServerAddrs()
	clientCmd.Flags().StringVar(&clientID, "id", "", "This client's id (required)")
	clientCmd.Flags().StringVar(&clientInput, "input", "", "Comma-separated input vector (required)")
	clientCmd.Flags().StringVar(&clientInboxAddr, "inbox-addr", ":0", "Local inbox listen address")
	clientCmd.Flags().StringVar(&clientBcastAddr, "broadcast-addr", ":0", "Local broadcast listen address")
	clientCmd.Flags().IntVar(&clientN, "n", 0, "Expected number of clients (required)")
	clientCmd.Flags().IntVar(&clientT, "t", 0, "Threshold (default ceil(0.8*n))")
	clientCmd.Flags().IntVar(&clientDropAfter, "drop-after-phase", 0, "Simulate a dropout after this phase (0 = none, spec §8)")
	clientCmd.Flags().StringVar(&clientRoundID, "round-id", "", "Hex-encoded round id printed by the aggregator on startup (required)")
	clientCmd.Flags().StringVar(&clientServerAddr.Advertise, "advertise-addr", def.Advertise, "Aggregator phase-1 advertise address")
	clientCmd.Flags().StringVar(&clientServerAddr.Share, "share-addr", def.Share, "Aggregator phase-2 share address")
	clientCmd.Flags().StringVar(&clientServerAddr.Masking, "masking-addr", def.Masking, "Aggregator phase-3 masking address")
	clientCmd.Flags().StringVar(&clientServerAddr.Consistency, "consistency-addr", def.Consistency, "Aggregator phase-4 consistency address")
	clientCmd.Flags().StringVar(&clientServerAddr.Unmask, "unmask-addr", def.Unmask, "Aggregator phase-5 unmask address")
	clientCmd.MarkFlagRequired("id")
	clientCmd.MarkFlagRequired("input")
	clientCmd.MarkFlagRequired("n")
	clientCmd.MarkFlagRequired("round-id")
}

func runClient(cmd *cobra.Command, args []string) error {
	input, err := parseVector(clientInput)
	if err != nil {
		return fmt.Errorf("client: parsing --input: %w", err)
	}

	longTerm, err := keydir.LoadDirectory(keyDir)
	if err != nil {
		return err
	}
	sk, err := keydir.LoadPrivate(filepath.Join(keyDir, clientID))
	if err != nil {
		return err
	}

	cfg := roundconfig.Default(clientN, len(input))
	if clientT > 0 {
		cfg.T = clientT
	}

	log := newLogger()
	c := &client.Client{
		ID:                  party.ID(clientID),
		LongTermSK:          sk,
		LongTerm:            longTerm,
		ServerAddrs:         clientServerAddr,
		InboxListenAddr:     clientInboxAddr,
		BroadcastListenAddr: clientBcastAddr,
		Config:              cfg,
		Input:               input,
		DropAfterPhase:      clientDropAfter,
		Log:                 log,
	}

	roundID, err := hex.DecodeString(clientRoundID)
	if err != nil {
		return fmt.Errorf("client: decoding --round-id: %w", err)
	}
	if err := c.Run(context.Background(), roundID); err != nil {
		return fmt.Errorf("client: round failed: %w", err)
	}
	fmt.Println("client: round complete")
	return nil
}

func parseVector(s string) (vector.Vector, error) {
	parts := strings.Split(s, ",")
	out := make(vector.Vector, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("value %d (%q): %w", i, p, err)
		}
		out[i] = v
	}
	return out, nil
}
