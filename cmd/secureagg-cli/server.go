package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/chenjunbao/secureagg/internal/aggregator"
	"github.com/chenjunbao/secureagg/internal/keydir"
	"github.com/chenjunbao/secureagg/internal/roundconfig"
)

var (
	serverN         int
	serverT         int
	serverShapeSize int
	serverWait      time.Duration
	serverGrace     time.Duration
	serverRoundID   string
	serverAddrs     roundconfig.ServerAddrs

	serverCmd = &cobra.Command{
		Use:   "server",
		Short: "Run the aggregator for one round",
		Long: `Run the aggregator side of a single round of the five-phase
protocol (spec §4.3), listening on the five phase endpoints and
exiting with the code spec §6 "Exit semantics" specifies.`,
		RunE: runServer,
	}
)

func init() {
	def := roundconfig.DefaultServerAddrs()
	serverCmd.Flags().IntVar(&serverN, "n", 0, "Expected number of clients (required)")
	serverCmd.Flags().IntVar(&serverT, "t", 0, "Threshold (default ceil(0.8*n))")
	serverCmd.Flags().IntVar(&serverShapeSize, "shape-size", 0, "Input vector length (required)")
	serverCmd.Flags().DurationVar(&serverWait, "wait", 300*time.Second, "Per-phase submission window")
	serverCmd.Flags().DurationVar(&serverGrace, "grace", 10*time.Second, "Phase-4 dissent grace window")
	serverCmd.Flags().StringVar(&serverRoundID, "round-id", "", "Hex-encoded round id shared out of band with every client (default: random, printed on startup)")
	serverCmd.Flags().StringVar(&serverAddrs.Advertise, "advertise-addr", def.Advertise, "Phase-1 advertise listen address")
	serverCmd.Flags().StringVar(&serverAddrs.Share, "share-addr", def.Share, "Phase-2 share listen address")
	serverCmd.Flags().StringVar(&serverAddrs.Masking, "masking-addr", def.Masking, "Phase-3 masking listen address")
	serverCmd.Flags().StringVar(&serverAddrs.Consistency, "consistency-addr", def.Consistency, "Phase-4 consistency listen address")
	serverCmd.Flags().StringVar(&serverAddrs.Unmask, "unmask-addr", def.Unmask, "Phase-5 unmask listen address")
	serverCmd.MarkFlagRequired("n")
	serverCmd.MarkFlagRequired("shape-size")
}

func runServer(cmd *cobra.Command, args []string) error {
	longterm, err := keydir.LoadDirectory(keyDir)
	if err != nil {
		return err
	}

	cfg := roundconfig.Default(serverN, serverShapeSize)
	if serverT > 0 {
		cfg.T = serverT
	}
	cfg.W = serverWait
	cfg.ConsistencyGrace = serverGrace

	var roundID []byte
	if serverRoundID != "" {
		roundID, err = hex.DecodeString(serverRoundID)
		if err != nil {
			return fmt.Errorf("server: decoding --round-id: %w", err)
		}
	} else {
		roundID = make([]byte, 16)
		if _, err := rand.Read(roundID); err != nil {
			return fmt.Errorf("server: generating round id: %w", err)
		}
	}
	fmt.Printf("round id: %x\n", roundID)

	log := newLogger()
	server := aggregator.NewServer(cfg, serverAddrs, longterm, log)

	sum, err := server.RunRound(context.Background(), roundID)
	code := aggregator.ExitCode(err)
	if err != nil {
		log.Error("server: round failed", "err", err)
	} else {
		fmt.Printf("round complete, aggregate sum: %v\n", sum)
	}
	if code != 0 {
		os.Exit(code)
	}
	return nil
}
