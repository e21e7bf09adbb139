package controller_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/chenjunbao/secureagg/internal/aggregator"
	"github.com/chenjunbao/secureagg/internal/controller"
	"github.com/chenjunbao/secureagg/internal/keydir"
	"github.com/chenjunbao/secureagg/internal/roundconfig"
	"github.com/chenjunbao/secureagg/pkg/party"
	"github.com/chenjunbao/secureagg/pkg/vector"
)

// wildcardAddrs lets every phase listener pick its own free port, so
// concurrently running specs never collide.
func wildcardAddrs() roundconfig.ServerAddrs {
	return roundconfig.ServerAddrs{Advertise: ":0", Share: ":0", Masking: ":0", Consistency: ":0", Unmask: ":0"}
}

type testParty struct {
	id    party.ID
	sk    *secp256k1.PrivateKey
	input vector.Vector
}

func makeParties(inputs ...vector.Vector) ([]testParty, keydir.Directory) {
	dir := make(keydir.Directory, len(inputs))
	parties := make([]testParty, len(inputs))
	for i, in := range inputs {
		sk, err := secp256k1.GeneratePrivateKey()
		Expect(err).NotTo(HaveOccurred())
		id := party.ID("party-" + string(rune('1'+i)))
		parties[i] = testParty{id: id, sk: sk, input: in}
		dir[id] = sk.PubKey()
	}
	return parties, dir
}

func runRound(cfg roundconfig.Config, dir keydir.Directory, specs []controller.ClientSpec, roundID []byte) controller.Result {
	round := &controller.Round{
		Config:   cfg,
		Addrs:    wildcardAddrs(),
		LongTerm: dir,
		Clients:  specs,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	return round.Run(ctx, roundID)
}

var _ = Describe("Secure aggregation rounds", func() {
	roundID := []byte("test-round-0000")

	// Scenario 1 (spec §8 #1): n=3, t=2, no dropouts.
	It("sums every client's input when nobody drops", func() {
		parties, dir := makeParties(
			vector.Vector{1, 2},
			vector.Vector{3, 4},
			vector.Vector{5, 6},
		)
		cfg := roundconfig.Default(3, 2)
		cfg.T = 2

		specs := make([]controller.ClientSpec, len(parties))
		for i, p := range parties {
			specs[i] = controller.ClientSpec{
				ID: p.id, LongTermSK: p.sk, Input: p.input,
				InboxListenAddr: ":0", BroadcastListenAddr: ":0",
			}
		}

		res := runRound(cfg, dir, specs, roundID)
		Expect(res.ServerErr).NotTo(HaveOccurred())
		Expect(res.Sum.CloseTo(vector.Vector{9, 12}, 1e-6)).To(BeTrue())
	})

	// Scenario 2 (spec §8 #2): client 3 drops at phase 3 (masking).
	It("excludes a client that drops at the masking phase", func() {
		parties, dir := makeParties(
			vector.Vector{1, 2},
			vector.Vector{3, 4},
			vector.Vector{5, 6},
		)
		cfg := roundconfig.Default(3, 2)
		cfg.T = 2

		specs := make([]controller.ClientSpec, len(parties))
		for i, p := range parties {
			drop := 0
			if i == 2 {
				drop = 2
			}
			specs[i] = controller.ClientSpec{
				ID: p.id, LongTermSK: p.sk, Input: p.input,
				InboxListenAddr: ":0", BroadcastListenAddr: ":0",
				DropAfterPhase: drop,
			}
		}

		res := runRound(cfg, dir, specs, roundID)
		Expect(res.ServerErr).NotTo(HaveOccurred())
		Expect(res.Sum.CloseTo(vector.Vector{4, 6}, 1e-6)).To(BeTrue())
	})

	// Scenario 3 (spec §8 #3): n=5, t=4, client 2 advertises in phase 1
	// and then drops before submitting its shares.
	It("excludes a client that drops right after the advertise phase", func() {
		inputs := make([]vector.Vector, 5)
		want := vector.Zero(3)
		for i := range inputs {
			inputs[i] = vector.Vector{float64(i + 1), float64(i + 2), float64(i + 3)}
			if i != 1 {
				want.AddInPlace(inputs[i])
			}
		}
		parties, dir := makeParties(inputs...)
		cfg := roundconfig.Default(5, 3)
		cfg.T = 4

		specs := make([]controller.ClientSpec, len(parties))
		for i, p := range parties {
			drop := 0
			if i == 1 {
				drop = 1
			}
			specs[i] = controller.ClientSpec{
				ID: p.id, LongTermSK: p.sk, Input: p.input,
				InboxListenAddr: ":0", BroadcastListenAddr: ":0",
				DropAfterPhase: drop,
			}
		}

		res := runRound(cfg, dir, specs, roundID)
		Expect(res.ServerErr).NotTo(HaveOccurred())
		Expect(res.Sum.CloseTo(want, 1e-6)).To(BeTrue())
	})

	// Scenario 5 (spec §8 #5): n=4, t=3, two clients drop at phase 5 ->
	// exit code 1 (InsufficientSubmissions).
	It("fails the round when too many clients drop at the unmask phase", func() {
		inputs := make([]vector.Vector, 4)
		for i := range inputs {
			inputs[i] = vector.Vector{float64(i)}
		}
		parties, dir := makeParties(inputs...)
		cfg := roundconfig.Default(4, 1)
		cfg.T = 3
		cfg.W = 3 * time.Second

		specs := make([]controller.ClientSpec, len(parties))
		for i, p := range parties {
			drop := 0
			if i == 2 || i == 3 {
				drop = 4
			}
			specs[i] = controller.ClientSpec{
				ID: p.id, LongTermSK: p.sk, Input: p.input,
				InboxListenAddr: ":0", BroadcastListenAddr: ":0",
				DropAfterPhase: drop,
			}
		}

		res := runRound(cfg, dir, specs, roundID)
		Expect(res.ServerErr).To(HaveOccurred())
		Expect(controller.ExitCode(res)).To(Equal(1))
	})

	// Scenario 6 (spec §8 #6): client 2's advertise bundle is signed
	// under a key the shared directory does not have. The aggregator
	// rejects that advertisement in phase 1, leaving U1 = {1, 3}; each
	// of the two remaining clients then has a single peer, too few to
	// split its shares t=2 ways, so neither submits in phase 2 and the
	// round reports InsufficientSubmissions.
	It("fails the round when a client's advertised key does not match its directory entry", func() {
		parties, dir := makeParties(
			vector.Vector{1},
			vector.Vector{2},
			vector.Vector{3},
		)
		// Replace client 2's directory entry with an unrelated key so
		// the aggregator's phase-1 signature check on it fails.
		forged, err := secp256k1.GeneratePrivateKey()
		Expect(err).NotTo(HaveOccurred())
		dir[parties[1].id] = forged.PubKey()

		cfg := roundconfig.Default(3, 1)
		cfg.T = 2
		cfg.W = 3 * time.Second

		specs := make([]controller.ClientSpec, len(parties))
		for i, p := range parties {
			specs[i] = controller.ClientSpec{
				ID: p.id, LongTermSK: p.sk, Input: p.input,
				InboxListenAddr: ":0", BroadcastListenAddr: ":0",
			}
		}

		res := runRound(cfg, dir, specs, roundID)
		Expect(res.ServerErr).To(HaveOccurred())
		Expect(controller.ExitCode(res)).To(Equal(aggregator.ExitCode(aggregator.ErrInsufficientSubmissions)))
	})
})
