// Package protocol defines the cbor-encoded wire messages exchanged
// between the aggregator and clients across the five phases
// (spec §6 "Message shapes"), replacing the source's object-graph
// serializer with an explicit tagged encoding per the REDESIGN FLAG in
// spec §9.
package protocol

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/chenjunbao/secureagg/pkg/party"
	"github.com/chenjunbao/secureagg/pkg/wire"
)

// KeyBundle is the signed part of the per-client advertise payload:
// two ephemeral public keys, signed together under the client's
// long-term key (spec §4.3 P1).
type KeyBundle struct {
	ID   party.ID `cbor:"1,keyasint"`
	CPub []byte   `cbor:"2,keyasint"`
	SPub []byte   `cbor:"3,keyasint"`
	Sig  []byte   `cbor:"4,keyasint"`
}

// SignedBytes returns the exact bytes sig = sign(...) is computed over
// (spec §4.1 sig = sign((c_pk, s_pk), sk_id^long)).
func (b KeyBundle) SignedBytes() []byte {
	out := make([]byte, 0, len(b.CPub)+len(b.SPub))
	out = append(out, b.CPub...)
	out = append(out, b.SPub...)
	return out
}

// AdvertiseMsg is the client->aggregator P1 submission: the signed key
// bundle plus the two unsigned transport addresses the aggregator uses
// to reach this client (spec §6 "Inbox delivery"/"Consistency ...
// aggregator -> client"). InboxAddr and BroadcastAddr are plumbing, not
// secret-shared material, so they ride alongside the signature rather
// than inside it.
type AdvertiseMsg struct {
	Bundle      KeyBundle `cbor:"1,keyasint"`
	// InboxAddr is where the aggregator dials back (TCP) for inbox
	// delivery (P2) and the consistency push/redistribution (P4).
	InboxAddr string `cbor:"2,keyasint"`
	// BroadcastAddr is where the aggregator sends (UDP) the P1 KeyDir
	// broadcast for this client.
	BroadcastAddr string `cbor:"3,keyasint"`
}

// KeyDir is the aggregator->clients P1 broadcast: every advertised
// bundle, keyed by id.
type KeyDir struct {
	Entries map[party.ID]KeyBundle `cbor:"1,keyasint"`
}

// ShareMsg is the client->aggregator P2 submission: one AEAD
// ciphertext addressed to each peer.
type ShareMsg struct {
	ID  party.ID            `cbor:"1,keyasint"`
	Cts map[party.ID][]byte `cbor:"2,keyasint"`
}

// Inbox is the aggregator->client P2 delivery: every ciphertext
// addressed to this recipient, keyed by sender.
type Inbox struct {
	Cts map[party.ID][]byte `cbor:"1,keyasint"`
}

// SharePayload is the plaintext sealed inside a P2 ciphertext: one
// Shamir share of the sender's ephemeral "s" scalar and one of its
// private seed, addressed from sender to recipient (spec §3 "Shares").
type SharePayload struct {
	From     party.ID `cbor:"1,keyasint"`
	To       party.ID `cbor:"2,keyasint"`
	ShareSK  ShareXY  `cbor:"3,keyasint"`
	ShareSeed ShareXY `cbor:"4,keyasint"`
}

// ShareXY is a single Shamir share, hex-encoded per spec §4.1.
type ShareXY struct {
	X string `cbor:"1,keyasint"`
	Y string `cbor:"2,keyasint"`
}

// MaskedMsg is the client->aggregator P3 submission.
type MaskedMsg struct {
	ID party.ID  `cbor:"1,keyasint"`
	Y  []float64 `cbor:"2,keyasint"`
}

// ConsistencyRequest is the aggregator->client P4 push of the proposed
// survivor set U3.
type ConsistencyRequest struct {
	U3 []party.ID `cbor:"1,keyasint"`
}

// ConsistencyReply is the client->aggregator P4 response. Unlike the
// source, which distinguishes a signed reply from a dissent by message
// arity, secureagg makes the distinction an explicit field: arity-based
// dispatch is exactly the kind of fragile object-graph-serializer
// behavior the REDESIGN FLAG in spec §9 asks to replace.
type ConsistencyReply struct {
	ID      party.ID `cbor:"1,keyasint"`
	Dissent bool     `cbor:"2,keyasint"`
	Sig     []byte   `cbor:"3,keyasint,omitempty"`
}

// ConsistencyBroadcast is the aggregator->clients P4 redistribution of
// every collected signature, so each client can verify every other
// client signed the same U3.
type ConsistencyBroadcast struct {
	Sigs map[party.ID][]byte `cbor:"1,keyasint"`
}

// UnmaskMsg is the client->aggregator P5 submission: for every peer in
// the pre-masking set U2 other than itself, exactly one of a private-key
// share or a seed share (spec §4.3 P5, §4.4 step 5).
type UnmaskMsg struct {
	ID             party.ID           `cbor:"1,keyasint"`
	PrivKeyShares map[party.ID]ShareXY `cbor:"2,keyasint"`
	SeedShares    map[party.ID]ShareXY `cbor:"3,keyasint"`
}

// Push kinds identify the body carried by a PushMessage, since the
// aggregator reuses a single client-provided callback address for
// every aggregator-initiated delivery (inbox delivery in phase 2, the
// consistency push and redistribution in phase 4).
const (
	PushKindInbox                = "inbox"
	PushKindConsistencyRequest   = "consistency_request"
	PushKindConsistencyBroadcast = "consistency_broadcast"
)

// PushMessage envelopes an aggregator-initiated delivery so a client's
// single callback listener can tell the payloads apart without relying
// on cbor map-shape sniffing.
type PushMessage struct {
	Kind string `cbor:"1,keyasint"`
	Body []byte `cbor:"2,keyasint"`
}

// NewPush encodes v into a PushMessage tagged with kind.
func NewPush(kind string, v interface{}) (PushMessage, error) {
	body, err := Marshal(v)
	if err != nil {
		return PushMessage{}, err
	}
	return PushMessage{Kind: kind, Body: body}, nil
}

// Marshal encodes v as cbor.
func Marshal(v interface{}) ([]byte, error) {
	return cbor.Marshal(v)
}

// Unmarshal decodes cbor bytes into v. A malformed payload is wrapped
// in wire.ErrDecode (spec §7.5 "DecodeError"), handled by callers the
// same way as a transport error: the affected party drops out of the
// phase it was decoded for.
func Unmarshal(b []byte, v interface{}) error {
	if err := cbor.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: %v", wire.ErrDecode, err)
	}
	return nil
}

// CanonicalIDs returns a deterministically-ordered list of party IDs,
// used so "sign the exact bytes of U3" (spec §4.4 step 4) hashes the
// same bytes regardless of map iteration order.
func CanonicalIDs(set map[party.ID]struct{}) []party.ID {
	return party.NewIDSlice(set)
}
