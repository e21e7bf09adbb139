package client

import "errors"

// ErrSignatureInvalid is returned when a client observes a bad signature
// during phase-2 key-directory verification or the phase-4 consistency
// cross-check (spec §7.3 "SignatureInvalid (local)"). Both cases abort
// the round locally; the aggregator only learns about it indirectly,
// either because this client never submits the next phase or because it
// sends an explicit dissent (phase 4 only).
var ErrSignatureInvalid = errors.New("client: signature invalid")
