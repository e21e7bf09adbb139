package client

import "github.com/chenjunbao/secureagg/internal/protocol"

// roundState carries the background listeners' deliveries to the
// linear flow in runFlow. Each channel is buffered by one: the
// aggregator only ever sends one message of each kind per round, so a
// listener goroutine can hand it off and return to Accept without
// blocking on the flow goroutine's pace.
type roundState struct {
	keyDirCh    chan protocol.KeyDir
	inboxCh     chan protocol.Inbox
	consReqCh   chan protocol.ConsistencyRequest
	consBcastCh chan protocol.ConsistencyBroadcast
}

func newRoundState() *roundState {
	return &roundState{
		keyDirCh:    make(chan protocol.KeyDir, 1),
		inboxCh:     make(chan protocol.Inbox, 1),
		consReqCh:   make(chan protocol.ConsistencyRequest, 1),
		consBcastCh: make(chan protocol.ConsistencyBroadcast, 1),
	}
}
