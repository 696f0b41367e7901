package gameserver

import "github.com/ashenvale/coop/internal/protocol"

// Envelope is one inbound event tagged with the sending connection id. The
// transport decodes frames into envelopes and delivers them, in order, to the
// dispatcher's inbox.
type Envelope struct {
	ConnID string
	Event  protocol.Inbound
}

// Transport is the contract the dispatcher expects from the connection layer:
// per-connection reliable and unreliable sends plus a reliable broadcast.
// Send failures are the recipient's problem — the transport surfaces them as
// a later Disconnect envelope, and the dispatcher never aborts a fan-out over
// one bad recipient.
type Transport interface {
	// SendReliable delivers evt to the given connection with ordering and
	// delivery guarantees.
	SendReliable(connID string, evt protocol.Outbound) error
	// SendUnreliable delivers evt best-effort; the frame may be dropped.
	SendUnreliable(connID string, evt protocol.Outbound) error
	// BroadcastReliable delivers evt reliably to every open connection.
	BroadcastReliable(evt protocol.Outbound)
}
