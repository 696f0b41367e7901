// Package protocol defines the event types exchanged between clients and the
// scene synchronization server, plus the JSON wire codec used by the
// WebSocket transport.
//
// Inbound events are client-to-server and carry no sender identity; the
// transport tags each decoded event with the connection id before handing it
// to the dispatcher. Outbound events are server-to-client. The reliable or
// unreliable delivery channel is chosen by the dispatcher per event kind, not
// encoded on the wire.
package protocol

// Vec2 is a 2D vector used for positions, scales, and map coordinates.
type Vec2 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// Pose is a participant's spatial state: world position plus scale.
// Scale carries facing via sign (a negative X means mirrored).
type Pose struct {
	Position Vec2 `json:"position"`
	Scale    Vec2 `json:"scale"`
}

// Animation is a participant's animation state: the clip being played, the
// frame within it, and per-clip boolean effect flags interpreted client-side.
type Animation struct {
	Clip        string `json:"clip"`
	Frame       uint16 `json:"frame"`
	EffectFlags []bool `json:"effectFlags,omitempty"`
}

// Inbound is the tagged-variant type for client-to-server events. The
// dispatcher switches exhaustively over the concrete types below.
type Inbound interface {
	inbound()
}

// Hello is the session-creating handshake. It is the only event that may
// create a session; any other event for an unknown connection id is dropped.
type Hello struct {
	Username      string `json:"username"`
	SceneName     string `json:"sceneName"`
	Pose          Pose   `json:"pose"`
	AnimationClip string `json:"animationClip"`
}

// ChangeScene reports that the participant moved to a new scene, with the
// pose and animation it will spawn with there.
type ChangeScene struct {
	SceneName     string `json:"sceneName"`
	Pose          Pose   `json:"pose"`
	AnimationClip string `json:"animationClip"`
}

// PositionUpdate is the continuous per-tick pose report.
type PositionUpdate struct {
	Pose        Pose `json:"pose"`
	MapPosition Vec2 `json:"mapPosition"`
}

// AnimationUpdate is the continuous animation state report.
type AnimationUpdate struct {
	Clip        string `json:"clip"`
	Frame       uint16 `json:"frame"`
	EffectFlags []bool `json:"effectFlags,omitempty"`
}

// Disconnect signals a voluntary disconnect. The transport also synthesizes
// one when a connection drops, so it must be idempotent per connection id.
type Disconnect struct{}

// Death reports that the participant died in place.
type Death struct{}

// LivenessSignal is the client's reply to a server heartbeat ping.
type LivenessSignal struct{}

// AbilityEffectSpawn reports that the participant's ability effect appeared.
type AbilityEffectSpawn struct{}

// AbilityEffectDespawn reports that the participant's ability effect vanished.
type AbilityEffectDespawn struct{}

// AbilityEffectUpdate reports a state change on an active ability effect.
type AbilityEffectUpdate struct {
	Block  bool `json:"block"`
	Break  bool `json:"break"`
	Reform bool `json:"reform"`
}

func (Hello) inbound()                {}
func (ChangeScene) inbound()          {}
func (PositionUpdate) inbound()       {}
func (AnimationUpdate) inbound()      {}
func (Disconnect) inbound()           {}
func (Death) inbound()                {}
func (LivenessSignal) inbound()       {}
func (AbilityEffectSpawn) inbound()   {}
func (AbilityEffectDespawn) inbound() {}
func (AbilityEffectUpdate) inbound()  {}
