package protocol

import "github.com/ashenvale/coop/internal/game/settings"

// Outbound is the tagged-variant type for server-to-client events. EventType
// is the wire tag written into the envelope.
type Outbound interface {
	EventType() string
}

// SettingsSnapshot carries the full gameplay settings. Sent reliably to every
// newcomer and broadcast on a settings re-sync.
type SettingsSnapshot struct {
	Settings settings.Settings `json:"settings"`
}

// ParticipantEntered announces a participant now visible in the recipient's
// scene. It doubles as the catch-up message: a newcomer receives one per
// occupant already present, carrying that occupant's last-known state.
type ParticipantEntered struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Pose          Pose   `json:"pose"`
	AnimationClip string `json:"animationClip"`
}

// ParticipantLeft announces a participant no longer visible in the
// recipient's scene. Minimal on purpose: once out of sight the leaver's
// last-known state is irrelevant to the recipient.
type ParticipantLeft struct {
	ID string `json:"id"`
}

// ParticipantPosition is the fan-out of one participant's pose update.
type ParticipantPosition struct {
	ID          string `json:"id"`
	Pose        Pose   `json:"pose"`
	MapPosition Vec2   `json:"mapPosition"`
}

// ParticipantAnimation is the fan-out of one participant's animation update.
type ParticipantAnimation struct {
	ID          string `json:"id"`
	Clip        string `json:"clip"`
	Frame       uint16 `json:"frame"`
	EffectFlags []bool `json:"effectFlags,omitempty"`
}

// ParticipantDied announces an in-place death to same-scene participants.
type ParticipantDied struct {
	ID string `json:"id"`
}

// AbilityEffectSpawned announces an ability effect appearing on a participant.
type AbilityEffectSpawned struct {
	ID string `json:"id"`
}

// AbilityEffectDespawned announces an ability effect vanishing.
type AbilityEffectDespawned struct {
	ID string `json:"id"`
}

// AbilityEffectUpdated announces a state change on an active ability effect.
type AbilityEffectUpdated struct {
	ID     string `json:"id"`
	Block  bool   `json:"block"`
	Break  bool   `json:"break"`
	Reform bool   `json:"reform"`
}

// HeartbeatPing is the server-initiated liveness probe. Clients answer with
// a LivenessSignal.
type HeartbeatPing struct{}

// ServerShuttingDown notifies all sessions that the server is going away and
// no further events will follow.
type ServerShuttingDown struct{}

// Wire tags for outbound envelopes.
const (
	TypeSettingsSnapshot       = "settings"
	TypeParticipantEntered     = "participant_entered"
	TypeParticipantLeft        = "participant_left"
	TypeParticipantPosition    = "position_update"
	TypeParticipantAnimation   = "animation_update"
	TypeParticipantDied        = "participant_died"
	TypeAbilityEffectSpawned   = "ability_effect_spawned"
	TypeAbilityEffectDespawned = "ability_effect_despawned"
	TypeAbilityEffectUpdated   = "ability_effect_updated"
	TypeHeartbeatPing          = "heartbeat"
	TypeServerShuttingDown     = "server_shutdown"
)

// EventType implementations.
func (SettingsSnapshot) EventType() string       { return TypeSettingsSnapshot }
func (ParticipantEntered) EventType() string     { return TypeParticipantEntered }
func (ParticipantLeft) EventType() string        { return TypeParticipantLeft }
func (ParticipantPosition) EventType() string    { return TypeParticipantPosition }
func (ParticipantAnimation) EventType() string   { return TypeParticipantAnimation }
func (ParticipantDied) EventType() string        { return TypeParticipantDied }
func (AbilityEffectSpawned) EventType() string   { return TypeAbilityEffectSpawned }
func (AbilityEffectDespawned) EventType() string { return TypeAbilityEffectDespawned }
func (AbilityEffectUpdated) EventType() string   { return TypeAbilityEffectUpdated }
func (HeartbeatPing) EventType() string          { return TypeHeartbeatPing }
func (ServerShuttingDown) EventType() string     { return TypeServerShuttingDown }
