package protocol

import (
	"encoding/json"
	"fmt"
)

// Wire tags for inbound envelopes.
const (
	TypeHello                = "hello"
	TypeChangeScene          = "change_scene"
	TypePositionUpdate       = "position_update"
	TypeAnimationUpdate      = "animation_update"
	TypeDisconnect           = "disconnect"
	TypeDeath                = "death"
	TypeLivenessSignal       = "liveness"
	TypeAbilityEffectSpawn   = "ability_effect_spawn"
	TypeAbilityEffectDespawn = "ability_effect_despawn"
	TypeAbilityEffectUpdate  = "ability_effect_update"
)

// envelope is the wire frame: a type tag and the event payload.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// DecodeInbound parses a client frame into its tagged event variant.
//
// Postcondition: Returns a concrete Inbound value, or an error for malformed
// JSON or an unknown type tag.
func DecodeInbound(data []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parsing inbound envelope: %w", err)
	}

	var (
		evt Inbound
		err error
	)
	switch env.Type {
	case TypeHello:
		evt, err = decodePayload[Hello](env.Data)
	case TypeChangeScene:
		evt, err = decodePayload[ChangeScene](env.Data)
	case TypePositionUpdate:
		evt, err = decodePayload[PositionUpdate](env.Data)
	case TypeAnimationUpdate:
		evt, err = decodePayload[AnimationUpdate](env.Data)
	case TypeDisconnect:
		evt = Disconnect{}
	case TypeDeath:
		evt = Death{}
	case TypeLivenessSignal:
		evt = LivenessSignal{}
	case TypeAbilityEffectSpawn:
		evt = AbilityEffectSpawn{}
	case TypeAbilityEffectDespawn:
		evt = AbilityEffectDespawn{}
	case TypeAbilityEffectUpdate:
		evt, err = decodePayload[AbilityEffectUpdate](env.Data)
	default:
		return nil, fmt.Errorf("unknown inbound event type %q", env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %q payload: %w", env.Type, err)
	}
	return evt, nil
}

func decodePayload[T Inbound](data []byte) (T, error) {
	var v T
	if len(data) == 0 {
		return v, fmt.Errorf("missing payload")
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, err
	}
	return v, nil
}

// EncodeOutbound wraps a server event in a wire envelope.
//
// Postcondition: Returns a JSON frame carrying the event's type tag, or an
// error if the payload cannot be marshalled.
func EncodeOutbound(evt Outbound) ([]byte, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("marshalling %q payload: %w", evt.EventType(), err)
	}
	return json.Marshal(envelope{Type: evt.EventType(), Data: payload})
}

// EncodeInbound wraps a client event in a wire envelope. Used by test clients
// and kept alongside EncodeOutbound so the two directions stay symmetric.
func EncodeInbound(evt Inbound) ([]byte, error) {
	tag, err := inboundTag(evt)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("marshalling %q payload: %w", tag, err)
	}
	return json.Marshal(envelope{Type: tag, Data: payload})
}

func inboundTag(evt Inbound) (string, error) {
	switch evt.(type) {
	case Hello:
		return TypeHello, nil
	case ChangeScene:
		return TypeChangeScene, nil
	case PositionUpdate:
		return TypePositionUpdate, nil
	case AnimationUpdate:
		return TypeAnimationUpdate, nil
	case Disconnect:
		return TypeDisconnect, nil
	case Death:
		return TypeDeath, nil
	case LivenessSignal:
		return TypeLivenessSignal, nil
	case AbilityEffectSpawn:
		return TypeAbilityEffectSpawn, nil
	case AbilityEffectDespawn:
		return TypeAbilityEffectDespawn, nil
	case AbilityEffectUpdate:
		return TypeAbilityEffectUpdate, nil
	default:
		return "", fmt.Errorf("unknown inbound event %T", evt)
	}
}

// DecodeOutbound parses a server frame into its event variant. Only test
// clients need this direction.
func DecodeOutbound(data []byte) (Outbound, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parsing outbound envelope: %w", err)
	}

	var (
		evt Outbound
		err error
	)
	switch env.Type {
	case TypeSettingsSnapshot:
		evt, err = decodeOutboundPayload[SettingsSnapshot](env.Data)
	case TypeParticipantEntered:
		evt, err = decodeOutboundPayload[ParticipantEntered](env.Data)
	case TypeParticipantLeft:
		evt, err = decodeOutboundPayload[ParticipantLeft](env.Data)
	case TypeParticipantPosition:
		evt, err = decodeOutboundPayload[ParticipantPosition](env.Data)
	case TypeParticipantAnimation:
		evt, err = decodeOutboundPayload[ParticipantAnimation](env.Data)
	case TypeParticipantDied:
		evt, err = decodeOutboundPayload[ParticipantDied](env.Data)
	case TypeAbilityEffectSpawned:
		evt, err = decodeOutboundPayload[AbilityEffectSpawned](env.Data)
	case TypeAbilityEffectDespawned:
		evt, err = decodeOutboundPayload[AbilityEffectDespawned](env.Data)
	case TypeAbilityEffectUpdated:
		evt, err = decodeOutboundPayload[AbilityEffectUpdated](env.Data)
	case TypeHeartbeatPing:
		evt = HeartbeatPing{}
	case TypeServerShuttingDown:
		evt = ServerShuttingDown{}
	default:
		return nil, fmt.Errorf("unknown outbound event type %q", env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %q payload: %w", env.Type, err)
	}
	return evt, nil
}

func decodeOutboundPayload[T Outbound](data []byte) (T, error) {
	var v T
	if len(data) == 0 {
		return v, fmt.Errorf("missing payload")
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, err
	}
	return v, nil
}
