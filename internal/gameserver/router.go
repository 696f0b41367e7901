package gameserver

import (
	"time"

	"go.uber.org/zap"

	"github.com/ashenvale/coop/internal/game/session"
	"github.com/ashenvale/coop/internal/protocol"
)

// The update fan-out router: continuous state updates are forwarded to every
// other session in the sender's scene and cached on the sender's session so a
// later catch-up reflects the latest sent state. Updates never change scene
// membership. An update for an unknown id is a normal race with disconnect
// and is dropped with a warning.

func (d *Dispatcher) handlePositionUpdate(connID string, e protocol.PositionUpdate) {
	err := d.registry.UpdateState(connID, func(s *session.Session) {
		s.LastPose = e.Pose
		s.LastMapPosition = e.MapPosition
		s.LastSeenAt = time.Now()
	})
	if err != nil {
		d.logger.Warn("position update for unknown session dropped", zap.String("conn_id", connID))
		return
	}

	sess, _ := d.registry.Get(connID)
	d.sendToScenePeers(connID, sess.CurrentScene, protocol.ParticipantPosition{
		ID:          connID,
		Pose:        e.Pose,
		MapPosition: e.MapPosition,
	}, false)
}

func (d *Dispatcher) handleAnimationUpdate(connID string, e protocol.AnimationUpdate) {
	err := d.registry.UpdateState(connID, func(s *session.Session) {
		s.LastAnimation = protocol.Animation{
			Clip:        e.Clip,
			Frame:       e.Frame,
			EffectFlags: e.EffectFlags,
		}
		s.LastSeenAt = time.Now()
	})
	if err != nil {
		d.logger.Warn("animation update for unknown session dropped", zap.String("conn_id", connID))
		return
	}

	sess, _ := d.registry.Get(connID)
	d.sendToScenePeers(connID, sess.CurrentScene, protocol.ParticipantAnimation{
		ID:          connID,
		Clip:        e.Clip,
		Frame:       e.Frame,
		EffectFlags: e.EffectFlags,
	}, false)
}

// handleDeath forwards an in-place death reliably; it must not be lost, and
// it does not move the session anywhere. The client follows up with a
// ChangeScene (possibly to the same scene) when it respawns.
func (d *Dispatcher) handleDeath(connID string) {
	sess, ok := d.touch(connID)
	if !ok {
		d.logger.Warn("death for unknown session dropped", zap.String("conn_id", connID))
		return
	}
	d.sendToScenePeers(connID, sess.CurrentScene, protocol.ParticipantDied{ID: connID}, true)
}

func (d *Dispatcher) handleAbilityEffectSpawn(connID string) {
	sess, ok := d.touch(connID)
	if !ok {
		d.logger.Warn("ability effect spawn for unknown session dropped", zap.String("conn_id", connID))
		return
	}
	d.sendToScenePeers(connID, sess.CurrentScene, protocol.AbilityEffectSpawned{ID: connID}, false)
}

func (d *Dispatcher) handleAbilityEffectDespawn(connID string) {
	sess, ok := d.touch(connID)
	if !ok {
		d.logger.Warn("ability effect despawn for unknown session dropped", zap.String("conn_id", connID))
		return
	}
	d.sendToScenePeers(connID, sess.CurrentScene, protocol.AbilityEffectDespawned{ID: connID}, false)
}

func (d *Dispatcher) handleAbilityEffectUpdate(connID string, e protocol.AbilityEffectUpdate) {
	sess, ok := d.touch(connID)
	if !ok {
		d.logger.Warn("ability effect update for unknown session dropped", zap.String("conn_id", connID))
		return
	}
	d.sendToScenePeers(connID, sess.CurrentScene, protocol.AbilityEffectUpdated{
		ID:     connID,
		Block:  e.Block,
		Break:  e.Break,
		Reform: e.Reform,
	}, false)
}

// sendToScenePeers forwards evt to every session sharing the given scene
// except the sender. Send failures are logged per recipient and never abort
// the traversal.
func (d *Dispatcher) sendToScenePeers(senderID, scene string, evt protocol.Outbound, reliable bool) {
	for _, id := range d.registry.IDsInScene(scene) {
		if id == senderID {
			continue
		}
		var err error
		if reliable {
			err = d.transport.SendReliable(id, evt)
		} else {
			err = d.transport.SendUnreliable(id, evt)
		}
		if err != nil {
			d.logger.Debug("fan-out send failed",
				zap.String("conn_id", id),
				zap.String("event", evt.EventType()),
				zap.Error(err),
			)
		}
	}
}

// touch refreshes LastSeenAt and returns the session. Any inbound event
// counts as proof of life, not just explicit liveness signals.
func (d *Dispatcher) touch(connID string) (*session.Session, bool) {
	err := d.registry.UpdateState(connID, func(s *session.Session) {
		s.LastSeenAt = time.Now()
	})
	if err != nil {
		return nil, false
	}
	return d.registry.Get(connID)
}
