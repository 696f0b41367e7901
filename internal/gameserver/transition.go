package gameserver

import (
	"time"

	"go.uber.org/zap"

	"github.com/ashenvale/coop/internal/game/session"
	"github.com/ashenvale/coop/internal/protocol"
)

// handleHello creates the session and runs the join half of the transition
// protocol: the newcomer gets the settings snapshot plus one catch-up
// ParticipantEntered per occupant, and every occupant gets one for the
// newcomer. A duplicate hello is dropped without touching the live session.
func (d *Dispatcher) handleHello(connID string, e protocol.Hello) {
	if e.Username == "" || e.SceneName == "" {
		d.logger.Warn("hello with empty username or scene dropped",
			zap.String("conn_id", connID),
			zap.String("username", e.Username),
			zap.String("scene", e.SceneName),
		)
		return
	}

	sess, err := d.registry.Add(connID, e.Username, e.SceneName, e.Pose, e.AnimationClip)
	if err != nil {
		d.logger.Warn("duplicate hello dropped",
			zap.String("conn_id", connID),
			zap.Error(err),
		)
		return
	}

	if err := d.transport.SendReliable(connID, protocol.SettingsSnapshot{Settings: d.settings}); err != nil {
		d.logger.Warn("sending settings snapshot",
			zap.String("conn_id", connID),
			zap.Error(err),
		)
	}

	d.exchangeEnterMessages(sess)

	d.logger.Info("session joined",
		zap.String("conn_id", connID),
		zap.String("username", e.Username),
		zap.String("scene", e.SceneName),
		zap.Int("sessions", d.registry.Count()),
	)
}

// handleChangeScene runs the move half of the transition protocol. A move to
// the current scene (death-respawn in place) skips the leave/enter exchange
// entirely and only refreshes the cached state through the ordinary update
// path.
func (d *Dispatcher) handleChangeScene(connID string, e protocol.ChangeScene) {
	sess, ok := d.registry.Get(connID)
	if !ok {
		d.logger.Warn("scene change for unknown session dropped",
			zap.String("conn_id", connID),
			zap.String("scene", e.SceneName),
		)
		return
	}
	if e.SceneName == "" {
		d.logger.Warn("scene change to empty scene dropped", zap.String("conn_id", connID))
		return
	}

	oldScene := sess.CurrentScene
	refresh := func(s *session.Session) {
		s.LastPose = e.Pose
		s.LastAnimation = protocol.Animation{Clip: e.AnimationClip}
		s.LastSeenAt = time.Now()
	}

	if oldScene == e.SceneName {
		_ = d.registry.UpdateState(connID, refresh)
		d.sendToScenePeers(connID, oldScene, protocol.ParticipantPosition{
			ID:   connID,
			Pose: e.Pose,
		}, false)
		return
	}

	if _, err := d.registry.Move(connID, e.SceneName); err != nil {
		d.logger.Warn("moving session", zap.String("conn_id", connID), zap.Error(err))
		return
	}
	_ = d.registry.UpdateState(connID, refresh)

	// One pass over the full session set covers both scenes: leavers for the
	// old one, the bidirectional enter exchange for the new one.
	entered := protocol.ParticipantEntered{
		ID:            connID,
		Username:      sess.Username,
		Pose:          e.Pose,
		AnimationClip: e.AnimationClip,
	}
	left := protocol.ParticipantLeft{ID: connID}
	for _, q := range d.registry.All() {
		if q.ID == connID {
			continue
		}
		switch q.CurrentScene {
		case oldScene:
			d.sendReliableLogged(q.ID, left)
		case e.SceneName:
			d.sendReliableLogged(q.ID, entered)
			d.sendReliableLogged(connID, protocol.ParticipantEntered{
				ID:            q.ID,
				Username:      q.Username,
				Pose:          q.LastPose,
				AnimationClip: q.LastAnimation.Clip,
			})
		}
	}

	d.logger.Debug("session changed scene",
		zap.String("conn_id", connID),
		zap.String("from", oldScene),
		zap.String("to", e.SceneName),
	)
}

// removeSession runs the disconnect half of the transition protocol: a leave
// message to every same-scene peer, then the registry erase. Repeated
// disconnect signals for the same id are silently ignored.
func (d *Dispatcher) removeSession(connID, reason string) {
	sess, ok := d.registry.Get(connID)
	if !ok {
		d.logger.Debug("disconnect for unknown session ignored",
			zap.String("conn_id", connID),
			zap.String("reason", reason),
		)
		return
	}

	d.sendToScenePeers(connID, sess.CurrentScene, protocol.ParticipantLeft{ID: connID}, true)

	if err := d.registry.Remove(connID); err != nil {
		d.logger.Warn("removing session", zap.String("conn_id", connID), zap.Error(err))
		return
	}

	d.logger.Info("session removed",
		zap.String("conn_id", connID),
		zap.String("username", sess.Username),
		zap.String("scene", sess.CurrentScene),
		zap.String("reason", reason),
		zap.Int("sessions", d.registry.Count()),
	)
}

// exchangeEnterMessages sends the bidirectional catch-up for a session newly
// present in its scene: peers learn about the newcomer, the newcomer learns
// each peer's last-known state without a roster query.
func (d *Dispatcher) exchangeEnterMessages(sess *session.Session) {
	entered := protocol.ParticipantEntered{
		ID:            sess.ID,
		Username:      sess.Username,
		Pose:          sess.LastPose,
		AnimationClip: sess.LastAnimation.Clip,
	}
	for _, id := range d.registry.IDsInScene(sess.CurrentScene) {
		if id == sess.ID {
			continue
		}
		other, ok := d.registry.Get(id)
		if !ok {
			continue
		}
		d.sendReliableLogged(id, entered)
		d.sendReliableLogged(sess.ID, protocol.ParticipantEntered{
			ID:            other.ID,
			Username:      other.Username,
			Pose:          other.LastPose,
			AnimationClip: other.LastAnimation.Clip,
		})
	}
}

// sendReliableLogged sends reliably and logs a failure without propagating
// it: one bad recipient never aborts the rest of a fan-out.
func (d *Dispatcher) sendReliableLogged(connID string, evt protocol.Outbound) {
	if err := d.transport.SendReliable(connID, evt); err != nil {
		d.logger.Debug("reliable send failed",
			zap.String("conn_id", connID),
			zap.String("event", evt.EventType()),
			zap.Error(err),
		)
	}
}
