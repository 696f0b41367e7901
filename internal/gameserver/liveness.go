package gameserver

import (
	"time"

	"go.uber.org/zap"
)

// handleLivenessSignal records proof of life for the connection. A signal
// from an id that already timed out is ignored; the client will reconnect.
func (d *Dispatcher) handleLivenessSignal(connID string) {
	if _, ok := d.touch(connID); !ok {
		d.logger.Debug("liveness signal for unknown session ignored", zap.String("conn_id", connID))
	}
}

// dropStale removes every session that has been silent longer than the
// configured connection timeout. Removal goes through the exact same path as
// an explicit disconnect, leave broadcast included.
func (d *Dispatcher) dropStale(now time.Time) {
	cutoff := now.Add(-d.liveness.ConnectionTimeout)
	for _, sess := range d.registry.All() {
		if sess.LastSeenAt.Before(cutoff) {
			d.logger.Info("session timed out",
				zap.String("conn_id", sess.ID),
				zap.String("username", sess.Username),
				zap.Time("last_seen", sess.LastSeenAt),
			)
			d.removeSession(sess.ID, "liveness timeout")
		}
	}
}
