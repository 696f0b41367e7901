// Package gameserver provides the scene synchronization engine: the session
// event dispatcher, the scene transition protocol, the same-scene update
// fan-out, and the liveness monitor.
//
// The dispatcher is the single owner of the session registry. Every inbound
// event arrives on one ordered inbox channel and is handled to completion
// before the next; the liveness and heartbeat ticks are interleaved through
// the same select loop. That serialization is what guarantees no two
// transitions for the same connection id are ever in flight at once.
package gameserver

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ashenvale/coop/internal/config"
	"github.com/ashenvale/coop/internal/game/session"
	"github.com/ashenvale/coop/internal/game/settings"
	"github.com/ashenvale/coop/internal/protocol"
)

// defaultInboxSize bounds the dispatcher inbox. A full inbox applies
// backpressure to transport read loops rather than dropping events.
const defaultInboxSize = 256

// Dispatcher receives inbound protocol events and drives the registry,
// transition protocol, and fan-out router.
type Dispatcher struct {
	registry  *session.Registry
	transport Transport
	settings  settings.Settings
	liveness  config.LivenessConfig
	logger    *zap.Logger

	inbox      chan Envelope
	settingsCh chan settings.Settings
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewDispatcher creates a Dispatcher.
//
// Precondition: registry and logger must be non-nil; s must be validated
// settings. transport may be nil if SetTransport is called before Run.
func NewDispatcher(registry *session.Registry, transport Transport, s settings.Settings, liveness config.LivenessConfig, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		registry:   registry,
		transport:  transport,
		settings:   s,
		liveness:   liveness,
		logger:     logger,
		inbox:      make(chan Envelope, defaultInboxSize),
		settingsCh: make(chan settings.Settings, 1),
		stop:       make(chan struct{}),
	}
}

// SetTransport wires the transport after construction. The dispatcher and the
// transport each hold a reference to the other, so one of them has to be
// attached late; it must happen before Run.
func (d *Dispatcher) SetTransport(t Transport) {
	d.transport = t
}

// Deliver enqueues one inbound envelope for processing. Blocks when the inbox
// is full; returns immediately once the dispatcher has stopped.
func (d *Dispatcher) Deliver(env Envelope) {
	select {
	case d.inbox <- env:
	case <-d.stop:
	}
}

// ReloadSettings swaps the gameplay settings and triggers a SettingsSnapshot
// broadcast re-sync to every session. Safe to call from any goroutine.
//
// Precondition: s must be validated settings.
func (d *Dispatcher) ReloadSettings(s settings.Settings) {
	select {
	case d.settingsCh <- s:
	case <-d.stop:
	}
}

// Run processes events until Stop is called. On stop it broadcasts a reliable
// shutdown notice, clears the registry in one step, and returns.
//
// Postcondition: The registry is empty when Run returns.
func (d *Dispatcher) Run() error {
	var livenessC, heartbeatC <-chan time.Time
	if d.liveness.Enabled {
		livenessTicker := time.NewTicker(d.liveness.ConnectionTimeout / 2)
		defer livenessTicker.Stop()
		livenessC = livenessTicker.C

		heartbeatTicker := time.NewTicker(d.liveness.HeartbeatInterval)
		defer heartbeatTicker.Stop()
		heartbeatC = heartbeatTicker.C
	}

	d.logger.Info("dispatcher running",
		zap.Bool("liveness_enabled", d.liveness.Enabled),
		zap.Duration("connection_timeout", d.liveness.ConnectionTimeout),
		zap.Duration("heartbeat_interval", d.liveness.HeartbeatInterval),
	)

	for {
		select {
		case <-d.stop:
			d.shutdown()
			return nil
		case env := <-d.inbox:
			d.handle(env)
		case <-livenessC:
			d.dropStale(time.Now())
		case <-heartbeatC:
			d.transport.BroadcastReliable(protocol.HeartbeatPing{})
		case s := <-d.settingsCh:
			d.settings = s
			d.transport.BroadcastReliable(protocol.SettingsSnapshot{Settings: s})
			d.logger.Info("settings re-synced", zap.Int("sessions", d.registry.Count()))
		}
	}
}

// Stop signals Run to shut down. Idempotent.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.stop) })
}

// handle routes one envelope to its handler. Handlers are the only mutators
// of the registry, so this switch is the full write surface of the engine.
func (d *Dispatcher) handle(env Envelope) {
	switch e := env.Event.(type) {
	case protocol.Hello:
		d.handleHello(env.ConnID, e)
	case protocol.ChangeScene:
		d.handleChangeScene(env.ConnID, e)
	case protocol.PositionUpdate:
		d.handlePositionUpdate(env.ConnID, e)
	case protocol.AnimationUpdate:
		d.handleAnimationUpdate(env.ConnID, e)
	case protocol.Disconnect:
		d.removeSession(env.ConnID, "disconnect")
	case protocol.Death:
		d.handleDeath(env.ConnID)
	case protocol.LivenessSignal:
		d.handleLivenessSignal(env.ConnID)
	case protocol.AbilityEffectSpawn:
		d.handleAbilityEffectSpawn(env.ConnID)
	case protocol.AbilityEffectDespawn:
		d.handleAbilityEffectDespawn(env.ConnID)
	case protocol.AbilityEffectUpdate:
		d.handleAbilityEffectUpdate(env.ConnID, e)
	default:
		d.logger.Warn("unhandled inbound event",
			zap.String("conn_id", env.ConnID),
			zap.String("type", fmt.Sprintf("%T", env.Event)),
		)
	}
}

// shutdown is the full-reset teardown: a reliable notice to everyone, then
// the registry cleared in one step. No per-session leave broadcasts — the
// transport connections are about to be torn down anyway.
func (d *Dispatcher) shutdown() {
	cleared := d.registry.Count()
	d.transport.BroadcastReliable(protocol.ServerShuttingDown{})
	d.registry.Clear()
	d.logger.Info("dispatcher stopped", zap.Int("sessions_cleared", cleared))
}
