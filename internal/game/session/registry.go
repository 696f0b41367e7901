// Package session provides participant session tracking and scene presence
// management for the sync server.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/ashenvale/coop/internal/protocol"
)

// Session tracks one connected participant's identity and last-known state.
// The last-known fields exist so a scene-entry catch-up can replay the most
// recently sent state; they are overwritten on every update, never derived.
type Session struct {
	// ID is the opaque connection identifier assigned by the transport.
	ID string
	// Username is the participant-chosen display name, immutable for the
	// session's lifetime.
	Username string
	// CurrentScene is the scene the participant currently occupies. Never
	// empty once the session exists.
	CurrentScene string
	// LastPose is the last reported position and scale.
	LastPose protocol.Pose
	// LastAnimation is the last reported animation state.
	LastAnimation protocol.Animation
	// LastMapPosition is the last reported coarse map location.
	LastMapPosition protocol.Vec2
	// LastSeenAt is the time of the last inbound event from this connection.
	LastSeenAt time.Time
}

// Registry is the authoritative mapping from connection id to session, with
// a derived scene index answering "who shares this scene" in O(occupants).
// The index is updated in the same critical section as CurrentScene so the
// two can never drift. All methods are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	sessions  map[string]*Session        // connection id → session
	sceneSets map[string]map[string]bool // scene name → set of connection ids
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions:  make(map[string]*Session),
		sceneSets: make(map[string]map[string]bool),
	}
}

// Add registers a new session in the given scene.
//
// Precondition: id, username, and scene must be non-empty.
// Postcondition: Returns the created Session, or an error if the id is
// already registered (a duplicate hello must not overwrite live state).
func (r *Registry) Add(id, username, scene string, pose protocol.Pose, animationClip string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[id]; exists {
		return nil, fmt.Errorf("session %q already connected", id)
	}

	sess := &Session{
		ID:            id,
		Username:      username,
		CurrentScene:  scene,
		LastPose:      pose,
		LastAnimation: protocol.Animation{Clip: animationClip},
		LastSeenAt:    time.Now(),
	}

	r.sessions[id] = sess
	if r.sceneSets[scene] == nil {
		r.sceneSets[scene] = make(map[string]bool)
	}
	r.sceneSets[scene][id] = true

	return sess, nil
}

// Remove deletes a session and cleans up its scene index entry.
//
// Postcondition: The session is gone from all tracking. Returns an error if
// the id is unknown; callers treating removal as an idempotent signal ignore
// it.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, exists := r.sessions[id]
	if !exists {
		return fmt.Errorf("session %q not found", id)
	}

	r.dropFromScene(id, sess.CurrentScene)
	delete(r.sessions, id)
	return nil
}

// Move reassigns a session to a new scene, keeping the scene index in step.
// A move to the session's current scene is an explicit no-op: membership is
// untouched, so no spurious leave/enter pair can be derived from it.
//
// Postcondition: Returns the previous scene name, or an error if the id is
// unknown.
func (r *Registry) Move(id, newScene string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, exists := r.sessions[id]
	if !exists {
		return "", fmt.Errorf("session %q not found", id)
	}

	oldScene := sess.CurrentScene
	if oldScene == newScene {
		return oldScene, nil
	}

	r.dropFromScene(id, oldScene)
	sess.CurrentScene = newScene
	if r.sceneSets[newScene] == nil {
		r.sceneSets[newScene] = make(map[string]bool)
	}
	r.sceneSets[newScene][id] = true

	return oldScene, nil
}

// Get returns the session for the given connection id.
//
// Postcondition: Returns (session, true) if found, or (nil, false) otherwise.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[id]
	return sess, ok
}

// UpdateState applies fn to the session under the registry lock. fn must not
// change CurrentScene; scene moves go through Move so the index stays
// consistent.
//
// Postcondition: Returns an error if the id is unknown, in which case fn is
// not called.
func (r *Registry) UpdateState(id string, fn func(*Session)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, exists := r.sessions[id]
	if !exists {
		return fmt.Errorf("session %q not found", id)
	}
	fn(sess)
	return nil
}

// IDsInScene returns the connection ids of all sessions in the given scene.
//
// Postcondition: Returns a slice of ids (may be empty).
func (r *Registry) IDsInScene(scene string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids, ok := r.sceneSets[scene]
	if !ok {
		return nil
	}

	result := make([]string, 0, len(ids))
	for id := range ids {
		result = append(result, id)
	}
	return result
}

// All returns a snapshot slice of every session.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		result = append(result, sess)
	}
	return result
}

// Count returns the number of connected sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Clear removes every session in one step. Used on server shutdown, where
// per-session teardown is pointless because the transport is going away too.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = make(map[string]*Session)
	r.sceneSets = make(map[string]map[string]bool)
}

// dropFromScene removes id from a scene set, deleting the set when it
// empties. Caller must hold the write lock.
func (r *Registry) dropFromScene(id, scene string) {
	if set, ok := r.sceneSets[scene]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(r.sceneSets, scene)
		}
	}
}
