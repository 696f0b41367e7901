package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/ashenvale/coop/internal/protocol"
)

func testPose(x, y float32) protocol.Pose {
	return protocol.Pose{
		Position: protocol.Vec2{X: x, Y: y},
		Scale:    protocol.Vec2{X: 1, Y: 1},
	}
}

func TestRegistry_Add(t *testing.T) {
	r := NewRegistry()
	sess, err := r.Add("c1", "Alice", "Town", testPose(10, 20), "idle")
	require.NoError(t, err)
	assert.Equal(t, "Alice", sess.Username)
	assert.Equal(t, "Town", sess.CurrentScene)
	assert.Equal(t, float32(10), sess.LastPose.Position.X)
	assert.Equal(t, "idle", sess.LastAnimation.Clip)
	assert.False(t, sess.LastSeenAt.IsZero())
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_AddDuplicate(t *testing.T) {
	r := NewRegistry()
	_, err := r.Add("c1", "Alice", "Town", testPose(0, 0), "idle")
	require.NoError(t, err)
	_, err = r.Add("c1", "Mallory", "Crossroads", testPose(0, 0), "idle")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already connected")

	// The original session must be untouched.
	sess, ok := r.Get("c1")
	require.True(t, ok)
	assert.Equal(t, "Alice", sess.Username)
	assert.Equal(t, "Town", sess.CurrentScene)
}

func TestRegistry_Remove(t *testing.T) {
	r := NewRegistry()
	_, err := r.Add("c1", "Alice", "Town", testPose(0, 0), "idle")
	require.NoError(t, err)

	require.NoError(t, r.Remove("c1"))
	assert.Equal(t, 0, r.Count())
	assert.Empty(t, r.IDsInScene("Town"))
}

func TestRegistry_RemoveNotFound(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Remove("ghost"))
}

func TestRegistry_Move(t *testing.T) {
	r := NewRegistry()
	_, err := r.Add("c1", "Alice", "Town", testPose(0, 0), "idle")
	require.NoError(t, err)

	oldScene, err := r.Move("c1", "Crossroads")
	require.NoError(t, err)
	assert.Equal(t, "Town", oldScene)

	sess, ok := r.Get("c1")
	require.True(t, ok)
	assert.Equal(t, "Crossroads", sess.CurrentScene)
	assert.Empty(t, r.IDsInScene("Town"))
	assert.Equal(t, []string{"c1"}, r.IDsInScene("Crossroads"))
}

func TestRegistry_MoveSameScene(t *testing.T) {
	r := NewRegistry()
	_, err := r.Add("c1", "Alice", "Town", testPose(0, 0), "idle")
	require.NoError(t, err)

	oldScene, err := r.Move("c1", "Town")
	require.NoError(t, err)
	assert.Equal(t, "Town", oldScene)
	assert.Equal(t, []string{"c1"}, r.IDsInScene("Town"))
}

func TestRegistry_MoveNotFound(t *testing.T) {
	r := NewRegistry()
	_, err := r.Move("ghost", "Town")
	assert.Error(t, err)
}

func TestRegistry_UpdateState(t *testing.T) {
	r := NewRegistry()
	_, err := r.Add("c1", "Alice", "Town", testPose(0, 0), "idle")
	require.NoError(t, err)

	now := time.Now()
	err = r.UpdateState("c1", func(s *Session) {
		s.LastPose = testPose(5, 5)
		s.LastSeenAt = now
	})
	require.NoError(t, err)

	sess, _ := r.Get("c1")
	assert.Equal(t, float32(5), sess.LastPose.Position.X)
	assert.Equal(t, now, sess.LastSeenAt)
}

func TestRegistry_UpdateStateNotFound(t *testing.T) {
	r := NewRegistry()
	called := false
	err := r.UpdateState("ghost", func(*Session) { called = true })
	assert.Error(t, err)
	assert.False(t, called)
}

func TestRegistry_IDsInScene(t *testing.T) {
	r := NewRegistry()
	_, _ = r.Add("c1", "Alice", "Town", testPose(0, 0), "idle")
	_, _ = r.Add("c2", "Bob", "Town", testPose(0, 0), "idle")
	_, _ = r.Add("c3", "Carol", "Crossroads", testPose(0, 0), "idle")

	assert.ElementsMatch(t, []string{"c1", "c2"}, r.IDsInScene("Town"))
	assert.Equal(t, []string{"c3"}, r.IDsInScene("Crossroads"))
	assert.Empty(t, r.IDsInScene("Greenpath"))
}

func TestRegistry_Clear(t *testing.T) {
	r := NewRegistry()
	_, _ = r.Add("c1", "Alice", "Town", testPose(0, 0), "idle")
	_, _ = r.Add("c2", "Bob", "Crossroads", testPose(0, 0), "idle")

	r.Clear()
	assert.Equal(t, 0, r.Count())
	assert.Empty(t, r.IDsInScene("Town"))
	assert.Empty(t, r.IDsInScene("Crossroads"))

	// The registry is reusable after a clear.
	_, err := r.Add("c1", "Alice", "Town", testPose(0, 0), "idle")
	assert.NoError(t, err)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("c%d", n)
			_, _ = r.Add(id, "P", "Town", testPose(0, 0), "idle")
			_, _ = r.Move(id, "Crossroads")
			_ = r.IDsInScene("Crossroads")
			_ = r.Remove(id)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 0, r.Count())
}

// TestRegistry_SceneIndexConsistency checks that under arbitrary sequences of
// add/move/remove operations, the scene index always equals the grouping
// derived from each session's CurrentScene.
func TestRegistry_SceneIndexConsistency(t *testing.T) {
	scenes := []string{"Town", "Crossroads", "Greenpath", "Basin"}

	rapid.Check(t, func(t *rapid.T) {
		r := NewRegistry()
		ids := []string{"c0", "c1", "c2", "c3", "c4"}

		ops := rapid.IntRange(1, 60).Draw(t, "ops")
		for i := 0; i < ops; i++ {
			id := rapid.SampledFrom(ids).Draw(t, "id")
			scene := rapid.SampledFrom(scenes).Draw(t, "scene")
			switch rapid.IntRange(0, 2).Draw(t, "op") {
			case 0:
				_, _ = r.Add(id, "P", scene, protocol.Pose{}, "idle")
			case 1:
				_, _ = r.Move(id, scene)
			case 2:
				_ = r.Remove(id)
			}
		}

		// Derive scene membership from the registry's sessions.
		want := make(map[string]map[string]bool)
		for _, sess := range r.All() {
			if want[sess.CurrentScene] == nil {
				want[sess.CurrentScene] = make(map[string]bool)
			}
			want[sess.CurrentScene][sess.ID] = true
		}

		for _, scene := range scenes {
			got := make(map[string]bool)
			for _, id := range r.IDsInScene(scene) {
				got[id] = true
			}
			if len(want[scene]) == 0 {
				assert.Empty(t, got, "scene %s", scene)
			} else {
				assert.Equal(t, want[scene], got, "scene %s", scene)
			}
		}
	})
}
