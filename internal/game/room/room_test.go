package room

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestManager_Join(t *testing.T) {
	m := NewManager(10)
	mem, err := m.Join("u1", "Alice", 1, "room_a", "fighter", 3)
	require.NoError(t, err)
	assert.Equal(t, "Alice", mem.CharName)
	assert.Equal(t, 1, m.MemberCount())
}

func TestManager_JoinDuplicate(t *testing.T) {
	m := NewManager(10)
	_, err := m.Join("u1", "Alice", 1, "room_a", "fighter", 3)
	require.NoError(t, err)
	_, err = m.Join("u1", "Alice", 1, "room_a", "fighter", 3)
	assert.Error(t, err)
}

func TestManager_Leave(t *testing.T) {
	m := NewManager(10)
	_, err := m.Join("u1", "Alice", 1, "room_a", "fighter", 3)
	require.NoError(t, err)

	require.NoError(t, m.Leave("u1"))
	assert.Equal(t, 0, m.MemberCount())
	assert.Empty(t, m.MembersInRoom("room_a"))
	assert.Error(t, m.Leave("u1"))
}

func TestManager_MembersInRoom(t *testing.T) {
	m := NewManager(10)
	_, err := m.Join("u1", "Alice", 1, "room_a", "fighter", 3)
	require.NoError(t, err)
	_, err = m.Join("u2", "Bob", 2, "room_a", "rogue", 2)
	require.NoError(t, err)
	_, err = m.Join("u3", "Carol", 3, "room_b", "wizard", 5)
	require.NoError(t, err)

	assert.Len(t, m.MembersInRoom("room_a"), 2)
	assert.Len(t, m.MembersInRoom("room_b"), 1)
	assert.Empty(t, m.MembersInRoom("room_c"))
}

func TestManager_RoomOf(t *testing.T) {
	m := NewManager(10)
	_, err := m.Join("u1", "Alice", 1, "room_a", "fighter", 3)
	require.NoError(t, err)

	code, ok := m.RoomOf("u1")
	assert.True(t, ok)
	assert.Equal(t, "room_a", code)

	_, ok = m.RoomOf("u2")
	assert.False(t, ok)
}

func TestManager_GetByCharNameCaseInsensitive(t *testing.T) {
	m := NewManager(10)
	_, err := m.Join("u1", "Alice", 1, "room_a", "fighter", 3)
	require.NoError(t, err)

	mem, ok := m.GetByCharName("room_a", "aLiCe")
	require.True(t, ok)
	assert.Equal(t, "u1", mem.UID)

	_, ok = m.GetByCharName("room_b", "Alice")
	assert.False(t, ok)
}

func TestManager_HistoryEviction(t *testing.T) {
	m := NewManager(3)
	for i := 0; i < 5; i++ {
		m.AppendHistory("room_a", fmt.Sprintf("entry-%d", i))
	}

	h := m.History("room_a")
	require.Len(t, h, 3)
	assert.Equal(t, []string{"entry-2", "entry-3", "entry-4"}, h)
}

func TestManager_HistoryIgnoresEmpty(t *testing.T) {
	m := NewManager(3)
	m.AppendHistory("room_a", "")
	assert.Empty(t, m.History("room_a"))
}

func TestManager_HistoryNeverExceedsLimit(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		size := rapid.IntRange(1, 10).Draw(t, "size")
		n := rapid.IntRange(0, 50).Draw(t, "n")

		m := NewManager(size)
		for i := 0; i < n; i++ {
			m.AppendHistory("r", fmt.Sprintf("e%d", i))
		}

		h := m.History("r")
		if len(h) > size {
			t.Fatalf("history length %d exceeds limit %d", len(h), size)
		}
		if n >= size && len(h) != size {
			t.Fatalf("expected history length %d, got %d", size, len(h))
		}
	})
}
