package relation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"arcade/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memCollection is a mutex-guarded Collection of string members.
type memCollection struct {
	mu      sync.Mutex
	members map[models.ID][]string
}

func newMemCollection() *memCollection {
	return &memCollection{members: make(map[models.ID][]string)}
}

func (m *memCollection) List(_ context.Context, parent models.ID) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.members[parent]...), nil
}

func (m *memCollection) AddFront(_ context.Context, parent models.ID, member string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.members[parent] {
		if existing == member {
			return false, nil
		}
	}
	m.members[parent] = append([]string{member}, m.members[parent]...)
	return true, nil
}

func (m *memCollection) Remove(_ context.Context, parent models.ID, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.members[parent]
	for i, existing := range list {
		if existing == key {
			m.members[parent] = append(list[:i:i], list[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// racingCollection always reports that it lost the add race.
type racingCollection struct {
	*memCollection
	adds int
}

func (r *racingCollection) AddFront(context.Context, models.ID, string) (bool, error) {
	r.adds++
	return false, nil
}

type failingCollection struct{ *memCollection }

func (failingCollection) Remove(context.Context, models.ID, string) (bool, error) {
	return false, errors.New("store down")
}

func identity(s string) string { return s }

func TestToggle_TwiceRestoresOriginal(t *testing.T) {
	ctx := context.Background()
	coll := newMemCollection()
	parent := models.NewID()
	coll.members[parent] = []string{"b", "c"}
	engine := NewEngine[string]("test", coll, identity)

	res, err := engine.Toggle(ctx, parent, "a")
	require.NoError(t, err)
	assert.True(t, res.Present)
	assert.Equal(t, []string{"a", "b", "c"}, res.Members)

	res, err = engine.Toggle(ctx, parent, "a")
	require.NoError(t, err)
	assert.False(t, res.Present)
	assert.Equal(t, []string{"b", "c"}, res.Members)
}

func TestToggle_RemovesExistingMemberInPlace(t *testing.T) {
	ctx := context.Background()
	coll := newMemCollection()
	parent := models.NewID()
	coll.members[parent] = []string{"a", "b", "c"}
	engine := NewEngine[string]("test", coll, identity)

	res, err := engine.Toggle(ctx, parent, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, res.Members)
}

func TestToggle_ConcurrentNeverDuplicates(t *testing.T) {
	ctx := context.Background()
	coll := newMemCollection()
	parent := models.NewID()
	engine := NewEngine[string]("test", coll, identity)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			member := string(rune('a' + i%5))
			_, _ = engine.Toggle(ctx, parent, member)
		}(i)
	}
	wg.Wait()

	members, err := engine.List(ctx, parent)
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, m := range members {
		assert.False(t, seen[m], "duplicate member %q", m)
		seen[m] = true
	}
}

func TestToggle_ContentionIsBounded(t *testing.T) {
	coll := &racingCollection{memCollection: newMemCollection()}
	engine := NewEngine[string]("test", coll, identity).WithMaxAttempts(4)

	_, err := engine.Toggle(context.Background(), models.NewID(), "a")
	assert.True(t, IsContention(err))
	assert.True(t, models.IsCode(err, models.CodeConflict))
	assert.Equal(t, 4, coll.adds)
}

func TestToggle_StorageErrorPropagates(t *testing.T) {
	engine := NewEngine[string]("test", failingCollection{newMemCollection()}, identity)
	_, err := engine.Toggle(context.Background(), models.NewID(), "a")
	assert.EqualError(t, err, "store down")
}

func TestAdd_RejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	coll := newMemCollection()
	parent := models.NewID()
	engine := NewEngine[string]("test", coll, identity)

	res, err := engine.Add(ctx, parent, "42", "Game already in favorites")
	require.NoError(t, err)
	assert.Equal(t, []string{"42"}, res.Members)

	_, err = engine.Add(ctx, parent, "42", "Game already in favorites")
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeConflict))
	assert.Equal(t, "Game already in favorites", err.Error())

	members, _ := engine.List(ctx, parent)
	assert.Equal(t, []string{"42"}, members)
}

func TestRemove_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	coll := newMemCollection()
	parent := models.NewID()
	engine := NewEngine[string]("test", coll, identity)

	_, err := engine.Add(ctx, parent, "42", "dup")
	require.NoError(t, err)

	res, err := engine.Remove(ctx, parent, "42")
	require.NoError(t, err)
	assert.Empty(t, res.Members)

	res, err = engine.Remove(ctx, parent, "42")
	require.NoError(t, err)
	assert.Empty(t, res.Members)
}
