// Package registrytest holds the behaviour every registry.Registry
// implementation must satisfy.
package registrytest

import (
	"context"
	"sync"
	"testing"

	"github.com/cwrk-planet/tempvoice/internal/domain"
	"github.com/cwrk-planet/tempvoice/internal/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, migrated and empty registry.
type Factory func(t *testing.T) registry.Registry

func Run(t *testing.T, newRegistry Factory) {
	cases := []struct {
		name string
		fn   func(t *testing.T, r registry.Registry)
	}{
		{"generator mark and unmark", testGenerators},
		{"generator is scoped by guild", testGeneratorGuildScope},
		{"room register and deactivate", testRooms},
		{"room reactivation after deactivate", testRoomReactivate},
		{"list all active rooms", testListAllActiveRooms},
		{"unique channel duplicate", testUniqueChannels},
		{"unique channel concurrent register", testUniqueConcurrent},
		{"unique categories", testUniqueCategories},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRegistry(t)
			tc.fn(t, r)
		})
	}
}

func testGenerators(t *testing.T, r registry.Registry) {
	ctx := context.Background()

	ok, err := r.IsGeneratorCategory(ctx, "100", "1")
	require.NoError(t, err)
	assert.False(t, ok)

	out, err := r.MarkGenerator(ctx, "100", "Voice", "1")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, out)

	out, err = r.MarkGenerator(ctx, "100", "Voice", "1")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeDuplicate, out)

	ok, err = r.IsGeneratorCategory(ctx, "100", "1")
	require.NoError(t, err)
	assert.True(t, ok)

	list, err := r.ListGenerators(ctx, "1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "100", list[0].CategoryID)
	assert.Equal(t, "Voice", list[0].Name)
	assert.True(t, list[0].Active)

	out, err = r.UnmarkGenerator(ctx, "100", "1")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, out)

	out, err = r.UnmarkGenerator(ctx, "100", "1")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNotFound, out)

	ok, err = r.IsGeneratorCategory(ctx, "100", "1")
	require.NoError(t, err)
	assert.False(t, ok)

	// marking again reactivates the soft-deleted row
	out, err = r.MarkGenerator(ctx, "100", "Voice 2", "1")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, out)

	list, err = r.ListGenerators(ctx, "1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Voice 2", list[0].Name)
}

func testGeneratorGuildScope(t *testing.T, r registry.Registry) {
	ctx := context.Background()

	_, err := r.MarkGenerator(ctx, "100", "Voice", "1")
	require.NoError(t, err)

	ok, err := r.IsGeneratorCategory(ctx, "100", "2")
	require.NoError(t, err)
	assert.False(t, ok)

	list, err := r.ListGenerators(ctx, "2")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func testRooms(t *testing.T, r registry.Registry) {
	ctx := context.Background()

	out, err := r.RegisterRoom(ctx, "201", "Lounge | alice", "100", "1", "42")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, out)

	out, err = r.RegisterRoom(ctx, "201", "Lounge | alice", "100", "1", "42")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeDuplicate, out)

	_, err = r.RegisterRoom(ctx, "202", "Lounge | bob", "100", "1", "43")
	require.NoError(t, err)
	_, err = r.RegisterRoom(ctx, "301", "Other | bob", "300", "1", "43")
	require.NoError(t, err)

	active, err := r.IsActiveRoom(ctx, "201", "1")
	require.NoError(t, err)
	assert.True(t, active)

	ids, err := r.ListActiveRooms(ctx, "100", "1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"201", "202"}, ids)

	out, err = r.DeactivateRoom(ctx, "201", "1")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, out)

	out, err = r.DeactivateRoom(ctx, "201", "1")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNotFound, out)

	active, err = r.IsActiveRoom(ctx, "201", "1")
	require.NoError(t, err)
	assert.False(t, active)

	ids, err = r.ListActiveRooms(ctx, "100", "1")
	require.NoError(t, err)
	assert.Equal(t, []string{"202"}, ids)

	out, err = r.DeactivateRoom(ctx, "999", "1")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNotFound, out)
}

func testRoomReactivate(t *testing.T, r registry.Registry) {
	ctx := context.Background()

	_, err := r.RegisterRoom(ctx, "201", "a", "100", "1", "42")
	require.NoError(t, err)
	_, err = r.DeactivateRoom(ctx, "201", "1")
	require.NoError(t, err)

	out, err := r.RegisterRoom(ctx, "201", "b", "100", "1", "43")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, out)

	rooms, err := r.ListAllActiveRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "43", rooms[0].OwnerID)
	assert.Nil(t, rooms[0].DeletedAt)
}

func testListAllActiveRooms(t *testing.T, r registry.Registry) {
	ctx := context.Background()

	_, err := r.RegisterRoom(ctx, "201", "a", "100", "1", "42")
	require.NoError(t, err)
	_, err = r.RegisterRoom(ctx, "501", "b", "500", "2", "77")
	require.NoError(t, err)
	_, err = r.RegisterRoom(ctx, "202", "c", "100", "1", "43")
	require.NoError(t, err)
	_, err = r.DeactivateRoom(ctx, "202", "1")
	require.NoError(t, err)

	rooms, err := r.ListAllActiveRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 2)

	byID := map[string]domain.TemporaryRoom{}
	for _, rm := range rooms {
		byID[rm.ChannelID] = rm
	}
	assert.Equal(t, "1", byID["201"].GuildID)
	assert.Equal(t, "100", byID["201"].CategoryID)
	assert.Equal(t, "42", byID["201"].OwnerID)
	assert.True(t, byID["201"].Active)
	assert.Equal(t, "2", byID["501"].GuildID)
}

func testUniqueChannels(t *testing.T, r registry.Registry) {
	ctx := context.Background()

	has, err := r.MemberHasUniqueChannel(ctx, "42", "700", "1")
	require.NoError(t, err)
	assert.False(t, has)

	_, err = r.GetUniqueChannel(ctx, "42", "700", "1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	out, err := r.RegisterUniqueChannel(ctx, "42", "701", "alice", "700", "1")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, out)

	out, err = r.RegisterUniqueChannel(ctx, "42", "702", "alice", "700", "1")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeDuplicate, out)

	has, err = r.MemberHasUniqueChannel(ctx, "42", "700", "1")
	require.NoError(t, err)
	assert.True(t, has)

	ch, err := r.GetUniqueChannel(ctx, "42", "700", "1")
	require.NoError(t, err)
	assert.Equal(t, "701", ch.ChannelID)

	out, err = r.DeactivateUniqueChannel(ctx, "42", "700", "1")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, out)

	out, err = r.DeactivateUniqueChannel(ctx, "42", "700", "1")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNotFound, out)

	// a repaired channel takes over the row
	out, err = r.RegisterUniqueChannel(ctx, "42", "703", "alice", "700", "1")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, out)

	ch, err = r.GetUniqueChannel(ctx, "42", "700", "1")
	require.NoError(t, err)
	assert.Equal(t, "703", ch.ChannelID)
}

func testUniqueConcurrent(t *testing.T, r registry.Registry) {
	ctx := context.Background()

	const workers = 8
	outcomes := make([]domain.Outcome, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = r.RegisterUniqueChannel(ctx, "42", "80"+string(rune('0'+i)), "alice", "700", "1")
		}(i)
	}
	wg.Wait()

	success := 0
	for i := range outcomes {
		require.NoError(t, errs[i])
		if outcomes[i] == domain.OutcomeSuccess {
			success++
		} else {
			assert.Equal(t, domain.OutcomeDuplicate, outcomes[i])
		}
	}
	assert.Equal(t, 1, success)
}

func testUniqueCategories(t *testing.T, r registry.Registry) {
	ctx := context.Background()

	out, err := r.MarkUniqueCategory(ctx, "700", "Notes", "1", domain.KindForum)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, out)

	out, err = r.MarkUniqueCategory(ctx, "700", "Notes", "1", domain.KindForum)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeDuplicate, out)

	_, err = r.MarkUniqueCategory(ctx, "710", "Diary", "1", domain.KindText)
	require.NoError(t, err)

	list, err := r.ListUniqueCategories(ctx, "1")
	require.NoError(t, err)
	require.Len(t, list, 2)

	kinds := map[string]domain.ChannelKind{}
	for _, c := range list {
		kinds[c.CategoryID] = c.Kind
	}
	assert.Equal(t, domain.KindForum, kinds["700"])
	assert.Equal(t, domain.KindText, kinds["710"])

	out, err = r.UnmarkUniqueCategory(ctx, "700", "1")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, out)

	out, err = r.UnmarkUniqueCategory(ctx, "700", "1")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNotFound, out)

	list, err = r.ListUniqueCategories(ctx, "1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "710", list[0].CategoryID)
}
