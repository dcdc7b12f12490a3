package service

import (
	"context"
	"testing"

	"github.com/cwrk-planet/tempvoice/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratorMark(t *testing.T) {
	env := newLifecycleEnv(t, nil, LifecycleConfig{})
	svc := NewGeneratorService(env.reg, env.gw, env.m, discardLogger())

	out, err := svc.Mark(env.ctx, "1", "300", "")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, out)

	out, err = svc.Mark(env.ctx, "1", "300", "")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeDuplicate, out)

	gens, err := svc.List(env.ctx, "1")
	require.NoError(t, err)
	require.Len(t, gens, 2)
	names := map[string]string{}
	for _, g := range gens {
		names[g.CategoryID] = g.Name
	}
	assert.Equal(t, map[string]string{"100": "Voice", "300": "Plain"}, names)
}

func TestGeneratorMarkRejectsNonCategory(t *testing.T) {
	env := newLifecycleEnv(t, nil, LifecycleConfig{})
	svc := NewGeneratorService(env.reg, env.gw, env.m, discardLogger())

	out, err := svc.Mark(env.ctx, "1", "200", "")
	require.ErrorIs(t, err, domain.ErrNotCategory)
	assert.Equal(t, domain.OutcomeNotFound, out)

	out, err = svc.Mark(env.ctx, "1", "999", "")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, domain.OutcomeNotFound, out)

	_, err = svc.Mark(env.ctx, "1", "abc", "")
	require.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestGeneratorUnmarkRemovesRooms(t *testing.T) {
	env := newLifecycleEnv(t, nil, LifecycleConfig{})
	svc := NewGeneratorService(env.reg, env.gw, env.m, discardLogger())

	env.join(t, alice)
	env.join(t, domain.Member{ID: "43", DisplayName: "bob"})

	rooms, err := svc.Rooms(env.ctx, "1", "100")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"201", "202"}, rooms)

	rep, err := svc.Unmark(env.ctx, "1", "100")
	require.NoError(t, err)
	assert.False(t, rep.Partial())
	assert.Equal(t, "success", rep.Outcome)
	assert.ElementsMatch(t, []string{"201", "202"}, rep.Removed)

	assert.False(t, env.gw.has("201"))
	assert.False(t, env.gw.has("202"))
	assert.False(t, env.active(t, "201"))
	assert.False(t, env.active(t, "202"))

	ok, err := env.reg.IsGeneratorCategory(env.ctx, "100", "1")
	require.NoError(t, err)
	assert.False(t, ok)

	rep, err = svc.Unmark(env.ctx, "1", "100")
	require.NoError(t, err)
	assert.Equal(t, "not_found", rep.Outcome)
}

func TestGeneratorUnmarkReportsPartialCleanup(t *testing.T) {
	env := newLifecycleEnv(t, nil, LifecycleConfig{})
	svc := NewGeneratorService(env.reg, env.gw, env.m, discardLogger())

	env.join(t, alice)
	env.gw.deleteErr = errBoom

	rep, err := svc.Unmark(env.ctx, "1", "100")
	require.NoError(t, err)
	assert.True(t, rep.Partial())
	assert.Contains(t, rep.Failed, "201")
	assert.Equal(t, "success", rep.Outcome)

	// the row is inactive even though the channel survived
	assert.False(t, env.active(t, "201"))
	assert.True(t, env.gw.has("201"))
}

func TestGeneratorUnmarkDuringEntryLeavesNoRoom(t *testing.T) {
	env := newLifecycleEnv(t, nil, LifecycleConfig{})
	gw := &hookGateway{fakeGateway: env.gw}
	m := NewLifecycleManager(env.reg, gw, NewKeyLock(), LifecycleConfig{GraceInterval: DefaultGraceInterval}, discardLogger())
	svc := NewGeneratorService(env.reg, gw, m, discardLogger())
	env.join(t, alice)

	var rep UnmarkReport
	var unmarkErr error
	gw.onCreate = func() {
		gw.onCreate = nil
		rep, unmarkErr = svc.Unmark(env.ctx, "1", "100")
	}

	bob := domain.Member{ID: "43", DisplayName: "bob"}
	err := m.HandleTransition(env.ctx, domain.VoiceTransition{GuildID: "1", Member: bob, Current: env.channel(t, "200")})
	require.NoError(t, err)
	require.NoError(t, unmarkErr)
	assert.Equal(t, []string{"201"}, rep.Removed)

	ok, err := env.reg.IsGeneratorCategory(env.ctx, "100", "1")
	require.NoError(t, err)
	assert.False(t, ok)

	ids, err := env.reg.ListActiveRooms(env.ctx, "100", "1")
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.ElementsMatch(t, []string{"201", "202"}, env.gw.deleted)
	assert.Len(t, env.gw.moves, 1)
}

func TestGeneratorUnmarkBlocksEntriesDuringCleanup(t *testing.T) {
	env := newLifecycleEnv(t, nil, LifecycleConfig{})
	gw := &hookGateway{fakeGateway: env.gw}
	m := NewLifecycleManager(env.reg, gw, NewKeyLock(), LifecycleConfig{GraceInterval: DefaultGraceInterval}, discardLogger())
	svc := NewGeneratorService(env.reg, gw, m, discardLogger())
	env.join(t, alice)

	bob := domain.Member{ID: "43", DisplayName: "bob"}
	var entryErr error
	gw.onDelete = func(string) {
		gw.onDelete = nil
		entryErr = m.HandleTransition(env.ctx, domain.VoiceTransition{GuildID: "1", Member: bob, Current: env.channel(t, "200")})
	}

	rep, err := svc.Unmark(env.ctx, "1", "100")
	require.NoError(t, err)
	require.NoError(t, entryErr)
	assert.Equal(t, []string{"201"}, rep.Removed)

	ids, err := env.reg.ListActiveRooms(env.ctx, "100", "1")
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Len(t, env.gw.voiceSpecs, 1)
}

func TestGeneratorUnmarkOutlivesCallerCancel(t *testing.T) {
	env := newLifecycleEnv(t, nil, LifecycleConfig{})
	gw := &hookGateway{fakeGateway: env.gw}
	m := NewLifecycleManager(env.reg, gw, NewKeyLock(), LifecycleConfig{GraceInterval: DefaultGraceInterval}, discardLogger())
	svc := NewGeneratorService(env.reg, gw, m, discardLogger())
	env.join(t, alice)
	env.join(t, domain.Member{ID: "43", DisplayName: "bob"})

	ctx, cancel := context.WithCancel(env.ctx)
	defer cancel()
	gw.onDelete = func(string) { cancel() }

	rep, err := svc.Unmark(ctx, "1", "100")
	require.NoError(t, err)
	assert.Equal(t, "success", rep.Outcome)
	assert.ElementsMatch(t, []string{"201", "202"}, rep.Removed)

	ok, err := env.reg.IsGeneratorCategory(env.ctx, "100", "1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, env.active(t, "201"))
	assert.False(t, env.active(t, "202"))
}
