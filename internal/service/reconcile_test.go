package service

import (
	"testing"
	"time"

	"github.com/cwrk-planet/tempvoice/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func afterGrace() time.Time { return time.Now().Add(time.Minute) }

func TestReconcilerSweep(t *testing.T) {
	env := newLifecycleEnv(t, nil, LifecycleConfig{})
	occupied := env.join(t, alice)
	empty := env.join(t, domain.Member{ID: "43", DisplayName: "bob"})
	vanished := env.join(t, domain.Member{ID: "44", DisplayName: "carol"})

	env.gw.setOccupancy(empty.ID, 0)
	env.gw.removeChannel(vanished.ID)

	r := NewReconciler(env.reg, env.m, 2, discardLogger(), WithReconcileClock(afterGrace))
	rep, err := r.Sweep(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepReport{Checked: 3, Removed: 2, Kept: 1}, rep)

	assert.True(t, env.active(t, occupied.ID))
	assert.False(t, env.active(t, empty.ID))
	assert.False(t, env.active(t, vanished.ID))
	assert.False(t, env.gw.has(empty.ID))
	assert.Zero(t, env.sleeper.count())
}

func TestReconcilerCountsFailures(t *testing.T) {
	env := newLifecycleEnv(t, nil, LifecycleConfig{})
	room := env.join(t, alice)
	env.gw.setOccupancy(room.ID, 0)
	env.gw.deleteErr = errBoom

	r := NewReconciler(env.reg, env.m, 0, discardLogger(), WithReconcileClock(afterGrace))
	rep, err := r.Sweep(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepReport{Checked: 1, Failed: 1}, rep)
}

func TestReconcilerSweepGuild(t *testing.T) {
	env := newLifecycleEnv(t, nil, LifecycleConfig{})
	room := env.join(t, alice)
	env.gw.setOccupancy(room.ID, 0)

	r := NewReconciler(env.reg, env.m, 1, discardLogger(), WithReconcileClock(afterGrace))
	rep, err := r.SweepGuild(env.ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, SweepReport{}, rep)
	assert.True(t, env.active(t, room.ID))

	rep, err = r.SweepGuild(env.ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, SweepReport{Checked: 1, Removed: 1}, rep)
	assert.False(t, env.active(t, room.ID))
}

func TestReconcilerSkipsFreshRooms(t *testing.T) {
	env := newLifecycleEnv(t, nil, LifecycleConfig{})
	gw := &hookGateway{fakeGateway: env.gw}
	m := NewLifecycleManager(env.reg, gw, NewKeyLock(), LifecycleConfig{GraceInterval: DefaultGraceInterval}, discardLogger())
	r := NewReconciler(env.reg, m, 1, discardLogger())

	var rep SweepReport
	var sweepErr error
	gw.onMove = func() { rep, sweepErr = r.Sweep(env.ctx) }

	err := m.HandleTransition(env.ctx, domain.VoiceTransition{GuildID: "1", Member: alice, Current: env.channel(t, "200")})
	require.NoError(t, err)
	require.NoError(t, sweepErr)

	assert.Equal(t, SweepReport{Checked: 1, Kept: 1}, rep)
	assert.Empty(t, env.gw.deleted)
	assert.Equal(t, []moveCall{{GuildID: "1", MemberID: "42", ChannelID: "201"}}, env.gw.moves)
	assert.True(t, env.active(t, "201"))
}

func TestReconcilerWaitsForOwnerMove(t *testing.T) {
	env := newLifecycleEnv(t, nil, LifecycleConfig{})
	gw := &hookGateway{fakeGateway: env.gw}
	m := NewLifecycleManager(env.reg, gw, NewKeyLock(), LifecycleConfig{GraceInterval: DefaultGraceInterval}, discardLogger())
	r := NewReconciler(env.reg, m, 1, discardLogger(), WithReconcileClock(afterGrace))

	type result struct {
		rep SweepReport
		err error
	}
	done := make(chan result, 1)
	gw.onMove = func() {
		go func() {
			rep, err := r.Sweep(env.ctx)
			done <- result{rep, err}
		}()
		// give the sweep time to reach the room lock
		time.Sleep(20 * time.Millisecond)
	}

	err := m.HandleTransition(env.ctx, domain.VoiceTransition{GuildID: "1", Member: alice, Current: env.channel(t, "200")})
	require.NoError(t, err)

	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.Equal(t, SweepReport{Checked: 1, Kept: 1}, res.rep)
	case <-time.After(5 * time.Second):
		t.Fatal("sweep did not finish")
	}
	assert.Empty(t, env.gw.deleted)
	assert.True(t, env.gw.has("201"))
	assert.True(t, env.active(t, "201"))
}
