package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwrk-planet/tempvoice/internal/domain"
	"github.com/cwrk-planet/tempvoice/internal/registry"
)

const DefaultGraceInterval = 3 * time.Second

type LifecycleConfig struct {
	// GraceInterval is how long an empty room may stay before it is deleted.
	GraceInterval time.Duration
	// NameFormat accepts {template} and {member}.
	NameFormat string
	// OwnerPermissions grants the owner manage-channel and move-members in their room.
	OwnerPermissions bool
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// LifecycleManager creates temporary rooms when members enter a generator
// category and removes them once they stay empty for the grace interval.
type LifecycleManager struct {
	reg       registry.Registry
	gw        Gateway
	locks     *KeyLock
	cfg       LifecycleConfig
	sleep     Sleeper
	now       func() time.Time
	observers []Observer
	log       *slog.Logger
}

type LifecycleOption func(*LifecycleManager)

func WithSleeper(s Sleeper) LifecycleOption {
	return func(m *LifecycleManager) { m.sleep = s }
}

func WithObservers(obs ...Observer) LifecycleOption {
	return func(m *LifecycleManager) { m.observers = append(m.observers, obs...) }
}

func WithLifecycleClock(now func() time.Time) LifecycleOption {
	return func(m *LifecycleManager) { m.now = now }
}

func NewLifecycleManager(reg registry.Registry, gw Gateway, locks *KeyLock, cfg LifecycleConfig, log *slog.Logger, opts ...LifecycleOption) *LifecycleManager {
	if cfg.GraceInterval < 0 {
		cfg.GraceInterval = 0
	}
	if cfg.NameFormat == "" {
		cfg.NameFormat = domain.DefaultRoomNameFormat
	}
	if locks == nil {
		locks = NewKeyLock()
	}
	if log == nil {
		log = slog.Default()
	}
	m := &LifecycleManager{
		reg:   reg,
		gw:    gw,
		locks: locks,
		cfg:   cfg,
		sleep: sleepCtx,
		now:   time.Now,
		log:   log.With("component", "lifecycle"),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// HandleTransition runs the entry branch, then the exit branch, for one
// voice state change. Errors of both branches are joined.
func (m *LifecycleManager) HandleTransition(ctx context.Context, t domain.VoiceTransition) error {
	var errs []error

	if t.Entered() {
		if err := m.enter(ctx, t); err != nil {
			m.log.ErrorContext(ctx, "room entry failed",
				"guild_id", t.GuildID, "channel_id", t.CurrentID(), "member_id", t.Member.ID, "err", err)
			errs = append(errs, err)
		}
	}
	if t.Left() {
		if err := m.exit(ctx, t.GuildID, t.PreviousID()); err != nil {
			m.log.ErrorContext(ctx, "room exit failed",
				"guild_id", t.GuildID, "channel_id", t.PreviousID(), "member_id", t.Member.ID, "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *LifecycleManager) enter(ctx context.Context, t domain.VoiceTransition) error {
	if t.Member.Bot {
		return nil
	}
	room, release, err := m.spawn(ctx, t)
	if err != nil || room == nil {
		return err
	}

	// the category may have been unmarked while the room was being created
	generator, err := m.reg.IsGeneratorCategory(ctx, t.Current.ParentID, t.GuildID)
	if err == nil && !generator {
		release()
		if err := m.Remove(ctx, t.GuildID, room.ID); err != nil {
			return fmt.Errorf("remove room of unmarked category %s: %w", t.Current.ParentID, err)
		}
		return nil
	}

	moveErr := m.gw.MoveMember(ctx, t.GuildID, t.Member.ID, room.ID)
	release()
	if moveErr == nil {
		return nil
	}

	// участник вышел из voice раньше, чем сработал move
	m.log.WarnContext(ctx, "move into new room failed",
		"guild_id", t.GuildID, "channel_id", room.ID, "member_id", t.Member.ID, "err", moveErr)
	if err := m.exit(ctx, t.GuildID, room.ID); err != nil {
		return fmt.Errorf("release unused room %s: %w", room.ID, err)
	}
	return nil
}

// spawn holds the template lock while it creates and registers the room.
// On success the room's own lock is still held; the caller releases it once
// the owner has been moved in, so no teardown sees the room before that.
func (m *LifecycleManager) spawn(ctx context.Context, t domain.VoiceTransition) (*domain.Channel, func(), error) {
	tpl := t.Current
	unlock := m.locks.Lock(tpl.ID)
	defer unlock()

	active, err := m.reg.IsActiveRoom(ctx, tpl.ID, t.GuildID)
	if err != nil {
		return nil, nil, fmt.Errorf("is active room %s: %w", tpl.ID, err)
	}
	if active || tpl.ParentID == "" {
		return nil, nil, nil
	}
	generator, err := m.reg.IsGeneratorCategory(ctx, tpl.ParentID, t.GuildID)
	if err != nil {
		return nil, nil, fmt.Errorf("is generator category %s: %w", tpl.ParentID, err)
	}
	if !generator {
		return nil, nil, nil
	}

	spec := m.roomSpec(tpl, t.Member)
	room, err := m.gw.CreateVoiceChannel(ctx, t.GuildID, spec)
	if err != nil {
		m.emitFailure(ctx, domain.RoomCreateFailed, t.GuildID, "", tpl.ParentID, t.Member.ID, err)
		return nil, nil, fmt.Errorf("create room from %s: %w", tpl.ID, err)
	}

	release := m.locks.Lock(room.ID)
	out, err := m.reg.RegisterRoom(ctx, room.ID, spec.Name, tpl.ParentID, t.GuildID, t.Member.ID)
	if err == nil && out != domain.OutcomeSuccess {
		err = fmt.Errorf("register returned %s", out)
	}
	if err != nil {
		if derr := m.gw.DeleteChannel(ctx, room.ID); derr != nil && domain.OutcomeOf(derr) != domain.OutcomeNotFound {
			m.log.ErrorContext(ctx, "delete unregistered room failed",
				"guild_id", t.GuildID, "channel_id", room.ID, "err", derr)
		}
		release()
		m.emitFailure(ctx, domain.RoomCreateFailed, t.GuildID, room.ID, tpl.ParentID, t.Member.ID, err)
		return nil, nil, fmt.Errorf("register room %s: %w", room.ID, err)
	}

	ev := domain.NewRoomEvent(domain.RoomCreated, t.GuildID, room.ID, m.now())
	ev.CategoryID = tpl.ParentID
	ev.OwnerID = t.Member.ID
	m.emit(ctx, ev)

	return room, release, nil
}

// GraceInterval is how long an empty room survives before it is removed.
func (m *LifecycleManager) GraceInterval() time.Duration { return m.cfg.GraceInterval }

func (m *LifecycleManager) roomSpec(tpl *domain.Channel, member domain.Member) domain.VoiceChannelSpec {
	overwrites := make([]domain.Overwrite, 0, len(tpl.Overwrites)+1)
	overwrites = append(overwrites, tpl.Overwrites...)
	if m.cfg.OwnerPermissions {
		overwrites = append(overwrites, domain.Overwrite{
			ID:    member.ID,
			Type:  domain.OverwriteMember,
			Allow: domain.PermManageChannels | domain.PermMoveMembers | domain.PermConnect | domain.PermViewChannel,
		})
	}
	return domain.VoiceChannelSpec{
		Name:       domain.FormatRoomName(m.cfg.NameFormat, tpl.Name, member.DisplayName),
		ParentID:   tpl.ParentID,
		Bitrate:    tpl.Bitrate,
		UserLimit:  tpl.UserLimit,
		Overwrites: overwrites,
	}
}

func (m *LifecycleManager) exit(ctx context.Context, guildID, channelID string) error {
	active, err := m.reg.IsActiveRoom(ctx, channelID, guildID)
	if err != nil {
		return fmt.Errorf("is active room %s: %w", channelID, err)
	}
	if !active {
		return nil
	}

	n, err := m.gw.VoiceOccupancy(ctx, guildID, channelID)
	if err != nil && domain.OutcomeOf(err) != domain.OutcomeNotFound {
		return fmt.Errorf("occupancy of %s: %w", channelID, err)
	}
	if n > 0 {
		return nil
	}

	m.emit(ctx, domain.NewRoomEvent(domain.RoomPendingDeletion, guildID, channelID, m.now()))
	if err := m.sleep(ctx, m.cfg.GraceInterval); err != nil {
		return fmt.Errorf("grace wait for %s: %w", channelID, err)
	}
	_, err = m.ReleaseIfEmpty(ctx, guildID, channelID)
	return err
}

// ReleaseIfEmpty removes an active room right away if nobody is connected.
// It reports whether the room is gone afterwards.
func (m *LifecycleManager) ReleaseIfEmpty(ctx context.Context, guildID, channelID string) (bool, error) {
	return m.teardown(ctx, guildID, channelID, true)
}

// Remove deactivates and deletes an active room regardless of occupancy.
func (m *LifecycleManager) Remove(ctx context.Context, guildID, channelID string) error {
	_, err := m.teardown(ctx, guildID, channelID, false)
	return err
}

func (m *LifecycleManager) teardown(ctx context.Context, guildID, channelID string, onlyEmpty bool) (bool, error) {
	unlock := m.locks.Lock(channelID)
	defer unlock()

	active, err := m.reg.IsActiveRoom(ctx, channelID, guildID)
	if err != nil {
		return false, fmt.Errorf("is active room %s: %w", channelID, err)
	}
	if !active {
		return true, nil
	}

	ch, err := m.gw.Channel(ctx, channelID)
	switch domain.OutcomeOf(err) {
	case domain.OutcomeSuccess:
	case domain.OutcomeNotFound:
		if _, err := m.reg.DeactivateRoom(ctx, channelID, guildID); err != nil {
			return false, fmt.Errorf("deactivate vanished room %s: %w", channelID, err)
		}
		m.emit(ctx, domain.NewRoomEvent(domain.RoomGone, guildID, channelID, m.now()))
		return true, nil
	default:
		return false, fmt.Errorf("get channel %s: %w", channelID, err)
	}

	if onlyEmpty {
		// a channel REST still knows but the state cache has not seen yet counts as empty
		n, err := m.gw.VoiceOccupancy(ctx, guildID, channelID)
		if err != nil && domain.OutcomeOf(err) != domain.OutcomeNotFound {
			return false, fmt.Errorf("occupancy of %s: %w", channelID, err)
		}
		if n > 0 {
			ev := domain.NewRoomEvent(domain.RoomKept, guildID, channelID, m.now())
			ev.CategoryID = ch.ParentID
			m.emit(ctx, ev)
			return false, nil
		}
	}

	// durable inactive mark precedes the destructive call
	out, err := m.reg.DeactivateRoom(ctx, channelID, guildID)
	if err != nil {
		return false, fmt.Errorf("deactivate room %s: %w", channelID, err)
	}
	if out == domain.OutcomeNotFound {
		return true, nil
	}

	if err := m.gw.DeleteChannel(ctx, channelID); err != nil && domain.OutcomeOf(err) != domain.OutcomeNotFound {
		m.emitFailure(ctx, domain.RoomDeleteFailed, guildID, channelID, ch.ParentID, "", err)
		return false, fmt.Errorf("delete room %s: %w", channelID, err)
	}

	ev := domain.NewRoomEvent(domain.RoomDeleted, guildID, channelID, m.now())
	ev.CategoryID = ch.ParentID
	m.emit(ctx, ev)
	return true, nil
}

func (m *LifecycleManager) emitFailure(ctx context.Context, kind domain.RoomEventKind, guildID, channelID, categoryID, ownerID string, err error) {
	ev := domain.NewRoomEvent(kind, guildID, channelID, m.now())
	ev.CategoryID = categoryID
	ev.OwnerID = ownerID
	ev.Error = err.Error()
	m.emit(ctx, ev)
}

func (m *LifecycleManager) emit(ctx context.Context, ev domain.RoomEvent) {
	for _, o := range m.observers {
		o.OnRoomEvent(ctx, ev)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
