package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cwrk-planet/tempvoice/internal/domain"
	"github.com/cwrk-planet/tempvoice/internal/registry"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// SweepReport counts the result of one reconciliation pass.
type SweepReport struct {
	Checked int `json:"checked"`
	Removed int `json:"removed"`
	Kept    int `json:"kept"`
	Failed  int `json:"failed"`
}

// Reconciler compares active rooms in the registry against the platform and
// removes rooms that vanished or sit empty.
type Reconciler struct {
	reg         registry.RoomStore
	rooms       *LifecycleManager
	concurrency int
	now         func() time.Time
	log         *slog.Logger
}

type ReconcilerOption func(*Reconciler)

func WithReconcileClock(now func() time.Time) ReconcilerOption {
	return func(r *Reconciler) { r.now = now }
}

func NewReconciler(reg registry.RoomStore, rooms *LifecycleManager, concurrency int, log *slog.Logger, opts ...ReconcilerOption) *Reconciler {
	if concurrency <= 0 {
		concurrency = 4
	}
	if log == nil {
		log = slog.Default()
	}
	r := &Reconciler{reg: reg, rooms: rooms, concurrency: concurrency, now: time.Now, log: log.With("component", "reconciler")}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Reconciler) Sweep(ctx context.Context) (SweepReport, error) {
	return r.sweep(ctx, "")
}

// SweepGuild checks only the rooms of one guild, typically once the guild's
// voice states are known after it becomes available.
func (r *Reconciler) SweepGuild(ctx context.Context, guildID string) (SweepReport, error) {
	return r.sweep(ctx, guildID)
}

func (r *Reconciler) sweep(ctx context.Context, guildID string) (SweepReport, error) {
	var rep SweepReport

	active, err := r.reg.ListAllActiveRooms(ctx)
	if err != nil {
		return rep, fmt.Errorf("list active rooms: %w", err)
	}
	if guildID != "" {
		active = lo.Filter(active, func(room domain.TemporaryRoom, _ int) bool { return room.GuildID == guildID })
	}
	rep.Checked = len(active)

	var removed, kept, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(r.concurrency)
	now := r.now()
	for _, room := range active {
		// the owner of a fresh room may not show up in voice yet
		if now.Sub(room.CreatedAt) < r.rooms.GraceInterval() {
			kept.Add(1)
			continue
		}
		g.Go(func() error {
			gone, err := r.rooms.ReleaseIfEmpty(ctx, room.GuildID, room.ChannelID)
			switch {
			case err != nil:
				failed.Add(1)
				r.log.WarnContext(ctx, "reconcile room failed",
					"guild_id", room.GuildID, "channel_id", room.ChannelID, "err", err)
			case gone:
				removed.Add(1)
			default:
				kept.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	rep.Removed = int(removed.Load())
	rep.Kept = int(kept.Load())
	rep.Failed = int(failed.Load())
	r.log.InfoContext(ctx, "reconcile sweep done", "guild_id", guildID,
		"checked", rep.Checked, "removed", rep.Removed, "kept", rep.Kept, "failed", rep.Failed)
	return rep, ctx.Err()
}

// Run sweeps every interval until ctx is done.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if _, err := r.Sweep(ctx); err != nil && ctx.Err() == nil {
				r.log.ErrorContext(ctx, "reconcile sweep failed", "err", err)
			}
		}
	}
}
