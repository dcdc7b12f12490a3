package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwrk-planet/tempvoice/internal/domain"
	"github.com/cwrk-planet/tempvoice/internal/registry"
)

// GeneratorService is the admin side of generator categories.
type GeneratorService struct {
	reg   registry.Registry
	gw    Gateway
	rooms *LifecycleManager
	log   *slog.Logger
}

func NewGeneratorService(reg registry.Registry, gw Gateway, rooms *LifecycleManager, log *slog.Logger) *GeneratorService {
	if log == nil {
		log = slog.Default()
	}
	return &GeneratorService{reg: reg, gw: gw, rooms: rooms, log: log.With("component", "generators")}
}

// UnmarkReport lists what happened to the rooms of an unmarked category.
type UnmarkReport struct {
	CategoryID string            `json:"category_id"`
	Outcome    string            `json:"outcome"`
	Removed    []string          `json:"removed"`
	Failed     map[string]string `json:"failed,omitempty"`
}

func (r UnmarkReport) Partial() bool { return len(r.Failed) > 0 }

// Mark turns an existing category into a generator. An empty name takes the category's own.
func (s *GeneratorService) Mark(ctx context.Context, guildID, categoryID, name string) (domain.Outcome, error) {
	if !domain.ValidSnowflake(guildID) || !domain.ValidSnowflake(categoryID) {
		return domain.OutcomeUnexpected, domain.ErrInvalidID
	}
	cat, err := resolveCategory(ctx, s.gw, guildID, categoryID)
	if err != nil {
		return domain.OutcomeOf(err), err
	}
	if name == "" {
		name = cat.Name
	}

	out, err := s.reg.MarkGenerator(ctx, categoryID, name, guildID)
	if err != nil {
		return out, fmt.Errorf("mark generator %s: %w", categoryID, err)
	}
	s.log.InfoContext(ctx, "generator marked", "guild_id", guildID, "category_id", categoryID, "outcome", out.String())
	return out, nil
}

// UnmarkTimeout bounds the cleanup of an unmarked category. The cleanup does
// not follow the caller's cancellation.
const UnmarkTimeout = 2 * time.Minute

// Unmark stops the category from spawning rooms, then removes its active rooms.
// Room failures do not undo the unmark; they are listed in the report.
func (s *GeneratorService) Unmark(ctx context.Context, guildID, categoryID string) (UnmarkReport, error) {
	rep := UnmarkReport{CategoryID: categoryID, Removed: []string{}}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), UnmarkTimeout)
	defer cancel()

	out, err := s.reg.UnmarkGenerator(ctx, categoryID, guildID)
	rep.Outcome = out.String()
	if err != nil {
		return rep, fmt.Errorf("unmark generator %s: %w", categoryID, err)
	}

	// rooms registered after this list see the unmark themselves and go away
	ids, err := s.reg.ListActiveRooms(ctx, categoryID, guildID)
	if err != nil {
		return rep, fmt.Errorf("list rooms of %s: %w", categoryID, err)
	}
	for _, id := range ids {
		if err := s.rooms.Remove(ctx, guildID, id); err != nil {
			if rep.Failed == nil {
				rep.Failed = make(map[string]string)
			}
			rep.Failed[id] = err.Error()
			continue
		}
		rep.Removed = append(rep.Removed, id)
	}
	if rep.Partial() {
		s.log.WarnContext(ctx, "generator cleanup partial",
			"guild_id", guildID, "category_id", categoryID,
			"removed", len(rep.Removed), "failed", len(rep.Failed))
	}

	s.log.InfoContext(ctx, "generator unmarked",
		"guild_id", guildID, "category_id", categoryID, "outcome", rep.Outcome, "rooms_removed", len(rep.Removed))
	return rep, nil
}

func (s *GeneratorService) Rooms(ctx context.Context, guildID, categoryID string) ([]string, error) {
	ids, err := s.reg.ListActiveRooms(ctx, categoryID, guildID)
	if err != nil {
		return nil, fmt.Errorf("list rooms of %s: %w", categoryID, err)
	}
	return ids, nil
}

func (s *GeneratorService) List(ctx context.Context, guildID string) ([]domain.GeneratorCategory, error) {
	gens, err := s.reg.ListGenerators(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("list generators: %w", err)
	}
	return gens, nil
}

func resolveCategory(ctx context.Context, gw Gateway, guildID, categoryID string) (*domain.Channel, error) {
	ch, err := gw.Channel(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("get category %s: %w", categoryID, err)
	}
	if !ch.IsCategory() || (ch.GuildID != "" && ch.GuildID != guildID) {
		return nil, fmt.Errorf("%s: %w: %w", categoryID, domain.ErrNotFound, domain.ErrNotCategory)
	}
	return ch, nil
}
