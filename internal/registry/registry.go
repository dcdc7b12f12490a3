// Package registry defines the persistence contract for generator categories,
// temporary rooms and per-member unique channels.
package registry

import (
	"context"

	"github.com/cwrk-planet/tempvoice/internal/domain"
)

// GeneratorStore keeps the categories whose voice channels act as room templates.
type GeneratorStore interface {
	IsGeneratorCategory(ctx context.Context, categoryID, guildID string) (bool, error)
	// MarkGenerator returns OutcomeDuplicate when the category is already active.
	MarkGenerator(ctx context.Context, categoryID, name, guildID string) (domain.Outcome, error)
	// UnmarkGenerator returns OutcomeNotFound when the category is not active.
	UnmarkGenerator(ctx context.Context, categoryID, guildID string) (domain.Outcome, error)
	ListGenerators(ctx context.Context, guildID string) ([]domain.GeneratorCategory, error)
}

// RoomStore keeps temporary rooms.
type RoomStore interface {
	ListActiveRooms(ctx context.Context, categoryID, guildID string) ([]string, error)
	ListAllActiveRooms(ctx context.Context) ([]domain.TemporaryRoom, error)
	IsActiveRoom(ctx context.Context, channelID, guildID string) (bool, error)
	RegisterRoom(ctx context.Context, channelID, name, categoryID, guildID, ownerID string) (domain.Outcome, error)
	DeactivateRoom(ctx context.Context, channelID, guildID string) (domain.Outcome, error)
}

// UniqueStore keeps unique categories and the channels granted in them.
type UniqueStore interface {
	MemberHasUniqueChannel(ctx context.Context, memberID, categoryID, guildID string) (bool, error)
	RegisterUniqueChannel(ctx context.Context, memberID, channelID, name, categoryID, guildID string) (domain.Outcome, error)
	// GetUniqueChannel returns domain.ErrNotFound when the member has no active channel.
	GetUniqueChannel(ctx context.Context, memberID, categoryID, guildID string) (*domain.MemberUniqueChannel, error)
	DeactivateUniqueChannel(ctx context.Context, memberID, categoryID, guildID string) (domain.Outcome, error)

	MarkUniqueCategory(ctx context.Context, categoryID, name, guildID string, kind domain.ChannelKind) (domain.Outcome, error)
	UnmarkUniqueCategory(ctx context.Context, categoryID, guildID string) (domain.Outcome, error)
	ListUniqueCategories(ctx context.Context, guildID string) ([]domain.UniqueCategory, error)
}

// Registry is the source of truth for all rows the bot owns.
// Every method is idempotent and keyed by (id, guild id).
type Registry interface {
	GeneratorStore
	RoomStore
	UniqueStore

	Migrate(ctx context.Context) error
	Close() error
}

// Result folds a mutation into the outcome taxonomy. A unique violation is
// reported as OutcomeDuplicate without an error; zero affected rows yield miss.
func Result(affected int64, miss domain.Outcome, err error) (domain.Outcome, error) {
	if err != nil {
		if domain.OutcomeOf(err) == domain.OutcomeDuplicate {
			return domain.OutcomeDuplicate, nil
		}
		return domain.OutcomeUnexpected, err
	}
	if affected == 0 {
		return miss, nil
	}
	return domain.OutcomeSuccess, nil
}
