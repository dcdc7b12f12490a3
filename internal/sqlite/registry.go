package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cwrk-planet/tempvoice/internal/domain"
	"github.com/cwrk-planet/tempvoice/internal/registry"

	"github.com/mattn/go-sqlite3"
)

var _ registry.Registry = (*Registry)(nil)

// Registry stores everything in a single sqlite database.
type Registry struct {
	db  *sql.DB
	now func() time.Time
}

type Option func(*Registry)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func NewRegistry(db *sql.DB, opts ...Option) *Registry {
	r := &Registry{db: db, now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Registry) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (r *Registry) Close() error { return r.db.Close() }

func (r *Registry) ts() time.Time { return r.now().UTC() }

func (r *Registry) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var ok bool
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&ok); err != nil {
		return false, mapError(err)
	}
	return ok, nil
}

func (r *Registry) mutate(ctx context.Context, miss domain.Outcome, query string, args ...any) (domain.Outcome, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return registry.Result(0, miss, mapError(err))
	}
	n, err := res.RowsAffected()
	return registry.Result(n, miss, err)
}

func (r *Registry) IsGeneratorCategory(ctx context.Context, categoryID, guildID string) (bool, error) {
	return r.exists(ctx, queryIsGenerator, categoryID, guildID)
}

func (r *Registry) MarkGenerator(ctx context.Context, categoryID, name, guildID string) (domain.Outcome, error) {
	now := r.ts()
	return r.mutate(ctx, domain.OutcomeDuplicate, queryMarkGenerator, categoryID, guildID, name, now, now)
}

func (r *Registry) UnmarkGenerator(ctx context.Context, categoryID, guildID string) (domain.Outcome, error) {
	return r.mutate(ctx, domain.OutcomeNotFound, queryUnmarkGenerator, r.ts(), categoryID, guildID)
}

func (r *Registry) ListGenerators(ctx context.Context, guildID string) ([]domain.GeneratorCategory, error) {
	rows, err := r.db.QueryContext(ctx, queryListGenerators, guildID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []domain.GeneratorCategory
	for rows.Next() {
		var g domain.GeneratorCategory
		if err := rows.Scan(&g.CategoryID, &g.GuildID, &g.Name, &g.Active, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *Registry) ListActiveRooms(ctx context.Context, categoryID, guildID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, queryListActiveRooms, categoryID, guildID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Registry) ListAllActiveRooms(ctx context.Context) ([]domain.TemporaryRoom, error) {
	rows, err := r.db.QueryContext(ctx, queryListAllActiveRooms)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []domain.TemporaryRoom
	for rows.Next() {
		var (
			rm      domain.TemporaryRoom
			deleted sql.NullTime
		)
		if err := rows.Scan(&rm.ChannelID, &rm.GuildID, &rm.CategoryID, &rm.OwnerID, &rm.Name,
			&rm.Active, &rm.CreatedAt, &deleted); err != nil {
			return nil, err
		}
		if deleted.Valid {
			rm.DeletedAt = &deleted.Time
		}
		out = append(out, rm)
	}
	return out, rows.Err()
}

func (r *Registry) IsActiveRoom(ctx context.Context, channelID, guildID string) (bool, error) {
	return r.exists(ctx, queryIsActiveRoom, channelID, guildID)
}

func (r *Registry) RegisterRoom(ctx context.Context, channelID, name, categoryID, guildID, ownerID string) (domain.Outcome, error) {
	return r.mutate(ctx, domain.OutcomeDuplicate, queryRegisterRoom,
		channelID, guildID, categoryID, ownerID, name, r.ts())
}

func (r *Registry) DeactivateRoom(ctx context.Context, channelID, guildID string) (domain.Outcome, error) {
	return r.mutate(ctx, domain.OutcomeNotFound, queryDeactivateRoom, r.ts(), channelID, guildID)
}

func (r *Registry) MemberHasUniqueChannel(ctx context.Context, memberID, categoryID, guildID string) (bool, error) {
	return r.exists(ctx, queryMemberHasUnique, memberID, categoryID, guildID)
}

func (r *Registry) RegisterUniqueChannel(ctx context.Context, memberID, channelID, name, categoryID, guildID string) (domain.Outcome, error) {
	now := r.ts()
	return r.mutate(ctx, domain.OutcomeDuplicate, queryRegisterUnique,
		memberID, channelID, categoryID, guildID, name, now, now)
}

func (r *Registry) GetUniqueChannel(ctx context.Context, memberID, categoryID, guildID string) (*domain.MemberUniqueChannel, error) {
	var c domain.MemberUniqueChannel
	err := r.db.QueryRowContext(ctx, queryGetUnique, memberID, categoryID, guildID).Scan(
		&c.MemberID, &c.ChannelID, &c.CategoryID, &c.GuildID, &c.Name, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &c, nil
}

func (r *Registry) DeactivateUniqueChannel(ctx context.Context, memberID, categoryID, guildID string) (domain.Outcome, error) {
	return r.mutate(ctx, domain.OutcomeNotFound, queryDeactivateUnique, r.ts(), memberID, categoryID, guildID)
}

func (r *Registry) MarkUniqueCategory(ctx context.Context, categoryID, name, guildID string, kind domain.ChannelKind) (domain.Outcome, error) {
	if !kind.Valid() {
		kind = domain.KindText
	}
	now := r.ts()
	return r.mutate(ctx, domain.OutcomeDuplicate, queryMarkUniqueCategory,
		categoryID, guildID, name, string(kind), now, now)
}

func (r *Registry) UnmarkUniqueCategory(ctx context.Context, categoryID, guildID string) (domain.Outcome, error) {
	return r.mutate(ctx, domain.OutcomeNotFound, queryUnmarkUniqueCategory, r.ts(), categoryID, guildID)
}

func (r *Registry) ListUniqueCategories(ctx context.Context, guildID string) ([]domain.UniqueCategory, error) {
	rows, err := r.db.QueryContext(ctx, queryListUniqueCategories, guildID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []domain.UniqueCategory
	for rows.Next() {
		var (
			c    domain.UniqueCategory
			kind string
		)
		if err := rows.Scan(&c.CategoryID, &c.GuildID, &c.Name, &kind, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.Kind = domain.ChannelKind(kind)
		out = append(out, c)
	}
	return out, rows.Err()
}

func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) {
		switch sqErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: %v", domain.ErrAlreadyExists, err)
		}
	}
	return err
}
