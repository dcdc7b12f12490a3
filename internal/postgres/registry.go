package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cwrk-planet/tempvoice/internal/domain"
	"github.com/cwrk-planet/tempvoice/internal/registry"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ registry.Registry = (*Registry)(nil)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Registry struct {
	pool *pgxpool.Pool
	q    querier
	now  func() time.Time
}

func NewRegistry(pool *pgxpool.Pool) *Registry {
	return &Registry{pool: pool, q: pool, now: time.Now}
}

func (r *Registry) Migrate(ctx context.Context) error {
	if _, err := r.q.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (r *Registry) Close() error {
	r.pool.Close()
	return nil
}

func (r *Registry) exists(ctx context.Context, sql string, args ...any) (bool, error) {
	var ok bool
	if err := r.q.QueryRow(ctx, sql, args...).Scan(&ok); err != nil {
		return false, mapPgError(err)
	}
	return ok, nil
}

func (r *Registry) mutate(ctx context.Context, miss domain.Outcome, sql string, args ...any) (domain.Outcome, error) {
	tag, err := r.q.Exec(ctx, sql, args...)
	if err != nil {
		return registry.Result(0, miss, mapPgError(err))
	}
	return registry.Result(tag.RowsAffected(), miss, nil)
}

func (r *Registry) IsGeneratorCategory(ctx context.Context, categoryID, guildID string) (bool, error) {
	return r.exists(ctx, QueryIsGenerator, categoryID, guildID)
}

func (r *Registry) MarkGenerator(ctx context.Context, categoryID, name, guildID string) (domain.Outcome, error) {
	return r.mutate(ctx, domain.OutcomeDuplicate, QueryMarkGenerator, categoryID, guildID, name, r.now().UTC())
}

func (r *Registry) UnmarkGenerator(ctx context.Context, categoryID, guildID string) (domain.Outcome, error) {
	return r.mutate(ctx, domain.OutcomeNotFound, QueryUnmarkGenerator, categoryID, guildID, r.now().UTC())
}

func (r *Registry) ListGenerators(ctx context.Context, guildID string) ([]domain.GeneratorCategory, error) {
	rows, err := r.q.Query(ctx, QueryListGenerators, guildID)
	if err != nil {
		return nil, mapPgError(err)
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
	rows, err := r.q.Query(ctx, QueryListActiveRooms, categoryID, guildID)
	if err != nil {
		return nil, mapPgError(err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, mapPgError(err)
	}
	return ids, nil
}

func (r *Registry) ListAllActiveRooms(ctx context.Context) ([]domain.TemporaryRoom, error) {
	rows, err := r.q.Query(ctx, QueryListAllActiveRooms)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var out []domain.TemporaryRoom
	for rows.Next() {
		var rm domain.TemporaryRoom
		if err := rows.Scan(&rm.ChannelID, &rm.GuildID, &rm.CategoryID, &rm.OwnerID, &rm.Name,
			&rm.Active, &rm.CreatedAt, &rm.DeletedAt); err != nil {
			return nil, err
		}
		out = append(out, rm)
	}
	return out, rows.Err()
}

func (r *Registry) IsActiveRoom(ctx context.Context, channelID, guildID string) (bool, error) {
	return r.exists(ctx, QueryIsActiveRoom, channelID, guildID)
}

func (r *Registry) RegisterRoom(ctx context.Context, channelID, name, categoryID, guildID, ownerID string) (domain.Outcome, error) {
	return r.mutate(ctx, domain.OutcomeDuplicate, QueryRegisterRoom,
		channelID, guildID, categoryID, ownerID, name, r.now().UTC())
}

func (r *Registry) DeactivateRoom(ctx context.Context, channelID, guildID string) (domain.Outcome, error) {
	return r.mutate(ctx, domain.OutcomeNotFound, QueryDeactivateRoom, channelID, guildID, r.now().UTC())
}

func (r *Registry) MemberHasUniqueChannel(ctx context.Context, memberID, categoryID, guildID string) (bool, error) {
	return r.exists(ctx, QueryMemberHasUnique, memberID, categoryID, guildID)
}

func (r *Registry) RegisterUniqueChannel(ctx context.Context, memberID, channelID, name, categoryID, guildID string) (domain.Outcome, error) {
	return r.mutate(ctx, domain.OutcomeDuplicate, QueryRegisterUnique,
		memberID, channelID, categoryID, guildID, name, r.now().UTC())
}

func (r *Registry) GetUniqueChannel(ctx context.Context, memberID, categoryID, guildID string) (*domain.MemberUniqueChannel, error) {
	var c domain.MemberUniqueChannel
	err := r.q.QueryRow(ctx, QueryGetUnique, memberID, categoryID, guildID).Scan(
		&c.MemberID, &c.ChannelID, &c.CategoryID, &c.GuildID, &c.Name, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, mapPgError(err)
	}
	return &c, nil
}

func (r *Registry) DeactivateUniqueChannel(ctx context.Context, memberID, categoryID, guildID string) (domain.Outcome, error) {
	return r.mutate(ctx, domain.OutcomeNotFound, QueryDeactivateUnique, memberID, categoryID, guildID, r.now().UTC())
}

func (r *Registry) MarkUniqueCategory(ctx context.Context, categoryID, name, guildID string, kind domain.ChannelKind) (domain.Outcome, error) {
	if !kind.Valid() {
		kind = domain.KindText
	}
	return r.mutate(ctx, domain.OutcomeDuplicate, QueryMarkUniqueCategory,
		categoryID, guildID, name, string(kind), r.now().UTC())
}

func (r *Registry) UnmarkUniqueCategory(ctx context.Context, categoryID, guildID string) (domain.Outcome, error) {
	return r.mutate(ctx, domain.OutcomeNotFound, QueryUnmarkUniqueCategory, categoryID, guildID, r.now().UTC())
}

func (r *Registry) ListUniqueCategories(ctx context.Context, guildID string) ([]domain.UniqueCategory, error) {
	rows, err := r.q.Query(ctx, QueryListUniqueCategories, guildID)
	if err != nil {
		return nil, mapPgError(err)
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

func mapPgError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23505 - unique violation
		if pgErr.Code == "23505" {
			return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, pgErr.ConstraintName)
		}
	}
	return err
}
