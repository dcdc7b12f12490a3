package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/cwrk-planet/tempvoice/internal/domain"
	"github.com/cwrk-planet/tempvoice/internal/registry"
	"github.com/cwrk-planet/tempvoice/internal/sqlite"

	"github.com/stretchr/testify/require"
)

type moveCall struct {
	GuildID, MemberID, ChannelID string
}

type fakeGateway struct {
	mu        sync.Mutex
	nextID    int
	channels  map[string]*domain.Channel
	occupancy map[string]int
	uncached  map[string]bool
	members   []domain.Member

	voiceSpecs   []domain.VoiceChannelSpec
	privateSpecs []domain.PrivateChannelSpec
	deleted      []string
	moves        []moveCall

	createErr error
	deleteErr error
	moveErr   error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		nextID:    201,
		channels:  map[string]*domain.Channel{},
		occupancy: map[string]int{},
		uncached:  map[string]bool{},
	}
}

func (g *fakeGateway) addChannel(ch domain.Channel) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.channels[ch.ID] = &ch
}

func (g *fakeGateway) setOccupancy(id string, n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.occupancy[id] = n
}

// dropFromCache hides id from occupancy lookups while Channel still finds it.
func (g *fakeGateway) dropFromCache(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.uncached[id] = true
}

func (g *fakeGateway) removeChannel(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.channels, id)
}

func (g *fakeGateway) has(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.channels[id]
	return ok
}

func (g *fakeGateway) Channel(_ context.Context, id string) (*domain.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.channels[id]
	if !ok {
		return nil, fmt.Errorf("channel %s: %w", id, domain.ErrNotFound)
	}
	cp := *ch
	return &cp, nil
}

func (g *fakeGateway) newID() string {
	id := strconv.Itoa(g.nextID)
	g.nextID++
	return id
}

func (g *fakeGateway) CreateVoiceChannel(_ context.Context, guildID string, spec domain.VoiceChannelSpec) (*domain.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.voiceSpecs = append(g.voiceSpecs, spec)
	ch := &domain.Channel{
		ID:         g.newID(),
		GuildID:    guildID,
		ParentID:   spec.ParentID,
		Name:       spec.Name,
		Type:       domain.ChannelTypeVoice,
		Bitrate:    spec.Bitrate,
		UserLimit:  spec.UserLimit,
		Overwrites: spec.Overwrites,
	}
	g.channels[ch.ID] = ch
	cp := *ch
	return &cp, nil
}

func (g *fakeGateway) CreatePrivateChannel(_ context.Context, guildID string, spec domain.PrivateChannelSpec) (*domain.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.privateSpecs = append(g.privateSpecs, spec)
	typ := domain.ChannelTypeText
	if spec.Kind == domain.KindForum {
		typ = domain.ChannelTypeForum
	}
	ch := &domain.Channel{ID: g.newID(), GuildID: guildID, ParentID: spec.ParentID, Name: spec.Name, Type: typ}
	g.channels[ch.ID] = ch
	cp := *ch
	return &cp, nil
}

func (g *fakeGateway) DeleteChannel(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.deleteErr != nil {
		return g.deleteErr
	}
	if _, ok := g.channels[id]; !ok {
		return fmt.Errorf("channel %s: %w", id, domain.ErrNotFound)
	}
	delete(g.channels, id)
	g.deleted = append(g.deleted, id)
	return nil
}

func (g *fakeGateway) MoveMember(_ context.Context, guildID, memberID, channelID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.moveErr != nil {
		return g.moveErr
	}
	g.moves = append(g.moves, moveCall{GuildID: guildID, MemberID: memberID, ChannelID: channelID})
	g.occupancy[channelID]++
	return nil
}

func (g *fakeGateway) VoiceOccupancy(_ context.Context, _ string, channelID string) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.channels[channelID]; !ok || g.uncached[channelID] {
		return 0, fmt.Errorf("channel %s: %w", channelID, domain.ErrNotFound)
	}
	return g.occupancy[channelID], nil
}

func (g *fakeGateway) GuildMembers(context.Context, string) ([]domain.Member, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.Member(nil), g.members...), nil
}

// hookGateway runs its hooks before delegating to the fake.
type hookGateway struct {
	*fakeGateway
	onCreate func()
	onDelete func(id string)
	onMove   func()
}

func (g *hookGateway) CreateVoiceChannel(ctx context.Context, guildID string, spec domain.VoiceChannelSpec) (*domain.Channel, error) {
	if g.onCreate != nil {
		g.onCreate()
	}
	return g.fakeGateway.CreateVoiceChannel(ctx, guildID, spec)
}

func (g *hookGateway) DeleteChannel(ctx context.Context, id string) error {
	if g.onDelete != nil {
		g.onDelete(id)
	}
	return g.fakeGateway.DeleteChannel(ctx, id)
}

func (g *hookGateway) MoveMember(ctx context.Context, guildID, memberID, channelID string) error {
	if g.onMove != nil {
		g.onMove()
	}
	return g.fakeGateway.MoveMember(ctx, guildID, memberID, channelID)
}

// failingRegistry overrides single operations of a real registry.
type failingRegistry struct {
	registry.Registry
	registerRoomErr error
}

func (f *failingRegistry) RegisterRoom(ctx context.Context, channelID, name, categoryID, guildID, ownerID string) (domain.Outcome, error) {
	if f.registerRoomErr != nil {
		return domain.OutcomeUnexpected, f.registerRoomErr
	}
	return f.Registry.RegisterRoom(ctx, channelID, name, categoryID, guildID, ownerID)
}

type eventLog struct {
	mu     sync.Mutex
	events []domain.RoomEvent
}

func (l *eventLog) OnRoomEvent(_ context.Context, ev domain.RoomEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) kinds() []domain.RoomEventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.RoomEventKind, 0, len(l.events))
	for _, ev := range l.events {
		out = append(out, ev.Kind)
	}
	return out
}

// recordingSleeper returns immediately and runs hook in place of the grace wait.
type recordingSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
	hook  func()
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	hook := s.hook
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

func (s *recordingSleeper) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.waits)
}

var errBoom = errors.New("boom")

func newTestRegistry(t *testing.T) registry.Registry {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, sqlite.Config{Path: ":memory:"})
	require.NoError(t, err)
	r := sqlite.NewRegistry(db)
	require.NoError(t, r.Migrate(ctx))
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
