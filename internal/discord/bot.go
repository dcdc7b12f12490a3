package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cwrk-planet/tempvoice/internal/domain"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
)

const Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates | discordgo.IntentsGuildMembers

type TransitionHandler interface {
	HandleTransition(ctx context.Context, t domain.VoiceTransition) error
}

type MemberJoinHandler interface {
	HandleMemberJoin(ctx context.Context, guildID string, member domain.Member) error
}

// NewSession builds a session with the intents the bot needs and the state
// cache enabled for voice occupancy.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	s.Identify.Intents = Intents
	s.StateEnabled = true
	s.State.TrackVoice = true
	s.State.TrackChannels = true
	return s, nil
}

// Bot turns gateway events into calls on the lifecycle manager and provisioner.
type Bot struct {
	s       *discordgo.Session
	gw      *Gateway
	rooms   TransitionHandler
	members MemberJoinHandler
	log     *slog.Logger

	// ctx outlives single events so grace waits end on shutdown only
	ctx context.Context

	mu           sync.Mutex
	onReady      []func(ctx context.Context)
	onGuild      []func(ctx context.Context, guildID string)
	onDisconnect []func()
	removers     []func()
}

func NewBot(s *discordgo.Session, gw *Gateway, rooms TransitionHandler, members MemberJoinHandler, log *slog.Logger) *Bot {
	if log == nil {
		log = slog.Default()
	}
	return &Bot{s: s, gw: gw, rooms: rooms, members: members, log: log.With("component", "discord")}
}

// OnReady registers f to run after every READY event.
func (b *Bot) OnReady(f func(ctx context.Context)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onReady = append(b.onReady, f)
}

// OnGuildAvailable registers f to run when a guild's state, voice states
// included, has been loaded into the cache.
func (b *Bot) OnGuildAvailable(f func(ctx context.Context, guildID string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onGuild = append(b.onGuild, f)
}

func (b *Bot) OnDisconnect(f func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onDisconnect = append(b.onDisconnect, f)
}

// Open registers the handlers and connects. ctx bounds every handler.
func (b *Bot) Open(ctx context.Context) error {
	b.ctx = ctx
	b.removers = append(b.removers,
		b.s.AddHandler(b.handleReady),
		b.s.AddHandler(b.handleGuildCreate),
		b.s.AddHandler(b.handleDisconnect),
		b.s.AddHandler(b.handleVoiceStateUpdate),
		b.s.AddHandler(b.handleGuildMemberAdd),
	)
	if err := b.s.Open(); err != nil {
		return fmt.Errorf("discord open: %w", err)
	}
	return nil
}

func (b *Bot) Close() error {
	for _, rm := range b.removers {
		rm()
	}
	b.removers = nil
	return b.s.Close()
}

func (b *Bot) eventCtx() context.Context {
	if b.ctx == nil {
		return context.Background()
	}
	return b.ctx
}

func (b *Bot) handleReady(_ *discordgo.Session, r *discordgo.Ready) {
	user := ""
	if r.User != nil {
		user = r.User.Username
	}
	b.log.Info("gateway ready", "user", user, "guilds", len(r.Guilds))
	b.mu.Lock()
	hooks := append([]func(context.Context){}, b.onReady...)
	b.mu.Unlock()
	for _, f := range hooks {
		go f(b.eventCtx())
	}
}

func (b *Bot) handleGuildCreate(_ *discordgo.Session, g *discordgo.GuildCreate) {
	if g.Guild == nil || g.Unavailable {
		return
	}
	b.mu.Lock()
	hooks := append([]func(context.Context, string){}, b.onGuild...)
	b.mu.Unlock()
	for _, f := range hooks {
		go f(b.eventCtx(), g.ID)
	}
}

func (b *Bot) handleDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	b.log.Warn("gateway disconnected")
	b.mu.Lock()
	hooks := append([]func(){}, b.onDisconnect...)
	b.mu.Unlock()
	for _, f := range hooks {
		f()
	}
}

func (b *Bot) handleVoiceStateUpdate(_ *discordgo.Session, e *discordgo.VoiceStateUpdate) {
	t, ok := b.transition(e)
	if !ok {
		return
	}
	ctx := b.eventCtx()
	log := b.log.With("event_id", uuid.NewString(), "guild_id", t.GuildID, "member_id", t.Member.ID)
	log.DebugContext(ctx, "voice transition", "from", t.PreviousID(), "to", t.CurrentID())

	if err := b.rooms.HandleTransition(ctx, t); err != nil {
		log.DebugContext(ctx, "voice transition handled with errors", "err", err)
	}
}

// transition resolves the channels of a voice state change. Mute or deafen
// updates keep the channel and are dropped.
func (b *Bot) transition(e *discordgo.VoiceStateUpdate) (domain.VoiceTransition, bool) {
	if e.VoiceState == nil {
		return domain.VoiceTransition{}, false
	}
	prevID := ""
	if e.BeforeUpdate != nil {
		prevID = e.BeforeUpdate.ChannelID
	}
	if prevID == e.ChannelID {
		return domain.VoiceTransition{}, false
	}

	ctx := b.eventCtx()
	return domain.VoiceTransition{
		GuildID:  e.GuildID,
		Member:   toMember(e.Member, e.UserID),
		Previous: b.resolve(ctx, e.GuildID, prevID),
		Current:  b.resolve(ctx, e.GuildID, e.ChannelID),
	}, true
}

// resolve returns a stub carrying only the id when the channel is gone already.
func (b *Bot) resolve(ctx context.Context, guildID, channelID string) *domain.Channel {
	if channelID == "" {
		return nil
	}
	ch, err := b.gw.Channel(ctx, channelID)
	if err != nil {
		return &domain.Channel{ID: channelID, GuildID: guildID}
	}
	return ch
}

func (b *Bot) handleGuildMemberAdd(_ *discordgo.Session, e *discordgo.GuildMemberAdd) {
	if e.Member == nil || b.members == nil {
		return
	}
	m := toMember(e.Member, "")
	if err := b.members.HandleMemberJoin(b.eventCtx(), e.GuildID, m); err != nil {
		b.log.Warn("member join provisioning failed", "guild_id", e.GuildID, "member_id", m.ID, "err", err)
	}
}
