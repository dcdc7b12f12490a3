package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/cwrk-planet/tempvoice/internal/domain"
	"github.com/cwrk-planet/tempvoice/internal/service"

	"github.com/bwmarrin/discordgo"
)

var _ service.Gateway = (*Gateway)(nil)

const membersPageSize = 1000

// Gateway implements service.Gateway on a discordgo session. Reads go to the
// state cache first and fall back to REST.
type Gateway struct {
	s       *discordgo.Session
	timeout time.Duration
}

func NewGateway(s *discordgo.Session, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Gateway{s: s, timeout: timeout}
}

// call bounds a single REST request by the configured timeout.
func (g *Gateway) call(ctx context.Context) (discordgo.RequestOption, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	return discordgo.WithContext(ctx), cancel
}

func (g *Gateway) Channel(ctx context.Context, channelID string) (*domain.Channel, error) {
	if ch, err := g.s.State.Channel(channelID); err == nil {
		return toChannel(ch), nil
	}

	opt, cancel := g.call(ctx)
	defer cancel()
	ch, err := g.s.Channel(channelID, opt)
	if err != nil {
		return nil, classify("get channel "+channelID, err)
	}
	return toChannel(ch), nil
}

func (g *Gateway) CreateVoiceChannel(ctx context.Context, guildID string, spec domain.VoiceChannelSpec) (*domain.Channel, error) {
	opt, cancel := g.call(ctx)
	defer cancel()

	ch, err := g.s.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 spec.Name,
		Type:                 discordgo.ChannelTypeGuildVoice,
		Bitrate:              spec.Bitrate,
		UserLimit:            spec.UserLimit,
		PermissionOverwrites: toOverwrites(spec.Overwrites),
		ParentID:             spec.ParentID,
	}, opt)
	if err != nil {
		return nil, classify("create voice channel", err)
	}
	return toChannel(ch), nil
}

func (g *Gateway) CreatePrivateChannel(ctx context.Context, guildID string, spec domain.PrivateChannelSpec) (*domain.Channel, error) {
	opt, cancel := g.call(ctx)
	defer cancel()

	ch, err := g.s.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 spec.Name,
		Type:                 channelType(spec.Kind),
		PermissionOverwrites: toOverwrites(spec.Overwrites),
		ParentID:             spec.ParentID,
	}, opt)
	if err != nil {
		return nil, classify("create private channel", err)
	}
	return toChannel(ch), nil
}

func (g *Gateway) DeleteChannel(ctx context.Context, channelID string) error {
	opt, cancel := g.call(ctx)
	defer cancel()

	_, err := g.s.ChannelDelete(channelID, opt)
	return classify("delete channel "+channelID, err)
}

func (g *Gateway) MoveMember(ctx context.Context, guildID, memberID, channelID string) error {
	opt, cancel := g.call(ctx)
	defer cancel()

	target := channelID
	return classify("move member "+memberID, g.s.GuildMemberMove(guildID, memberID, &target, opt))
}

// VoiceOccupancy counts voice states in the state cache. A channel unknown to
// the cache is reported as not found.
func (g *Gateway) VoiceOccupancy(_ context.Context, guildID, channelID string) (int, error) {
	if _, err := g.s.State.Channel(channelID); err != nil {
		return 0, classify("channel "+channelID, err)
	}
	guild, err := g.s.State.Guild(guildID)
	if err != nil {
		return 0, classify("guild "+guildID, err)
	}

	g.s.State.RLock()
	defer g.s.State.RUnlock()
	n := 0
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID == channelID {
			n++
		}
	}
	return n, nil
}

func (g *Gateway) GuildMembers(ctx context.Context, guildID string) ([]domain.Member, error) {
	var (
		out   []domain.Member
		after string
	)
	for {
		page, err := g.membersPage(ctx, guildID, after)
		if err != nil {
			return nil, err
		}
		for _, m := range page {
			out = append(out, toMember(m, ""))
		}
		if len(page) < membersPageSize {
			return out, nil
		}
		last := page[len(page)-1]
		if last.User == nil {
			return out, fmt.Errorf("guild members page without user")
		}
		after = last.User.ID
	}
}

func (g *Gateway) membersPage(ctx context.Context, guildID, after string) ([]*discordgo.Member, error) {
	opt, cancel := g.call(ctx)
	defer cancel()

	page, err := g.s.GuildMembers(guildID, after, membersPageSize, opt)
	if err != nil {
		return nil, classify("list guild members", err)
	}
	return page, nil
}
