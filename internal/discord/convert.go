package discord

import (
	"github.com/cwrk-planet/tempvoice/internal/domain"

	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"
)

func toChannel(c *discordgo.Channel) *domain.Channel {
	if c == nil {
		return nil
	}
	return &domain.Channel{
		ID:        c.ID,
		GuildID:   c.GuildID,
		ParentID:  c.ParentID,
		Name:      c.Name,
		Type:      domain.ChannelType(c.Type),
		Bitrate:   c.Bitrate,
		UserLimit: c.UserLimit,
		Overwrites: lo.Map(c.PermissionOverwrites, func(o *discordgo.PermissionOverwrite, _ int) domain.Overwrite {
			return domain.Overwrite{ID: o.ID, Type: domain.OverwriteType(o.Type), Allow: o.Allow, Deny: o.Deny}
		}),
	}
}

func toOverwrites(ows []domain.Overwrite) []*discordgo.PermissionOverwrite {
	return lo.Map(ows, func(o domain.Overwrite, _ int) *discordgo.PermissionOverwrite {
		return &discordgo.PermissionOverwrite{
			ID:    o.ID,
			Type:  discordgo.PermissionOverwriteType(o.Type),
			Allow: o.Allow,
			Deny:  o.Deny,
		}
	})
}

func toMember(m *discordgo.Member, fallbackID string) domain.Member {
	out := domain.Member{ID: fallbackID, DisplayName: fallbackID}
	if m == nil {
		return out
	}
	if m.User != nil {
		out.ID = m.User.ID
		out.Bot = m.User.Bot
	}
	out.DisplayName = displayName(m, out.ID)
	return out
}

// displayName prefers the guild nickname, then the global name, then the username.
func displayName(m *discordgo.Member, fallback string) string {
	if m.Nick != "" {
		return m.Nick
	}
	if m.User != nil {
		if m.User.GlobalName != "" {
			return m.User.GlobalName
		}
		if m.User.Username != "" {
			return m.User.Username
		}
	}
	return fallback
}

func channelType(kind domain.ChannelKind) discordgo.ChannelType {
	if kind == domain.KindForum {
		return discordgo.ChannelTypeGuildForum
	}
	return discordgo.ChannelTypeGuildText
}
