package service

import (
	"context"

	"github.com/cwrk-planet/tempvoice/internal/domain"
)

// Gateway is the channel-management surface of the chat platform.
// Implementations return errors wrapping domain.ErrNotFound,
// domain.ErrForbidden or domain.ErrRateLimited where they apply.
type Gateway interface {
	Channel(ctx context.Context, channelID string) (*domain.Channel, error)
	CreateVoiceChannel(ctx context.Context, guildID string, spec domain.VoiceChannelSpec) (*domain.Channel, error)
	CreatePrivateChannel(ctx context.Context, guildID string, spec domain.PrivateChannelSpec) (*domain.Channel, error)
	DeleteChannel(ctx context.Context, channelID string) error
	MoveMember(ctx context.Context, guildID, memberID, channelID string) error
	// VoiceOccupancy counts members currently connected to the voice channel.
	VoiceOccupancy(ctx context.Context, guildID, channelID string) (int, error)
	GuildMembers(ctx context.Context, guildID string) ([]domain.Member, error)
}
