package domain

import "strconv"

// ChannelType mirrors the platform channel types the bot cares about.
type ChannelType int

const (
	ChannelTypeText     ChannelType = 0
	ChannelTypeVoice    ChannelType = 2
	ChannelTypeCategory ChannelType = 4
	ChannelTypeForum    ChannelType = 15
)

// Permission bits, same values as the platform's permission flags.
const (
	PermManageChannels     int64 = 1 << 4
	PermViewChannel        int64 = 1 << 10
	PermSendMessages       int64 = 1 << 11
	PermReadMessageHistory int64 = 1 << 16
	PermConnect            int64 = 1 << 20
	PermMoveMembers        int64 = 1 << 24
)

type OverwriteType int

const (
	OverwriteRole   OverwriteType = 0
	OverwriteMember OverwriteType = 1
)

// Overwrite is a per-role or per-member permission override on a channel.
type Overwrite struct {
	ID    string
	Type  OverwriteType
	Allow int64
	Deny  int64
}

type Channel struct {
	ID         string
	GuildID    string
	ParentID   string
	Name       string
	Type       ChannelType
	Bitrate    int
	UserLimit  int
	Overwrites []Overwrite
}

func (c *Channel) IsCategory() bool {
	return c != nil && c.Type == ChannelTypeCategory
}

type Member struct {
	ID          string
	DisplayName string
	Bot         bool
}

// VoiceTransition is one voice presence change of a member.
// Previous and Current are nil when the member was not / is no longer in voice.
type VoiceTransition struct {
	GuildID  string
	Member   Member
	Previous *Channel
	Current  *Channel
}

func (t VoiceTransition) PreviousID() string {
	if t.Previous == nil {
		return ""
	}
	return t.Previous.ID
}

func (t VoiceTransition) CurrentID() string {
	if t.Current == nil {
		return ""
	}
	return t.Current.ID
}

// Entered reports whether the member joined a channel they were not in before.
func (t VoiceTransition) Entered() bool {
	return t.Current != nil && t.CurrentID() != t.PreviousID()
}

// Left reports whether the member left a channel they were in before.
func (t VoiceTransition) Left() bool {
	return t.Previous != nil && t.PreviousID() != t.CurrentID()
}

// VoiceChannelSpec describes a voice channel to create.
type VoiceChannelSpec struct {
	Name       string
	ParentID   string
	Bitrate    int
	UserLimit  int
	Overwrites []Overwrite
}

// PrivateChannelSpec describes a member-private text or forum channel to create.
type PrivateChannelSpec struct {
	Name       string
	ParentID   string
	Kind       ChannelKind
	Overwrites []Overwrite
}

// ValidSnowflake reports whether id looks like a platform snowflake.
func ValidSnowflake(id string) bool {
	if id == "" || len(id) > 20 {
		return false
	}
	_, err := strconv.ParseUint(id, 10, 64)
	return err == nil
}
