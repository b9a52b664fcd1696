package discord

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
)

// BanMember bans the target, optionally deleting their recent messages.
func (d *Discord) BanMember(ctx context.Context, guildID string, userID string, reason string, deleteMessageDays int) error {
	return mapErr(d.session.GuildBanCreateWithReason(guildID, userID, reason, deleteMessageDays,
		discordgo.WithContext(ctx)))
}

func (d *Discord) UnbanMember(ctx context.Context, guildID string, userID string) error {
	return mapErr(d.session.GuildBanDelete(guildID, userID, discordgo.WithContext(ctx)))
}

func (d *Discord) KickMember(ctx context.Context, guildID string, userID string, reason string) error {
	return mapErr(d.session.GuildMemberDeleteWithReason(guildID, userID, reason,
		discordgo.WithContext(ctx)))
}

// TimeoutMember times the target out until now+duration.
func (d *Discord) TimeoutMember(ctx context.Context, guildID string, userID string, dur time.Duration) error {
	until := time.Now().Add(dur)

	return mapErr(d.session.GuildMemberTimeout(guildID, userID, &until, discordgo.WithContext(ctx)))
}

func (d *Discord) RemoveTimeout(ctx context.Context, guildID string, userID string) error {
	return mapErr(d.session.GuildMemberTimeout(guildID, userID, nil, discordgo.WithContext(ctx)))
}
