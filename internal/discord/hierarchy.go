package discord

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"
	"github.com/wardenbot/warden/internal/errs"
)

// CanActOn applies the guild role hierarchy: a moderator may only act on
// targets below their own highest role, never on themselves and never on the
// guild owner. A target who is not a member (an unban, for instance) passes.
func (d *Discord) CanActOn(ctx context.Context, guildID string, executorID string, targetID string) (bool, error) {
	if executorID == targetID {
		return false, nil
	}

	guild, errGuild := d.guild(ctx, guildID)
	if errGuild != nil {
		return false, errGuild
	}

	if targetID == guild.OwnerID {
		return false, nil
	}

	if executorID == guild.OwnerID {
		return true, nil
	}

	target, errTarget := d.Member(ctx, guildID, targetID)
	if errTarget != nil {
		if errors.Is(errTarget, errs.ErrUnknownTarget) {
			return true, nil
		}

		return false, errTarget
	}

	executor, errExecutor := d.Member(ctx, guildID, executorID)
	if errExecutor != nil {
		return false, errExecutor
	}

	return highestRolePosition(guild, executor.Roles) > highestRolePosition(guild, target.Roles), nil
}

func (d *Discord) guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	if guild, errState := d.session.State.Guild(guildID); errState == nil {
		return guild, nil
	}

	guild, errGuild := d.session.Guild(guildID, discordgo.WithContext(ctx))
	if errGuild != nil {
		return nil, mapErr(errGuild)
	}

	return guild, nil
}

func highestRolePosition(guild *discordgo.Guild, roleIDs []string) int {
	highest := 0

	for _, role := range guild.Roles {
		for _, roleID := range roleIDs {
			if role.ID == roleID && role.Position > highest {
				highest = role.Position
			}
		}
	}

	return highest
}
