package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/wardenbot/warden/internal/cases"
)

// CaseLogPoster publishes rendered case embeds to a guild's mod log channel.
// It satisfies the poster interfaces of both the pipeline and the reconciler.
type CaseLogPoster struct {
	bot *Discord
}

func NewCaseLogPoster(bot *Discord) *CaseLogPoster {
	return &CaseLogPoster{bot: bot}
}

func (p *CaseLogPoster) Post(ctx context.Context, channelID string, kase cases.Case) (string, error) {
	message, errSend := p.bot.session.ChannelMessageSendEmbed(channelID, CaseEmbed(kase),
		discordgo.WithContext(ctx))
	if errSend != nil {
		return "", mapErr(errSend)
	}

	return message.ID, nil
}

func (p *CaseLogPoster) Edit(ctx context.Context, channelID string, messageID string, kase cases.Case) error {
	_, errEdit := p.bot.session.ChannelMessageEditEmbed(channelID, messageID, CaseEmbed(kase),
		discordgo.WithContext(ctx))

	return mapErr(errEdit)
}

var _ cases.LogPoster = (*CaseLogPoster)(nil)
