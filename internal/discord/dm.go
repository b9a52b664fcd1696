package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// SentMessage identifies a delivered direct message so a rollback can remove
// it again.
type SentMessage struct {
	ChannelID string
	MessageID string
}

// SendDM delivers an embed to the user's private channel. Failures are
// categorized: errs.ErrUnreachable when DMs are closed, errs.ErrUnknownTarget
// when the user no longer exists.
func (d *Discord) SendDM(ctx context.Context, userID string, embed *discordgo.MessageEmbed) (SentMessage, error) {
	channel, errChannel := d.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if errChannel != nil {
		return SentMessage{}, mapErr(errChannel)
	}

	message, errSend := d.session.ChannelMessageSendEmbed(channel.ID, embed, discordgo.WithContext(ctx))
	if errSend != nil {
		return SentMessage{}, mapErr(errSend)
	}

	return SentMessage{ChannelID: channel.ID, MessageID: message.ID}, nil
}

// DeleteDM removes a previously sent notification, used when rolling back a
// failed platform action.
func (d *Discord) DeleteDM(ctx context.Context, sent SentMessage) error {
	return mapErr(d.session.ChannelMessageDelete(sent.ChannelID, sent.MessageID,
		discordgo.WithContext(ctx)))
}
