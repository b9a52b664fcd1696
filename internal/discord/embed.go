package discord

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	embed "github.com/leighmacdonald/discordgo-embed"
	"github.com/wardenbot/warden/internal/action"
	"github.com/wardenbot/warden/internal/cases"
)

const (
	colorSevere  = 0xcc3434
	colorWarning = 0xe67e22
	colorInfo    = 0x3498db
	colorRestore = 0x2ecc71

	providerName = "warden"
)

func kindColor(kind action.Kind) int {
	switch kind {
	case action.Ban, action.TempBan, action.Kick:
		return colorSevere
	case action.Timeout, action.TimeoutAdjust, action.Warn:
		return colorWarning
	case action.Unban, action.TimeoutRemove:
		return colorRestore
	default:
		return colorInfo
	}
}

func durationText(dur time.Duration) string {
	now := time.Now()

	return strings.TrimSpace(humanize.RelTime(now, now.Add(dur), "", ""))
}

// CaseEmbed renders the public mod log entry for a case.
func CaseEmbed(kase cases.Case) *discordgo.MessageEmbed {
	caseEmbed := embed.NewEmbed().
		SetTitle(fmt.Sprintf("Case #%d | %s", kase.CaseID, strings.ToTitle(kase.Kind.String()[:1])+kase.Kind.String()[1:])).
		SetColor(kindColor(kase.Kind)).
		SetFooter(providerName)

	target := kase.TargetID
	if kase.TargetTag != "" {
		target = fmt.Sprintf("%s (%s)", kase.TargetTag, kase.TargetID)
	}

	caseEmbed = caseEmbed.AddField("Target", target).MakeFieldInline()

	if kase.ExecutorID != "" {
		caseEmbed = caseEmbed.AddField("Moderator", fmt.Sprintf("<@%s>", kase.ExecutorID)).MakeFieldInline()
	}

	if kase.Reason != "" {
		caseEmbed = caseEmbed.AddField("Reason", kase.Reason)
	}

	if kase.TimeoutDuration > 0 {
		caseEmbed = caseEmbed.AddField("Duration", durationText(kase.TimeoutDuration)).MakeFieldInline()
	}

	caseEmbed.Timestamp = kase.ActionTime.Format(time.RFC3339)

	return caseEmbed.MessageEmbed
}

// DMEmbed renders the notification delivered to the target of an action. A
// custom per action message configured by the guild takes the description
// slot; the reason, when present, gets its own field.
func DMEmbed(kind action.Kind, guildName string, reason string, customMessage string, dur time.Duration) *discordgo.MessageEmbed {
	dmEmbed := embed.NewEmbed().
		SetTitle(dmTitle(kind, guildName)).
		SetColor(kindColor(kind)).
		SetFooter(providerName)

	if customMessage != "" {
		dmEmbed = dmEmbed.SetDescription(customMessage)
	}

	if reason != "" {
		dmEmbed = dmEmbed.AddField("Reason", reason)
	}

	if dur > 0 {
		dmEmbed = dmEmbed.AddField("Duration", durationText(dur)).MakeFieldInline()
	}

	dmEmbed.Timestamp = time.Now().Format(time.RFC3339)

	return dmEmbed.MessageEmbed
}

func dmTitle(kind action.Kind, guildName string) string {
	switch kind {
	case action.Ban:
		return fmt.Sprintf("You have been banned from %s", guildName)
	case action.TempBan:
		return fmt.Sprintf("You have been temporarily banned from %s", guildName)
	case action.Kick:
		return fmt.Sprintf("You have been kicked from %s", guildName)
	case action.Timeout:
		return fmt.Sprintf("You have been timed out in %s", guildName)
	case action.TimeoutAdjust:
		return fmt.Sprintf("Your timeout in %s has been updated", guildName)
	case action.TimeoutRemove:
		return fmt.Sprintf("Your timeout in %s has been removed", guildName)
	case action.Warn:
		return fmt.Sprintf("You have received a warning in %s", guildName)
	default:
		return fmt.Sprintf("Moderation notice from %s", guildName)
	}
}
