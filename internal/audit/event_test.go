package audit_test

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"
	"github.com/wardenbot/warden/internal/action"
	"github.com/wardenbot/warden/internal/audit"
)

func entry(actionType discordgo.AuditLogAction, changes ...*discordgo.AuditLogChange) *discordgo.GuildAuditLogEntryCreate {
	return &discordgo.GuildAuditLogEntryCreate{
		AuditLogEntry: &discordgo.AuditLogEntry{
			TargetID:   "target",
			UserID:     "executor",
			ID:         "0",
			ActionType: &actionType,
			Changes:    changes,
			Reason:     "because",
		},
		GuildID: "guild",
	}
}

func timeoutChange(value any) *discordgo.AuditLogChange {
	key := discordgo.AuditLogChangeKeyCommunicationDisabledUntil

	return &discordgo.AuditLogChange{Key: &key, NewValue: value}
}

func TestFromEntryBanAdd(t *testing.T) {
	t.Parallel()

	evt, relevant := audit.FromEntry(entry(discordgo.AuditLogActionMemberBanAdd))
	require.True(t, relevant)
	require.Equal(t, audit.BanAdd, evt.Kind)
	require.Equal(t, "guild", evt.GuildID)
	require.Equal(t, "target", evt.TargetID)
	require.Equal(t, "executor", evt.ExecutorID)
	require.Equal(t, "because", evt.Reason)
}

func TestFromEntryIgnoresUnrelated(t *testing.T) {
	t.Parallel()

	_, relevant := audit.FromEntry(entry(discordgo.AuditLogActionChannelCreate))
	require.False(t, relevant)

	_, relevant = audit.FromEntry(nil)
	require.False(t, relevant)
}

func TestFromEntryTimeoutSet(t *testing.T) {
	t.Parallel()

	until := time.Now().Add(time.Hour).UTC()

	evt, relevant := audit.FromEntry(entry(discordgo.AuditLogActionMemberUpdate,
		timeoutChange(until.Format(time.RFC3339))))
	require.True(t, relevant)
	require.Equal(t, audit.TimeoutSet, evt.Kind)
	require.NotNil(t, evt.TimeoutUntil)
	require.WithinDuration(t, until, *evt.TimeoutUntil, time.Second)
}

func TestFromEntryTimeoutCleared(t *testing.T) {
	t.Parallel()

	evt, relevant := audit.FromEntry(entry(discordgo.AuditLogActionMemberUpdate, timeoutChange(nil)))
	require.True(t, relevant)
	require.Equal(t, audit.TimeoutRemoved, evt.Kind)
	require.Nil(t, evt.TimeoutUntil)
}

func TestFromEntryMemberUpdateWithoutTimeout(t *testing.T) {
	t.Parallel()

	key := discordgo.AuditLogChangeKey("nick")
	change := &discordgo.AuditLogChange{Key: &key, NewValue: "new nick"}

	_, relevant := audit.FromEntry(entry(discordgo.AuditLogActionMemberUpdate, change))
	require.False(t, relevant)
}

func TestCompatibleKinds(t *testing.T) {
	t.Parallel()

	require.ElementsMatch(t, []action.Kind{action.Ban, action.TempBan}, audit.BanAdd.CompatibleKinds())
	require.ElementsMatch(t, []action.Kind{action.Timeout, action.TimeoutAdjust}, audit.TimeoutSet.CompatibleKinds())
	require.Equal(t, []action.Kind{action.Kick}, audit.MemberKick.CompatibleKinds())
	require.Equal(t, []action.Kind{action.Unban}, audit.BanRemove.CompatibleKinds())
	require.Equal(t, []action.Kind{action.TimeoutRemove}, audit.TimeoutRemoved.CompatibleKinds())
}
