package settings_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wardenbot/warden/internal/action"
	"github.com/wardenbot/warden/internal/settings"
)

func TestDefaultToggles(t *testing.T) {
	t.Parallel()

	guild := settings.Default("guild")
	require.True(t, guild.NotifyOnBan)
	require.True(t, guild.NotifyOnTimeout)
	require.False(t, guild.LogChannelEnabled)
}

func TestMessageFor(t *testing.T) {
	t.Parallel()

	guild := settings.Default("guild")
	guild.BanMessage = "banned"
	guild.TimeoutMessage = "muted"
	guild.WarnMessage = "warned"

	require.Equal(t, "banned", guild.MessageFor(action.Ban))
	require.Equal(t, "banned", guild.MessageFor(action.TempBan))
	require.Equal(t, "muted", guild.MessageFor(action.Timeout))
	require.Equal(t, "muted", guild.MessageFor(action.TimeoutAdjust))
	require.Equal(t, "warned", guild.MessageFor(action.Warn))
	require.Empty(t, guild.MessageFor(action.Kick))
}

func TestNotifyDefault(t *testing.T) {
	t.Parallel()

	guild := settings.Default("guild")
	guild.NotifyOnBan = false

	require.False(t, guild.NotifyDefault(action.Ban))
	require.True(t, guild.NotifyDefault(action.Timeout))
	require.False(t, guild.NotifyDefault(action.Kick))
}
