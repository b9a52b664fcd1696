package cases_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wardenbot/warden/internal/action"
	"github.com/wardenbot/warden/internal/cases"
	"github.com/wardenbot/warden/internal/settings"
	"github.com/wardenbot/warden/internal/tests"
)

func newCaseService(t *testing.T, guild settings.Guild) (*cases.Service, *tests.MemoryStore, *tests.Poster) {
	t.Helper()

	store := tests.NewMemoryStore()
	poster := tests.NewPoster()

	return cases.NewService(store, poster, tests.NewSettings(guild)), store, poster
}

func seedCase(t *testing.T, store *tests.MemoryStore, kase cases.Case) cases.Case {
	t.Helper()

	created, errCreate := store.Create(context.Background(), kase, nil)
	require.NoError(t, errCreate)

	return created
}

func TestSetReasonEditsExistingLogMessage(t *testing.T) {
	t.Parallel()

	guild := settings.Default("guild")
	guild.LogChannelID = "log-channel"
	guild.LogChannelEnabled = true

	service, store, poster := newCaseService(t, guild)

	seeded := seedCase(t, store, cases.New("guild", action.Warn, "target", "tag", action.Opts{
		ExecutorID: "mod",
		Reason:     "old reason",
	}).WithLogMessageID("existing"))

	updated, errSet := service.SetReason(context.Background(), "guild", seeded.CaseID, "new reason")
	require.NoError(t, errSet)
	require.Equal(t, "new reason", updated.Reason)

	stored, _ := store.Case("guild", seeded.CaseID)
	require.Equal(t, "new reason", stored.Reason)

	// The existing message is edited in place, no fresh post.
	require.Len(t, poster.Edited, 1)
	require.Zero(t, poster.PostCount())
}

func TestSetReasonRepairsMissingLogMessage(t *testing.T) {
	t.Parallel()

	guild := settings.Default("guild")
	guild.LogChannelID = "log-channel"
	guild.LogChannelEnabled = true

	service, store, poster := newCaseService(t, guild)

	seeded := seedCase(t, store, cases.New("guild", action.Warn, "target", "tag", action.Opts{
		ExecutorID: "mod",
		Reason:     "old reason",
	}))

	_, errSet := service.SetReason(context.Background(), "guild", seeded.CaseID, "new reason")
	require.NoError(t, errSet)

	// A case that never got its log message posted gets one now.
	require.Equal(t, 1, poster.PostCount())

	stored, _ := store.Case("guild", seeded.CaseID)
	require.NotEmpty(t, stored.LogMessageID)
}

func TestSetReasonUnknownCase(t *testing.T) {
	t.Parallel()

	service, _, _ := newCaseService(t, settings.Default("guild"))

	_, errSet := service.SetReason(context.Background(), "guild", 42, "reason")
	require.ErrorIs(t, errSet, cases.ErrCaseNotFound)
}

func TestSetReasonRangeSkipsLogRender(t *testing.T) {
	t.Parallel()

	guild := settings.Default("guild")
	guild.LogChannelID = "log-channel"
	guild.LogChannelEnabled = true

	service, store, poster := newCaseService(t, guild)

	var first cases.Case

	for idx := range 3 {
		kase := seedCase(t, store, cases.New("guild", action.Kick, "target", "tag", action.Opts{
			ExecutorID: "mod",
		}))
		if idx == 0 {
			first = kase
		}
	}

	errRange := service.SetReasonRange(context.Background(), "guild", first.CaseID, first.CaseID+2, "mass raid")
	require.NoError(t, errRange)

	for caseID := first.CaseID; caseID < first.CaseID+3; caseID++ {
		stored, found := store.Case("guild", caseID)
		require.True(t, found)
		require.Equal(t, "mass raid", stored.Reason)
	}

	require.Zero(t, poster.PostCount())
	require.Empty(t, poster.Edited)
}

func TestByUserReturnsSettledOnly(t *testing.T) {
	t.Parallel()

	service, store, _ := newCaseService(t, settings.Default("guild"))

	seedCase(t, store, cases.New("guild", action.Ban, "target", "tag", action.Opts{ExecutorID: "mod"}))
	settled := seedCase(t, store, cases.New("guild", action.Warn, "target", "tag", action.Opts{ExecutorID: "mod"}))

	found, errFind := service.ByUser(context.Background(), "guild", "target")
	require.NoError(t, errFind)
	require.Len(t, found, 1)
	require.Equal(t, settled.CaseID, found[0].CaseID)
}
