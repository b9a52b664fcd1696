package moderation_test

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sosodev/duration"
	"github.com/stretchr/testify/require"
	"github.com/wardenbot/warden/internal/action"
	"github.com/wardenbot/warden/internal/errs"
	"github.com/wardenbot/warden/internal/moderation"
	"github.com/wardenbot/warden/internal/tests"
)

func newService(fix *fixture) *moderation.Service {
	return moderation.NewService(fix.pipeline, fix.members, tests.NewHierarchy())
}

func TestActRequiresTargets(t *testing.T) {
	t.Parallel()

	fix := newFixture(logEnabled())

	_, errAct := newService(fix).Act(context.Background(), "guild",
		action.BanRequest{Opts: action.Opts{ExecutorID: "mod", Reason: "spam"}}, nil)
	require.ErrorIs(t, errAct, moderation.ErrNoTargets)
}

func TestActSequentialCaseIDs(t *testing.T) {
	t.Parallel()

	fix := newFixture(logEnabled())
	for _, userID := range []string{"a", "b", "c"} {
		fix.members.Add(userID, nil)
	}

	results, errAct := newService(fix).Act(context.Background(), "guild",
		action.BanRequest{Opts: action.Opts{ExecutorID: "mod", Reason: "raid"}},
		[]string{"a", "b", "c"})
	require.NoError(t, errAct)
	require.Len(t, results, 3)

	for idx, result := range results {
		require.NoError(t, result.Err)
		require.Equal(t, int64(idx+1), result.Case.CaseID)
	}
}

func TestActContinuesPastFailure(t *testing.T) {
	t.Parallel()

	fix := newFixture(logEnabled())
	fix.members.Add("a", nil)
	fix.members.Add("b", nil)

	hierarchy := tests.NewHierarchy()
	hierarchy.Denied["a"] = true

	service := moderation.NewService(fix.pipeline, fix.members, hierarchy)

	results, errAct := service.Act(context.Background(), "guild",
		action.KickRequest{Opts: action.Opts{ExecutorID: "mod", Reason: "raid"}},
		[]string{"a", "b"})
	require.NoError(t, errAct)
	require.Len(t, results, 2)

	require.ErrorIs(t, results[0].Err, errs.ErrPermissionDenied)
	require.NoError(t, results[1].Err)
	require.Equal(t, int64(1), results[1].Case.CaseID)
}

func TestActRewritesActiveTimeout(t *testing.T) {
	t.Parallel()

	fix := newFixture(logEnabled())

	until := time.Now().Add(30 * time.Minute)
	fix.members.Add("target", &discordgo.Member{
		User:                       &discordgo.User{ID: "target", Username: "muted"},
		CommunicationDisabledUntil: &until,
	})

	results, errAct := newService(fix).Act(context.Background(), "guild",
		action.TimeoutRequest{
			Opts:     action.Opts{ExecutorID: "mod", Reason: "again"},
			Duration: duration.FromTimeDuration(time.Hour),
		}, []string{"target"})
	require.NoError(t, errAct)
	require.NoError(t, results[0].Err)
	require.Equal(t, action.TimeoutAdjust, results[0].Case.Kind)
}

func TestActInvalidRequestFailsWholeBatch(t *testing.T) {
	t.Parallel()

	fix := newFixture(logEnabled())
	fix.members.Add("a", nil)

	_, errAct := newService(fix).Act(context.Background(), "guild",
		action.BanRequest{
			Opts:              action.Opts{ExecutorID: "mod", Reason: "spam"},
			DeleteMessageDays: 30,
		}, []string{"a"})
	require.ErrorIs(t, errAct, action.ErrDeleteMessageWindow)
	require.Zero(t, fix.store.CaseCount())
}
