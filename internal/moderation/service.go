package moderation

import (
	"context"
	"errors"
	"time"

	"github.com/wardenbot/warden/internal/action"
	"github.com/wardenbot/warden/internal/cases"
	"github.com/wardenbot/warden/internal/errs"
)

var ErrNoTargets = errors.New("at least one target required")

// HierarchyChecker validates that the executor outranks the target.
type HierarchyChecker interface {
	CanActOn(ctx context.Context, guildID string, executorID string, targetID string) (bool, error)
}

// TargetResult is the per target outcome of a bulk request. A failure for one
// target never aborts the remaining targets.
type TargetResult struct {
	TargetID string
	Case     cases.Case
	Err      error
}

type Service struct {
	pipeline  *Pipeline
	members   MemberProvider
	hierarchy HierarchyChecker
}

func NewService(pipeline *Pipeline, members MemberProvider, hierarchy HierarchyChecker) *Service {
	return &Service{pipeline: pipeline, members: members, hierarchy: hierarchy}
}

// Act validates the request once, then runs the pipeline for each target
// strictly sequentially. Sequential execution keeps case id allocation in
// order and prevents one audit event from matching two freshly created cases.
func (s *Service) Act(ctx context.Context, guildID string, req action.Request, targetIDs []string) ([]TargetResult, error) {
	if len(targetIDs) == 0 {
		return nil, ErrNoTargets
	}

	if errValidate := req.Validate(); errValidate != nil {
		return nil, errValidate
	}

	results := make([]TargetResult, 0, len(targetIDs))

	for _, targetID := range targetIDs {
		result := TargetResult{TargetID: targetID}

		targetReq, errPrepare := s.prepare(ctx, guildID, req, targetID)
		if errPrepare != nil {
			result.Err = errPrepare
			results = append(results, result)

			continue
		}

		result.Case, result.Err = s.pipeline.Execute(ctx, guildID, targetReq, targetID)
		results = append(results, result)
	}

	return results, nil
}

// prepare runs the per target checks: executor/target hierarchy and the
// rewrite of a timeout into a timeout adjustment when one is already active.
func (s *Service) prepare(ctx context.Context, guildID string, req action.Request, targetID string) (action.Request, error) {
	allowed, errAllowed := s.hierarchy.CanActOn(ctx, guildID, req.Common().ExecutorID, targetID)
	if errAllowed != nil {
		return nil, errAllowed
	}

	if !allowed {
		return nil, errs.ErrPermissionDenied
	}

	timeout, isTimeout := req.(action.TimeoutRequest)
	if !isTimeout {
		return req, nil
	}

	member, errMember := s.members.Member(ctx, guildID, targetID)
	if errMember != nil || member == nil {
		return req, nil
	}

	if member.CommunicationDisabledUntil != nil && member.CommunicationDisabledUntil.After(time.Now()) {
		timeout.Adjust = true

		return timeout, nil
	}

	return req, nil
}
