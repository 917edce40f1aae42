package marketplace

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Chat button action ids.
const (
	ActionClaim    = "claim_request"
	ActionProgress = "set_status_progress"
)

var (
	ErrUnknownAction = errors.New("unknown claim action")
	ErrActorRequired = errors.New("actor id is required")
)

// ClaimService moves requests through open -> claimed -> in_progress.
// Concurrent transitions are not serialized: the last UpdateClaim wins.
type ClaimService struct {
	repo     Repository
	notifier Notifier
	resolver ActorResolver
	hub      Broadcaster
	metrics  Recorder
	logger   *zap.Logger
	now      func() time.Time
}

// ClaimOption customizes a ClaimService.
type ClaimOption func(*ClaimService)

// WithBroadcaster pushes every transition to live dashboard views.
func WithBroadcaster(b Broadcaster) ClaimOption {
	return func(s *ClaimService) { s.hub = b }
}

// WithRecorder counts transitions.
func WithRecorder(r Recorder) ClaimOption {
	return func(s *ClaimService) { s.metrics = r }
}

// WithClock overrides time.Now for claimed_at.
func WithClock(now func() time.Time) ClaimOption {
	return func(s *ClaimService) { s.now = now }
}

// NewClaimService wires the claim state machine. resolver may be nil, in
// which case the actor-provided name is used.
func NewClaimService(repo Repository, notifier Notifier, resolver ActorResolver, logger *zap.Logger, opts ...ClaimOption) *ClaimService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ClaimService{
		repo:     repo,
		notifier: notifier,
		resolver: resolver,
		hub:      nopBroadcaster{},
		metrics:  nopRecorder{},
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply dispatches a chat button action.
func (s *ClaimService) Apply(ctx context.Context, action, id string, actor Actor, target *RenderTarget) (*Request, error) {
	switch action {
	case ActionClaim:
		return s.Claim(ctx, id, actor, target)
	case ActionProgress:
		return s.MarkInProgress(ctx, id, actor, target)
	}
	return nil, ErrUnknownAction
}

// Claim records actor as the handler of the request. Claiming an already
// claimed request replaces the claimant.
func (s *ClaimService) Claim(ctx context.Context, id string, actor Actor, target *RenderTarget) (*Request, error) {
	if actor.ID == "" {
		return nil, ErrActorRequired
	}
	if _, err := s.repo.Get(ctx, id); err != nil {
		s.metrics.ClaimTransition(ActionClaim, err)
		return nil, err
	}

	patch := ClaimPatch{Status: StatusClaimed}
	s.assign(ctx, &patch, actor)
	return s.apply(ctx, ActionClaim, id, patch, target)
}

// MarkInProgress sets the request in progress. When nobody has claimed it
// yet, actor becomes the claimant.
func (s *ClaimService) MarkInProgress(ctx context.Context, id string, actor Actor, target *RenderTarget) (*Request, error) {
	if actor.ID == "" {
		return nil, ErrActorRequired
	}
	cur, err := s.repo.Get(ctx, id)
	if err != nil {
		s.metrics.ClaimTransition(ActionProgress, err)
		return nil, err
	}

	patch := ClaimPatch{Status: StatusInProgress}
	if cur.ClaimedBy == "" {
		s.assign(ctx, &patch, actor)
	}
	return s.apply(ctx, ActionProgress, id, patch, target)
}

func (s *ClaimService) assign(ctx context.Context, patch *ClaimPatch, actor Actor) {
	id := actor.ID
	name := s.displayName(ctx, actor)
	at := s.now().UTC()
	patch.ClaimedBy = &id
	patch.ClaimedByName = &name
	patch.ClaimedAt = &at
}

// displayName prefers the chat directory, then the callback's name, then the raw id.
func (s *ClaimService) displayName(ctx context.Context, actor Actor) string {
	if s.resolver != nil {
		name, err := s.resolver.DisplayName(ctx, actor.ID)
		if err != nil {
			s.logger.Warn("actor lookup failed", zap.String("actor_id", actor.ID), zap.Error(err))
		} else if name = strings.TrimSpace(name); name != "" {
			return name
		}
	}
	if name := strings.TrimSpace(actor.Name); name != "" {
		return name
	}
	return actor.ID
}

func (s *ClaimService) apply(ctx context.Context, action, id string, patch ClaimPatch, target *RenderTarget) (*Request, error) {
	updated, err := s.repo.UpdateClaim(ctx, id, patch)
	s.metrics.ClaimTransition(action, err)
	if err != nil {
		s.logger.Error("claim update failed", zap.String("action", action), zap.String("request_id", id), zap.Error(err))
		return nil, err
	}

	if target.Valid() {
		s.notifier.Redraw(ctx, *updated, *target)
	}
	s.hub.BroadcastClaim(*updated)

	s.logger.Info("claim updated",
		zap.String("action", action),
		zap.String("request_id", updated.ID),
		zap.String("claim_status", string(updated.ClaimStatus)),
		zap.String("claimed_by", updated.ClaimedBy),
	)
	return updated, nil
}
