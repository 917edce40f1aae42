package marketplace

import (
	"context"
)

// Repository is the persistence gateway for requests. Implementations return
// ErrNotFound for unknown ids and *PersistenceError for everything else.
type Repository interface {
	Create(ctx context.Context, r NewRequest) (*Request, error)
	Get(ctx context.Context, id string) (*Request, error)
	UpdateClaim(ctx context.Context, id string, patch ClaimPatch) (*Request, error)
}

// Notifier pushes request summaries to the agents' chat. Both calls are best
// effort and return before delivery completes.
type Notifier interface {
	Notify(ctx context.Context, r Request)
	Redraw(ctx context.Context, r Request, target RenderTarget)
}

// ActorResolver looks up a chat user's display name.
type ActorResolver interface {
	DisplayName(ctx context.Context, actorID string) (string, error)
}

// Broadcaster fans claim updates out to open dashboard views.
type Broadcaster interface {
	BroadcastClaim(r Request)
}

// Recorder counts pipeline outcomes. A nil Recorder is allowed.
type Recorder interface {
	IntakeAccepted(source string)
	IntakeRejected(reason string)
	ClaimTransition(action string, err error)
}

type nopRecorder struct{}

func (nopRecorder) IntakeAccepted(string)         {}
func (nopRecorder) IntakeRejected(string)         {}
func (nopRecorder) ClaimTransition(string, error) {}

type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastClaim(Request) {}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Request)               {}
func (NopNotifier) Redraw(context.Context, Request, RenderTarget) {}
