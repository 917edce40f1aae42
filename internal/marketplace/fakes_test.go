package marketplace

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memRepo struct {
	mu   sync.Mutex
	rows map[string]Request
	err  error
}

func newMemRepo() *memRepo {
	return &memRepo{rows: map[string]Request{}}
}

func (m *memRepo) Create(_ context.Context, r NewRequest) (*Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, &PersistenceError{Op: "create request", Err: m.err}
	}
	now := time.Now().UTC()
	row := Request{
		ID:                uuid.New().String(),
		Company:           r.Company,
		ContactName:       r.ContactName,
		Email:             r.Email,
		Phone:             r.Phone,
		City:              r.City,
		When:              r.When,
		Message:           r.Message,
		Urgent:            r.Urgent,
		Headcount:         r.Headcount,
		Hours:             r.Hours,
		HourlyRate:        r.HourlyRate,
		FeeAmount:         r.FeeAmount,
		DepositAmount:     r.DepositAmount,
		PlatformFeeRate:   r.PlatformFeeRate,
		PlatformFeeAmount: r.PlatformFeeAmount,
		ClaimStatus:       StatusOpen,
		Source:            r.Source,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	m.rows[row.ID] = row
	return &row, nil
}

func (m *memRepo) Get(_ context.Context, id string) (*Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &row, nil
}

func (m *memRepo) UpdateClaim(_ context.Context, id string, p ClaimPatch) (*Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, &PersistenceError{Op: "update claim", Err: m.err}
	}
	row, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	if p.Status != "" {
		row.ClaimStatus = p.Status
	}
	if p.ClaimedBy != nil {
		row.ClaimedBy = *p.ClaimedBy
	}
	if p.ClaimedByName != nil {
		row.ClaimedByName = *p.ClaimedByName
	}
	if p.ClaimedAt != nil {
		at := *p.ClaimedAt
		row.ClaimedAt = &at
	}
	row.UpdatedAt = time.Now().UTC()
	m.rows[id] = row
	return &row, nil
}

type call struct {
	op     string
	req    Request
	target RenderTarget
}

// recordingNotifier records calls synchronously.
type recordingNotifier struct {
	mu    sync.Mutex
	calls []call
}

func (n *recordingNotifier) Notify(_ context.Context, r Request) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, call{op: "notify", req: r})
}

func (n *recordingNotifier) Redraw(_ context.Context, r Request, t RenderTarget) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, call{op: "redraw", req: r, target: t})
}

func (n *recordingNotifier) snapshot() []call {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]call(nil), n.calls...)
}

type staticResolver map[string]string

func (s staticResolver) DisplayName(_ context.Context, id string) (string, error) {
	name, ok := s[id]
	if !ok {
		return "", errors.New("user_not_found")
	}
	return name, nil
}

type broadcastLog struct {
	mu   sync.Mutex
	reqs []Request
}

func (b *broadcastLog) BroadcastClaim(r Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reqs = append(b.reqs, r)
}

func validPayload() map[string]any {
	return map[string]any{
		"company":        "Bouwbedrijf De Vries",
		"contact":        "Jan de Vries",
		"email":          "jan@devries.nl",
		"city":           "Utrecht",
		"people":         2.0,
		"hours_estimate": 4.0,
	}
}
