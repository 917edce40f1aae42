package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/brandwacht/internal/marketplace"
)

// testRepository runs the gateway behaviour every Store must share.
func testRepository(t *testing.T, open func(t *testing.T) Store) {
	t.Run("create and get", func(t *testing.T) { testCreateAndGet(t, open(t)) })
	t.Run("get unknown", func(t *testing.T) { testGetUnknown(t, open(t)) })
	t.Run("update claim", func(t *testing.T) { testUpdateClaim(t, open(t)) })
	t.Run("update claim errors", func(t *testing.T) { testUpdateClaimErrors(t, open(t)) })
	t.Run("concurrent claims last write wins", func(t *testing.T) { testConcurrentClaimsLastWriteWins(t, open(t)) })
}

func sampleRequest() marketplace.NewRequest {
	return marketplace.NewRequest{
		Intake: marketplace.Intake{
			Company:     "Bouwbedrijf De Vries",
			ContactName: "Jan de Vries",
			Email:       "jan@devries.nl",
			City:        "Utrecht",
			Headcount:   2,
			Hours:       4,
			Urgent:      true,
			Source:      marketplace.DefaultSource,
		},
		HourlyRate:        50,
		FeeAmount:         40000,
		DepositAmount:     20000,
		PlatformFeeRate:   15,
		PlatformFeeAmount: 6000,
	}
}

func strPtr(s string) *string { return &s }

func testCreateAndGet(t *testing.T, s Store) {
	ctx := context.Background()

	created, err := s.Create(ctx, sampleRequest())
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, marketplace.StatusOpen, created.ClaimStatus)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)

	want := marketplace.Request{
		ID:                created.ID,
		Company:           "Bouwbedrijf De Vries",
		ContactName:       "Jan de Vries",
		Email:             "jan@devries.nl",
		City:              "Utrecht",
		Urgent:            true,
		Headcount:         2,
		Hours:             4,
		HourlyRate:        50,
		FeeAmount:         40000,
		DepositAmount:     20000,
		PlatformFeeRate:   15,
		PlatformFeeAmount: 6000,
		ClaimStatus:       marketplace.StatusOpen,
		Source:            marketplace.DefaultSource,
	}
	if diff := cmp.Diff(want, *got, cmpopts.IgnoreFields(marketplace.Request{}, "CreatedAt", "UpdatedAt")); diff != "" {
		t.Errorf("stored request mismatch (-want +got):\n%s", diff)
	}
}

func testGetUnknown(t *testing.T, s Store) {

	_, err := s.Get(context.Background(), "3b241101-e2bb-4255-8caf-4136c566a962")
	assert.ErrorIs(t, err, marketplace.ErrNotFound)

	_, err = s.Get(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, marketplace.ErrNotFound)
}

func testUpdateClaim(t *testing.T, s Store) {
	ctx := context.Background()
	created, err := s.Create(ctx, sampleRequest())
	require.NoError(t, err)

	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	claimed, err := s.UpdateClaim(ctx, created.ID, marketplace.ClaimPatch{
		Status:        marketplace.StatusClaimed,
		ClaimedBy:     strPtr("U01"),
		ClaimedByName: strPtr("Agent A"),
		ClaimedAt:     &at,
	})
	require.NoError(t, err)
	assert.Equal(t, marketplace.StatusClaimed, claimed.ClaimStatus)
	assert.Equal(t, "U01", claimed.ClaimedBy)
	assert.Equal(t, "Agent A", claimed.ClaimedByName)
	require.NotNil(t, claimed.ClaimedAt)
	assert.True(t, at.Equal(*claimed.ClaimedAt))

	// Nil fields keep the stored claimant.
	progressed, err := s.UpdateClaim(ctx, created.ID, marketplace.ClaimPatch{Status: marketplace.StatusInProgress})
	require.NoError(t, err)
	assert.Equal(t, marketplace.StatusInProgress, progressed.ClaimStatus)
	assert.Equal(t, "U01", progressed.ClaimedBy)
	assert.Equal(t, "Agent A", progressed.ClaimedByName)

	// Quote fields are untouched by claim updates.
	assert.Equal(t, created.FeeAmount, progressed.FeeAmount)
	assert.Equal(t, created.PlatformFeeAmount, progressed.PlatformFeeAmount)
}

func testUpdateClaimErrors(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.UpdateClaim(ctx, "3b241101-e2bb-4255-8caf-4136c566a962", marketplace.ClaimPatch{Status: marketplace.StatusClaimed})
	assert.ErrorIs(t, err, marketplace.ErrNotFound)

	created, err := s.Create(ctx, sampleRequest())
	require.NoError(t, err)
	_, err = s.UpdateClaim(ctx, created.ID, marketplace.ClaimPatch{Status: "cancelled"})
	var pe *marketplace.PersistenceError
	assert.True(t, errors.As(err, &pe), "invalid status is a persistence error, got %v", err)
}

func testConcurrentClaimsLastWriteWins(t *testing.T, s Store) {
	ctx := context.Background()
	created, err := s.Create(ctx, sampleRequest())
	require.NoError(t, err)

	actors := []string{"U01", "U02", "U03", "U04"}
	var wg sync.WaitGroup
	errs := make(chan error, len(actors))
	for _, a := range actors {
		wg.Add(1)
		go func(actor string) {
			defer wg.Done()
			_, err := s.UpdateClaim(ctx, created.ID, marketplace.ClaimPatch{
				Status:        marketplace.StatusClaimed,
				ClaimedBy:     strPtr(actor),
				ClaimedByName: strPtr(actor),
			})
			errs <- err
		}(a)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, marketplace.StatusClaimed, got.ClaimStatus)
	assert.Contains(t, actors, got.ClaimedBy)
	assert.Equal(t, got.ClaimedBy, got.ClaimedByName, "claimant fields come from the same write")
}
