package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alexanderramin/dealroom/internal/domain"
	"github.com/alexanderramin/dealroom/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRepo_CreateAndGetByID(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteSessionRepo(db)
	ctx := context.Background()

	proj := testutil.NewTestProject("owner-1", "Solar farm")
	testutil.SeedProject(t, db, proj)
	s := testutil.NewTestSession(proj, "inv-1", testutil.WithAdminFee(4000))
	require.NoError(t, repo.Create(ctx, s))

	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ProjectID, got.ProjectID)
	assert.Equal(t, "owner-1", got.OwnerID)
	assert.Equal(t, domain.SessionActive, got.Status)
	assert.Equal(t, int64(4000), got.AdminFee)
	assert.True(t, s.ExpiresAt.Equal(got.ExpiresAt))
	assert.Nil(t, got.ClosedAt)
	assert.False(t, got.NDASigned)
}

func TestSessionRepo_GetByID_NotFound(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteSessionRepo(db)

	_, err := repo.GetByID(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionRepo_Create_DuplicateActive(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteSessionRepo(db)
	ctx := context.Background()

	proj := testutil.NewTestProject("owner-1", "Solar farm")
	testutil.SeedProject(t, db, proj)
	require.NoError(t, repo.Create(ctx, testutil.NewTestSession(proj, "inv-1")))

	err := repo.Create(ctx, testutil.NewTestSession(proj, "inv-1"))
	assert.ErrorIs(t, err, domain.ErrDuplicateActiveNegotiation)

	// A different investor is unaffected.
	require.NoError(t, repo.Create(ctx, testutil.NewTestSession(proj, "inv-2")))
}

func TestSessionRepo_Create_AfterTerminalAllowsNewActive(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteSessionRepo(db)
	ctx := context.Background()

	proj := testutil.NewTestProject("owner-1", "Solar farm")
	testutil.SeedProject(t, db, proj)
	first := testutil.NewTestSession(proj, "inv-1")
	require.NoError(t, repo.Create(ctx, first))

	changed, err := repo.Transition(ctx, first.ID, domain.SessionRejected, time.Now())
	require.NoError(t, err)
	require.True(t, changed)

	require.NoError(t, repo.Create(ctx, testutil.NewTestSession(proj, "inv-1")))
}

func TestSessionRepo_Transition_OnlyFromActive(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteSessionRepo(db)
	ctx := context.Background()

	proj := testutil.NewTestProject("owner-1", "Solar farm")
	testutil.SeedProject(t, db, proj)
	s := testutil.NewTestSession(proj, "inv-1")
	require.NoError(t, repo.Create(ctx, s))

	at := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	changed, err := repo.Transition(ctx, s.ID, domain.SessionAccepted, at)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.Transition(ctx, s.ID, domain.SessionExpired, at)
	require.NoError(t, err)
	assert.False(t, changed, "terminal session must not transition again")

	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionAccepted, got.Status)
	require.NotNil(t, got.ClosedAt)
	assert.True(t, at.Equal(*got.ClosedAt))

	_, err = repo.Transition(ctx, s.ID, domain.SessionActive, at)
	assert.Error(t, err)
}

func TestSessionRepo_Transition_ConcurrentSingleWinner(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteSessionRepo(db)
	ctx := context.Background()

	proj := testutil.NewTestProject("owner-1", "Solar farm")
	testutil.SeedProject(t, db, proj)
	s := testutil.NewTestSession(proj, "inv-1")
	require.NoError(t, repo.Create(ctx, s))

	targets := []domain.SessionStatus{
		domain.SessionAccepted, domain.SessionRejected, domain.SessionCancelled, domain.SessionExpired,
		domain.SessionAccepted, domain.SessionExpired,
	}
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for _, to := range targets {
		wg.Add(1)
		go func(to domain.SessionStatus) {
			defer wg.Done()
			changed, err := repo.Transition(ctx, s.ID, to, time.Now())
			if err != nil {
				t.Errorf("transition to %s: %v", to, err)
				return
			}
			if changed {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(to)
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}

func TestSessionRepo_RecordAgreement_OnceAfterAccept(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteSessionRepo(db)
	ctx := context.Background()

	proj := testutil.NewTestProject("owner-1", "Solar farm")
	testutil.SeedProject(t, db, proj)
	s := testutil.NewTestSession(proj, "inv-1")
	require.NoError(t, repo.Create(ctx, s))

	changed, err := repo.RecordAgreement(ctx, s.ID, 50000, "10% equity", time.Now())
	require.NoError(t, err)
	assert.False(t, changed, "active session cannot record an agreement")

	_, err = repo.Transition(ctx, s.ID, domain.SessionAccepted, time.Now())
	require.NoError(t, err)

	changed, err = repo.RecordAgreement(ctx, s.ID, 50000, "10% equity", time.Now())
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.RecordAgreement(ctx, s.ID, 1, "again", time.Now())
	require.NoError(t, err)
	assert.False(t, changed)

	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, got.AgreementReached)
	assert.Equal(t, int64(50000), got.AgreedAmount)
	assert.Equal(t, "10% equity", got.AgreementTerms)
}

func TestSessionRepo_LeakCountersAndFlag(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteSessionRepo(db)
	ctx := context.Background()

	proj := testutil.NewTestProject("owner-1", "Solar farm")
	testutil.SeedProject(t, db, proj)
	s := testutil.NewTestSession(proj, "inv-1")
	require.NoError(t, repo.Create(ctx, s))

	for want := 1; want <= 3; want++ {
		n, err := repo.IncrementLeakDetections(ctx, s.ID, time.Now())
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	changed, err := repo.MarkFlagged(ctx, s.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = repo.MarkFlagged(ctx, s.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = repo.IncrementLeakDetections(ctx, "missing", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionRepo_NextMessageSeq_Monotonic(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteSessionRepo(db)
	ctx := context.Background()

	proj := testutil.NewTestProject("owner-1", "Solar farm")
	testutil.SeedProject(t, db, proj)
	s := testutil.NewTestSession(proj, "inv-1")
	require.NoError(t, repo.Create(ctx, s))

	for want := 1; want <= 5; want++ {
		got, err := repo.NextMessageSeq(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestSessionRepo_ListExpiredActive(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteSessionRepo(db)
	ctx := context.Background()

	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	proj := testutil.NewTestProject("owner-1", "Solar farm")
	testutil.SeedProject(t, db, proj)

	past := testutil.NewTestSession(proj, "inv-1", testutil.WithWindow(now.AddDate(0, 0, -20), 14*24*time.Hour))
	exact := testutil.NewTestSession(proj, "inv-2", testutil.WithWindow(now.Add(-time.Hour), time.Hour))
	future := testutil.NewTestSession(proj, "inv-3", testutil.WithWindow(now, time.Hour))
	closed := testutil.NewTestSession(proj, "inv-4",
		testutil.WithWindow(now.AddDate(0, 0, -20), time.Hour),
		testutil.WithSessionStatus(domain.SessionRejected))
	for _, s := range []*domain.NegotiationSession{past, exact, future, closed} {
		require.NoError(t, repo.Create(ctx, s))
	}

	expired, err := repo.ListExpiredActive(ctx, now)
	require.NoError(t, err)
	var ids []string
	for _, s := range expired {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{past.ID, exact.ID}, ids)
}

func TestSessionRepo_ListFilterAndCounts(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteSessionRepo(db)
	ctx := context.Background()

	proj := testutil.NewTestProject("owner-1", "Solar farm")
	testutil.SeedProject(t, db, proj)
	a := testutil.NewTestSession(proj, "inv-1", testutil.WithAdminFee(1000))
	b := testutil.NewTestSession(proj, "inv-2", testutil.WithAdminFee(2500))
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))
	_, err := repo.Transition(ctx, b.ID, domain.SessionCancelled, time.Now())
	require.NoError(t, err)

	active, err := repo.List(ctx, SessionFilter{Status: domain.SessionActive})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, a.ID, active[0].ID)

	mine, err := repo.List(ctx, SessionFilter{PartyID: "owner-1"})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	limited, err := repo.List(ctx, SessionFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[domain.SessionActive])
	assert.Equal(t, 1, counts[domain.SessionCancelled])

	fees, err := repo.SumAdminFees(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3500), fees)
}

func TestSessionRepo_NDASignedJoined(t *testing.T) {
	db := testutil.NewTestDB(t)
	sessions := NewSQLiteSessionRepo(db)
	ndas := NewSQLiteNDARepo(db)
	ctx := context.Background()

	proj := testutil.NewTestProject("owner-1", "Solar farm")
	testutil.SeedProject(t, db, proj)
	s := testutil.NewTestSession(proj, "inv-1")
	require.NoError(t, sessions.Create(ctx, s))

	signed, err := ndas.IsSigned(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, signed)

	changed, err := ndas.MarkSigned(ctx, s.ID, "inv-1", time.Now())
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = ndas.MarkSigned(ctx, s.ID, "inv-1", time.Now())
	require.NoError(t, err)
	assert.False(t, changed, "signing is set once")

	got, err := sessions.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, got.NDASigned)
}
