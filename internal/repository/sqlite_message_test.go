package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alexanderramin/dealroom/internal/domain"
	"github.com/alexanderramin/dealroom/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRepo_AppendOrder(t *testing.T) {
	db := testutil.NewTestDB(t)
	sessions := NewSQLiteSessionRepo(db)
	messages := NewSQLiteMessageRepo(db)
	ctx := context.Background()

	proj := testutil.NewTestProject("owner-1", "Solar farm")
	testutil.SeedProject(t, db, proj)
	s := testutil.NewTestSession(proj, "inv-1")
	require.NoError(t, sessions.Create(ctx, s))

	// Identical timestamps: seq alone decides the order.
	at := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	contents := []string{"hello", "call me 0555123456", "how is the pilot going?"}
	for i, content := range contents {
		seq, err := sessions.NextMessageSeq(ctx, s.ID)
		require.NoError(t, err)
		m := &domain.Message{
			ID: "m" + string(rune('c'-i)), SessionID: s.ID, Seq: seq, SenderID: "inv-1",
			Content: content, Status: domain.MessageSent, CreatedAt: at,
		}
		if i == 1 {
			m.Status = domain.MessageBlocked
			m.Matches = []string{"phone"}
		}
		require.NoError(t, messages.Create(ctx, m))
	}

	got, err := messages.ListBySession(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, m := range got {
		assert.Equal(t, i+1, m.Seq)
		assert.Equal(t, contents[i], m.Content)
	}
	assert.Equal(t, domain.MessageBlocked, got[1].Status)
	assert.Equal(t, []string{"phone"}, got[1].Matches)
	assert.Nil(t, got[0].Matches)
}

func TestMessageRepo_DuplicateSeqRejected(t *testing.T) {
	db := testutil.NewTestDB(t)
	sessions := NewSQLiteSessionRepo(db)
	messages := NewSQLiteMessageRepo(db)
	ctx := context.Background()

	proj := testutil.NewTestProject("owner-1", "Solar farm")
	testutil.SeedProject(t, db, proj)
	s := testutil.NewTestSession(proj, "inv-1")
	require.NoError(t, sessions.Create(ctx, s))

	m := &domain.Message{ID: "m1", SessionID: s.ID, Seq: 1, SenderID: "inv-1", Content: "a", Status: domain.MessageSent, CreatedAt: time.Now()}
	require.NoError(t, messages.Create(ctx, m))
	m2 := *m
	m2.ID = "m2"
	assert.Error(t, messages.Create(ctx, &m2))
}
