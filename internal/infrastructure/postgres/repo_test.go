package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/baechuer/curation-service/internal/application/moderation"
	"github.com/baechuer/curation-service/internal/domain"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ts = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func entityRow() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "kind", "title", "category_id", "owner_id", "created_at",
		"save_count", "like_count", "view_count", "comment_count", "is_active", "is_public",
	})
}

func TestEntityRepo_ListRankable(t *testing.T) {
	mock := newMock(t)
	since := ts.Add(-7 * 24 * time.Hour)

	mock.ExpectQuery(`SELECT e.id, .* FROM entities e WHERE e.is_active AND e.is_public AND \(e.created_at >= \$1 OR EXISTS .*\) AND e.category_id = \$3 ORDER BY e.id`).
		WithArgs(since, since, "cafes").
		WillReturnRows(entityRow().
			AddRow("l1", "list", "Best flat whites", "cafes", "u1", ts, int64(10), int64(4), int64(99), int64(2), true, true))

	got, err := NewEntityRepo(mock).ListRankable(context.Background(), "cafes", since)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.KindList, got[0].Kind)
	assert.Equal(t, int64(10), got[0].Counters.Saves)
	assert.Equal(t, int64(99), got[0].Counters.Views)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntityRepo_CategoryOfUnknown(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT category_id FROM entities`).WithArgs("nope").WillReturnError(pgx.ErrNoRows)

	cat, err := NewEntityRepo(mock).CategoryOf(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, cat)
}

func TestEngagementRepo_WindowCounts(t *testing.T) {
	mock := newMock(t)
	w := domain.Window{From: ts.Add(-7 * 24 * time.Hour), To: ts}
	recent := ts.Add(-24 * time.Hour)
	ids := []string{"l1", "l2"}

	mock.ExpectQuery(`FROM interaction_events`).
		WithArgs(ids, w.From, w.To, recent).
		WillReturnRows(pgxmock.NewRows([]string{"id", "saves", "likes", "comments", "views", "recent", "last"}).
			AddRow("l1", int64(5), int64(3), int64(1), int64(40), int64(2), ts.Add(-time.Hour)))

	got, err := NewEngagementRepo(mock).WindowCounts(context.Background(), ids, w, recent)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got["l1"].Saves)
	assert.Equal(t, int64(2), got["l1"].RecentSaves)
	_, ok := got["l2"]
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngagementRepo_EmptyIDsSkipsQuery(t *testing.T) {
	mock := newMock(t)
	got, err := NewEngagementRepo(mock).LifetimeCounters(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInteractionRepo_AppendDuplicate(t *testing.T) {
	mock := newMock(t)
	ev := domain.InteractionEvent{
		MessageID: "m-1", ActorUserID: "u1", TargetEntityID: "l1",
		Kind: domain.InteractionSave, OccurredAt: ts,
	}
	mock.ExpectExec(`INSERT INTO interaction_events .* ON CONFLICT \(message_id\) DO NOTHING`).
		WithArgs("m-1", "u1", "l1", "save", ts).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	inserted, err := NewInteractionRepo(mock).Append(context.Background(), ev)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAffinityRepo_ReplaceWithNoRowsOnlyDeletes(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM category_affinities`).WithArgs("u1").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectCommit()

	err := NewAffinityRepo(mock).ReplaceAffinities(context.Background(), "u1", nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAffinityRepo_CategoryInteractions(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`UNION ALL`).WithArgs("u1").
		WillReturnRows(pgxmock.NewRows([]string{"category_id", "kind", "count"}).
			AddRow("cafes", "create", int64(1)).
			AddRow("cafes", "save", int64(4)))

	got, err := NewAffinityRepo(mock).CategoryInteractions(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.InteractionCreate, got[0].Kind)
	assert.Equal(t, int64(4), got[1].Count)
}

func TestSubmissionRepo_ReputationDefaultsToZero(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT score FROM user_reputation`).WithArgs("u1").WillReturnError(pgx.ErrNoRows)

	score, err := NewSubmissionRepo(mock).Reputation(context.Background(), "u1")
	require.NoError(t, err)
	assert.Zero(t, score)
}

func TestSubmissionRepo_CountSince(t *testing.T) {
	mock := newMock(t)
	since := ts.Add(-time.Minute)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM submissions WHERE actor_id = \$1 AND created_at > \$2`).
		WithArgs("u1", since).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

	n, err := NewSubmissionRepo(mock).CountSince(context.Background(), "u1", since)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestCommentRepo_CreateWritesSubmissionInSameTx(t *testing.T) {
	mock := newMock(t)
	c := domain.Comment{ID: "c1", ListID: "l1", AuthorID: "u1", Body: "nice", ContentHash: "h", CreatedAt: ts}
	rec := domain.SubmissionRecord{ActorID: "u1", TargetType: domain.TargetComment, TargetID: "l1", ContentHash: "h", CreatedAt: ts}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO comments`).
		WithArgs("c1", "l1", "u1", "nice", "h", false, false, ts).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO submissions`).
		WithArgs("u1", "comment", "l1", "h", ts).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO interaction_events .* ON CONFLICT \(message_id\) DO NOTHING`).
		WithArgs("comment:c1", "u1", "l1", "comment", ts).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, NewCommentRepo(mock).Create(context.Background(), c, rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepo_CreateFilteredSkipsInteraction(t *testing.T) {
	mock := newMock(t)
	c := domain.Comment{ID: "c2", ListID: "l1", AuthorID: "troll", Body: "hmm", ContentHash: "h", IsFiltered: true, CreatedAt: ts}
	rec := domain.SubmissionRecord{ActorID: "troll", TargetType: domain.TargetComment, TargetID: "l1", ContentHash: "h", CreatedAt: ts}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO comments`).
		WithArgs("c2", "l1", "troll", "hmm", "h", true, false, ts).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO submissions`).
		WithArgs("troll", "comment", "l1", "h", ts).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, NewCommentRepo(mock).Create(context.Background(), c, rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepo_CreateRollsBackOnLogFailure(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO comments`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO submissions`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := NewCommentRepo(mock).Create(context.Background(), domain.Comment{}, domain.SubmissionRecord{})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func caseRows() *pgxmock.Rows {
	return pgxmock.NewRows(caseColumns)
}

func TestModerationRepo_GetCaseNotFound(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT .* FROM moderation_cases WHERE id = \$1`).WithArgs("x").WillReturnError(pgx.ErrNoRows)

	_, err := NewModerationRepo(mock).GetCase(context.Background(), "x")
	assert.Equal(t, domain.CodeNotFound, domain.CodeOf(err))
}

func TestModerationRepo_ListCasesResolved(t *testing.T) {
	mock := newMock(t)
	resolved := true
	f := domain.CaseFilter{Resolved: &resolved, Page: 2, PageSize: 10}

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM moderation_cases WHERE \(status IN \(\$1,\$2\)\)`).
		WithArgs("resolved", "dismissed").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(11))
	mock.ExpectQuery(`SELECT id, .* FROM moderation_cases WHERE \(status IN \(\$1,\$2\)\) ORDER BY created_at DESC, id DESC LIMIT 10 OFFSET 10`).
		WithArgs("resolved", "dismissed").
		WillReturnRows(caseRows().
			AddRow("case-1", "comment", "c1", "system", "link_review", "", "resolved", (*string)(nil), ts, ts))

	items, total, err := NewModerationRepo(mock).ListCases(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, 11, total)
	require.Len(t, items, 1)
	assert.Equal(t, domain.CaseResolved, items[0].Status)
	assert.Nil(t, items[0].AssigneeID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestModerationRepo_UpdateCaseLostRace(t *testing.T) {
	mock := newMock(t)
	c := domain.ModerationCase{ID: "case-1", Status: domain.CaseInReview, UpdatedAt: ts}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE moderation_cases SET status = \$1, assignee_id = \$2, updated_at = \$3 WHERE id = \$4 AND status = \$5`).
		WithArgs("in_review", (*string)(nil), ts, "case-1", "open").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := NewModerationRepo(mock).UpdateCase(context.Background(), c, domain.CaseOpen, domain.AuditEntry{})
	assert.Equal(t, domain.CodeInvalidState, domain.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestModerationRepo_ListAuditDecodesMeta(t *testing.T) {
	mock := newMock(t)
	f := moderation.AuditFilter{TargetID: "case-1", Page: 1, PageSize: 50}

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM audit_log WHERE target_id = \$1`).
		WithArgs("case-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`FROM audit_log WHERE target_id = \$1 ORDER BY`).
		WithArgs("case-1").
		WillReturnRows(pgxmock.NewRows(auditColumns).
			AddRow("a1", "mod-1", "case.status_changed", "moderation_case", "case-1", []byte(`{"from":"open","to":"in_review"}`), ts))

	items, total, err := NewModerationRepo(mock).ListAudit(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "in_review", items[0].Meta["to"])
	assert.Equal(t, domain.TargetCase, items[0].TargetType)
}

func TestFeaturedRepo_SlotByIDNotFound(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`FROM featured_slots WHERE id = \$1`).WithArgs("s1").WillReturnError(pgx.ErrNoRows)

	_, err := NewFeaturedRepo(mock).SlotByID(context.Background(), "s1")
	assert.Equal(t, domain.CodeNotFound, domain.CodeOf(err))
}

func TestFeaturedRepo_FeaturedListIDsUsesWeekStart(t *testing.T) {
	mock := newMock(t)
	// ts is a Thursday; the slot week starts Monday 2026-10-12.
	monday := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT list_id FROM featured_slots WHERE week_start = \$1`).
		WithArgs(monday).
		WillReturnRows(pgxmock.NewRows([]string{"list_id"}).AddRow("l1").AddRow("l7"))

	ids, err := NewFeaturedRepo(mock).FeaturedListIDs(context.Background(), ts)
	require.NoError(t, err)
	assert.Equal(t, []string{"l1", "l7"}, ids)
}

func TestFeaturedRepo_SaveCountsEmpty(t *testing.T) {
	mock := newMock(t)
	got, err := NewFeaturedRepo(mock).SaveCounts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
