package postgres

import (
	"context"
	"encoding/json"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/baechuer/curation-service/internal/application/moderation"
	"github.com/baechuer/curation-service/internal/domain"
	"github.com/jackc/pgx/v5"
)

var caseColumns = []string{
	"id", "target_type", "target_id", "reporter_id", "reason", "detail",
	"status", "assignee_id", "created_at", "updated_at",
}

var auditColumns = []string{"id", "actor_id", "action", "target_type", "target_id", "meta", "created_at"}

type ModerationRepo struct {
	db DB
}

func NewModerationRepo(db DB) *ModerationRepo { return &ModerationRepo{db: db} }

func (r *ModerationRepo) CreateCase(ctx context.Context, c domain.ModerationCase, entry domain.AuditEntry) error {
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		sql, args, err := psql.Insert("moderation_cases").
			Columns(caseColumns...).
			Values(c.ID, string(c.TargetType), c.TargetID, c.ReporterID, c.Reason, c.Detail,
				string(c.Status), c.AssigneeID, c.CreatedAt, c.UpdatedAt).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return err
		}
		return insertAudit(ctx, tx, entry)
	})
}

func (r *ModerationRepo) GetCase(ctx context.Context, id string) (domain.ModerationCase, error) {
	sql, args, err := psql.Select(caseColumns...).From("moderation_cases").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return domain.ModerationCase{}, err
	}
	c, err := scanCase(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ModerationCase{}, domain.ErrNotFound("moderation case not found")
	}
	return c, err
}

// ListCases pages the queue, newest first.
func (r *ModerationRepo) ListCases(ctx context.Context, f domain.CaseFilter) ([]domain.ModerationCase, int, error) {
	var where sq.And
	if f.Status != nil {
		where = append(where, sq.Eq{"status": string(*f.Status)})
	}
	if f.Resolved != nil {
		terminal := []string{string(domain.CaseResolved), string(domain.CaseDismissed)}
		if *f.Resolved {
			where = append(where, sq.Eq{"status": terminal})
		} else {
			where = append(where, sq.NotEq{"status": terminal})
		}
	}

	countQ := psql.Select("COUNT(*)").From("moderation_cases")
	listQ := psql.Select(caseColumns...).From("moderation_cases").
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(f.PageSize)).
		Offset(uint64((f.Page - 1) * f.PageSize))
	if len(where) > 0 {
		countQ = countQ.Where(where)
		listQ = listQ.Where(where)
	}

	sql, args, err := countQ.ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sql, args, err = listQ.ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []domain.ModerationCase
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// UpdateCase is a compare-and-set on status; the audit entry is written in
// the same transaction.
func (r *ModerationRepo) UpdateCase(ctx context.Context, c domain.ModerationCase, expected domain.CaseStatus, entry domain.AuditEntry) error {
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		sql, args, err := psql.Update("moderation_cases").
			Set("status", string(c.Status)).
			Set("assignee_id", c.AssigneeID).
			Set("updated_at", c.UpdatedAt).
			Where(sq.Eq{"id": c.ID, "status": string(expected)}).
			ToSql()
		if err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrInvalidState("case changed concurrently")
		}
		return insertAudit(ctx, tx, entry)
	})
}

func (r *ModerationRepo) ListAudit(ctx context.Context, f moderation.AuditFilter) ([]domain.AuditEntry, int, error) {
	where := sq.Eq{}
	if f.TargetType != "" {
		where["target_type"] = string(f.TargetType)
	}
	if f.TargetID != "" {
		where["target_id"] = f.TargetID
	}
	if f.ActorID != "" {
		where["actor_id"] = f.ActorID
	}

	countQ := psql.Select("COUNT(*)").From("audit_log")
	listQ := psql.Select(auditColumns...).From("audit_log").
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(f.PageSize)).
		Offset(uint64((f.Page - 1) * f.PageSize))
	if len(where) > 0 {
		countQ = countQ.Where(where)
		listQ = listQ.Where(where)
	}

	sql, args, err := countQ.ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sql, args, err = listQ.ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var targetType string
		var meta []byte
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &targetType, &e.TargetID, &meta, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		e.TargetType = domain.TargetType(targetType)
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Meta); err != nil {
				return nil, 0, err
			}
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

func insertAudit(ctx context.Context, tx pgx.Tx, e domain.AuditEntry) error {
	meta := e.Meta
	if meta == nil {
		meta = map[string]string{}
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	sql, args, err := psql.Insert("audit_log").
		Columns(auditColumns...).
		Values(e.ID, e.ActorID, e.Action, string(e.TargetType), e.TargetID, raw, e.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, sql, args...)
	return err
}

func scanCase(row pgx.Row) (domain.ModerationCase, error) {
	var c domain.ModerationCase
	var targetType, status string
	if err := row.Scan(&c.ID, &targetType, &c.TargetID, &c.ReporterID, &c.Reason, &c.Detail,
		&status, &c.AssigneeID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return domain.ModerationCase{}, err
	}
	c.TargetType = domain.TargetType(targetType)
	c.Status = domain.CaseStatus(status)
	return c, nil
}
