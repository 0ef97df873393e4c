package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"taprealm/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRepository stores the player and operator audit trail.
type AuditRepository struct {
	db *pgxpool.Pool
}

func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: db}
}

// AuditFilter narrows List. Zero fields match everything; set fields are
// combined with AND.
type AuditFilter struct {
	UserID   int64
	Category string
	Action   string
	Since    time.Time
	Limit    int
}

// Create appends one entry.
func (r *AuditRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	return insertAuditLog(ctx, r.db, log)
}

func insertAuditLog(ctx context.Context, q DBTX, log *domain.AuditLog) error {
	details, err := json.Marshal(log.Details)
	if err != nil {
		details = []byte("{}")
	}
	_, err = q.Exec(ctx, `
		INSERT INTO audit_logs (user_id, action, category, details, ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, log.UserID, log.Action, log.Category, details, log.IP, log.UserAgent)
	return err
}

// List returns the newest entries matching f.
func (r *AuditRepository) List(ctx context.Context, f AuditFilter) ([]*domain.AuditLog, error) {
	query, args := f.sql()
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	return scanAuditLogs(rows)
}

func (f AuditFilter) sql() (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.UserID != 0 {
		add("user_id = $%d", f.UserID)
	}
	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if f.Action != "" {
		add("action = $%d", f.Action)
	}
	if !f.Since.IsZero() {
		add("created_at >= $%d", f.Since)
	}

	var b strings.Builder
	b.WriteString(`SELECT id, user_id, action, category, details, ip, user_agent, created_at FROM audit_logs`)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	fmt.Fprintf(&b, " ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))
	return b.String(), args
}

func scanAuditLogs(rows pgx.Rows) ([]*domain.AuditLog, error) {
	var logs []*domain.AuditLog
	for rows.Next() {
		var (
			log     domain.AuditLog
			details []byte
		)
		if err := rows.Scan(&log.ID, &log.UserID, &log.Action, &log.Category, &details, &log.IP, &log.UserAgent, &log.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(details, &log.Details); err != nil {
			log.Details = make(map[string]interface{})
		}
		logs = append(logs, &log)
	}
	return logs, rows.Err()
}
