package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAuditFilterSQL(t *testing.T) {
	since := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		f     AuditFilter
		where string
		args  []any
	}{
		{"recent", AuditFilter{}, "", []any{50}},
		{"user", AuditFilter{UserID: 7, Limit: 10}, " WHERE user_id = $1", []any{int64(7), 10}},
		{
			"user and category",
			AuditFilter{UserID: 7, Category: "fraud", Limit: 5},
			" WHERE user_id = $1 AND category = $2",
			[]any{int64(7), "fraud", 5},
		},
		{
			"all fields",
			AuditFilter{UserID: 7, Category: "admin", Action: "admin_restrict", Since: since, Limit: 3},
			" WHERE user_id = $1 AND category = $2 AND action = $3 AND created_at >= $4",
			[]any{int64(7), "admin", "admin_restrict", since, 3},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			query, args := tc.f.sql()
			want := "SELECT id, user_id, action, category, details, ip, user_agent, created_at FROM audit_logs" +
				tc.where
			assert.Contains(t, query, want+" ORDER BY created_at DESC, id DESC LIMIT $")
			assert.Equal(t, tc.args, args)
		})
	}
}
