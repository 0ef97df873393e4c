package service

import (
	"context"

	"taprealm/internal/domain"
	"taprealm/internal/logger"
	"taprealm/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLogger records player actions. Implementations must not fail the
// caller; errors are logged.
type AuditLogger interface {
	Log(ctx context.Context, userID int64, action, category string, details map[string]interface{})
}

// AuditService handles audit logging
type AuditService struct {
	repo *repository.AuditRepository
}

// NewAuditService creates a new audit service
func NewAuditService(db *pgxpool.Pool) *AuditService {
	return &AuditService{
		repo: repository.NewAuditRepository(db),
	}
}

// Log creates a new audit log entry
func (s *AuditService) Log(ctx context.Context, userID int64, action, category string, details map[string]interface{}) {
	s.LogWithRequest(ctx, userID, action, category, "", "", details)
}

// LogWithRequest creates an audit log with request info (IP, User-Agent)
func (s *AuditService) LogWithRequest(ctx context.Context, userID int64, action, category, ip, userAgent string, details map[string]interface{}) {
	if details == nil {
		details = make(map[string]interface{})
	}
	if rid, ok := RequestIDFrom(ctx); ok {
		details["request_id"] = rid
	}
	log := &domain.AuditLog{
		UserID:    userID,
		Action:    action,
		Category:  category,
		Details:   details,
		IP:        ip,
		UserAgent: userAgent,
	}

	if err := s.repo.Create(ctx, log); err != nil {
		logger.WithContext(ctx).Error("failed to create audit log", "error", err, "action", action, "user_id", userID)
	}
}

// LogLogin logs a user login
func (s *AuditService) LogLogin(ctx context.Context, userID int64, ip, userAgent string) {
	s.LogWithRequest(ctx, userID, domain.AuditActionLogin, domain.AuditCategoryAuth, ip, userAgent, nil)
}

// LogAdminAction logs an admin action
func (s *AuditService) LogAdminAction(ctx context.Context, action string, targetUserID int64, details map[string]interface{}) {
	if details == nil {
		details = make(map[string]interface{})
	}
	details["target_user_id"] = targetUserID

	s.Log(ctx, targetUserID, action, domain.AuditCategoryAdmin, details)
}

// Query returns the newest entries matching f.
func (s *AuditService) Query(ctx context.Context, f repository.AuditFilter) ([]*domain.AuditLog, error) {
	return s.repo.List(ctx, f)
}
