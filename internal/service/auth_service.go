package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taprealm/internal/domain"
	"taprealm/internal/game"
	"taprealm/internal/logger"
	"taprealm/internal/repository"
	"taprealm/internal/telegram"
)

// initDataMaxAge rejects replayed init_data older than this.
const initDataMaxAge = time.Hour

// UserStore is the subset of repository.UserRepository used for login.
type UserStore interface {
	GetByTgID(ctx context.Context, tgID int64) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	Create(ctx context.Context, u *domain.User, st game.PlayerState) error
	UpdateProfile(ctx context.Context, id int64, username, firstName string) error
}

// Referrer pays the invite rewards of a first login; see GameService.ApplyReferral.
type Referrer interface {
	ApplyReferral(ctx context.Context, inviteeID int64, code string) error
}

type AuthService struct {
	users     UserStore
	engine    *game.Engine
	botToken  string
	devMode   bool
	audit     *AuditService
	referrals Referrer
	now       func() time.Time
}

type AuthOption func(*AuthService)

// WithReferrer pays referral rewards when a new player arrives through an
// invite link.
func WithReferrer(r Referrer) AuthOption { return func(s *AuthService) { s.referrals = r } }

func NewAuthService(users UserStore, engine *game.Engine, botToken string, devMode bool, audit *AuditService, opts ...AuthOption) *AuthService {
	s := &AuthService{
		users:    users,
		engine:   engine,
		botToken: botToken,
		devMode:  devMode,
		audit:    audit,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type LoginResult struct {
	Token   string       `json:"token"`
	User    *domain.User `json:"user"`
	Created bool         `json:"created"`
}

// Login validates init_data, registers the player on first login and issues
// a session token. In dev mode the signature is not checked.
func (s *AuthService) Login(ctx context.Context, initData, ip, userAgent string) (*LoginResult, error) {
	var (
		tgUser *telegram.WebAppUser
		err    error
	)
	if s.devMode {
		tgUser, err = telegram.ParseUser(initData)
	} else {
		tgUser, err = telegram.ValidateInitData(initData, s.botToken, s.now(), initDataMaxAge)
	}
	if err != nil {
		return nil, err
	}

	user, created, err := s.findOrCreate(ctx, tgUser)
	if err != nil {
		return nil, err
	}
	if created && tgUser.StartParam != "" && s.referrals != nil {
		if err := s.referrals.ApplyReferral(ctx, user.ID, tgUser.StartParam); err != nil {
			logger.WithContext(ctx).Warn("referral not applied",
				"user_id", user.ID, "code", tgUser.StartParam, "error", err)
		}
	}

	token, err := GenerateJWT(user.ID)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	if s.audit != nil {
		if created {
			s.audit.LogWithRequest(ctx, user.ID, domain.AuditActionRegister, domain.AuditCategoryAuth, ip, userAgent, nil)
		} else {
			s.audit.LogLogin(ctx, user.ID, ip, userAgent)
		}
	}
	return &LoginResult{Token: token, User: user, Created: created}, nil
}

func (s *AuthService) findOrCreate(ctx context.Context, tgUser *telegram.WebAppUser) (*domain.User, bool, error) {
	user, err := s.users.GetByTgID(ctx, tgUser.ID)
	if err == nil {
		if user.Username != tgUser.Username || user.FirstName != tgUser.FirstName {
			if err := s.users.UpdateProfile(ctx, user.ID, tgUser.Username, tgUser.FirstName); err != nil {
				logger.WithContext(ctx).Warn("update profile failed", "user_id", user.ID, "error", err)
			} else {
				user.Username, user.FirstName = tgUser.Username, tgUser.FirstName
			}
		}
		return user, false, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, false, err
	}

	user = &domain.User{
		TgID:      tgUser.ID,
		Username:  tgUser.Username,
		FirstName: tgUser.FirstName,
	}
	err = s.users.Create(ctx, user, s.engine.NewPlayer(0, s.now()))
	if errors.Is(err, repository.ErrUserExists) {
		// параллельный первый логин уже создал пользователя
		user, err = s.users.GetByTgID(ctx, tgUser.ID)
		return user, false, err
	}
	if err != nil {
		return nil, false, err
	}
	logger.WithContext(ctx).Info("user registered", "user_id", user.ID, "tg_id", user.TgID)
	return user, true, nil
}

// Me returns the user behind a session.
func (s *AuthService) Me(ctx context.Context, userID int64) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}
