package service

import (
	"civics_quiz_backend/internal/config"
	"civics_quiz_backend/internal/model"
	"civics_quiz_backend/internal/quiz"
	"civics_quiz_backend/internal/repository"
	"civics_quiz_backend/internal/util"
	"civics_quiz_backend/pkg/logger"
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	UserRepo    *repository.UserRepository
	CounterRepo *repository.AttemptCounterRepository
	Tiers       TierResolver
	Gate        *AccessGate
	Cfg         *config.Config
}

func NewAuthService(userRepo *repository.UserRepository, counterRepo *repository.AttemptCounterRepository, tiers TierResolver, gate *AccessGate, cfg *config.Config) *AuthService {
	return &AuthService{
		UserRepo:    userRepo,
		CounterRepo: counterRepo,
		Tiers:       tiers,
		Gate:        gate,
		Cfg:         cfg,
	}
}

type Profile struct {
	User     *model.User       `json:"user"`
	Tier     quiz.Tier         `json:"tier"`
	Attempts map[quiz.Mode]int `json:"attempts"`
	Limits   quiz.Limits       `json:"limits"`
}

func (s *AuthService) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	_, err := s.UserRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil, util.ErrEmailRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Name:     strings.TrimSpace(name),
		Email:    email,
		Password: string(hashedPassword),
	}
	if err := s.UserRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	user, err := s.UserRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", nil, util.ErrInvalidCredentials
	}
	if user.Disabled {
		return "", nil, util.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, util.ErrInvalidCredentials
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return "", nil, err
	}
	if err := s.UserRepo.UpdateLastLogin(ctx, user.ID, time.Now()); err != nil {
		logger.Log.Warn("Failed to update last login", zap.Uint("user_id", user.ID), zap.Error(err))
	}
	return token, user, nil
}

// Profile 用户信息附带订阅等级与各模式已用次数
func (s *AuthService) Profile(ctx context.Context, userID uint) (*Profile, error) {
	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}
	tier, err := s.Tiers.TierFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	counts, err := s.CounterRepo.CountsFor(ctx, quiz.UserActor(userID).ID())
	if err != nil {
		return nil, err
	}
	return &Profile{
		User:     user,
		Tier:     tier,
		Attempts: counts,
		Limits:   s.Gate.Limits(),
	}, nil
}
