package service

import (
	"civics_quiz_backend/internal/config"
	"civics_quiz_backend/internal/model"
	"civics_quiz_backend/internal/quiz"
	"civics_quiz_backend/internal/repository"
	"civics_quiz_backend/internal/util"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestContentServiceSectionsAndSearch(t *testing.T) {
	db := newTestDB(t)
	content := repository.NewContentRepository(db)
	storage := NewStorageService(&config.StorageConfig{Type: util.StorageLocal, LocalPath: t.TempDir()})
	svc := NewContentService(content, repository.NewQuestionRepository(db), storage)
	ctx := context.Background()
	seedQuestions(t, db, 1, "government")

	err := content.UpsertBySlug(ctx, []model.StudySection{
		{Slug: "branches", Title: "Branches of Government", Summary: "Legislative, executive, judicial.", Body: "Long text", Position: 2},
		{Slug: "rights", Title: "Rights and Responsibilities", Summary: "Freedom of speech.", Position: 1, AssetKey: "sections/rights.pdf"},
	})
	if err != nil {
		t.Fatalf("seed sections: %v", err)
	}

	sections, err := svc.ListSections(ctx, "")
	if err != nil || len(sections) != 2 || sections[0].Slug != "rights" {
		t.Fatalf("ListSections = (%+v, %v)", sections, err)
	}
	if sections[0].AssetURL != "/uploads/sections/rights.pdf" || sections[1].Body != "" {
		t.Fatalf("list should attach asset urls and omit bodies: %+v", sections)
	}

	section, err := svc.Section(ctx, "branches")
	if err != nil || section.Body != "Long text" {
		t.Fatalf("Section = (%+v, %v)", section, err)
	}
	if _, err := svc.Section(ctx, "missing"); !errors.Is(err, util.ErrSectionNotFound) {
		t.Fatalf("missing section err = %v", err)
	}

	found, err := svc.Search(ctx, "commander")
	if err != nil || len(found.Questions) != 1 || len(found.Sections) != 0 {
		t.Fatalf("Search = (%+v, %v)", found, err)
	}
	if _, err := svc.Search(ctx, "  "); !errors.Is(err, util.ErrMalformedRequest) {
		t.Fatalf("blank search err = %v", err)
	}
}

func TestLocalStorageUpload(t *testing.T) {
	root := t.TempDir()
	svc := NewStorageService(&config.StorageConfig{Type: util.StorageLocal, LocalPath: filepath.Join(root, "uploads")})

	src := filepath.Join(root, "guide.pdf")
	if err := os.WriteFile(src, []byte("%PDF"), 0644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	url, err := svc.UploadFile(context.Background(), "sections/guide.pdf", src, "application/pdf")
	if err != nil || url != "/uploads/sections/guide.pdf" {
		t.Fatalf("UploadFile = (%q, %v)", url, err)
	}
	if data, err := os.ReadFile(filepath.Join(root, "uploads", "sections", "guide.pdf")); err != nil || string(data) != "%PDF" {
		t.Fatalf("copied file = (%q, %v)", data, err)
	}
	if svc.GetURL("") != "" {
		t.Fatalf("empty key should have no url")
	}
}

func TestAuthRegisterLoginProfile(t *testing.T) {
	db := newTestDB(t)
	users := repository.NewUserRepository(db)
	counters := repository.NewAttemptCounterRepository(db)
	gate := NewAccessGate(counters, newMemCounter(), &fakeTiers{}, oneEach())
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "0123456789abcdef0123456789abcdef", ExpireTime: time.Hour}}
	svc := NewAuthService(users, counters, &fakeTiers{}, gate, cfg)
	ctx := context.Background()

	user, err := svc.Register(ctx, " Maria ", "Maria@Example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Email != "maria@example.com" || user.Name != "Maria" {
		t.Fatalf("user = %+v", user)
	}
	if _, err := svc.Register(ctx, "Other", "maria@example.com", "x"); !errors.Is(err, util.ErrEmailRegistered) {
		t.Fatalf("duplicate email err = %v", err)
	}

	if _, _, err := svc.Login(ctx, "maria@example.com", "wrong"); !errors.Is(err, util.ErrInvalidCredentials) {
		t.Fatalf("wrong password err = %v", err)
	}
	token, _, err := svc.Login(ctx, "MARIA@example.com", "s3cret-pass")
	if err != nil || token == "" {
		t.Fatalf("Login = (%q, %v)", token, err)
	}
	claims, err := util.ParseJWT(token, cfg.JWT.Secret)
	if err != nil || claims.UserID != user.ID {
		t.Fatalf("token claims = (%+v, %v)", claims, err)
	}

	_ = counters.Increment(ctx, quiz.UserActor(user.ID).ID(), quiz.ModeTimed)
	profile, err := svc.Profile(ctx, user.ID)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if profile.Tier != quiz.TierFree || profile.Attempts[quiz.ModeTimed] != 1 || profile.Attempts[quiz.ModeStandard] != 0 {
		t.Fatalf("profile = %+v", profile)
	}
	if _, err := svc.Profile(ctx, 999); !errors.Is(err, util.ErrUserNotFound) {
		t.Fatalf("missing user err = %v", err)
	}
}
