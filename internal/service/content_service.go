package service

import (
	"civics_quiz_backend/internal/model"
	"civics_quiz_backend/internal/repository"
	"civics_quiz_backend/internal/util"
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

const searchLimit = 20

type ContentService struct {
	ContentRepo  *repository.ContentRepository
	QuestionRepo *repository.QuestionRepository
	Storage      *StorageService
}

func NewContentService(contentRepo *repository.ContentRepository, questionRepo *repository.QuestionRepository, storage *StorageService) *ContentService {
	return &ContentService{
		ContentRepo:  contentRepo,
		QuestionRepo: questionRepo,
		Storage:      storage,
	}
}

type SearchResult struct {
	Sections  []model.StudySection `json:"sections"`
	Questions []QuestionHit        `json:"questions"`
}

// QuestionHit 搜索结果里的题目，不带答案
type QuestionHit struct {
	ID       uint   `json:"id"`
	Prompt   string `json:"prompt"`
	Category string `json:"category"`
}

func (s *ContentService) ListSections(ctx context.Context, category string) ([]model.StudySection, error) {
	sections, err := s.ContentRepo.List(ctx, category)
	if err != nil {
		return nil, err
	}
	for i := range sections {
		s.attachAsset(&sections[i])
	}
	return sections, nil
}

func (s *ContentService) Section(ctx context.Context, slug string) (*model.StudySection, error) {
	section, err := s.ContentRepo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrSectionNotFound
		}
		return nil, err
	}
	s.attachAsset(section)
	return section, nil
}

func (s *ContentService) Search(ctx context.Context, keyword string) (*SearchResult, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, util.ErrMalformedRequest
	}
	sections, err := s.ContentRepo.Search(ctx, keyword, searchLimit)
	if err != nil {
		return nil, err
	}
	for i := range sections {
		sections[i].Body = ""
		s.attachAsset(&sections[i])
	}

	questions, err := s.QuestionRepo.Search(ctx, keyword, searchLimit)
	if err != nil {
		return nil, err
	}
	hits := make([]QuestionHit, 0, len(questions))
	for _, q := range questions {
		hits = append(hits, QuestionHit{ID: q.ID, Prompt: q.Prompt, Category: q.Category})
	}
	return &SearchResult{Sections: sections, Questions: hits}, nil
}

func (s *ContentService) attachAsset(section *model.StudySection) {
	section.AssetURL = s.Storage.GetURL(section.AssetKey)
}
