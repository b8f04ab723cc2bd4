package services

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/agrisetu/go-agriclient/core"
)

type KnowledgeService struct {
	client *core.Client
}

func NewKnowledgeService(client *core.Client) *KnowledgeService {
	return &KnowledgeService{client: client}
}

type Article struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Summary  string   `json:"summary"`
	Content  string   `json:"content"`
	Language string   `json:"language"`
	Tags     []string `json:"tags"`
}

// Search queries the farming knowledge base.
func (s *KnowledgeService) Search(ctx context.Context, query string, language string) ([]Article, error) {
	if s == nil || s.client == nil {
		return nil, serviceNotConfigured("knowledge")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, goerrors.New("services: search query is required", goerrors.CategoryBadInput).
			WithTextCode(core.ClientErrorBadInput)
	}
	params := map[string]string{"q": query}
	if strings.TrimSpace(language) != "" {
		params["language"] = strings.TrimSpace(language)
	}

	res, err := s.client.Get(ctx, "/api/v1/knowledge/search", params)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Articles []Article `json:"articles"`
	}
	if err := res.Decode(&payload); err != nil {
		return nil, err
	}
	return payload.Articles, nil
}

func (s *KnowledgeService) Article(ctx context.Context, articleID string) (Article, error) {
	if s == nil || s.client == nil {
		return Article{}, serviceNotConfigured("knowledge")
	}
	articleID = strings.TrimSpace(articleID)
	if articleID == "" {
		return Article{}, goerrors.New("services: article id is required", goerrors.CategoryBadInput).
			WithTextCode(core.ClientErrorBadInput)
	}
	res, err := s.client.Get(ctx, "/api/v1/knowledge/articles/"+articleID, nil)
	if err != nil {
		return Article{}, err
	}
	var article Article
	if err := res.Decode(&article); err != nil {
		return Article{}, err
	}
	return article, nil
}
