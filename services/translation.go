package services

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/agrisetu/go-agriclient/core"
)

type TranslationService struct {
	client *core.Client
}

func NewTranslationService(client *core.Client) *TranslationService {
	return &TranslationService{client: client}
}

type TranslateRequest struct {
	Text   string `json:"text"`
	Source string `json:"source_language,omitempty"`
	Target string `json:"target_language"`
}

type Translation struct {
	Text     string `json:"text"`
	Source   string `json:"source_language"`
	Target   string `json:"target_language"`
	Detected bool   `json:"detected"`
}

func (s *TranslationService) Translate(ctx context.Context, req TranslateRequest) (Translation, error) {
	if s == nil || s.client == nil {
		return Translation{}, serviceNotConfigured("translation")
	}
	if strings.TrimSpace(req.Text) == "" {
		return Translation{}, goerrors.New("services: translation text is required", goerrors.CategoryBadInput).
			WithTextCode(core.ClientErrorBadInput)
	}
	if strings.TrimSpace(req.Target) == "" {
		return Translation{}, goerrors.New("services: target language is required", goerrors.CategoryBadInput).
			WithTextCode(core.ClientErrorBadInput)
	}
	res, err := s.client.Post(ctx, "/api/v1/translate", req)
	if err != nil {
		return Translation{}, err
	}
	var translation Translation
	if err := res.Decode(&translation); err != nil {
		return Translation{}, err
	}
	return translation, nil
}
