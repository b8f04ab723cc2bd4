package services

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/agrisetu/go-agriclient/core"
)

type SchemesService struct {
	client *core.Client
}

func NewSchemesService(client *core.Client) *SchemesService {
	return &SchemesService{client: client}
}

type SchemeFilter struct {
	State    string
	Category string
}

type Scheme struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	State       string   `json:"state"`
	Description string   `json:"description"`
	Eligibility []string `json:"eligibility"`
	ApplyURL    string   `json:"apply_url"`
}

// List returns government schemes matching the filter.
func (s *SchemesService) List(ctx context.Context, filter SchemeFilter) ([]Scheme, error) {
	if s == nil || s.client == nil {
		return nil, serviceNotConfigured("schemes")
	}
	params := map[string]string{}
	if strings.TrimSpace(filter.State) != "" {
		params["state"] = strings.TrimSpace(filter.State)
	}
	if strings.TrimSpace(filter.Category) != "" {
		params["category"] = strings.TrimSpace(filter.Category)
	}

	res, err := s.client.Get(ctx, "/api/v1/schemes", params)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Schemes []Scheme `json:"schemes"`
	}
	if err := res.Decode(&payload); err != nil {
		return nil, err
	}
	return payload.Schemes, nil
}

func (s *SchemesService) Get(ctx context.Context, schemeID string) (Scheme, error) {
	if s == nil || s.client == nil {
		return Scheme{}, serviceNotConfigured("schemes")
	}
	schemeID = strings.TrimSpace(schemeID)
	if schemeID == "" {
		return Scheme{}, goerrors.New("services: scheme id is required", goerrors.CategoryBadInput).
			WithTextCode(core.ClientErrorBadInput)
	}
	res, err := s.client.Get(ctx, "/api/v1/schemes/"+schemeID, nil)
	if err != nil {
		return Scheme{}, err
	}
	var scheme Scheme
	if err := res.Decode(&scheme); err != nil {
		return Scheme{}, err
	}
	return scheme, nil
}
