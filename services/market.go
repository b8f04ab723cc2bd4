package services

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/agrisetu/go-agriclient/core"
)

type MarketService struct {
	client *core.Client
}

func NewMarketService(client *core.Client) *MarketService {
	return &MarketService{client: client}
}

type PriceQuery struct {
	State     string
	District  string
	Commodity string
}

type CommodityPrice struct {
	Commodity string  `json:"commodity"`
	Market    string  `json:"market"`
	State     string  `json:"state"`
	District  string  `json:"district"`
	MinPrice  float64 `json:"min_price"`
	MaxPrice  float64 `json:"max_price"`
	AvgPrice  float64 `json:"avg_price"`
	Unit      string  `json:"unit"`
	Date      string  `json:"date"`
}

type Favorite struct {
	ID        string `json:"id"`
	Commodity string `json:"commodity"`
	Market    string `json:"market,omitempty"`
}

// Prices returns mandi price rows matching the filter.
func (s *MarketService) Prices(ctx context.Context, query PriceQuery) ([]CommodityPrice, error) {
	if s == nil || s.client == nil {
		return nil, serviceNotConfigured("market")
	}
	params := map[string]string{}
	if strings.TrimSpace(query.State) != "" {
		params["state"] = strings.TrimSpace(query.State)
	}
	if strings.TrimSpace(query.District) != "" {
		params["district"] = strings.TrimSpace(query.District)
	}
	if strings.TrimSpace(query.Commodity) != "" {
		params["commodity"] = strings.TrimSpace(query.Commodity)
	}

	res, err := s.client.Get(ctx, "/api/v1/market/prices", params)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Prices []CommodityPrice `json:"prices"`
	}
	if err := res.Decode(&payload); err != nil {
		return nil, err
	}
	return payload.Prices, nil
}

func (s *MarketService) Favorites(ctx context.Context) ([]Favorite, error) {
	if s == nil || s.client == nil {
		return nil, serviceNotConfigured("market")
	}
	res, err := s.client.Get(ctx, "/api/v1/market/favorites", nil)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Favorites []Favorite `json:"favorites"`
	}
	if err := res.Decode(&payload); err != nil {
		return nil, err
	}
	return payload.Favorites, nil
}

func (s *MarketService) AddFavorite(ctx context.Context, commodity string, market string) (Favorite, error) {
	if s == nil || s.client == nil {
		return Favorite{}, serviceNotConfigured("market")
	}
	commodity = strings.TrimSpace(commodity)
	if commodity == "" {
		return Favorite{}, goerrors.New("services: favorite commodity is required", goerrors.CategoryBadInput).
			WithTextCode(core.ClientErrorBadInput)
	}
	body := map[string]string{"commodity": commodity}
	if strings.TrimSpace(market) != "" {
		body["market"] = strings.TrimSpace(market)
	}
	res, err := s.client.Post(ctx, "/api/v1/market/favorites", body)
	if err != nil {
		return Favorite{}, err
	}
	var favorite Favorite
	if err := res.Decode(&favorite); err != nil {
		return Favorite{}, err
	}
	return favorite, nil
}

func (s *MarketService) RemoveFavorite(ctx context.Context, favoriteID string) error {
	if s == nil || s.client == nil {
		return serviceNotConfigured("market")
	}
	favoriteID = strings.TrimSpace(favoriteID)
	if favoriteID == "" {
		return goerrors.New("services: favorite id is required", goerrors.CategoryBadInput).
			WithTextCode(core.ClientErrorBadInput)
	}
	_, err := s.client.Delete(ctx, "/api/v1/market/favorites/"+favoriteID)
	return err
}
