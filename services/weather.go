package services

import (
	"context"
	"fmt"

	goerrors "github.com/goliatone/go-errors"

	"github.com/agrisetu/go-agriclient/core"
)

type WeatherService struct {
	client *core.Client
}

func NewWeatherService(client *core.Client) *WeatherService {
	return &WeatherService{client: client}
}

type Location struct {
	Latitude  float64
	Longitude float64
}

type WeatherReport struct {
	Location    string  `json:"location"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`
	Condition   string  `json:"condition"`
	Advisory    string  `json:"advisory"`
}

type ForecastDay struct {
	Date      string  `json:"date"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Condition string  `json:"condition"`
	RainMM    float64 `json:"rain_mm"`
}

func (s *WeatherService) Current(ctx context.Context, loc Location) (WeatherReport, error) {
	if s == nil || s.client == nil {
		return WeatherReport{}, serviceNotConfigured("weather")
	}
	res, err := s.client.Get(ctx, "/api/v1/weather/current", locationQuery(loc))
	if err != nil {
		return WeatherReport{}, err
	}
	var report WeatherReport
	if err := res.Decode(&report); err != nil {
		return WeatherReport{}, err
	}
	return report, nil
}

func (s *WeatherService) Forecast(ctx context.Context, loc Location, days int) ([]ForecastDay, error) {
	if s == nil || s.client == nil {
		return nil, serviceNotConfigured("weather")
	}
	if days <= 0 {
		return nil, goerrors.New("services: forecast days must be positive", goerrors.CategoryBadInput).
			WithTextCode(core.ClientErrorBadInput)
	}
	query := locationQuery(loc)
	query["days"] = fmt.Sprintf("%d", days)

	res, err := s.client.Get(ctx, "/api/v1/weather/forecast", query)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Forecast []ForecastDay `json:"forecast"`
	}
	if err := res.Decode(&payload); err != nil {
		return nil, err
	}
	return payload.Forecast, nil
}

func locationQuery(loc Location) map[string]string {
	return map[string]string{
		"lat": fmt.Sprintf("%g", loc.Latitude),
		"lon": fmt.Sprintf("%g", loc.Longitude),
	}
}
