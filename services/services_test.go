package services_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/agrisetu/go-agriclient/core"
	"github.com/agrisetu/go-agriclient/sanitize"
	"github.com/agrisetu/go-agriclient/services"
	"github.com/agrisetu/go-agriclient/transport"
)

func newBackend(t *testing.T, handler http.HandlerFunc) (*services.Registry, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer access-token" {
			t.Errorf("expected bearer header, got %q", got)
		}
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	store := core.NewMemoryTokenStore()
	if err := store.Save(context.Background(), core.Credential{AccessToken: "access-token"}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	client, err := core.NewClient(core.Config{BaseURL: server.URL},
		core.WithTransport(transport.NewRESTAdapter(server.Client())),
		core.WithSanitizer(sanitize.New(core.SanitizeConfig{})),
		core.WithTokenStore(store),
	)
	if err != nil {
		t.Fatalf("client build failed: %v", err)
	}
	return services.NewRegistry(client), server
}

func TestChatSendMessage(t *testing.T) {
	registry, _ := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/chat" || r.Method != http.MethodPost {
			t.Errorf("unexpected route %s %s", r.Method, r.URL.Path)
		}
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		if req["message"] != "kab boni kare" {
			t.Errorf("unexpected message %v", req["message"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"conversation_id": "conv-1",
			"reply":           "June ke pehle hafte mein",
			"language":        "hi",
		})
	})

	reply, err := registry.Chat().SendMessage(context.Background(), services.ChatRequest{
		Message:  "kab boni kare",
		Language: "hi",
	})
	if err != nil {
		t.Fatalf("send message failed: %v", err)
	}
	if reply.ConversationID != "conv-1" || reply.Language != "hi" {
		t.Fatalf("unexpected reply: %+v", reply)
	}
}

func TestChatRequiresMessage(t *testing.T) {
	registry, _ := newBackend(t, func(http.ResponseWriter, *http.Request) {})
	if _, err := registry.Chat().SendMessage(context.Background(), services.ChatRequest{}); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestVisionDiagnoseCropUploadsMultipart(t *testing.T) {
	registry, _ := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/vision/diagnose" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("crop_name"); got != "wheat" {
			t.Errorf("unexpected crop name %q", got)
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			file.Close()
			if header.Filename != "leaf.jpg" {
				t.Errorf("unexpected file name %q", header.Filename)
			}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"disease":    "leaf rust",
			"confidence": 0.93,
			"severity":   "moderate",
			"treatment":  "propiconazole spray",
		})
	})

	diagnosis, err := registry.Vision().DiagnoseCrop(context.Background(), services.DiagnoseInput{
		Image:    []byte{0xFF, 0xD8, 0xFF},
		FileName: "leaf.jpg",
		CropName: "wheat",
	})
	if err != nil {
		t.Fatalf("diagnose failed: %v", err)
	}
	if diagnosis.Disease != "leaf rust" || diagnosis.Confidence != 0.93 {
		t.Fatalf("unexpected diagnosis: %+v", diagnosis)
	}
}

func TestWeatherForecastQuery(t *testing.T) {
	registry, _ := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Get("lat") != "18.52" || query.Get("lon") != "73.85" || query.Get("days") != "5" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"forecast": []map[string]any{
				{"date": "2026-08-29", "high": 29.5, "low": 22.1, "condition": "rain", "rain_mm": 14},
			},
		})
	})

	forecast, err := registry.Weather().Forecast(context.Background(), services.Location{
		Latitude:  18.52,
		Longitude: 73.85,
	}, 5)
	if err != nil {
		t.Fatalf("forecast failed: %v", err)
	}
	if len(forecast) != 1 || forecast[0].Condition != "rain" {
		t.Fatalf("unexpected forecast: %+v", forecast)
	}
}

func TestMarketPricesAndFavorites(t *testing.T) {
	registry, _ := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/v1/market/prices":
			if r.URL.Query().Get("commodity") != "onion" {
				t.Errorf("unexpected query %s", r.URL.RawQuery)
			}
			json.NewEncoder(w).Encode(map[string]any{
				"prices": []map[string]any{
					{"commodity": "onion", "market": "Lasalgaon", "avg_price": 2400, "unit": "quintal"},
				},
			})
		case r.URL.Path == "/api/v1/market/favorites" && r.Method == http.MethodPost:
			json.NewEncoder(w).Encode(map[string]any{"id": "fav-1", "commodity": "onion"})
		case strings.HasPrefix(r.URL.Path, "/api/v1/market/favorites/") && r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected route %s %s", r.Method, r.URL.Path)
		}
	})

	prices, err := registry.Market().Prices(context.Background(), services.PriceQuery{Commodity: "onion"})
	if err != nil {
		t.Fatalf("prices failed: %v", err)
	}
	if len(prices) != 1 || prices[0].Market != "Lasalgaon" {
		t.Fatalf("unexpected prices: %+v", prices)
	}

	favorite, err := registry.Market().AddFavorite(context.Background(), "onion", "")
	if err != nil {
		t.Fatalf("add favorite failed: %v", err)
	}
	if favorite.ID != "fav-1" {
		t.Fatalf("unexpected favorite: %+v", favorite)
	}
	if err := registry.Market().RemoveFavorite(context.Background(), favorite.ID); err != nil {
		t.Fatalf("remove favorite failed: %v", err)
	}
}

func TestSchemesNotFoundIsNormalized(t *testing.T) {
	registry, _ := newBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{"detail": "scheme not found"})
	})

	_, err := registry.Schemes().Get(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected failure")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected rich error, got %T", err)
	}
	if richErr.Category != goerrors.CategoryNotFound {
		t.Fatalf("expected not-found category, got %s", richErr.Category)
	}
	if richErr.Message != "scheme not found" {
		t.Fatalf("expected backend message surfaced, got %q", richErr.Message)
	}
}

func TestNotificationsMarkRead(t *testing.T) {
	registry, _ := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/v1/notifications":
			if r.URL.Query().Get("unread") != "true" {
				t.Errorf("expected unread filter")
			}
			json.NewEncoder(w).Encode(map[string]any{
				"notifications": []map[string]any{
					{"id": "n-1", "type": "weather_alert", "title": "Heavy rain", "read": false},
				},
			})
		case r.URL.Path == "/api/v1/notifications/n-1/read" && r.Method == http.MethodPut:
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected route %s %s", r.Method, r.URL.Path)
		}
	})

	notifications, err := registry.Notifications().List(context.Background(), true)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(notifications) != 1 || notifications[0].Type != "weather_alert" {
		t.Fatalf("unexpected notifications: %+v", notifications)
	}
	if err := registry.Notifications().MarkRead(context.Background(), "n-1"); err != nil {
		t.Fatalf("mark read failed: %v", err)
	}
}

func TestTranslationSanitizesOutboundText(t *testing.T) {
	registry, _ := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		if text, _ := req["text"].(string); strings.Contains(text, "<script>") {
			t.Errorf("expected sanitized text, got %q", text)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"text":            "translated",
			"source_language": "hi",
			"target_language": "en",
		})
	})

	translation, err := registry.Translation().Translate(context.Background(), services.TranslateRequest{
		Text:   "<script>x</script>namaste",
		Target: "en",
	})
	if err != nil {
		t.Fatalf("translate failed: %v", err)
	}
	if translation.Text != "translated" {
		t.Fatalf("unexpected translation: %+v", translation)
	}
}

func TestKnowledgeSearch(t *testing.T) {
	registry, _ := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "drip irrigation" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"articles": []map[string]any{
				{"id": "a-1", "title": "Drip irrigation basics", "language": "en"},
			},
		})
	})

	articles, err := registry.Knowledge().Search(context.Background(), "drip irrigation", "en")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(articles) != 1 || articles[0].ID != "a-1" {
		t.Fatalf("unexpected articles: %+v", articles)
	}
}
