package services

import (
	"github.com/agrisetu/go-agriclient/core"
)

// Registry bundles every service over one shared client.
type Registry struct {
	chat          *ChatService
	vision        *VisionService
	weather       *WeatherService
	market        *MarketService
	schemes       *SchemesService
	notifications *NotificationsService
	translation   *TranslationService
	knowledge     *KnowledgeService
}

func NewRegistry(client *core.Client) *Registry {
	return &Registry{
		chat:          NewChatService(client),
		vision:        NewVisionService(client),
		weather:       NewWeatherService(client),
		market:        NewMarketService(client),
		schemes:       NewSchemesService(client),
		notifications: NewNotificationsService(client),
		translation:   NewTranslationService(client),
		knowledge:     NewKnowledgeService(client),
	}
}

func (r *Registry) Chat() *ChatService {
	if r == nil {
		return nil
	}
	return r.chat
}

func (r *Registry) Vision() *VisionService {
	if r == nil {
		return nil
	}
	return r.vision
}

func (r *Registry) Weather() *WeatherService {
	if r == nil {
		return nil
	}
	return r.weather
}

func (r *Registry) Market() *MarketService {
	if r == nil {
		return nil
	}
	return r.market
}

func (r *Registry) Schemes() *SchemesService {
	if r == nil {
		return nil
	}
	return r.schemes
}

func (r *Registry) Notifications() *NotificationsService {
	if r == nil {
		return nil
	}
	return r.notifications
}

func (r *Registry) Translation() *TranslationService {
	if r == nil {
		return nil
	}
	return r.translation
}

func (r *Registry) Knowledge() *KnowledgeService {
	if r == nil {
		return nil
	}
	return r.knowledge
}
