package handler

import (
	"github.com/d60-Lab/microblog/config"
	"github.com/d60-Lab/microblog/internal/service"
)

// Handler bundles the services behind the HTTP surface.
type Handler struct {
	cfg       *config.Config
	identity  service.IdentityService
	relations service.RelationshipService
	timeline  service.TimelineService
	publisher *service.Publisher
}

func New(cfg *config.Config, identity service.IdentityService, relations service.RelationshipService, timeline service.TimelineService, publisher *service.Publisher) *Handler {
	return &Handler{
		cfg:       cfg,
		identity:  identity,
		relations: relations,
		timeline:  timeline,
		publisher: publisher,
	}
}
