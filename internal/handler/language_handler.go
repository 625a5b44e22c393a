package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/prepcode-api/internal/dto"
	"github.com/noah-isme/prepcode-api/internal/judge"
	"github.com/noah-isme/prepcode-api/internal/utils"
)

// LanguageHandler lists the languages submissions may use.
type LanguageHandler struct {
	languages []dto.LanguageResponse
}

// NewLanguageHandler snapshots the registry; it is immutable after construction.
func NewLanguageHandler(registry *judge.Registry) *LanguageHandler {
	entries := registry.Languages()
	languages := make([]dto.LanguageResponse, 0, len(entries))
	for _, lang := range entries {
		languages = append(languages, dto.LanguageResponse{Key: lang.Key, Name: lang.Name})
	}
	return &LanguageHandler{languages: languages}
}

// Register wires the handler endpoints into the router group.
func (h *LanguageHandler) Register(router fiber.Router) {
	router.Get("", h.list)
}

func (h *LanguageHandler) list(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "languages retrieved", h.languages)
}
