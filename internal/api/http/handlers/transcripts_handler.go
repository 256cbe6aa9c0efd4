package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-bot/internal/api/dto"
	"github.com/spec-kit/ticket-bot/internal/service"
)

// TranscriptsHandler exposes saved transcripts.
type TranscriptsHandler struct {
	service *service.TranscriptService
}

// NewTranscriptsHandler constructs handler.
func NewTranscriptsHandler(transcriptService *service.TranscriptService) *TranscriptsHandler {
	return &TranscriptsHandler{service: transcriptService}
}

// ListTranscripts GET /api/transcripts, newest first.
func (h *TranscriptsHandler) ListTranscripts(c *fiber.Ctx) error {
	channelID := c.Query("channel_id")
	index := h.service.Index()
	items := make([]dto.TranscriptSummary, 0, len(index))
	for i := len(index) - 1; i >= 0; i-- {
		entry := index[i]
		if channelID != "" && entry.ChannelID != channelID {
			continue
		}
		items = append(items, dto.TranscriptSummary{
			ID:           entry.ID,
			ChannelID:    entry.ChannelID,
			ChannelName:  entry.ChannelName,
			OwnerID:      entry.OwnerID,
			OwnerName:    entry.OwnerName,
			SavedBy:      entry.SavedBy,
			SavedAt:      entry.SavedAt,
			MessageCount: entry.MessageCount,
		})
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	return c.JSON(fiber.Map{
		"data": paginate(items, page, pageSize),
		"meta": fiber.Map{"total": len(items), "page": page, "page_size": pageSize},
	})
}

// GetTranscript GET /api/transcripts/:id.
func (h *TranscriptsHandler) GetTranscript(c *fiber.Ctx) error {
	record, err := h.service.Record(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": record})
}

// ListArchived GET /api/transcripts/archive?channel_id=.
func (h *TranscriptsHandler) ListArchived(c *fiber.Ctx) error {
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	rows, err := h.service.Archived(c.UserContext(), c.Query("channel_id"), pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.TranscriptSummary, 0, len(rows))
	for _, row := range rows {
		items = append(items, dto.TranscriptSummary{
			ID:           row.ID,
			ChannelID:    row.ChannelID,
			ChannelName:  row.ChannelName,
			OwnerID:      row.OwnerID,
			SavedBy:      row.SavedBy,
			SavedAt:      row.SavedAt,
			MessageCount: row.MessageCount,
		})
	}
	return c.JSON(fiber.Map{"data": items, "meta": fiber.Map{"page": page, "page_size": pageSize}})
}
