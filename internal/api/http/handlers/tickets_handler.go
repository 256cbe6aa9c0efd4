package handlers

import (
	"sort"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-bot/internal/api/dto"
	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/service"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util/errorutil"
)

// TicketsHandler exposes the tracked ticket channels.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// ListTickets GET /api/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	query := parseTicketQuery(c)
	items := make([]dto.TicketSummary, 0)
	for channelID, record := range h.service.Statuses() {
		if query.Status != "" && record.Status != query.Status {
			continue
		}
		if query.Category != "" && record.TicketType != query.Category {
			continue
		}
		items = append(items, ticketSummary(channelID, record))
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ChannelID < items[j].ChannelID
	})
	total := len(items)
	return c.JSON(fiber.Map{
		"data": paginate(items, query.Page, query.PageSize),
		"meta": fiber.Map{"total": total, "page": query.Page, "page_size": query.PageSize},
	})
}

// GetTicket GET /api/tickets/:channelID.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	channelID := c.Params("channelID")
	record, ok := h.service.Statuses()[channelID]
	if !ok {
		return apperrors.NewNotFound("ticket", map[string]any{"channel_id": channelID})
	}
	return c.JSON(fiber.Map{"data": ticketSummary(channelID, record)})
}

func ticketSummary(channelID string, record *domain.TicketRecord) dto.TicketSummary {
	name := record.OriginalName
	if record.Status == domain.TicketStatusClosed {
		name = "closed-" + name
	}
	return dto.TicketSummary{
		ChannelID:       channelID,
		Name:            name,
		Status:          record.Status,
		Category:        record.TicketType,
		CreatedBy:       record.CreatedBy,
		CreatedAt:       record.CreatedAt,
		TranscriptSaved: record.TranscriptSaved,
		PanelID:         record.PanelID,
		SubPanelID:      record.SubPanelID,
	}
}

func parseTicketQuery(c *fiber.Ctx) dto.TicketListQuery {
	return dto.TicketListQuery{
		Status:   domain.TicketStatus(c.Query("status")),
		Category: c.Query("category"),
		Page:     parseInt(c.Query("page"), 1),
		PageSize: parseInt(c.Query("page_size"), 20),
	}
}

func paginate[T any](items []T, page, pageSize int) []T {
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
