package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-bot/internal/api/dto"
	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/service"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util/errorutil"
)

// PanelBinder keeps published panel controls dispatchable.
type PanelBinder interface {
	BindPanel(panel *domain.Panel)
	UnbindPanel(panelID string)
}

// PanelsHandler exposes panel management.
type PanelsHandler struct {
	panels *service.PanelService
	binder PanelBinder
}

// NewPanelsHandler constructs handler. binder may be nil when no gateway runs.
func NewPanelsHandler(panelService *service.PanelService, binder PanelBinder) *PanelsHandler {
	return &PanelsHandler{panels: panelService, binder: binder}
}

// respond writes data unless err is fatal. A persistence error still returns
// the applied change with a warning.
func respond(c *fiber.Ctx, status int, data any, err error) error {
	if err == nil {
		return c.Status(status).JSON(fiber.Map{"data": data})
	}
	if !apperrors.IsCode(err, apperrors.CodePersistence) {
		return err
	}
	return c.Status(status).JSON(fiber.Map{"data": data, "warning": apperrors.ToDomainError(err).Message})
}

// ListPanels GET /api/panels.
func (h *PanelsHandler) ListPanels(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.panels.Panels()})
}

// GetPanel GET /api/panels/:panelID.
func (h *PanelsHandler) GetPanel(c *fiber.Ctx) error {
	panel, err := h.panels.Panel(c.Params("panelID"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": panel})
}

// CreatePanel POST /api/panels.
func (h *PanelsHandler) CreatePanel(c *fiber.Ctx) error {
	var req dto.CreatePanelRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	panel, err := h.panels.CreatePanel(c.UserContext(), service.PanelCreateInput{
		Title:        req.Title,
		Description:  req.Description,
		ThumbnailURL: req.ThumbnailURL,
		Footer:       req.Footer,
		CategoryName: req.CategoryName,
	})
	if panel == nil {
		return err
	}
	if h.binder != nil {
		h.binder.BindPanel(panel)
	}
	return respond(c, http.StatusCreated, panel, err)
}

// UpdatePanel PATCH /api/panels/:panelID.
func (h *PanelsHandler) UpdatePanel(c *fiber.Ctx) error {
	var req dto.UpdatePanelRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	panel, err := h.panels.EditPanel(c.UserContext(), c.Params("panelID"), service.PanelEdit{
		Title:        req.Title,
		Description:  req.Description,
		ThumbnailURL: req.ThumbnailURL,
		Footer:       req.Footer,
	})
	if panel == nil {
		return err
	}
	return respond(c, http.StatusOK, panel, err)
}

// DeletePanel DELETE /api/panels/:panelID.
func (h *PanelsHandler) DeletePanel(c *fiber.Ctx) error {
	panelID := c.Params("panelID")
	err := h.panels.DeletePanel(c.UserContext(), panelID)
	if err != nil && !apperrors.IsCode(err, apperrors.CodePersistence) {
		return err
	}
	if h.binder != nil {
		h.binder.UnbindPanel(panelID)
	}
	return respond(c, http.StatusOK, fiber.Map{"id": panelID}, err)
}

// CreateCategory POST /api/panels/:panelID/categories.
func (h *PanelsHandler) CreateCategory(c *fiber.Ctx) error {
	var req dto.CreateCategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	sub, err := h.panels.CreateSubPanel(c.UserContext(), c.Params("panelID"), service.SubPanelCreateInput{
		Name:        req.Name,
		Title:       req.Title,
		Description: req.Description,
		Footer:      req.Footer,
		Emoji:       req.Emoji,
	})
	if sub == nil {
		return err
	}
	return respond(c, http.StatusCreated, sub, err)
}

// UpdateCategory PATCH /api/panels/:panelID/categories/:categoryID.
func (h *PanelsHandler) UpdateCategory(c *fiber.Ctx) error {
	var req dto.UpdateCategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	sub, err := h.panels.EditSubPanel(c.UserContext(), c.Params("panelID"), c.Params("categoryID"), service.SubPanelEdit{
		Name:              req.Name,
		PanelTitle:        req.PanelTitle,
		PanelDescription:  req.PanelDescription,
		PanelEmoji:        req.PanelEmoji,
		TicketTitle:       req.TicketTitle,
		TicketDescription: req.TicketDescription,
		TicketFooter:      req.TicketFooter,
		CloseButtonLabel:  req.CloseButtonLabel,
		AIEnabled:         req.AIEnabled,
		Permissions:       req.Permissions,
		AuthorizedRoles:   req.AuthorizedRoles,
		AuthorizedUsers:   req.AuthorizedUsers,
	})
	if sub == nil {
		return err
	}
	return respond(c, http.StatusOK, sub, err)
}

// DeleteCategory DELETE /api/panels/:panelID/categories/:categoryID.
func (h *PanelsHandler) DeleteCategory(c *fiber.Ctx) error {
	err := h.panels.DeleteSubPanel(c.UserContext(), c.Params("panelID"), c.Params("categoryID"))
	if err != nil && !apperrors.IsCode(err, apperrors.CodePersistence) {
		return err
	}
	return respond(c, http.StatusOK, fiber.Map{"id": c.Params("categoryID")}, err)
}

// ToggleDisplay POST /api/panels/:panelID/display.
func (h *PanelsHandler) ToggleDisplay(c *fiber.Ctx) error {
	mode, err := h.panels.ToggleDisplayMode(c.UserContext(), c.Params("panelID"))
	if mode == "" {
		return err
	}
	return respond(c, http.StatusOK, fiber.Map{"display_type": mode}, err)
}

// ToggleVisibility POST /api/panels/:panelID/categories/:categoryID/visibility.
func (h *PanelsHandler) ToggleVisibility(c *fiber.Ctx) error {
	hidden, err := h.panels.ToggleVisibility(c.UserContext(), c.Params("panelID"), c.Params("categoryID"))
	if err != nil && !apperrors.IsCode(err, apperrors.CodePersistence) {
		return err
	}
	return respond(c, http.StatusOK, fiber.Map{"hidden": hidden}, err)
}

// PublishPanel POST /api/panels/:panelID/publish.
func (h *PanelsHandler) PublishPanel(c *fiber.Ctx) error {
	var req dto.PublishPanelRequest
	if err := c.BodyParser(&req); err != nil || req.ChannelID == "" {
		return apperrors.NewValidationError("channel_id required", nil)
	}
	published, err := h.panels.PublishPanel(c.UserContext(), c.Params("panelID"), req.ChannelID)
	if published == nil {
		return err
	}
	return respond(c, http.StatusOK, published, err)
}

// ListStaffRoles GET /api/staff-roles.
func (h *PanelsHandler) ListStaffRoles(c *fiber.Ctx) error {
	roles := h.panels.StaffRoles()
	if roles == nil {
		roles = []string{}
	}
	return c.JSON(fiber.Map{"data": roles})
}

// AddStaffRole POST /api/staff-roles.
func (h *PanelsHandler) AddStaffRole(c *fiber.Ctx) error {
	var req dto.StaffRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	err := h.panels.AddStaffRole(c.UserContext(), req.RoleID)
	if err != nil && !apperrors.IsCode(err, apperrors.CodePersistence) {
		return err
	}
	return respond(c, http.StatusCreated, fiber.Map{"role_id": req.RoleID}, err)
}

// RemoveStaffRole DELETE /api/staff-roles/:roleID.
func (h *PanelsHandler) RemoveStaffRole(c *fiber.Ctx) error {
	err := h.panels.RemoveStaffRole(c.UserContext(), c.Params("roleID"))
	if err != nil && !apperrors.IsCode(err, apperrors.CodePersistence) {
		return err
	}
	return respond(c, http.StatusOK, fiber.Map{"role_id": c.Params("roleID")}, err)
}

// GetAudit GET /api/audit.
func (h *PanelsHandler) GetAudit(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.panels.AuditConfig()})
}

// UpdateAudit PUT /api/audit.
func (h *PanelsHandler) UpdateAudit(c *fiber.Ctx) error {
	var req dto.AuditSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	var pending error
	if req.ChannelID != nil {
		if err := h.panels.SetAuditChannel(c.UserContext(), *req.ChannelID); err != nil {
			if !apperrors.IsCode(err, apperrors.CodePersistence) {
				return err
			}
			pending = err
		}
	}
	for kind, enabled := range req.Events {
		if err := h.panels.SetAuditEvent(c.UserContext(), kind, enabled); err != nil {
			if !apperrors.IsCode(err, apperrors.CodePersistence) {
				return err
			}
			pending = err
		}
	}
	return respond(c, http.StatusOK, h.panels.AuditConfig(), pending)
}
