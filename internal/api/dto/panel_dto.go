package dto

import "github.com/spec-kit/ticket-bot/internal/domain"

// CreatePanelRequest payload.
type CreatePanelRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	ThumbnailURL string `json:"thumbnail_url"`
	Footer       string `json:"footer"`
	CategoryName string `json:"category_name"`
}

// UpdatePanelRequest payload; omitted fields are kept.
type UpdatePanelRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	ThumbnailURL *string `json:"thumbnail_url"`
	Footer       *string `json:"footer"`
}

// CreateCategoryRequest payload.
type CreateCategoryRequest struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Footer      string `json:"footer"`
	Emoji       string `json:"emoji"`
}

// UpdateCategoryRequest payload; omitted fields are kept.
type UpdateCategoryRequest struct {
	Name              *string                `json:"name"`
	PanelTitle        *string                `json:"panel_title"`
	PanelDescription  *string                `json:"panel_description"`
	PanelEmoji        *string                `json:"panel_emoji"`
	TicketTitle       *string                `json:"ticket_title"`
	TicketDescription *string                `json:"ticket_description"`
	TicketFooter      *string                `json:"ticket_footer"`
	CloseButtonLabel  *string                `json:"close_button_label"`
	AIEnabled         *bool                  `json:"ai_enabled"`
	Permissions       *domain.PermissionSets `json:"permissions"`
	AuthorizedRoles   *[]string              `json:"authorized_roles"`
	AuthorizedUsers   *[]string              `json:"authorized_users"`
}

// PublishPanelRequest payload.
type PublishPanelRequest struct {
	ChannelID string `json:"channel_id"`
}

// StaffRoleRequest payload.
type StaffRoleRequest struct {
	RoleID string `json:"role_id"`
}

// AuditSettingsRequest payload; omitted fields are kept.
type AuditSettingsRequest struct {
	ChannelID *string                   `json:"channel_id"`
	Events    map[domain.EventKind]bool `json:"events"`
}
