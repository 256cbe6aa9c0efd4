package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/store"
	"github.com/spec-kit/ticket-bot/pkg/util/errorutil"
)

// PanelService authors panels, categories and the server-wide ticket settings.
type PanelService struct {
	store    *store.Store
	platform platform.Platform
	logger   *zap.Logger
}

// PanelDependencies bundles collaborators for the panel service.
type PanelDependencies struct {
	Store    *store.Store
	Platform platform.Platform
	Logger   *zap.Logger
}

// PanelCreateInput describes a new panel. CategoryName names the seeded
// category and defaults to the normalized title.
type PanelCreateInput struct {
	Title        string
	Description  string
	ThumbnailURL string
	Footer       string
	CategoryName string
}

// SubPanelCreateInput describes a new category.
type SubPanelCreateInput struct {
	Name        string
	Title       string
	Description string
	Footer      string
	Emoji       string
}

// PanelEdit lists panel fields to change; nil fields are kept.
type PanelEdit struct {
	Title        *string
	Description  *string
	ThumbnailURL *string
	Footer       *string
}

// SubPanelEdit lists category fields to change; nil fields are kept.
type SubPanelEdit struct {
	Name              *string
	PanelTitle        *string
	PanelDescription  *string
	PanelEmoji        *string
	TicketTitle       *string
	TicketDescription *string
	TicketFooter      *string
	CloseButtonLabel  *string
	AIEnabled         *bool
	Permissions       *domain.PermissionSets
	AuthorizedRoles   *[]string
	AuthorizedUsers   *[]string
}

// NewPanelService constructs the service.
func NewPanelService(deps PanelDependencies) *PanelService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PanelService{
		store:    deps.Store,
		platform: deps.Platform,
		logger:   logger,
	}
}

// Panels returns every panel.
func (s *PanelService) Panels() []*domain.Panel {
	state := s.store.Snapshot()
	out := make([]*domain.Panel, 0, len(state.Panels))
	for _, panel := range state.Panels {
		out = append(out, panel)
	}
	sortPanels(out)
	return out
}

// Panel returns one panel.
func (s *PanelService) Panel(panelID string) (*domain.Panel, error) {
	panel, ok := s.store.Snapshot().Panels[panelID]
	if !ok {
		return nil, errorutil.NewNotFound("panel", map[string]any{"panel_id": panelID})
	}
	return panel, nil
}

// CreatePanel creates a panel seeded with category "1".
func (s *PanelService) CreatePanel(ctx context.Context, input PanelCreateInput) (*domain.Panel, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, errorutil.NewValidationError("panel title and description are required", nil)
	}
	name := domain.NormalizeName(input.CategoryName)
	if name == "" {
		name = domain.NormalizeName(title)
	}
	if name == "" {
		name = "ticket"
	}

	panel := &domain.Panel{
		ID:           uuid.NewString(),
		Title:        title,
		Description:  description,
		ThumbnailURL: strings.TrimSpace(input.ThumbnailURL),
		Footer:       strings.TrimSpace(input.Footer),
		DisplayType:  domain.DisplayButtons,
		SubPanels:    map[string]*domain.SubPanel{"1": domain.NewSubPanel("1", name, title)},
	}
	err := s.store.Update(ctx, func(state *store.State) error {
		state.Panels[panel.ID] = panel
		store.EnsureCounter(state, name)
		return nil
	})
	if failed(err) {
		return nil, err
	}
	s.logger.Info("panel created", zap.String("panel_id", panel.ID), zap.String("category", name))
	return panel, err
}

// DeletePanel removes a panel. Ticket channels opened from it are untouched.
func (s *PanelService) DeletePanel(ctx context.Context, panelID string) error {
	return s.store.Update(ctx, func(state *store.State) error {
		if _, ok := state.Panels[panelID]; !ok {
			return errorutil.NewNotFound("panel", map[string]any{"panel_id": panelID})
		}
		delete(state.Panels, panelID)
		return nil
	})
}

// EditPanel changes panel-level texts.
func (s *PanelService) EditPanel(ctx context.Context, panelID string, edit PanelEdit) (*domain.Panel, error) {
	var updated *domain.Panel
	err := s.store.Update(ctx, func(state *store.State) error {
		panel, ok := state.Panels[panelID]
		if !ok {
			return errorutil.NewNotFound("panel", map[string]any{"panel_id": panelID})
		}
		if edit.Title != nil {
			if strings.TrimSpace(*edit.Title) == "" {
				return errorutil.NewValidationError("panel title cannot be empty", nil)
			}
			panel.Title = strings.TrimSpace(*edit.Title)
		}
		if edit.Description != nil {
			if strings.TrimSpace(*edit.Description) == "" {
				return errorutil.NewValidationError("panel description cannot be empty", nil)
			}
			panel.Description = strings.TrimSpace(*edit.Description)
		}
		applyString(&panel.ThumbnailURL, edit.ThumbnailURL)
		applyString(&panel.Footer, edit.Footer)
		updated = panel
		return nil
	})
	if failed(err) {
		return nil, err
	}
	s.refreshPublished(ctx, panelID)
	return updated, err
}

// CreateSubPanel adds a category with the next free numeric id.
func (s *PanelService) CreateSubPanel(ctx context.Context, panelID string, input SubPanelCreateInput) (*domain.SubPanel, error) {
	name := domain.NormalizeName(input.Name)
	title := strings.TrimSpace(input.Title)
	if name == "" || title == "" {
		return nil, errorutil.NewValidationError("category name and title are required", nil)
	}

	var created *domain.SubPanel
	err := s.store.Update(ctx, func(state *store.State) error {
		panel, ok := state.Panels[panelID]
		if !ok {
			return errorutil.NewNotFound("panel", map[string]any{"panel_id": panelID})
		}
		if nameTaken(panel, name, "") {
			return errorutil.NewConflict("a category with this name already exists", map[string]any{"name": name})
		}
		sub := domain.NewSubPanel(panel.NextSubPanelID(), name, title)
		if d := strings.TrimSpace(input.Description); d != "" {
			sub.TicketDescription = d
			sub.PanelDescription = d
		}
		if f := strings.TrimSpace(input.Footer); f != "" {
			sub.TicketFooter = f
		}
		sub.PanelEmoji = strings.TrimSpace(input.Emoji)
		panel.SubPanels[sub.ID] = sub
		store.EnsureCounter(state, name)
		created = sub
		return nil
	})
	if failed(err) {
		return nil, err
	}
	s.refreshPublished(ctx, panelID)
	return created, err
}

// EditSubPanel changes a category. Renaming resets the counter of the new name
// to zero unless tracked tickets still use that name; channels opened under the
// old name keep it.
func (s *PanelService) EditSubPanel(ctx context.Context, panelID, subID string, edit SubPanelEdit) (*domain.SubPanel, error) {
	var updated *domain.SubPanel
	err := s.store.Update(ctx, func(state *store.State) error {
		panel, sub, ok := state.FindSubPanel(panelID, subID)
		if !ok {
			return errorutil.NewNotFound("category", map[string]any{"panel_id": panelID, "sub_panel_id": subID})
		}
		if edit.Name != nil {
			name := domain.NormalizeName(*edit.Name)
			if name == "" {
				return errorutil.NewValidationError("category name must contain letters or digits", nil)
			}
			if name != sub.Name {
				if nameTaken(panel, name, sub.ID) {
					return errorutil.NewConflict("a category with this name already exists", map[string]any{"name": name})
				}
				sub.Name = name
				// Numbering restarts unless live channels still use the name.
				if store.CategoryInUse(state, name) {
					store.EnsureCounter(state, name)
				} else {
					state.Counters[name] = 0
				}
			}
		}
		if edit.PanelTitle != nil && strings.TrimSpace(*edit.PanelTitle) == "" {
			return errorutil.NewValidationError("category title cannot be empty", nil)
		}
		applyString(&sub.PanelTitle, edit.PanelTitle)
		applyString(&sub.PanelDescription, edit.PanelDescription)
		applyString(&sub.PanelEmoji, edit.PanelEmoji)
		applyString(&sub.TicketTitle, edit.TicketTitle)
		applyString(&sub.TicketDescription, edit.TicketDescription)
		applyString(&sub.TicketFooter, edit.TicketFooter)
		applyString(&sub.CloseButtonLabel, edit.CloseButtonLabel)
		if edit.AIEnabled != nil {
			sub.AIEnabled = *edit.AIEnabled
		}
		if edit.Permissions != nil {
			sub.Permissions = edit.Permissions.Normalize()
		}
		if edit.AuthorizedRoles != nil {
			sub.AuthorizedRoles = append([]string(nil), (*edit.AuthorizedRoles)...)
		}
		if edit.AuthorizedUsers != nil {
			sub.AuthorizedUsers = append([]string(nil), (*edit.AuthorizedUsers)...)
		}
		updated = sub
		return nil
	})
	if failed(err) {
		return nil, err
	}
	s.refreshPublished(ctx, panelID)
	return updated, err
}

// DeleteSubPanel removes a category unless it is the panel's last one.
func (s *PanelService) DeleteSubPanel(ctx context.Context, panelID, subID string) error {
	err := s.store.Update(ctx, func(state *store.State) error {
		panel, _, ok := state.FindSubPanel(panelID, subID)
		if !ok {
			return errorutil.NewNotFound("category", map[string]any{"panel_id": panelID, "sub_panel_id": subID})
		}
		if len(panel.SubPanels) == 1 {
			return errorutil.NewValidationError("cannot delete the last category of a panel", map[string]any{"panel_id": panelID})
		}
		delete(panel.SubPanels, subID)
		return nil
	})
	if failed(err) {
		return err
	}
	s.refreshPublished(ctx, panelID)
	return err
}

// ToggleDisplayMode switches a panel between buttons and a selector.
func (s *PanelService) ToggleDisplayMode(ctx context.Context, panelID string) (domain.DisplayMode, error) {
	var mode domain.DisplayMode
	err := s.store.Update(ctx, func(state *store.State) error {
		panel, ok := state.Panels[panelID]
		if !ok {
			return errorutil.NewNotFound("panel", map[string]any{"panel_id": panelID})
		}
		if panel.DisplayType == domain.DisplayDropdown {
			panel.DisplayType = domain.DisplayButtons
		} else {
			panel.DisplayType = domain.DisplayDropdown
		}
		mode = panel.DisplayType
		return nil
	})
	if failed(err) {
		return "", err
	}
	s.refreshPublished(ctx, panelID)
	return mode, err
}

// ToggleVisibility hides or shows a category on published panels and reports
// whether it is now hidden.
func (s *PanelService) ToggleVisibility(ctx context.Context, panelID, subID string) (bool, error) {
	var hidden bool
	err := s.store.Update(ctx, func(state *store.State) error {
		_, sub, ok := state.FindSubPanel(panelID, subID)
		if !ok {
			return errorutil.NewNotFound("category", map[string]any{"panel_id": panelID, "sub_panel_id": subID})
		}
		sub.Hidden = !sub.Hidden
		hidden = sub.Hidden
		return nil
	})
	if failed(err) {
		return false, err
	}
	s.refreshPublished(ctx, panelID)
	return hidden, err
}

// AddStaffRole grants a role staff access to new tickets.
func (s *PanelService) AddStaffRole(ctx context.Context, roleID string) error {
	if strings.TrimSpace(roleID) == "" {
		return errorutil.NewValidationError("role is required", nil)
	}
	return s.store.Update(ctx, func(state *store.State) error {
		if state.IsStaffRole(roleID) {
			return errorutil.NewConflict("role is already a staff role", map[string]any{"role_id": roleID})
		}
		state.StaffRoles = append(state.StaffRoles, roleID)
		return nil
	})
}

// RemoveStaffRole revokes a staff role.
func (s *PanelService) RemoveStaffRole(ctx context.Context, roleID string) error {
	return s.store.Update(ctx, func(state *store.State) error {
		kept := state.StaffRoles[:0]
		for _, id := range state.StaffRoles {
			if id != roleID {
				kept = append(kept, id)
			}
		}
		if len(kept) == len(state.StaffRoles) {
			return errorutil.NewNotFound("staff role", map[string]any{"role_id": roleID})
		}
		state.StaffRoles = kept
		return nil
	})
}

// StaffRoles lists the configured staff roles.
func (s *PanelService) StaffRoles() []string {
	return s.store.Snapshot().StaffRoles
}

// SetAuditChannel selects the audit log channel; empty disables the log.
func (s *PanelService) SetAuditChannel(ctx context.Context, channelID string) error {
	return s.store.Update(ctx, func(state *store.State) error {
		state.Audit.ChannelID = strings.TrimSpace(channelID)
		return nil
	})
}

// SetAuditEvent enables or disables one audit event kind.
func (s *PanelService) SetAuditEvent(ctx context.Context, kind domain.EventKind, enabled bool) error {
	if !isEventKind(kind) {
		return errorutil.NewValidationError("unknown audit event", map[string]any{"event": kind})
	}
	return s.store.Update(ctx, func(state *store.State) error {
		state.Audit.Events[kind] = enabled
		return nil
	})
}

// ToggleAuditEvent flips one audit event kind and returns the new value.
func (s *PanelService) ToggleAuditEvent(ctx context.Context, kind domain.EventKind) (bool, error) {
	if !isEventKind(kind) {
		return false, errorutil.NewValidationError("unknown audit event", map[string]any{"event": kind})
	}
	var enabled bool
	err := s.store.Update(ctx, func(state *store.State) error {
		current, ok := state.Audit.Events[kind]
		enabled = ok && !current
		state.Audit.Events[kind] = enabled
		return nil
	})
	return enabled, err
}

// AuditConfig returns the audit settings.
func (s *PanelService) AuditConfig() domain.AuditConfig {
	return s.store.Snapshot().Audit
}

// PublishPanel renders a panel into channelID. An existing copy in that
// channel is edited in place; otherwise a new message is posted and recorded.
func (s *PanelService) PublishPanel(ctx context.Context, panelID, channelID string) (*domain.PublishedMessage, error) {
	panel, err := s.Panel(panelID)
	if err != nil {
		return nil, err
	}
	msg := PanelMessage(panel)

	for _, published := range panel.Published {
		if published.ChannelID != channelID {
			continue
		}
		err := s.platform.EditMessage(ctx, published.ChannelID, published.MessageID, msg)
		if err == nil {
			out := published
			return &out, nil
		}
		if !errors.Is(err, platform.ErrNotFound) {
			return nil, errorutil.NewPlatformError("edit panel message", err)
		}
	}

	sent, err := s.platform.SendMessage(ctx, channelID, msg)
	if err != nil {
		return nil, errorutil.NewPlatformError("send panel message", err)
	}
	record := domain.PublishedMessage{ChannelID: channelID, MessageID: sent.ID}
	err = s.store.Update(ctx, func(state *store.State) error {
		p, ok := state.Panels[panelID]
		if !ok {
			return errorutil.NewNotFound("panel", map[string]any{"panel_id": panelID})
		}
		kept := p.Published[:0]
		for _, existing := range p.Published {
			if existing.ChannelID != channelID {
				kept = append(kept, existing)
			}
		}
		p.Published = append(kept, record)
		return nil
	})
	if failed(err) {
		return nil, err
	}
	s.logger.Info("panel published", zap.String("panel_id", panelID), zap.String("channel_id", channelID))
	return &record, err
}

// refreshPublished re-renders every published copy of a panel. Failures are
// logged and never fail the edit that triggered them.
func (s *PanelService) refreshPublished(ctx context.Context, panelID string) {
	panel, ok := s.store.Snapshot().Panels[panelID]
	if !ok || s.platform == nil {
		return
	}
	msg := PanelMessage(panel)
	for _, published := range panel.Published {
		if err := s.platform.EditMessage(ctx, published.ChannelID, published.MessageID, msg); err != nil {
			s.logger.Warn("refresh published panel failed",
				zap.String("panel_id", panelID),
				zap.String("channel_id", published.ChannelID),
				zap.Error(err))
		}
	}
}

func applyString(target *string, value *string) {
	if value != nil {
		*target = strings.TrimSpace(*value)
	}
}

func nameTaken(panel *domain.Panel, name, exceptID string) bool {
	for id, sub := range panel.SubPanels {
		if id != exceptID && sub.Name == name {
			return true
		}
	}
	return false
}

func isEventKind(kind domain.EventKind) bool {
	for _, k := range domain.EventKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// failed reports whether err aborted a store update. A persistence error is
// not a failure here: the change is live in memory and is reported alongside
// the result.
func failed(err error) bool {
	return err != nil && !errorutil.IsCode(err, errorutil.CodePersistence)
}

func sortPanels(panels []*domain.Panel) {
	sort.Slice(panels, func(i, j int) bool {
		if panels[i].Title != panels[j].Title {
			return panels[i].Title < panels[j].Title
		}
		return panels[i].ID < panels[j].ID
	})
}
