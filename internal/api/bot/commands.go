package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/service"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util/errorutil"
)

const (
	ticketCommand = "ticket"
	panelCommand  = "ticketpanel"
)

// category fields editable through /ticketpanel edit-category.
var categoryFields = []string{
	"name", "panel-title", "panel-description", "panel-emoji",
	"ticket-title", "ticket-description", "ticket-footer", "close-label", "ai-enabled",
}

func panelOption() platform.CommandOption {
	return platform.CommandOption{Name: "panel", Description: "Panel id (see /ticketpanel list)", Kind: platform.OptionString, Required: true}
}

func categoryOption() platform.CommandOption {
	return platform.CommandOption{Name: "category", Description: "Category id", Kind: platform.OptionString, Required: true}
}

// Commands describes the slash commands to register.
func Commands() []platform.Command {
	eventChoices := make([]string, 0, len(domain.EventKinds))
	for _, kind := range domain.EventKinds {
		eventChoices = append(eventChoices, string(kind))
	}
	return []platform.Command{
		{
			Name:        ticketCommand,
			Description: "Manage the current ticket",
			Subcommands: []platform.Subcommand{
				{Name: "close", Description: "Close this ticket"},
				{Name: "reopen", Description: "Reopen this closed ticket"},
				{Name: "delete", Description: "Delete this ticket"},
				{Name: "claim", Description: "Claim this ticket"},
				{Name: "transcript", Description: "Save a transcript of this ticket"},
			},
		},
		{
			Name:        panelCommand,
			Description: "Manage ticket panels",
			ManageOnly:  true,
			Subcommands: []platform.Subcommand{
				{Name: "list", Description: "List panels and their categories"},
				{Name: "create", Description: "Create a panel", Options: []platform.CommandOption{
					{Name: "title", Description: "Panel title", Kind: platform.OptionString, Required: true},
					{Name: "description", Description: "Panel description", Kind: platform.OptionString, Required: true},
					{Name: "category", Description: "Name of the first category", Kind: platform.OptionString},
				}},
				{Name: "delete", Description: "Delete a panel", Options: []platform.CommandOption{panelOption()}},
				{Name: "add-category", Description: "Add a category to a panel", Options: []platform.CommandOption{
					panelOption(),
					{Name: "name", Description: "Category name used for channel names", Kind: platform.OptionString, Required: true},
					{Name: "title", Description: "Title shown on the panel and the ticket", Kind: platform.OptionString, Required: true},
					{Name: "description", Description: "Description", Kind: platform.OptionString},
					{Name: "emoji", Description: "Emoji", Kind: platform.OptionString},
				}},
				{Name: "edit-category", Description: "Edit a category", Options: []platform.CommandOption{
					panelOption(),
					categoryOption(),
					{Name: "field", Description: "Field to change", Kind: platform.OptionString, Required: true, Choices: categoryFields},
					{Name: "value", Description: "New value", Kind: platform.OptionString, Required: true},
				}},
				{Name: "remove-category", Description: "Remove a category", Options: []platform.CommandOption{panelOption(), categoryOption()}},
				{Name: "display", Description: "Switch between buttons and a selector", Options: []platform.CommandOption{panelOption()}},
				{Name: "visibility", Description: "Hide or show a category", Options: []platform.CommandOption{panelOption(), categoryOption()}},
				{Name: "publish", Description: "Post the panel into a channel", Options: []platform.CommandOption{
					panelOption(),
					{Name: "channel", Description: "Target channel", Kind: platform.OptionChannel, Required: true},
				}},
				{Name: "staff-add", Description: "Grant a role staff access", Options: []platform.CommandOption{
					{Name: "role", Description: "Staff role", Kind: platform.OptionRole, Required: true},
				}},
				{Name: "staff-remove", Description: "Revoke a role's staff access", Options: []platform.CommandOption{
					{Name: "role", Description: "Staff role", Kind: platform.OptionRole, Required: true},
				}},
				{Name: "log-channel", Description: "Set the audit log channel", Options: []platform.CommandOption{
					{Name: "channel", Description: "Audit channel", Kind: platform.OptionChannel, Required: true},
				}},
				{Name: "log-toggle", Description: "Enable or disable an audit event", Options: []platform.CommandOption{
					{Name: "event", Description: "Event kind", Kind: platform.OptionString, Required: true, Choices: eventChoices},
				}},
			},
		},
	}
}

// RegisterCommands attaches the command handlers to router.
func (b *Binder) RegisterCommands() {
	b.router.Command(ticketCommand, b.ticketCommand)
	b.router.Command(panelCommand, b.panelCommand)
}

func (b *Binder) ticketCommand(ctx context.Context, in *platform.Interaction, r platform.Responder) error {
	switch in.Subcommand {
	case "close":
		return b.lifecycle("✅ Ticket closed.", b.tickets.Close)(ctx, in, r)
	case "reopen":
		return b.lifecycle("✅ Ticket reopened.", b.tickets.Reopen)(ctx, in, r)
	case "delete":
		return b.lifecycle("✅ Ticket deleted.", b.tickets.Delete)(ctx, in, r)
	case "claim":
		return b.lifecycle("✅ Ticket claimed.", b.tickets.Claim)(ctx, in, r)
	case "transcript":
		return b.saveTranscript(ctx, in, r)
	}
	return apperrors.NewNotFound("subcommand", map[string]any{"subcommand": in.Subcommand})
}

func (b *Binder) panelCommand(ctx context.Context, in *platform.Interaction, r platform.Responder) error {
	if !in.CanManageServer {
		return apperrors.NewForbidden("you need the Manage Server permission to manage ticket panels")
	}
	reply, err := b.runPanelCommand(ctx, in)
	if reply == "" {
		return err
	}
	if replyErr := r.Reply(ctx, reply, true); replyErr != nil {
		b.logger.Warn("reply to interaction failed", zap.Error(replyErr))
	}
	return err
}

// runPanelCommand returns the confirmation text. A persistence error may come
// with a confirmation since the change is applied in memory.
func (b *Binder) runPanelCommand(ctx context.Context, in *platform.Interaction) (string, error) {
	panelID := in.Option("panel")
	categoryID := in.Option("category")

	switch in.Subcommand {
	case "list":
		return listPanels(b.panels.Panels()), nil

	case "create":
		panel, err := b.panels.CreatePanel(ctx, service.PanelCreateInput{
			Title:        in.Option("title"),
			Description:  in.Option("description"),
			CategoryName: in.Option("category"),
		})
		if panel == nil {
			return "", err
		}
		b.BindPanel(panel)
		return fmt.Sprintf("✅ Panel **%s** created with id `%s`.", panel.Title, panel.ID), err

	case "delete":
		err := b.panels.DeletePanel(ctx, panelID)
		if !applied(err) {
			return "", err
		}
		b.UnbindPanel(panelID)
		return "🗑️ Panel deleted. Existing tickets are untouched.", err

	case "add-category":
		sub, err := b.panels.CreateSubPanel(ctx, panelID, service.SubPanelCreateInput{
			Name:        in.Option("name"),
			Title:       in.Option("title"),
			Description: in.Option("description"),
			Emoji:       in.Option("emoji"),
		})
		if sub == nil {
			return "", err
		}
		return fmt.Sprintf("✅ Category **%s** added with id `%s`.", sub.Name, sub.ID), err

	case "edit-category":
		edit, err := categoryEdit(in.Option("field"), in.Option("value"))
		if err != nil {
			return "", err
		}
		sub, err := b.panels.EditSubPanel(ctx, panelID, categoryID, edit)
		if sub == nil {
			return "", err
		}
		return fmt.Sprintf("✅ Category `%s` updated.", sub.ID), err

	case "remove-category":
		err := b.panels.DeleteSubPanel(ctx, panelID, categoryID)
		if !applied(err) {
			return "", err
		}
		return "🗑️ Category removed.", err

	case "display":
		mode, err := b.panels.ToggleDisplayMode(ctx, panelID)
		if mode == "" {
			return "", err
		}
		return fmt.Sprintf("✅ Panel now uses **%s**.", mode), err

	case "visibility":
		hidden, err := b.panels.ToggleVisibility(ctx, panelID, categoryID)
		if !applied(err) {
			return "", err
		}
		if hidden {
			return "🙈 Category hidden.", err
		}
		return "👀 Category visible.", err

	case "publish":
		published, err := b.panels.PublishPanel(ctx, panelID, in.Option("channel"))
		if published == nil {
			return "", err
		}
		return fmt.Sprintf("📌 Panel published in <#%s>.", published.ChannelID), err

	case "staff-add":
		err := b.panels.AddStaffRole(ctx, in.Option("role"))
		if !applied(err) {
			return "", err
		}
		return fmt.Sprintf("✅ <@&%s> is now a staff role.", in.Option("role")), err

	case "staff-remove":
		err := b.panels.RemoveStaffRole(ctx, in.Option("role"))
		if !applied(err) {
			return "", err
		}
		return fmt.Sprintf("✅ <@&%s> is no longer a staff role.", in.Option("role")), err

	case "log-channel":
		err := b.panels.SetAuditChannel(ctx, in.Option("channel"))
		if !applied(err) {
			return "", err
		}
		return fmt.Sprintf("✅ Audit entries go to <#%s>.", in.Option("channel")), err

	case "log-toggle":
		kind := domain.EventKind(in.Option("event"))
		enabled, err := b.panels.ToggleAuditEvent(ctx, kind)
		if !applied(err) {
			return "", err
		}
		state := "disabled"
		if enabled {
			state = "enabled"
		}
		return fmt.Sprintf("✅ Audit event `%s` %s.", kind, state), err
	}
	return "", apperrors.NewNotFound("subcommand", map[string]any{"subcommand": in.Subcommand})
}

// applied reports whether a change took effect, possibly without being saved.
func applied(err error) bool {
	return err == nil || apperrors.IsCode(err, apperrors.CodePersistence)
}

func categoryEdit(field, value string) (service.SubPanelEdit, error) {
	var edit service.SubPanelEdit
	switch field {
	case "name":
		edit.Name = &value
	case "panel-title":
		edit.PanelTitle = &value
	case "panel-description":
		edit.PanelDescription = &value
	case "panel-emoji":
		edit.PanelEmoji = &value
	case "ticket-title":
		edit.TicketTitle = &value
	case "ticket-description":
		edit.TicketDescription = &value
	case "ticket-footer":
		edit.TicketFooter = &value
	case "close-label":
		edit.CloseButtonLabel = &value
	case "ai-enabled":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return edit, apperrors.NewValidationError("ai-enabled expects true or false", nil)
		}
		edit.AIEnabled = &enabled
	default:
		return edit, apperrors.NewValidationError("unknown category field", map[string]any{"field": field})
	}
	return edit, nil
}

func listPanels(panels []*domain.Panel) string {
	if len(panels) == 0 {
		return "No panels yet. Create one with `/ticketpanel create`."
	}
	var sb strings.Builder
	for _, panel := range panels {
		fmt.Fprintf(&sb, "**%s** `%s` (%s)\n", panel.Title, panel.ID, panel.DisplayType)
		for _, sub := range panel.OrderedSubPanels() {
			hidden := ""
			if sub.Hidden {
				hidden = " (hidden)"
			}
			fmt.Fprintf(&sb, "  `%s` %s: %s%s\n", sub.ID, sub.Name, sub.PanelTitle, hidden)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
