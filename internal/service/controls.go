package service

import (
	"fmt"
	"strings"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/platform"
)

// Stable control identifiers. They survive restarts, so never rename them.
const (
	CloseTicketControl    = "persistent_close_ticket_btn"
	ReopenTicketControl   = "persistent_reopen_ticket"
	DeleteTicketControl   = "persistent_delete_ticket"
	TranscriptControl     = "persistent_save_transcript"
	panelButtonPrefix     = "persistent_panel_btn:"
	panelSelectPrefix     = "persistent_panel_select:"
	maxButtonsPerRow      = 5
	maxComponentRows      = 5
	maxSelectOptions      = 25
	defaultSelectHeadline = "Select a ticket category"
)

// Embed colours.
const (
	colorPanel  = 0x5865F2
	colorTicket = 0x57F287
	colorClosed = 0xED4245
)

// PanelButtonID is the control id of a category button on a published panel.
func PanelButtonID(panelID, subID string) string {
	return panelButtonPrefix + panelID + ":" + subID
}

// PanelSelectID is the control id of a published panel's selector.
func PanelSelectID(panelID string) string {
	return panelSelectPrefix + panelID
}

// ParsePanelButtonID splits a category button id.
func ParsePanelButtonID(customID string) (panelID, subID string, ok bool) {
	rest, found := strings.CutPrefix(customID, panelButtonPrefix)
	if !found {
		return "", "", false
	}
	panelID, subID, ok = strings.Cut(rest, ":")
	return panelID, subID, ok && panelID != "" && subID != ""
}

// ParsePanelSelectID extracts the panel id from a selector id.
func ParsePanelSelectID(customID string) (string, bool) {
	panelID, found := strings.CutPrefix(customID, panelSelectPrefix)
	return panelID, found && panelID != ""
}

// TicketControlRow holds the close control shown on open tickets.
func TicketControlRow(label string) platform.ActionRow {
	if strings.TrimSpace(label) == "" {
		label = domain.DefaultCloseButtonLabel
	}
	return platform.ActionRow{Buttons: []platform.Button{
		{CustomID: CloseTicketControl, Label: label, Style: platform.ButtonDanger, Emoji: "🔒"},
	}}
}

// ClosedControlRow holds the controls shown on closed tickets.
func ClosedControlRow() platform.ActionRow {
	return platform.ActionRow{Buttons: []platform.Button{
		{CustomID: ReopenTicketControl, Label: "Reopen", Style: platform.ButtonSuccess, Emoji: "🔓"},
		{CustomID: DeleteTicketControl, Label: "Delete", Style: platform.ButtonDanger, Emoji: "🗑️"},
		{CustomID: TranscriptControl, Label: "Save Transcript", Style: platform.ButtonSecondary, Emoji: "📄"},
	}}
}

// PanelMessage renders a panel for publishing.
func PanelMessage(panel *domain.Panel) platform.OutgoingMessage {
	footer := panel.Footer
	if footer == "" {
		footer = domain.DefaultPanelFooter
	}
	msg := platform.OutgoingMessage{
		Embeds: []platform.Embed{{
			Title:        panel.Title,
			Description:  panel.Description,
			Footer:       footer,
			Color:        colorPanel,
			ThumbnailURL: panel.ThumbnailURL,
		}},
	}

	visible := panel.VisibleSubPanels()
	if len(visible) == 0 {
		return msg
	}

	if panel.DisplayType == domain.DisplayDropdown {
		menu := &platform.Select{CustomID: PanelSelectID(panel.ID), Placeholder: defaultSelectHeadline}
		for _, sub := range visible {
			if len(menu.Options) == maxSelectOptions {
				break
			}
			menu.Options = append(menu.Options, platform.SelectOption{
				Label:       sub.PanelTitle,
				Value:       sub.ID,
				Description: truncate(sub.PanelDescription, 100),
				Emoji:       sub.PanelEmoji,
			})
		}
		msg.Components = []platform.ActionRow{{Select: menu}}
		return msg
	}

	var row platform.ActionRow
	for _, sub := range visible {
		if len(row.Buttons) == maxButtonsPerRow {
			msg.Components = append(msg.Components, row)
			row = platform.ActionRow{}
			if len(msg.Components) == maxComponentRows {
				return msg
			}
		}
		row.Buttons = append(row.Buttons, platform.Button{
			CustomID: PanelButtonID(panel.ID, sub.ID),
			Label:    sub.PanelTitle,
			Style:    platform.ButtonPrimary,
			Emoji:    sub.PanelEmoji,
		})
	}
	msg.Components = append(msg.Components, row)
	return msg
}

// TicketName formats an open ticket channel name.
func TicketName(category string, seq int) string {
	return fmt.Sprintf("%s-%04d", category, seq)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
