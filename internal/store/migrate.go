package store

import (
	"encoding/json"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

// Keys a flat panel carried before categories were nested under sub_panels.
var legacyPanelKeys = []string{"name", "permissions", "ai_enabled"}

// Migrate upgrades legacy flat panels into the nested form and fills missing
// defaults. It reports whether anything changed; a second call on its own
// output is a no-op.
func Migrate(state *State) bool {
	changed := false
	for key, panel := range state.Panels {
		if panel == nil {
			delete(state.Panels, key)
			changed = true
			continue
		}
		if panel.ID == "" {
			panel.ID = key
			changed = true
		}
		if len(panel.SubPanels) == 0 {
			sub := legacySubPanel(panel)
			panel.SubPanels = map[string]*domain.SubPanel{sub.ID: sub}
			changed = true
		}
		for _, legacyKey := range legacyPanelKeys {
			if _, ok := panel.Extra[legacyKey]; ok {
				delete(panel.Extra, legacyKey)
				changed = true
			}
		}
		if len(panel.Extra) == 0 && panel.Extra != nil {
			panel.Extra = nil
		}
		if panel.DisplayType == "" {
			panel.DisplayType = domain.DisplayButtons
			changed = true
		}
		for subKey, sub := range panel.SubPanels {
			if sub == nil {
				delete(panel.SubPanels, subKey)
				changed = true
				continue
			}
			if migrateSubPanel(subKey, sub) {
				changed = true
			}
			if _, ok := state.Counters[sub.Name]; !ok {
				EnsureCounter(state, sub.Name)
				changed = true
			}
		}
	}
	return changed
}

func migrateSubPanel(key string, sub *domain.SubPanel) bool {
	changed := false
	if sub.ID == "" {
		sub.ID = key
		changed = true
	}
	if !exactVocabulary(sub.Permissions.Owner) || !exactVocabulary(sub.Permissions.Staff) ||
		!exactVocabulary(sub.Permissions.Authorized) {
		sub.Permissions = sub.Permissions.Normalize()
		changed = true
	}
	if sub.CloseButtonLabel == "" {
		sub.CloseButtonLabel = domain.DefaultCloseButtonLabel
		changed = true
	}
	if sub.TicketDescription == "" {
		sub.TicketDescription = domain.DefaultTicketDescription
		changed = true
	}
	if sub.TicketFooter == "" {
		sub.TicketFooter = domain.DefaultTicketFooter
		changed = true
	}
	return changed
}

// legacySubPanel lifts the flat attributes of panel into sub-panel "1".
func legacySubPanel(panel *domain.Panel) *domain.SubPanel {
	var name string
	if raw, ok := panel.Extra["name"]; ok {
		_ = json.Unmarshal(raw, &name)
	}
	name = domain.NormalizeName(name)
	if name == "" {
		name = domain.NormalizeName(panel.Title)
	}
	if name == "" {
		name = "ticket"
	}

	sub := domain.NewSubPanel("1", name, panel.Title)
	if panel.Description != "" {
		sub.PanelDescription = panel.Description
		sub.TicketDescription = panel.Description
	}
	if raw, ok := panel.Extra["permissions"]; ok {
		var sets domain.PermissionSets
		if err := json.Unmarshal(raw, &sets); err == nil {
			sub.Permissions = sets.Normalize()
		}
	}
	if raw, ok := panel.Extra["ai_enabled"]; ok {
		_ = json.Unmarshal(raw, &sub.AIEnabled)
	}
	return sub
}

func exactVocabulary(set domain.PermissionSet) bool {
	return set.Complete() && len(set) == len(domain.Capabilities)
}
