package service

import (
	"fmt"
	"testing"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

func TestCreatePanelValidation(t *testing.T) {
	h := newHarness(t)

	if _, err := h.panels.CreatePanel(h.ctx, PanelCreateInput{Title: "Billing"}); errorCode(err) != "VALIDATION_FAILED" {
		t.Errorf("expected validation error for missing description, got %v", err)
	}
	panel, err := h.panels.CreatePanel(h.ctx, PanelCreateInput{Title: "Billing & Refunds", Description: "Money questions"})
	h.must(err)
	if got := panel.SubPanels["1"].Name; got != "billing-refunds" {
		t.Errorf("expected seeded name billing-refunds, got %q", got)
	}
	if _, ok := h.store.Snapshot().Counters["billing-refunds"]; !ok {
		t.Errorf("seeded category should get a counter")
	}
	if got := len(h.panels.Panels()); got != 2 {
		t.Errorf("expected two panels, got %d", got)
	}
}

func TestSubPanelLifecycle(t *testing.T) {
	h := newHarness(t)

	sub, err := h.panels.CreateSubPanel(h.ctx, h.panel.ID, SubPanelCreateInput{Name: "Bug Report", Title: "Report a bug", Description: "Tell us what broke"})
	h.must(err)
	if sub.ID != "2" || sub.Name != "bug-report" {
		t.Errorf("unexpected sub-panel %+v", sub)
	}
	if sub.PanelDescription != "Tell us what broke" || sub.TicketDescription != "Tell us what broke" {
		t.Errorf("description should seed both texts")
	}

	if _, err := h.panels.CreateSubPanel(h.ctx, h.panel.ID, SubPanelCreateInput{Name: "bug report", Title: "Again"}); errorCode(err) != "CONFLICT" {
		t.Errorf("expected conflict for duplicate name, got %v", err)
	}

	name := "support"
	if _, err := h.panels.EditSubPanel(h.ctx, h.panel.ID, "2", SubPanelEdit{Name: &name}); errorCode(err) != "CONFLICT" {
		t.Errorf("expected conflict renaming onto a taken name, got %v", err)
	}

	title := "Ticket title only"
	updated, err := h.panels.EditSubPanel(h.ctx, h.panel.ID, "2", SubPanelEdit{TicketTitle: &title})
	h.must(err)
	if updated.TicketTitle != title || updated.PanelTitle != "Report a bug" {
		t.Errorf("editing the ticket title must leave the panel title alone: %+v", updated)
	}

	h.must(h.panels.DeleteSubPanel(h.ctx, h.panel.ID, "2"))
	if err := h.panels.DeleteSubPanel(h.ctx, h.panel.ID, "1"); errorCode(err) != "VALIDATION_FAILED" {
		t.Errorf("deleting the last category must fail, got %v", err)
	}
	if err := h.panels.DeleteSubPanel(h.ctx, h.panel.ID, "9"); errorCode(err) != "NOT_FOUND" {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestPublishAndRefreshPanel(t *testing.T) {
	h := newHarness(t)

	first, err := h.panels.PublishPanel(h.ctx, h.panel.ID, "general")
	h.must(err)
	again, err := h.panels.PublishPanel(h.ctx, h.panel.ID, "general")
	h.must(err)
	if first.MessageID != again.MessageID {
		t.Errorf("republishing into the same channel should edit in place")
	}
	if got := len(h.platform.Messages("general")); got != 1 {
		t.Fatalf("expected one panel message, got %d", got)
	}

	_, err = h.panels.CreateSubPanel(h.ctx, h.panel.ID, SubPanelCreateInput{Name: "sales", Title: "Sales"})
	h.must(err)
	msg := h.platform.Messages("general")[0]
	buttons := msg.Components[0].Buttons
	if len(buttons) != 2 || buttons[1].CustomID != PanelButtonID(h.panel.ID, "2") {
		t.Errorf("published copy not refreshed: %+v", buttons)
	}

	mode, err := h.panels.ToggleDisplayMode(h.ctx, h.panel.ID)
	h.must(err)
	if mode != domain.DisplayDropdown {
		t.Fatalf("expected dropdown, got %s", mode)
	}
	msg = h.platform.Messages("general")[0]
	if msg.Components[0].Select == nil || len(msg.Components[0].Select.Options) != 2 {
		t.Errorf("expected a selector with two options, got %+v", msg.Components)
	}

	hidden, err := h.panels.ToggleVisibility(h.ctx, h.panel.ID, "2")
	h.must(err)
	if !hidden {
		t.Fatalf("expected category 2 hidden")
	}
	msg = h.platform.Messages("general")[0]
	if got := len(msg.Components[0].Select.Options); got != 1 {
		t.Errorf("hidden category should not be offered, got %d options", got)
	}
}

func TestPanelMessageLayout(t *testing.T) {
	panel := &domain.Panel{ID: "p", Title: "T", Description: "D", DisplayType: domain.DisplayButtons, SubPanels: map[string]*domain.SubPanel{}}
	for i := 1; i <= 30; i++ {
		id := fmt.Sprint(i)
		panel.SubPanels[id] = domain.NewSubPanel(id, "c"+id, "Category "+id)
	}

	msg := PanelMessage(panel)
	if len(msg.Components) != maxComponentRows {
		t.Fatalf("expected %d rows, got %d", maxComponentRows, len(msg.Components))
	}
	for _, row := range msg.Components {
		if len(row.Buttons) != maxButtonsPerRow {
			t.Errorf("expected full rows, got %d buttons", len(row.Buttons))
		}
	}
	if msg.Embeds[0].Footer != domain.DefaultPanelFooter {
		t.Errorf("expected default footer")
	}

	panel.DisplayType = domain.DisplayDropdown
	msg = PanelMessage(panel)
	if got := len(msg.Components[0].Select.Options); got != maxSelectOptions {
		t.Errorf("expected %d options, got %d", maxSelectOptions, got)
	}
}

func TestControlIDs(t *testing.T) {
	id := PanelButtonID("abc", "3")
	panelID, subID, ok := ParsePanelButtonID(id)
	if !ok || panelID != "abc" || subID != "3" {
		t.Errorf("round trip failed: %q %q %v", panelID, subID, ok)
	}
	if _, _, ok := ParsePanelButtonID("persistent_panel_btn:abc"); ok {
		t.Errorf("missing category id should not parse")
	}
	if p, ok := ParsePanelSelectID(PanelSelectID("abc")); !ok || p != "abc" {
		t.Errorf("select id round trip failed")
	}
	if got := TicketName("support", 7); got != "support-0007" {
		t.Errorf("unexpected ticket name %s", got)
	}
}

func TestIsTicketChannel(t *testing.T) {
	tests := map[string]bool{
		"support-0001":        true,
		"closed-support-0001": true,
		"general":             false,
		"bug-report":          false,
		"team-2024":           true,
	}
	for name, want := range tests {
		if got := IsTicketChannel(name); got != want {
			t.Errorf("IsTicketChannel(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestStaffRolesAndAudit(t *testing.T) {
	h := newHarness(t)

	if err := h.panels.AddStaffRole(h.ctx, "staff"); errorCode(err) != "CONFLICT" {
		t.Errorf("expected conflict for duplicate staff role, got %v", err)
	}
	h.must(h.panels.AddStaffRole(h.ctx, "senior"))
	if got := h.panels.StaffRoles(); len(got) != 2 {
		t.Errorf("expected two staff roles, got %v", got)
	}
	h.must(h.panels.RemoveStaffRole(h.ctx, "senior"))

	enabled, err := h.panels.ToggleAuditEvent(h.ctx, domain.EventClaimed)
	h.must(err)
	if enabled {
		t.Errorf("claimed was enabled by default, toggling should disable it")
	}
	if h.panels.AuditConfig().Enabled(domain.EventClaimed) {
		t.Errorf("claimed should be disabled")
	}
	if err := h.panels.SetAuditEvent(h.ctx, "bogus", true); errorCode(err) != "VALIDATION_FAILED" {
		t.Errorf("expected validation error for unknown event, got %v", err)
	}
}
