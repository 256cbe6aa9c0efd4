package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestPanelPreservesUnknownKeys(t *testing.T) {
	input := `{
		"id": "p1",
		"title": "Support",
		"description": "Get help",
		"display_type": "buttons",
		"color": 16711680,
		"sub_panels": {
			"1": {"id": "1", "name": "support", "panel_title": "Support", "ticket_title": "Support",
			      "ticket_description": "d", "ticket_footer": "f", "close_button_label": "Close",
			      "ai_enabled": false, "permissions": {"owner": {}, "staff": {}, "authorized": {}},
			      "style": "danger"}
		}
	}`

	var panel Panel
	if err := json.Unmarshal([]byte(input), &panel); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(panel.Extra["color"]) != "16711680" {
		t.Errorf("panel extra = %v", panel.Extra)
	}
	if string(panel.SubPanels["1"].Extra["style"]) != `"danger"` {
		t.Errorf("sub-panel extra = %v", panel.SubPanels["1"].Extra)
	}

	out, err := json.Marshal(panel)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, want := range []string{`"color":16711680`, `"style":"danger"`, `"title":"Support"`} {
		if !strings.Contains(string(out), want) {
			t.Errorf("output %s missing %s", out, want)
		}
	}
}

func TestOrderedSubPanelsAndNextID(t *testing.T) {
	panel := &Panel{SubPanels: map[string]*SubPanel{
		"10": NewSubPanel("10", "ten", "Ten"),
		"2":  NewSubPanel("2", "two", "Two"),
		"1":  NewSubPanel("1", "one", "One"),
	}}
	panel.SubPanels["2"].Hidden = true

	var ids []string
	for _, sub := range panel.OrderedSubPanels() {
		ids = append(ids, sub.ID)
	}
	if strings.Join(ids, ",") != "1,2,10" {
		t.Errorf("order = %v", ids)
	}
	if got := len(panel.VisibleSubPanels()); got != 2 {
		t.Errorf("visible = %d, want 2", got)
	}
	if got := panel.NextSubPanelID(); got != "11" {
		t.Errorf("next id = %s, want 11", got)
	}
}

func TestNormalizeName(t *testing.T) {
	tests := map[string]string{
		"Support":          "support",
		"  Bug Report  ":   "bug-report",
		"billing_&_refund": "billing-refund",
		"--Help--":         "help",
	}
	for in, want := range tests {
		if got := NormalizeName(in); got != want {
			t.Errorf("NormalizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDefaultPermissionSets(t *testing.T) {
	sets := DefaultPermissionSets()
	for name, set := range map[string]PermissionSet{"owner": sets.Owner, "staff": sets.Staff, "authorized": sets.Authorized} {
		if !set.Complete() || len(set) != 16 {
			t.Errorf("%s set incomplete: %d keys", name, len(set))
		}
	}
	if sets.Owner[CapManageChannels] || sets.Owner[CapCreateInstantInvite] || !sets.Owner[CapSendMessagesInThreads] {
		t.Error("owner defaults wrong")
	}
	for _, c := range Capabilities {
		if !sets.Staff[c] {
			t.Errorf("staff default should allow %s", c)
		}
		if sets.Authorized[c] != sets.Owner[c] {
			t.Errorf("authorized default differs from owner on %s", c)
		}
	}

	partial := PermissionSet{CapViewChannel: false, "bogus": true}.Normalize(DefaultOwnerPermissions())
	if partial[CapViewChannel] || !partial[CapSendMessages] || len(partial) != 16 {
		t.Errorf("normalize result %v", partial)
	}
}

func TestTristateJSON(t *testing.T) {
	perms := MemberPermissions{ViewChannel: Allow, SendMessages: Deny}
	data, err := json.Marshal(perms)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"view_channel":true,"send_messages":false,"read_message_history":null}` {
		t.Errorf("encoded %s", data)
	}
	var decoded MemberPermissions
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded != perms {
		t.Errorf("decoded %+v", decoded)
	}
}

func TestAuditConfigEnabled(t *testing.T) {
	cfg := DefaultAuditConfig()
	if cfg.Enabled(EventOpened) {
		t.Error("no channel configured: nothing is enabled")
	}
	cfg.ChannelID = "log"
	cfg.Events[EventClaimed] = false
	if !cfg.Enabled(EventOpened) || cfg.Enabled(EventClaimed) {
		t.Error("filter mismatch")
	}
	delete(cfg.Events, EventDeleted)
	if !cfg.Enabled(EventDeleted) {
		t.Error("missing kinds default to enabled")
	}
}
