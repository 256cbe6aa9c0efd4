package discord

import (
	"reflect"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/platform"
)

func TestCapabilityBitsRoundTrip(t *testing.T) {
	allow, deny := domain.DefaultOwnerPermissions().Projection()
	overlay := domain.Overlay{ID: "u1", Type: domain.OverlayMember, Allow: allow, Deny: deny}

	converted := fromOverwrite(toOverwrite(overlay))
	if !reflect.DeepEqual(converted, overlay) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", converted, overlay)
	}
	if toOverwrite(overlay).Type != discordgo.PermissionOverwriteTypeMember {
		t.Errorf("member overlay should map to a member overwrite")
	}
}

func TestBitsOutsideVocabularyAreKept(t *testing.T) {
	const prioritySpeaker int64 = 1 << 8
	existing := &discordgo.PermissionOverwrite{
		ID:    "u1",
		Type:  discordgo.PermissionOverwriteTypeMember,
		Allow: permViewChannel | prioritySpeaker,
	}
	overlay := domain.Overlay{ID: "u1", Type: domain.OverlayMember, Deny: []domain.Capability{domain.CapViewChannel}}

	allow, deny := fullOverwrite(overlay, existing)
	if allow != prioritySpeaker {
		t.Errorf("allow = %b, want only the unmodelled bit", allow)
	}
	if deny != permViewChannel {
		t.Errorf("deny = %b, want view", deny)
	}
}

func TestCanManageServer(t *testing.T) {
	tests := []struct {
		bits int64
		want bool
	}{
		{0, false},
		{permManageGuild, true},
		{permAdministrator, true},
		{permManageChannels, false},
	}
	for _, tt := range tests {
		if got := canManageServer(tt.bits); got != tt.want {
			t.Errorf("canManageServer(%b) = %v, want %v", tt.bits, got, tt.want)
		}
	}
}

func TestToComponents(t *testing.T) {
	rows := []platform.ActionRow{
		{Buttons: []platform.Button{{CustomID: "a", Label: "A", Style: platform.ButtonDanger, Emoji: "🔒"}}},
		{Select: &platform.Select{CustomID: "s", Options: []platform.SelectOption{{Label: "One", Value: "1"}}}},
		{},
	}

	out := toComponents(rows)
	if len(out) != 2 {
		t.Fatalf("empty rows should be dropped, got %d rows", len(out))
	}
	button := out[0].(discordgo.ActionsRow).Components[0].(discordgo.Button)
	if button.Style != discordgo.DangerButton || button.Emoji == nil || button.Emoji.Name != "🔒" {
		t.Errorf("unexpected button %+v", button)
	}
	menu := out[1].(discordgo.ActionsRow).Components[0].(discordgo.SelectMenu)
	if menu.CustomID != "s" || len(menu.Options) != 1 {
		t.Errorf("unexpected menu %+v", menu)
	}
}

func TestToApplicationCommands(t *testing.T) {
	commands := ToApplicationCommands([]platform.Command{{
		Name:        "ticketpanel",
		Description: "Manage panels",
		ManageOnly:  true,
		Subcommands: []platform.Subcommand{{
			Name:        "audit-channel",
			Description: "Set the audit channel",
			Options:     []platform.CommandOption{{Name: "channel", Description: "Log channel", Kind: platform.OptionChannel, Required: true}},
		}},
	}})

	cmd := commands[0]
	if cmd.DefaultMemberPermissions == nil || *cmd.DefaultMemberPermissions != permManageGuild {
		t.Errorf("manage-only command should require manage server")
	}
	sub := cmd.Options[0]
	if sub.Type != discordgo.ApplicationCommandOptionSubCommand || sub.Options[0].Type != discordgo.ApplicationCommandOptionChannel {
		t.Errorf("unexpected option layout %+v", sub)
	}
}

func TestFromMemberPrefersNickname(t *testing.T) {
	m := fromMember(&discordgo.Member{
		Nick:  "Ally",
		Roles: []string{"r1"},
		User:  &discordgo.User{ID: "u1", Username: "alice", GlobalName: "Alice"},
	})
	if m.Name() != "Ally" || m.Username != "alice" || !m.HasRole("r1") {
		t.Errorf("unexpected member %+v", m)
	}
}
