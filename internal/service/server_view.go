package service

import (
	"context"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/pkg/util/errorutil"
)

// serverView is a point-in-time read of a server's roles and members.
type serverView struct {
	guild   *platform.Guild
	roles   map[string]platform.Role
	members []platform.Member
	staff   []string
}

func loadServerView(ctx context.Context, p platform.Platform, guildID string, staffRoles []string, withMembers bool) (*serverView, error) {
	guild, err := p.Guild(ctx, guildID)
	if err != nil {
		return nil, errorutil.NewPlatformError("fetch server", err)
	}
	roles, err := p.Roles(ctx, guildID)
	if err != nil {
		return nil, errorutil.NewPlatformError("fetch roles", err)
	}
	view := &serverView{
		guild: guild,
		roles: make(map[string]platform.Role, len(roles)),
		staff: staffRoles,
	}
	for _, role := range roles {
		view.roles[role.ID] = role
	}
	if withMembers {
		members, err := p.Members(ctx, guildID)
		if err != nil {
			return nil, errorutil.NewPlatformError("fetch members", err)
		}
		view.members = members
	}
	return view, nil
}

func (v *serverView) member(id string) (platform.Member, bool) {
	for _, m := range v.members {
		if m.ID == id {
			return m, true
		}
	}
	return platform.Member{}, false
}

func (v *serverView) memberMap() map[string]platform.Member {
	out := make(map[string]platform.Member, len(v.members))
	for _, m := range v.members {
		out[m.ID] = m
	}
	return out
}

func (v *serverView) liveRoles() map[string]bool {
	out := make(map[string]bool, len(v.roles))
	for id := range v.roles {
		out[id] = true
	}
	return out
}

func (v *serverView) isAdmin(m platform.Member) bool {
	if v.guild != nil && m.ID == v.guild.OwnerID {
		return true
	}
	for _, id := range m.Roles {
		if v.roles[id].Administrator {
			return true
		}
	}
	return false
}

func (v *serverView) isStaff(m platform.Member) bool {
	for _, id := range v.staff {
		if m.HasRole(id) {
			return true
		}
	}
	return false
}

// topPosition is the highest position among the member's roles; zero for a
// member holding only the everyone role.
func (v *serverView) topPosition(m platform.Member) int {
	top := 0
	for _, id := range m.Roles {
		if role, ok := v.roles[id]; ok && role.Position > top {
			top = role.Position
		}
	}
	return top
}

// canView applies channel overwrites in platform order: everyone, then the
// member's roles (any allow beats a deny), then the member.
func (v *serverView) canView(m platform.Member, channel *platform.Channel) bool {
	if v.isAdmin(m) {
		return true
	}
	view := true
	if o, ok := channel.Overwrite(domain.OverlayRole, channel.GuildID); ok {
		view = applyCapability(view, o, domain.CapViewChannel)
	}
	roleAllow, roleDeny := false, false
	for _, id := range m.Roles {
		o, ok := channel.Overwrite(domain.OverlayRole, id)
		if !ok {
			continue
		}
		if hasCapability(o.Allow, domain.CapViewChannel) {
			roleAllow = true
		}
		if hasCapability(o.Deny, domain.CapViewChannel) {
			roleDeny = true
		}
	}
	if roleDeny {
		view = false
	}
	if roleAllow {
		view = true
	}
	if o, ok := channel.Overwrite(domain.OverlayMember, m.ID); ok {
		view = applyCapability(view, o, domain.CapViewChannel)
	}
	return view
}

// viewers lists the non-bot members who can currently see channel.
func (v *serverView) viewers(channel *platform.Channel) []platform.Member {
	var out []platform.Member
	for _, m := range v.members {
		if !m.Bot && v.canView(m, channel) {
			out = append(out, m)
		}
	}
	return out
}

func applyCapability(current bool, o domain.Overlay, c domain.Capability) bool {
	if hasCapability(o.Deny, c) {
		current = false
	}
	if hasCapability(o.Allow, c) {
		current = true
	}
	return current
}

func hasCapability(caps []domain.Capability, c domain.Capability) bool {
	for _, have := range caps {
		if have == c {
			return true
		}
	}
	return false
}

// memberTriple reads the restorable part of a member's overwrite.
func memberTriple(channel *platform.Channel, memberID string) domain.MemberPermissions {
	o, ok := channel.Overwrite(domain.OverlayMember, memberID)
	if !ok {
		return domain.MemberPermissions{}
	}
	return domain.MemberPermissions{
		ViewChannel:        tristateOf(o, domain.CapViewChannel),
		SendMessages:       tristateOf(o, domain.CapSendMessages),
		ReadMessageHistory: tristateOf(o, domain.CapReadMessageHistory),
	}
}

func tristateOf(o domain.Overlay, c domain.Capability) domain.Tristate {
	switch {
	case hasCapability(o.Allow, c):
		return domain.Allow
	case hasCapability(o.Deny, c):
		return domain.Deny
	default:
		return domain.Inherit
	}
}

// withCapabilities returns the member's overwrite with the given capabilities
// set, keeping every other capability as it was.
func withCapabilities(channel *platform.Channel, memberID string, values map[domain.Capability]domain.Tristate) domain.Overlay {
	current, _ := channel.Overwrite(domain.OverlayMember, memberID)
	out := domain.Overlay{ID: memberID, Type: domain.OverlayMember}
	for _, c := range domain.Capabilities {
		value, set := values[c]
		if !set {
			value = tristateOf(current, c)
		}
		switch value {
		case domain.Allow:
			out.Allow = append(out.Allow, c)
		case domain.Deny:
			out.Deny = append(out.Deny, c)
		}
	}
	return out
}
