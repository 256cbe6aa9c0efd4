// Package permissions computes the channel overlays a new ticket is created
// with. It performs no I/O.
package permissions

import "github.com/spec-kit/ticket-bot/internal/domain"

// Request is everything the resolver looks at.
type Request struct {
	// EveryoneRoleID is the server's baseline role; on most platforms it shares
	// the server id.
	EveryoneRoleID string
	RequesterID    string
	Sets           domain.PermissionSets
	StaffRoleIDs   []string
	// LiveRoles holds ids of roles that exist on the server. Staff and
	// authorized role ids outside it are skipped.
	LiveRoles       map[string]bool
	AuthorizedRoles []string
	AuthorizedUsers []string
}

// Resolve returns the overlays for a new ticket channel. Roles come before
// members; within a type, the first occurrence of a principal fixes its
// position and the last occurrence fixes its capabilities.
func Resolve(req Request) []domain.Overlay {
	roles := newTier(domain.OverlayRole)
	members := newTier(domain.OverlayMember)

	roles.set(domain.Overlay{
		ID:   req.EveryoneRoleID,
		Deny: []domain.Capability{domain.CapViewChannel},
	})
	for _, id := range req.StaffRoleIDs {
		if req.LiveRoles[id] {
			roles.project(id, req.Sets.Staff)
		}
	}
	for _, id := range req.AuthorizedRoles {
		if req.LiveRoles[id] {
			roles.project(id, req.Sets.Authorized)
		}
	}

	members.project(req.RequesterID, req.Sets.Owner)
	for _, id := range req.AuthorizedUsers {
		members.project(id, req.Sets.Authorized)
	}

	return append(roles.list(), members.list()...)
}

type tier struct {
	kind  domain.OverlayType
	order []string
	byID  map[string]domain.Overlay
}

func newTier(kind domain.OverlayType) *tier {
	return &tier{kind: kind, byID: make(map[string]domain.Overlay)}
}

func (t *tier) project(id string, set domain.PermissionSet) {
	allow, deny := set.Projection()
	t.set(domain.Overlay{ID: id, Allow: allow, Deny: deny})
}

func (t *tier) set(overlay domain.Overlay) {
	if overlay.ID == "" {
		return
	}
	overlay.Type = t.kind
	if _, seen := t.byID[overlay.ID]; !seen {
		t.order = append(t.order, overlay.ID)
	}
	t.byID[overlay.ID] = overlay
}

func (t *tier) list() []domain.Overlay {
	out := make([]domain.Overlay, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.byID[id])
	}
	return out
}
