package permissions

import (
	"reflect"
	"testing"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

func findOverlay(overlays []domain.Overlay, kind domain.OverlayType, id string) (domain.Overlay, bool) {
	for _, o := range overlays {
		if o.Type == kind && o.ID == id {
			return o, true
		}
	}
	return domain.Overlay{}, false
}

func contains(caps []domain.Capability, c domain.Capability) bool {
	for _, have := range caps {
		if have == c {
			return true
		}
	}
	return false
}

func TestResolveBaseline(t *testing.T) {
	overlays := Resolve(Request{
		EveryoneRoleID: "guild",
		RequesterID:    "u1",
		Sets:           domain.DefaultPermissionSets(),
		StaffRoleIDs:   []string{"staff", "gone"},
		LiveRoles:      map[string]bool{"staff": true},
	})

	everyone, ok := findOverlay(overlays, domain.OverlayRole, "guild")
	if !ok || !reflect.DeepEqual(everyone.Deny, []domain.Capability{domain.CapViewChannel}) || len(everyone.Allow) != 0 {
		t.Fatalf("expected everyone to be denied view only, got %+v", everyone)
	}

	requester, ok := findOverlay(overlays, domain.OverlayMember, "u1")
	if !ok {
		t.Fatalf("requester overlay missing")
	}
	if !contains(requester.Allow, domain.CapViewChannel) || !contains(requester.Deny, domain.CapManageChannels) {
		t.Errorf("requester overlay not projected from owner set: %+v", requester)
	}
	if len(requester.Allow)+len(requester.Deny) != len(domain.Capabilities) {
		t.Errorf("requester overlay should cover the whole vocabulary")
	}

	staff, ok := findOverlay(overlays, domain.OverlayRole, "staff")
	if !ok || len(staff.Allow) != len(domain.Capabilities) {
		t.Errorf("expected staff role with every capability, got %+v", staff)
	}
	if _, ok := findOverlay(overlays, domain.OverlayRole, "gone"); ok {
		t.Errorf("unresolved staff role must be skipped")
	}
	if len(overlays) != 3 {
		t.Errorf("expected 3 overlays, got %d", len(overlays))
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	req := Request{
		EveryoneRoleID:  "guild",
		RequesterID:     "u1",
		Sets:            domain.DefaultPermissionSets(),
		StaffRoleIDs:    []string{"s1", "s2", "s3"},
		LiveRoles:       map[string]bool{"s1": true, "s2": true, "s3": true, "a1": true},
		AuthorizedRoles: []string{"a1"},
		AuthorizedUsers: []string{"u2", "u3"},
	}
	first := Resolve(req)
	for i := 0; i < 20; i++ {
		if !reflect.DeepEqual(first, Resolve(req)) {
			t.Fatalf("Resolve is not deterministic")
		}
	}
}

func TestResolveTieBreaks(t *testing.T) {
	sets := domain.DefaultPermissionSets()
	sets.Authorized = sets.Authorized.Clone()
	sets.Authorized[domain.CapAttachFiles] = false

	tests := []struct {
		name   string
		req    Request
		kind   domain.OverlayType
		id     string
		attach bool
	}{
		{
			name: "authorized role overrides staff role",
			req: Request{
				EveryoneRoleID:  "guild",
				RequesterID:     "u1",
				Sets:            sets,
				StaffRoleIDs:    []string{"r1"},
				AuthorizedRoles: []string{"r1"},
				LiveRoles:       map[string]bool{"r1": true},
			},
			kind:   domain.OverlayRole,
			id:     "r1",
			attach: false,
		},
		{
			name: "authorized user overrides requester",
			req: Request{
				EveryoneRoleID:  "guild",
				RequesterID:     "u1",
				Sets:            sets,
				AuthorizedUsers: []string{"u1"},
			},
			kind:   domain.OverlayMember,
			id:     "u1",
			attach: false,
		},
		{
			name: "member and role with the same id stay separate",
			req: Request{
				EveryoneRoleID: "guild",
				RequesterID:    "x",
				Sets:           sets,
				StaffRoleIDs:   []string{"x"},
				LiveRoles:      map[string]bool{"x": true},
			},
			kind:   domain.OverlayMember,
			id:     "x",
			attach: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			overlays := Resolve(tt.req)
			overlay, ok := findOverlay(overlays, tt.kind, tt.id)
			if !ok {
				t.Fatalf("overlay %s/%s missing", tt.kind, tt.id)
			}
			if got := contains(overlay.Allow, domain.CapAttachFiles); got != tt.attach {
				t.Errorf("attach_files allowed = %v, want %v", got, tt.attach)
			}
			count := 0
			for _, o := range overlays {
				if o.Type == tt.kind && o.ID == tt.id {
					count++
				}
			}
			if count != 1 {
				t.Errorf("principal appears %d times", count)
			}
		})
	}
}
