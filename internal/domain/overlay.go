package domain

// OverlayType tells whether an overlay targets a role or a single member.
type OverlayType string

const (
	OverlayRole   OverlayType = "role"
	OverlayMember OverlayType = "member"
)

// Overlay is a per-principal permission delta on a channel. Capabilities in
// neither list are inherited.
type Overlay struct {
	ID    string       `json:"id"`
	Type  OverlayType  `json:"type"`
	Allow []Capability `json:"allow"`
	Deny  []Capability `json:"deny"`
}

// Projection splits a permission set into allowed and denied capabilities in
// vocabulary order.
func (p PermissionSet) Projection() (allow, deny []Capability) {
	for _, c := range Capabilities {
		value, ok := p[c]
		if !ok {
			continue
		}
		if value {
			allow = append(allow, c)
		} else {
			deny = append(deny, c)
		}
	}
	return allow, deny
}
