package domain

import (
	"encoding/json"
	"fmt"
)

// Capability names one channel permission a ticket overlay may grant or deny.
type Capability string

const (
	CapViewChannel           Capability = "view_channel"
	CapSendMessages          Capability = "send_messages"
	CapEmbedLinks            Capability = "embed_links"
	CapAttachFiles           Capability = "attach_files"
	CapAddReactions          Capability = "add_reactions"
	CapUseExternalEmojis     Capability = "use_external_emojis"
	CapUseExternalStickers   Capability = "use_external_stickers"
	CapReadMessageHistory    Capability = "read_message_history"
	CapManageChannels        Capability = "manage_channels"
	CapManagePermissions     Capability = "manage_permissions"
	CapCreatePublicThreads   Capability = "create_public_threads"
	CapCreatePrivateThreads  Capability = "create_private_threads"
	CapUseApplicationCommand Capability = "use_application_commands"
	CapManageMessages        Capability = "manage_messages"
	CapCreateInstantInvite   Capability = "create_instant_invite"
	CapSendMessagesInThreads Capability = "send_messages_in_threads"
)

// Capabilities is the fixed vocabulary in canonical order.
var Capabilities = []Capability{
	CapViewChannel,
	CapSendMessages,
	CapEmbedLinks,
	CapAttachFiles,
	CapAddReactions,
	CapUseExternalEmojis,
	CapUseExternalStickers,
	CapReadMessageHistory,
	CapManageChannels,
	CapManagePermissions,
	CapCreatePublicThreads,
	CapCreatePrivateThreads,
	CapUseApplicationCommand,
	CapManageMessages,
	CapCreateInstantInvite,
	CapSendMessagesInThreads,
}

// IsCapability reports whether c belongs to the vocabulary.
func IsCapability(c Capability) bool {
	for _, known := range Capabilities {
		if known == c {
			return true
		}
	}
	return false
}

// PermissionSet maps every capability to allowed (true) or denied (false).
type PermissionSet map[Capability]bool

// Clone copies the set.
func (p PermissionSet) Clone() PermissionSet {
	out := make(PermissionSet, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Normalize fills capabilities missing from p with the values from defaults and
// drops keys outside the vocabulary.
func (p PermissionSet) Normalize(defaults PermissionSet) PermissionSet {
	out := make(PermissionSet, len(Capabilities))
	for _, c := range Capabilities {
		if v, ok := p[c]; ok {
			out[c] = v
			continue
		}
		out[c] = defaults[c]
	}
	return out
}

// Complete reports whether all vocabulary keys are present.
func (p PermissionSet) Complete() bool {
	for _, c := range Capabilities {
		if _, ok := p[c]; !ok {
			return false
		}
	}
	return true
}

// PermissionSets are the three per-principal policies of a sub-panel.
type PermissionSets struct {
	Owner      PermissionSet `json:"owner"`
	Staff      PermissionSet `json:"staff"`
	Authorized PermissionSet `json:"authorized"`
}

// Normalize returns the sets with every capability present.
func (s PermissionSets) Normalize() PermissionSets {
	return PermissionSets{
		Owner:      s.Owner.Normalize(DefaultOwnerPermissions()),
		Staff:      s.Staff.Normalize(DefaultStaffPermissions()),
		Authorized: s.Authorized.Normalize(DefaultAuthorizedPermissions()),
	}
}

// DefaultOwnerPermissions is the policy for the member who opened the ticket.
func DefaultOwnerPermissions() PermissionSet {
	set := make(PermissionSet, len(Capabilities))
	for _, c := range Capabilities {
		set[c] = false
	}
	for _, c := range []Capability{
		CapViewChannel,
		CapSendMessages,
		CapSendMessagesInThreads,
		CapEmbedLinks,
		CapAttachFiles,
		CapAddReactions,
		CapUseExternalEmojis,
		CapUseExternalStickers,
		CapReadMessageHistory,
	} {
		set[c] = true
	}
	return set
}

// DefaultStaffPermissions enables the whole vocabulary.
func DefaultStaffPermissions() PermissionSet {
	set := make(PermissionSet, len(Capabilities))
	for _, c := range Capabilities {
		set[c] = true
	}
	return set
}

// DefaultAuthorizedPermissions matches the owner policy.
func DefaultAuthorizedPermissions() PermissionSet {
	return DefaultOwnerPermissions()
}

// DefaultPermissionSets returns fresh copies of the three defaults.
func DefaultPermissionSets() PermissionSets {
	return PermissionSets{
		Owner:      DefaultOwnerPermissions(),
		Staff:      DefaultStaffPermissions(),
		Authorized: DefaultAuthorizedPermissions(),
	}
}

// Tristate is an overwrite value that may be unset.
type Tristate int8

const (
	Inherit Tristate = iota
	Allow
	Deny
)

// TristateOf converts a bool to Allow or Deny.
func TristateOf(v bool) Tristate {
	if v {
		return Allow
	}
	return Deny
}

func (t Tristate) String() string {
	switch t {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	default:
		return "inherit"
	}
}

// MarshalJSON encodes Allow as true, Deny as false and Inherit as null.
func (t Tristate) MarshalJSON() ([]byte, error) {
	switch t {
	case Allow:
		return []byte("true"), nil
	case Deny:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

func (t *Tristate) UnmarshalJSON(data []byte) error {
	var v *bool
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("tristate: %w", err)
	}
	switch {
	case v == nil:
		*t = Inherit
	case *v:
		*t = Allow
	default:
		*t = Deny
	}
	return nil
}
