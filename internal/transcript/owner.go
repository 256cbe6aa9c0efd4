package transcript

import (
	"sort"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/platform"
)

// OwnerClues are the places the ticket owner may be found, most reliable first.
type OwnerClues struct {
	Snapshot   *domain.ClosedSnapshot
	Channel    *platform.Channel
	Members    map[string]platform.Member
	StaffRoles []string
	History    []platform.Message
	// Privileged, when set, marks members treated like staff, such as
	// server administrators.
	Privileged func(platform.Member) bool
}

// DiscoverOwner picks the ticket owner: a non-staff human from the closure
// snapshot, then a non-staff human holding send permission on the channel,
// then the first human author in the history.
func DiscoverOwner(clues OwnerClues) (*platform.Member, bool) {
	if clues.Snapshot != nil {
		ids := make([]string, 0, len(clues.Snapshot.Permissions))
		for id := range clues.Snapshot.Permissions {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if member, ok := clues.Members[id]; ok && clues.isCustomer(member) {
				return &member, true
			}
		}
	}

	if clues.Channel != nil {
		for _, overwrite := range clues.Channel.Overwrites {
			if overwrite.Type != domain.OverlayMember || !allows(overwrite, domain.CapSendMessages) {
				continue
			}
			if member, ok := clues.Members[overwrite.ID]; ok && clues.isCustomer(member) {
				return &member, true
			}
		}
	}

	for _, msg := range clues.History {
		if !msg.Author.Bot {
			author := msg.Author
			if member, ok := clues.Members[author.ID]; ok {
				author = member
			}
			return &author, true
		}
	}
	return nil, false
}

func (c OwnerClues) isCustomer(m platform.Member) bool {
	if m.Bot || (c.Privileged != nil && c.Privileged(m)) {
		return false
	}
	for _, roleID := range c.StaffRoles {
		if m.HasRole(roleID) {
			return false
		}
	}
	return true
}

func allows(overlay domain.Overlay, capability domain.Capability) bool {
	for _, c := range overlay.Allow {
		if c == capability {
			return true
		}
	}
	return false
}
