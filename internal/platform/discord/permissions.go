package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

// Permission bits as documented by the platform API.
const (
	permCreateInstantInvite   int64 = 1 << 0
	permAdministrator         int64 = 1 << 3
	permManageChannels        int64 = 1 << 4
	permManageGuild           int64 = 1 << 5
	permAddReactions          int64 = 1 << 6
	permViewChannel           int64 = 1 << 10
	permSendMessages          int64 = 1 << 11
	permManageMessages        int64 = 1 << 13
	permEmbedLinks            int64 = 1 << 14
	permAttachFiles           int64 = 1 << 15
	permReadMessageHistory    int64 = 1 << 16
	permUseExternalEmojis     int64 = 1 << 18
	permManageRoles           int64 = 1 << 28
	permUseApplicationCommand int64 = 1 << 31
	permCreatePublicThreads   int64 = 1 << 35
	permCreatePrivateThreads  int64 = 1 << 36
	permUseExternalStickers   int64 = 1 << 37
	permSendMessagesInThreads int64 = 1 << 38
)

var capabilityBits = map[domain.Capability]int64{
	domain.CapViewChannel:           permViewChannel,
	domain.CapSendMessages:          permSendMessages,
	domain.CapEmbedLinks:            permEmbedLinks,
	domain.CapAttachFiles:           permAttachFiles,
	domain.CapAddReactions:          permAddReactions,
	domain.CapUseExternalEmojis:     permUseExternalEmojis,
	domain.CapUseExternalStickers:   permUseExternalStickers,
	domain.CapReadMessageHistory:    permReadMessageHistory,
	domain.CapManageChannels:        permManageChannels,
	domain.CapManagePermissions:     permManageRoles,
	domain.CapCreatePublicThreads:   permCreatePublicThreads,
	domain.CapCreatePrivateThreads:  permCreatePrivateThreads,
	domain.CapUseApplicationCommand: permUseApplicationCommand,
	domain.CapManageMessages:        permManageMessages,
	domain.CapCreateInstantInvite:   permCreateInstantInvite,
	domain.CapSendMessagesInThreads: permSendMessagesInThreads,
}

func capabilitiesToBits(caps []domain.Capability) int64 {
	var bits int64
	for _, c := range caps {
		bits |= capabilityBits[c]
	}
	return bits
}

// bitsToCapabilities lists the known capabilities set in bits, in vocabulary
// order. Bits outside the vocabulary are dropped.
func bitsToCapabilities(bits int64) []domain.Capability {
	var caps []domain.Capability
	for _, c := range domain.Capabilities {
		if bits&capabilityBits[c] != 0 {
			caps = append(caps, c)
		}
	}
	return caps
}

func overwriteType(t domain.OverlayType) discordgo.PermissionOverwriteType {
	if t == domain.OverlayMember {
		return discordgo.PermissionOverwriteTypeMember
	}
	return discordgo.PermissionOverwriteTypeRole
}

func toOverwrite(o domain.Overlay) *discordgo.PermissionOverwrite {
	return &discordgo.PermissionOverwrite{
		ID:    o.ID,
		Type:  overwriteType(o.Type),
		Allow: capabilitiesToBits(o.Allow),
		Deny:  capabilitiesToBits(o.Deny),
	}
}

func fromOverwrite(o *discordgo.PermissionOverwrite) domain.Overlay {
	kind := domain.OverlayRole
	if o.Type == discordgo.PermissionOverwriteTypeMember {
		kind = domain.OverlayMember
	}
	return domain.Overlay{
		ID:    o.ID,
		Type:  kind,
		Allow: bitsToCapabilities(o.Allow),
		Deny:  bitsToCapabilities(o.Deny),
	}
}

// fullOverwrite keeps bits outside the vocabulary that the channel already
// carries, so editing one member never strips unrelated rights.
func fullOverwrite(o domain.Overlay, existing *discordgo.PermissionOverwrite) (allow, deny int64) {
	allow = capabilitiesToBits(o.Allow)
	deny = capabilitiesToBits(o.Deny)
	if existing == nil {
		return allow, deny
	}
	var known int64
	for _, bit := range capabilityBits {
		known |= bit
	}
	return allow | (existing.Allow &^ known), deny | (existing.Deny &^ known)
}

func canManageServer(bits int64) bool {
	return bits&(permAdministrator|permManageGuild) != 0
}
