// Package transcript turns a ticket channel's history into the structured
// record and the human-readable text file.
package transcript

import (
	"time"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/platform"
)

// UnknownUser names the owner when discovery finds nobody.
const UnknownUser = "Unknown User"

// Source is everything a transcript is built from.
type Source struct {
	Guild     platform.Guild
	Channel   platform.Channel
	Owner     *platform.Member
	PanelName string
	SavedBy   platform.Member
	SavedAt   time.Time
	// History is ordered oldest first.
	History []platform.Message
}

// Build assembles the structured transcript record.
func Build(src Source) domain.TranscriptRecord {
	owner := domain.TranscriptUser{Name: UnknownUser, Handle: UnknownUser}
	if src.Owner != nil {
		owner = userOf(*src.Owner)
	}

	record := domain.TranscriptRecord{
		Server: domain.TranscriptServer{
			Name:        src.Guild.Name,
			ID:          src.Guild.ID,
			ChannelName: src.Channel.Name,
			ChannelID:   src.Channel.ID,
		},
		Ticket: domain.TranscriptTicket{
			Owner:      owner,
			TicketName: src.Channel.Name,
			PanelName:  src.PanelName,
			SavedBy:    userOf(src.SavedBy),
			Timestamp:  src.SavedAt,
		},
		Statistics: domain.TranscriptStatistics{
			UserMessageCounts: make(map[string]int),
		},
		Messages: make([]domain.TranscriptMessage, 0, len(src.History)),
	}

	for _, msg := range src.History {
		entry := domain.TranscriptMessage{
			ID:          msg.ID,
			Author:      userOf(msg.Author),
			Content:     msg.Content,
			Timestamp:   msg.Timestamp,
			Embeds:      make([]domain.TranscriptEmbed, 0, len(msg.Embeds)),
			Attachments: make([]domain.TranscriptAttachment, 0, len(msg.Attachments)),
		}
		for _, embed := range msg.Embeds {
			entry.Embeds = append(entry.Embeds, domain.TranscriptEmbed{
				Title:       embed.Title,
				Description: embed.Description,
				Footer:      embed.Footer,
			})
		}
		for _, attachment := range msg.Attachments {
			entry.Attachments = append(entry.Attachments, domain.TranscriptAttachment{
				Filename: attachment.Filename,
				URL:      attachment.URL,
				Size:     attachment.Size,
			})
		}
		record.Messages = append(record.Messages, entry)
		record.Statistics.TotalMessages++
		record.Statistics.Attachments += len(msg.Attachments)
		record.Statistics.UserMessageCounts[msg.Author.Username]++
	}
	return record
}

func userOf(m platform.Member) domain.TranscriptUser {
	return domain.TranscriptUser{
		Name:   m.Name(),
		Handle: m.Username,
		ID:     m.ID,
		Bot:    m.Bot,
		Avatar: m.AvatarURL,
	}
}
