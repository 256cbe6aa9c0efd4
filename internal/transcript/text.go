package transcript

import (
	"fmt"
	"strings"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

const (
	timestampLayout = "02/01/2006 15:04:05"
	divider         = "=================================================="
	noContent       = "[No content message]"
)

// RenderText produces the human-readable transcript.
func RenderText(record domain.TranscriptRecord) string {
	participants := len(record.Statistics.UserMessageCounts)

	var b strings.Builder
	fmt.Fprintf(&b, "Ticket Transcript\n")
	fmt.Fprintf(&b, "Server: %s\n", record.Server.Name)
	fmt.Fprintf(&b, "Channel: %s\n", record.Server.ChannelName)
	fmt.Fprintf(&b, "Owner: %s\n", record.Ticket.Owner.Name)
	fmt.Fprintf(&b, "Panel: %s\n", record.Ticket.PanelName)
	fmt.Fprintf(&b, "Saved by: %s\n", record.Ticket.SavedBy.Name)
	fmt.Fprintf(&b, "Date: %s\n", record.Ticket.Timestamp.Format(timestampLayout))
	fmt.Fprintf(&b, "Messages: %d\n", record.Statistics.TotalMessages)
	fmt.Fprintf(&b, "Participants: %d\n", participants)
	b.WriteString(divider + "\n\n")

	for _, msg := range record.Messages {
		content := msg.Content
		if strings.TrimSpace(content) == "" {
			content = noContent
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", msg.Timestamp.Format(timestampLayout), msg.Author.Name, content)
		if len(msg.Embeds) > 0 {
			fmt.Fprintf(&b, "    [%d embed(s)]\n", len(msg.Embeds))
		}
		for _, attachment := range msg.Attachments {
			fmt.Fprintf(&b, "    [Attachment: %s (%d bytes)]\n", attachment.Filename, attachment.Size)
		}
	}
	return b.String()
}
