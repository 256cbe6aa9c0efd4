package domain

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/spec-kit/ticket-bot/pkg/util/jsonx"
)

// DisplayMode selects how a published panel offers its categories.
type DisplayMode string

const (
	DisplayButtons  DisplayMode = "buttons"
	DisplayDropdown DisplayMode = "dropdown"
)

// Defaults applied when an author leaves a field empty.
const (
	DefaultTicketDescription = "Support will be with you shortly. Please describe your issue in detail."
	DefaultTicketFooter      = "Use the button below to close this ticket."
	DefaultCloseButtonLabel  = "Close Ticket"
	DefaultPanelFooter       = "Select a category to open a ticket."
)

// PublishedMessage locates a rendered copy of a panel.
type PublishedMessage struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

// Panel is an authored ticket entry point holding one or more categories.
type Panel struct {
	ID           string               `json:"id"`
	Title        string               `json:"title"`
	Description  string               `json:"description"`
	ThumbnailURL string               `json:"thumbnail_url,omitempty"`
	Footer       string               `json:"footer,omitempty"`
	DisplayType  DisplayMode          `json:"display_type"`
	SubPanels    map[string]*SubPanel `json:"sub_panels"`
	Published    []PublishedMessage   `json:"published,omitempty"`

	// Extra holds members this version does not know about.
	Extra map[string]json.RawMessage `json:"-"`
}

// SubPanel is one ticket category within a panel.
type SubPanel struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	PanelTitle        string         `json:"panel_title"`
	PanelDescription  string         `json:"panel_description,omitempty"`
	PanelEmoji        string         `json:"panel_emoji,omitempty"`
	TicketTitle       string         `json:"ticket_title"`
	TicketDescription string         `json:"ticket_description"`
	TicketFooter      string         `json:"ticket_footer"`
	CloseButtonLabel  string         `json:"close_button_label"`
	Hidden            bool           `json:"hidden,omitempty"`
	AIEnabled         bool           `json:"ai_enabled"`
	Permissions       PermissionSets `json:"permissions"`
	AuthorizedRoles   []string       `json:"authorized_roles,omitempty"`
	AuthorizedUsers   []string       `json:"authorized_users,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (p *Panel) UnmarshalJSON(data []byte) error {
	type plain Panel
	extra, err := jsonx.DecodeWithExtra(data, (*plain)(p))
	if err != nil {
		return err
	}
	p.Extra = extra
	return nil
}

func (p Panel) MarshalJSON() ([]byte, error) {
	type plain Panel
	return jsonx.EncodeWithExtra(plain(p), p.Extra)
}

func (s *SubPanel) UnmarshalJSON(data []byte) error {
	type plain SubPanel
	extra, err := jsonx.DecodeWithExtra(data, (*plain)(s))
	if err != nil {
		return err
	}
	s.Extra = extra
	return nil
}

func (s SubPanel) MarshalJSON() ([]byte, error) {
	type plain SubPanel
	return jsonx.EncodeWithExtra(plain(s), s.Extra)
}

// OrderedSubPanels returns the sub-panels sorted by numeric id.
func (p *Panel) OrderedSubPanels() []*SubPanel {
	out := make([]*SubPanel, 0, len(p.SubPanels))
	for _, sub := range p.SubPanels {
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool {
		a, errA := strconv.Atoi(out[i].ID)
		b, errB := strconv.Atoi(out[j].ID)
		if errA == nil && errB == nil {
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// VisibleSubPanels returns ordered sub-panels that are offered to users.
func (p *Panel) VisibleSubPanels() []*SubPanel {
	var out []*SubPanel
	for _, sub := range p.OrderedSubPanels() {
		if !sub.Hidden {
			out = append(out, sub)
		}
	}
	return out
}

// NextSubPanelID is max(existing integer ids) + 1.
func (p *Panel) NextSubPanelID() string {
	highest := 0
	for id := range p.SubPanels {
		if n, err := strconv.Atoi(id); err == nil && n > highest {
			highest = n
		}
	}
	return strconv.Itoa(highest + 1)
}

// NewSubPanel builds a category with default texts and permission sets.
func NewSubPanel(id, name, title string) *SubPanel {
	return &SubPanel{
		ID:                id,
		Name:              name,
		PanelTitle:        title,
		TicketTitle:       title,
		TicketDescription: DefaultTicketDescription,
		TicketFooter:      DefaultTicketFooter,
		CloseButtonLabel:  DefaultCloseButtonLabel,
		Permissions:       DefaultPermissionSets(),
	}
}

var (
	nameInvalidChars = regexp.MustCompile(`[^a-z0-9-]+`)
	nameDashes       = regexp.MustCompile(`-{2,}`)
)

// NormalizeName turns free text into a kebab-case category name.
func NormalizeName(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	name = strings.ReplaceAll(name, " ", "-")
	name = strings.ReplaceAll(name, "_", "-")
	name = nameInvalidChars.ReplaceAllString(name, "")
	name = nameDashes.ReplaceAllString(name, "-")
	return strings.Trim(name, "-")
}
