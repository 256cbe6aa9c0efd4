package store

import (
	"encoding/json"
	"fmt"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/pkg/util/jsonx"
)

// Document names used with a Backend.
const (
	ConfigDocument     = "ticket_config"
	StateDocument      = "ticket_state"
	TranscriptDocument = "transcripts"
)

// State is the complete persisted engine state. Config and runtime sections
// are stored as two documents.
type State struct {
	Panels        map[string]*domain.Panel
	StaffRoles    []string
	Counters      map[string]int
	Audit         domain.AuditConfig
	ClosedTickets map[string]*domain.ClosedSnapshot
	TicketStatus  map[string]*domain.TicketRecord

	configExtra  map[string]json.RawMessage
	runtimeExtra map[string]json.RawMessage
}

type configDoc struct {
	Panels     map[string]*domain.Panel `json:"panels"`
	StaffRoles []string                 `json:"staff_roles"`
	Counters   map[string]int           `json:"counters"`
	Audit      *domain.AuditConfig      `json:"audit"`
}

type runtimeDoc struct {
	ClosedTickets map[string]*domain.ClosedSnapshot `json:"closed_tickets"`
	TicketStatus  map[string]*domain.TicketRecord   `json:"ticket_status"`
}

type transcriptDoc struct {
	Transcripts []domain.TranscriptIndexEntry `json:"transcripts"`
}

// NewState returns an empty state with every section present.
func NewState() *State {
	s := &State{}
	s.applyDefaults()
	return s
}

func (s *State) applyDefaults() {
	if s.Panels == nil {
		s.Panels = make(map[string]*domain.Panel)
	}
	if s.StaffRoles == nil {
		s.StaffRoles = []string{}
	}
	if s.Counters == nil {
		s.Counters = make(map[string]int)
	}
	if s.Audit.Events == nil {
		s.Audit.Events = domain.DefaultAuditConfig().Events
	}
	if s.ClosedTickets == nil {
		s.ClosedTickets = make(map[string]*domain.ClosedSnapshot)
	}
	if s.TicketStatus == nil {
		s.TicketStatus = make(map[string]*domain.TicketRecord)
	}
}

func (s *State) encodeConfig() ([]byte, error) {
	audit := s.Audit
	return encodeDocument(configDoc{
		Panels:     s.Panels,
		StaffRoles: s.StaffRoles,
		Counters:   s.Counters,
		Audit:      &audit,
	}, s.configExtra)
}

func (s *State) encodeRuntime() ([]byte, error) {
	return encodeDocument(runtimeDoc{
		ClosedTickets: s.ClosedTickets,
		TicketStatus:  s.TicketStatus,
	}, s.runtimeExtra)
}

func (s *State) decodeConfig(data []byte) error {
	var doc configDoc
	extra, err := jsonx.DecodeWithExtra(data, &doc)
	if err != nil {
		return fmt.Errorf("decode %s: %w", ConfigDocument, err)
	}
	s.Panels = doc.Panels
	s.StaffRoles = doc.StaffRoles
	s.Counters = doc.Counters
	if doc.Audit != nil {
		s.Audit = *doc.Audit
	}
	s.configExtra = extra
	return nil
}

func (s *State) decodeRuntime(data []byte) error {
	var doc runtimeDoc
	extra, err := jsonx.DecodeWithExtra(data, &doc)
	if err != nil {
		return fmt.Errorf("decode %s: %w", StateDocument, err)
	}
	s.ClosedTickets = doc.ClosedTickets
	s.TicketStatus = doc.TicketStatus
	s.runtimeExtra = extra
	return nil
}

// Clone deep-copies the state through its persisted encoding.
func (s *State) Clone() *State {
	out := &State{}
	configData, err := s.encodeConfig()
	if err == nil {
		err = out.decodeConfig(configData)
	}
	if err == nil {
		var runtimeData []byte
		runtimeData, err = s.encodeRuntime()
		if err == nil {
			err = out.decodeRuntime(runtimeData)
		}
	}
	if err != nil {
		// Every value in State is JSON-encodable; failing here is a programming error.
		panic(fmt.Sprintf("store: clone state: %v", err))
	}
	out.applyDefaults()
	return out
}

// IsStaffRole reports whether roleID is configured as a staff role.
func (s *State) IsStaffRole(roleID string) bool {
	for _, id := range s.StaffRoles {
		if id == roleID {
			return true
		}
	}
	return false
}

// FindSubPanel looks up a category by panel and sub-panel id.
func (s *State) FindSubPanel(panelID, subID string) (*domain.Panel, *domain.SubPanel, bool) {
	panel, ok := s.Panels[panelID]
	if !ok || panel == nil {
		return nil, nil, false
	}
	sub, ok := panel.SubPanels[subID]
	if !ok || sub == nil {
		return panel, nil, false
	}
	return panel, sub, true
}

func encodeDocument(v any, extra map[string]json.RawMessage) ([]byte, error) {
	data, err := jsonx.EncodeWithExtra(v, extra)
	if err != nil {
		return nil, err
	}
	var pretty map[string]json.RawMessage
	if err := json.Unmarshal(data, &pretty); err != nil {
		return nil, err
	}
	return json.MarshalIndent(pretty, "", "  ")
}
