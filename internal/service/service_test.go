package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/ticket-bot/internal/clock"
	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/observability"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/platform/fake"
	"github.com/spec-kit/ticket-bot/internal/store"
	"github.com/spec-kit/ticket-bot/pkg/util/errorutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const (
	testGuild    = "g1"
	auditChannel = "log"
)

var (
	customer1 = platform.Member{ID: "u1", Username: "alice", DisplayName: "Alice", AvatarURL: "https://cdn.invalid/alice.png"}
	customer2 = platform.Member{ID: "u2", Username: "bob"}
	staff1    = platform.Member{ID: "s1", Username: "sam", Roles: []string{"staff"}}
	staff2    = platform.Member{ID: "s2", Username: "sue", Roles: []string{"staff"}}
	senior    = platform.Member{ID: "s3", Username: "sid", Roles: []string{"staff", "senior"}}
	admin     = platform.Member{ID: "a1", Username: "ada", Roles: []string{"admin"}}
)

type harness struct {
	t           *testing.T
	ctx         context.Context
	platform    *fake.Platform
	store       *store.Store
	backend     *flakyBackend
	logs        *observer.ObservedLogs
	clock       *clock.Fake
	metrics     *observability.Metrics
	panels      *PanelService
	tickets     *TicketService
	transcripts *TranscriptService
	panel       *domain.Panel

	mu     sync.Mutex
	events []events.Event
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	p := fake.New(testGuild, "Test Server", "nobody")
	p.AddRole(testGuild, platform.Role{ID: "staff", Name: "Staff", Position: 5})
	p.AddRole(testGuild, platform.Role{ID: "senior", Name: "Senior", Position: 10})
	p.AddRole(testGuild, platform.Role{ID: "admin", Name: "Admin", Position: 20, Administrator: true})
	for _, m := range []platform.Member{customer1, customer2, staff1, staff2, senior, admin} {
		p.AddMember(testGuild, m)
	}
	p.AddChannel(platform.Channel{ID: auditChannel, GuildID: testGuild, Name: "ticket-logs"})
	p.AddChannel(platform.Channel{ID: "general", GuildID: testGuild, Name: "general"})

	core, logs := observer.New(zap.WarnLevel)
	logger := zap.New(core)
	backend := &flakyBackend{Backend: store.NewFileBackend(t.TempDir())}
	h := &harness{
		t:        t,
		ctx:      context.Background(),
		platform: p,
		store:    store.Open(context.Background(), backend, logger),
		backend:  backend,
		logs:     logs,
		clock:    clock.NewFake(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)),
		metrics:  observability.NewMetrics(),
	}
	dispatcher := events.NewInMemoryDispatcher()
	for _, kind := range domain.EventKinds {
		dispatcher.Subscribe(kind, func(_ context.Context, e events.Event) error {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.events = append(h.events, e)
			return nil
		})
	}
	NewAuditService(dispatcher, h.store, p, logger).RegisterHandlers()

	h.panels = NewPanelService(PanelDependencies{Store: h.store, Platform: p})
	h.tickets = NewTicketService(TicketDependencies{
		Store:      h.store,
		Platform:   p,
		Dispatcher: dispatcher,
		Clock:      h.clock,
		Delays:     config.LifecycleConfig{CloseDelay: 3 * time.Second, DeleteDelay: 3 * time.Second, RenameDelay: time.Second},
		Metrics:    h.metrics,
		Logger:     logger,
	})
	h.transcripts = NewTranscriptService(TranscriptDependencies{
		Tickets:    h.tickets,
		Store:      h.store,
		Platform:   p,
		Dispatcher: dispatcher,
		Dir:        t.TempDir(),
		Clock:      h.clock,
	})

	h.must(h.panels.AddStaffRole(h.ctx, "staff"))
	h.must(h.panels.SetAuditChannel(h.ctx, auditChannel))
	panel, err := h.panels.CreatePanel(h.ctx, PanelCreateInput{Title: "Support", Description: "Get help from the team"})
	h.must(err)
	h.panel = panel
	return h
}

func (h *harness) must(err error) {
	h.t.Helper()
	if err != nil {
		h.t.Fatalf("unexpected error: %v", err)
	}
}

func (h *harness) open(user platform.Member) *platform.Channel {
	h.t.Helper()
	channel, err := h.tickets.Open(h.ctx, OpenRequest{GuildID: testGuild, PanelID: h.panel.ID, SubPanelID: "1", User: user})
	h.must(err)
	return channel
}

func (h *harness) action(channelID string, actor platform.Member) TicketAction {
	return TicketAction{GuildID: testGuild, ChannelID: channelID, Actor: actor}
}

func (h *harness) channel(id string) *platform.Channel {
	h.t.Helper()
	channel, err := h.platform.Channel(h.ctx, id)
	h.must(err)
	return channel
}

func (h *harness) view() *serverView {
	h.t.Helper()
	view, err := loadServerView(h.ctx, h.platform, testGuild, []string{"staff"}, false)
	h.must(err)
	return view
}

func (h *harness) eventsOf(kind domain.EventKind) []events.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []events.Event
	for _, e := range h.events {
		if e.Type == kind {
			out = append(out, e)
		}
	}
	return out
}

func (h *harness) auditEntries() []platform.Message {
	return h.platform.Messages(auditChannel)
}

func TestFirstTicketBaseline(t *testing.T) {
	h := newHarness(t)

	if name := h.panel.SubPanels["1"].Name; name != "support" {
		t.Fatalf("expected seeded category support, got %q", name)
	}
	channel := h.open(customer1)

	if channel.Name != "support-0001" {
		t.Errorf("expected support-0001, got %s", channel.Name)
	}
	state := h.store.Snapshot()
	record := state.TicketStatus[channel.ID]
	if record == nil || record.Status != domain.TicketStatusOpen || record.CreatedBy != "u1" || record.TicketType != "support" {
		t.Errorf("unexpected status record %+v", record)
	}
	if record != nil && record.TranscriptSaved {
		t.Errorf("transcript flag should start false")
	}
	if state.Counters["support"] != 1 {
		t.Errorf("expected counter 1, got %d", state.Counters["support"])
	}
	if got := len(h.eventsOf(domain.EventOpened)); got != 1 {
		t.Errorf("expected one opened event, got %d", got)
	}

	everyone, ok := channel.Overwrite(domain.OverlayRole, testGuild)
	if !ok || !hasCapability(everyone.Deny, domain.CapViewChannel) {
		t.Errorf("everyone should be denied view, got %+v", everyone)
	}
	owner, ok := channel.Overwrite(domain.OverlayMember, "u1")
	if !ok || !hasCapability(owner.Allow, domain.CapViewChannel) || !hasCapability(owner.Deny, domain.CapManageChannels) {
		t.Errorf("unexpected owner overwrite %+v", owner)
	}
	if _, ok := channel.Overwrite(domain.OverlayRole, "staff"); !ok {
		t.Errorf("staff role overwrite missing")
	}

	welcome := h.platform.Messages(channel.ID)
	if len(welcome) != 1 || welcome[0].Content != "<@u1>" {
		t.Fatalf("expected mention welcome message, got %+v", welcome)
	}
	if welcome[0].Components[0].Buttons[0].CustomID != CloseTicketControl {
		t.Errorf("welcome message must carry the close control")
	}

	entries := h.auditEntries()
	if len(entries) != 1 || entries[0].Embeds[0].Title != "Ticket Opened" {
		t.Fatalf("expected one opened audit entry, got %+v", entries)
	}
	fields := entries[0].Embeds[0].Fields
	if fields[0].Name != "Logged Info" || fields[1].Name != "Panel" || fields[1].Value != "Support" {
		t.Errorf("unexpected audit fields %+v", fields)
	}
	if entries[0].Embeds[0].AuthorName != "Alice" {
		t.Errorf("audit entry should carry the actor")
	}
}

func TestConcurrentOpensGetDistinctNumbers(t *testing.T) {
	h := newHarness(t)

	var wg sync.WaitGroup
	channels := make([]*platform.Channel, 2)
	for i, user := range []platform.Member{customer1, customer2} {
		wg.Add(1)
		go func(i int, user platform.Member) {
			defer wg.Done()
			channel, err := h.tickets.Open(h.ctx, OpenRequest{GuildID: testGuild, PanelID: h.panel.ID, SubPanelID: "1", User: user})
			if err != nil {
				t.Errorf("open failed: %v", err)
				return
			}
			channels[i] = channel
		}(i, user)
	}
	wg.Wait()

	names := map[string]bool{}
	for i, channel := range channels {
		if channel == nil {
			t.Fatalf("open %d produced no channel", i)
		}
		names[channel.Name] = true
		owner := []string{"u1", "u2"}[i]
		if o, ok := channel.Overwrite(domain.OverlayMember, owner); !ok || !hasCapability(o.Allow, domain.CapViewChannel) {
			t.Errorf("channel %s missing owner permissions for %s", channel.Name, owner)
		}
	}
	if !names["support-0001"] || !names["support-0002"] {
		t.Errorf("expected support-0001 and support-0002, got %v", names)
	}
	if c := h.store.Snapshot().Counters["support"]; c != 2 {
		t.Errorf("expected counter 2, got %d", c)
	}
	if got := len(h.eventsOf(domain.EventOpened)); got != 2 {
		t.Errorf("expected two opened events, got %d", got)
	}
}

func TestCloseAndReopenRestoresState(t *testing.T) {
	h := newHarness(t)
	h.open(customer1)
	h.open(customer1)
	channel := h.open(customer1)
	if channel.Name != "support-0003" {
		t.Fatalf("expected support-0003, got %s", channel.Name)
	}
	granted := domain.Overlay{ID: "u2", Type: domain.OverlayMember, Allow: []domain.Capability{
		domain.CapViewChannel, domain.CapSendMessages, domain.CapReadMessageHistory,
	}}
	h.must(h.platform.SetOverwrite(h.ctx, channel.ID, granted, "test"))
	before := h.channel(channel.ID)
	beforeTriples := map[string]domain.MemberPermissions{
		"u1": memberTriple(before, "u1"),
		"u2": memberTriple(before, "u2"),
	}

	h.must(h.tickets.Close(h.ctx, h.action(channel.ID, staff1)))

	for _, m := range h.platform.Messages(channel.ID) {
		if strings.Contains(m.Content, "will be closed") {
			t.Errorf("closing countdown should be removed after the wait, found %q", m.Content)
		}
	}
	closed := h.channel(channel.ID)
	if closed.Name != "closed-support-0003" {
		t.Errorf("expected closed-support-0003, got %s", closed.Name)
	}
	view := h.view()
	if view.canView(customer2, closed) {
		t.Errorf("u2 should have lost view")
	}
	if view.canView(customer1, closed) {
		t.Errorf("owner should have lost view")
	}
	if !view.canView(staff1, closed) {
		t.Errorf("staff should keep view")
	}

	state := h.store.Snapshot()
	snapshot := state.ClosedTickets[channel.ID]
	if snapshot == nil {
		t.Fatalf("snapshot missing")
	}
	if snapshot.OriginalName != "support-0003" || snapshot.ClosedBy != "s1" {
		t.Errorf("unexpected snapshot %+v", snapshot)
	}
	want := domain.MemberPermissions{ViewChannel: domain.Allow, SendMessages: domain.Allow, ReadMessageHistory: domain.Allow}
	if snapshot.Permissions["u2"] != want {
		t.Errorf("snapshot for u2 = %+v, want %+v", snapshot.Permissions["u2"], want)
	}
	if state.TicketStatus[channel.ID].Status != domain.TicketStatusClosed {
		t.Errorf("status should be closed")
	}
	if sleeps := h.clock.Sleeps(); len(sleeps) != 2 || sleeps[0] != 3*time.Second || sleeps[1] != time.Second {
		t.Errorf("unexpected waits %v", sleeps)
	}
	messages := h.platform.Messages(channel.ID)
	last := messages[len(messages)-1]
	if len(last.Components) != 1 || last.Components[0].Buttons[0].CustomID != ReopenTicketControl {
		t.Errorf("closed controls not posted: %+v", last)
	}

	h.must(h.tickets.Reopen(h.ctx, h.action(channel.ID, staff1)))

	reopened := h.channel(channel.ID)
	if reopened.Name != "support-0003" {
		t.Errorf("expected name restored, got %s", reopened.Name)
	}
	for id, triple := range beforeTriples {
		if got := memberTriple(reopened, id); got != triple {
			t.Errorf("member %s: got %+v, want %+v", id, got, triple)
		}
	}
	beforeOwner, _ := before.Overwrite(domain.OverlayMember, "u1")
	afterOwner, _ := reopened.Overwrite(domain.OverlayMember, "u1")
	if len(beforeOwner.Allow) != len(afterOwner.Allow) || len(beforeOwner.Deny) != len(afterOwner.Deny) {
		t.Errorf("owner overwrite changed across close/reopen: %+v -> %+v", beforeOwner, afterOwner)
	}
	state = h.store.Snapshot()
	if _, ok := state.ClosedTickets[channel.ID]; ok {
		t.Errorf("snapshot should be removed on reopen")
	}
	if state.TicketStatus[channel.ID].Status != domain.TicketStatusOpen {
		t.Errorf("status should be open again")
	}
	if len(h.eventsOf(domain.EventClosed)) != 1 || len(h.eventsOf(domain.EventReopened)) != 1 {
		t.Errorf("expected one closed and one reopened event")
	}
}

func TestReopenSkipsMembersWhoLeft(t *testing.T) {
	h := newHarness(t)
	channel := h.open(customer1)
	h.must(h.tickets.Close(h.ctx, h.action(channel.ID, staff1)))

	h.platform.RemoveMember(testGuild, "u1")
	h.must(h.tickets.Reopen(h.ctx, h.action(channel.ID, staff1)))

	if got := h.channel(channel.ID).Name; got != "support-0001" {
		t.Errorf("expected name restored, got %s", got)
	}
}

func TestDeleteCleansState(t *testing.T) {
	h := newHarness(t)
	h.open(customer1)
	h.open(customer1)
	channel := h.open(customer1)
	h.must(h.tickets.Close(h.ctx, h.action(channel.ID, staff1)))

	h.must(h.tickets.Delete(h.ctx, h.action(channel.ID, staff1)))

	if _, ok := h.platform.ChannelByName("closed-support-0003"); ok {
		t.Errorf("channel should be gone")
	}
	state := h.store.Snapshot()
	if _, ok := state.ClosedTickets[channel.ID]; ok {
		t.Errorf("snapshot should be purged")
	}
	if _, ok := state.TicketStatus[channel.ID]; ok {
		t.Errorf("status should be purged")
	}
	if state.Counters["support"] != 3 {
		t.Errorf("counter must not change on delete, got %d", state.Counters["support"])
	}
	deleted := h.eventsOf(domain.EventDeleted)
	if len(deleted) != 1 {
		t.Fatalf("expected one deleted event, got %d", len(deleted))
	}
	if payload := deleted[0].Payload.(events.TicketPayload); payload.ChannelName != "closed-support-0003" || payload.Category != "support" {
		t.Errorf("unexpected deleted payload %+v", payload)
	}
}

func TestDeleteOpenTicket(t *testing.T) {
	h := newHarness(t)
	channel := h.open(customer1)

	h.must(h.tickets.Delete(h.ctx, h.action(channel.ID, staff1)))

	if _, ok := h.store.Snapshot().TicketStatus[channel.ID]; ok {
		t.Errorf("status should be purged")
	}
	if sleeps := h.clock.Sleeps(); len(sleeps) != 1 || sleeps[0] != 3*time.Second {
		t.Errorf("expected a single delete wait, got %v", sleeps)
	}
}

func TestRenamingCategoryResetsCounter(t *testing.T) {
	h := newHarness(t)
	old := h.open(customer1)

	name := "help"
	_, err := h.panels.EditSubPanel(h.ctx, h.panel.ID, "1", SubPanelEdit{Name: &name})
	h.must(err)
	if c, ok := h.store.Snapshot().Counters["help"]; !ok || c != 0 {
		t.Fatalf("expected help counter 0, got %d (present=%v)", c, ok)
	}

	channel := h.open(customer2)
	if channel.Name != "help-0001" {
		t.Errorf("expected help-0001, got %s", channel.Name)
	}
	if got := h.channel(old.ID).Name; got != "support-0001" {
		t.Errorf("existing ticket should keep its name, got %s", got)
	}
	if c := h.store.Snapshot().Counters["support"]; c != 1 {
		t.Errorf("old counter should be left alone, got %d", c)
	}
}

func TestRenamingBackKeepsLiveNumbering(t *testing.T) {
	h := newHarness(t)
	first := h.open(customer1)

	for _, name := range []string{"help", "support"} {
		name := name
		_, err := h.panels.EditSubPanel(h.ctx, h.panel.ID, "1", SubPanelEdit{Name: &name})
		h.must(err)
	}
	if c := h.store.Snapshot().Counters["support"]; c != 1 {
		t.Fatalf("counter of a name with live tickets should be kept, got %d", c)
	}

	second := h.open(customer2)
	if second.Name != "support-0002" || second.Name == first.Name {
		t.Errorf("expected support-0002 after %s, got %s", first.Name, second.Name)
	}
}

func TestClaimHidesOthers(t *testing.T) {
	h := newHarness(t)
	channel := h.open(customer1)
	h.must(h.platform.SetOverwrite(h.ctx, channel.ID, domain.Overlay{
		ID: "u2", Type: domain.OverlayMember, Allow: []domain.Capability{domain.CapViewChannel},
	}, "test"))

	h.must(h.tickets.Claim(h.ctx, h.action(channel.ID, staff1)))

	claimed := h.channel(channel.ID)
	view := h.view()
	tests := []struct {
		member platform.Member
		see    bool
	}{
		{staff1, true},
		{staff2, true},
		{customer1, false},
		{admin, true},
		{senior, false},
		{customer2, false},
	}
	for _, tt := range tests {
		if got := view.canView(tt.member, claimed); got != tt.see {
			t.Errorf("%s can view = %v, want %v", tt.member.ID, got, tt.see)
		}
	}
	if status := h.store.Snapshot().TicketStatus[channel.ID].Status; status != domain.TicketStatusOpen {
		t.Errorf("claim must not change status, got %s", status)
	}
	if len(h.eventsOf(domain.EventClaimed)) != 1 {
		t.Errorf("expected claimed event")
	}
}

func TestClaimRequiresStaff(t *testing.T) {
	h := newHarness(t)
	channel := h.open(customer1)

	err := h.tickets.Claim(h.ctx, h.action(channel.ID, customer1))
	if err == nil {
		t.Fatalf("expected claim by a customer to fail")
	}
}

func TestTransitionGuards(t *testing.T) {
	h := newHarness(t)
	channel := h.open(customer1)
	h.must(h.tickets.Close(h.ctx, h.action(channel.ID, staff1)))

	orphan := platform.Channel{ID: "orphan", GuildID: testGuild, Name: "closed-support-0042"}
	h.platform.AddChannel(orphan)

	tests := []struct {
		name string
		run  func() error
		code string
	}{
		{"close outside a ticket", func() error { return h.tickets.Close(h.ctx, h.action("general", staff1)) }, "VALIDATION_FAILED"},
		{"close twice", func() error { return h.tickets.Close(h.ctx, h.action(channel.ID, staff1)) }, "VALIDATION_FAILED"},
		{"reopen without snapshot", func() error { return h.tickets.Reopen(h.ctx, h.action(orphan.ID, staff1)) }, "INVARIANT_VIOLATION"},
		{"claim closed ticket", func() error { return h.tickets.Claim(h.ctx, h.action(channel.ID, staff1)) }, "VALIDATION_FAILED"},
		{"delete outside a ticket", func() error { return h.tickets.Delete(h.ctx, h.action("general", staff1)) }, "VALIDATION_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			if err == nil {
				t.Fatalf("expected error")
			}
			if code := errorCode(err); code != tt.code {
				t.Errorf("code = %s, want %s (%v)", code, tt.code, err)
			}
		})
	}
}

func TestOpenRejectsHiddenCategory(t *testing.T) {
	h := newHarness(t)
	hidden, err := h.panels.ToggleVisibility(h.ctx, h.panel.ID, "1")
	h.must(err)
	if !hidden {
		t.Fatalf("expected category to be hidden")
	}

	_, err = h.tickets.Open(h.ctx, OpenRequest{GuildID: testGuild, PanelID: h.panel.ID, SubPanelID: "1", User: customer1})
	if code := errorCode(err); code != "VALIDATION_FAILED" {
		t.Errorf("expected validation error, got %v", err)
	}
	if _, ok := h.store.Snapshot().Counters["support"]; !ok {
		t.Errorf("counter entry should exist")
	}
	if c := h.store.Snapshot().Counters["support"]; c != 0 {
		t.Errorf("rejected open must not reserve a number, got %d", c)
	}
}

func TestAuditSuppression(t *testing.T) {
	h := newHarness(t)
	h.must(h.panels.SetAuditEvent(h.ctx, domain.EventOpened, false))

	channel := h.open(customer1)
	if got := len(h.auditEntries()); got != 0 {
		t.Errorf("disabled event reached the audit channel %d times", got)
	}
	if len(h.eventsOf(domain.EventOpened)) != 1 {
		t.Errorf("the event itself should still be emitted")
	}

	h.must(h.tickets.Close(h.ctx, h.action(channel.ID, staff1)))
	if got := len(h.auditEntries()); got != 1 {
		t.Errorf("enabled event should be logged, got %d entries", got)
	}

	h.must(h.panels.SetAuditChannel(h.ctx, ""))
	h.must(h.tickets.Reopen(h.ctx, h.action(channel.ID, staff1)))
	if got := len(h.auditEntries()); got != 1 {
		t.Errorf("no audit channel means no entries, got %d", got)
	}
}

func TestSaveTranscript(t *testing.T) {
	h := newHarness(t)
	channel := h.open(customer1)
	h.platform.Post(channel.ID, customer1, "my order never arrived", platform.Attachment{Filename: "receipt.png", URL: "u", Size: 512})
	h.platform.Post(channel.ID, staff1, "checking now")
	h.must(h.tickets.Close(h.ctx, h.action(channel.ID, staff1)))

	entry, err := h.transcripts.Save(h.ctx, h.action(channel.ID, staff1))
	h.must(err)

	total := len(h.platform.Messages(channel.ID)) - 1
	if entry.MessageCount != total {
		t.Errorf("expected %d messages, got %d", total, entry.MessageCount)
	}
	if entry.OwnerID != "u1" {
		t.Errorf("expected owner u1, got %q", entry.OwnerID)
	}
	if len(h.transcripts.Index()) != 1 {
		t.Errorf("index should hold the entry")
	}
	record, err := h.transcripts.Record(h.ctx, entry.ID)
	h.must(err)
	if record.Statistics.Attachments != 1 || record.Ticket.PanelName != "Support" {
		t.Errorf("unexpected record %+v", record.Statistics)
	}
	if !h.store.Snapshot().TicketStatus[channel.ID].TranscriptSaved {
		t.Errorf("status should record the saved transcript")
	}

	entries := h.auditEntries()
	last := entries[len(entries)-1]
	if last.Embeds[0].Title != "Transcript Saved" || len(last.Attachments) != 1 {
		t.Fatalf("expected transcript audit entry with file, got %+v", last)
	}

	saved := h.eventsOf(domain.EventTranscriptSaved)
	if len(saved) != 1 {
		t.Fatalf("expected transcript_saved event")
	}
	if _, err := h.transcripts.files.Read(h.ctx, entry.ID); err != nil {
		t.Errorf("structured transcript missing: %v", err)
	}
	path := saved[0].Payload.(events.TranscriptSavedPayload).TextPath
	if fileExists(path) {
		t.Errorf("text transcript %s should be removed after publishing", path)
	}
}

func TestCloseRetriesAfterRenameFailure(t *testing.T) {
	h := newHarness(t)
	channel := h.open(customer1)

	h.platform.FailNext("RenameChannel", errors.New("rate limited"))
	err := h.tickets.Close(h.ctx, h.action(channel.ID, staff1))
	if errorCode(err) != errorutil.CodePlatform {
		t.Fatalf("expected platform error, got %v", err)
	}
	if got := h.channel(channel.ID).Name; got != "support-0001" {
		t.Fatalf("failed rename must leave the name alone, got %s", got)
	}
	snapshot, ok := h.store.Snapshot().ClosedTickets[channel.ID]
	if !ok {
		t.Fatalf("snapshot should survive the failed rename")
	}
	if snapshot.Permissions["u1"].ViewChannel != domain.Allow {
		t.Errorf("snapshot should hold the creator's original view, got %+v", snapshot.Permissions["u1"])
	}
	if len(h.eventsOf(domain.EventClosed)) != 0 {
		t.Errorf("no closed event for a failed close")
	}

	h.must(h.tickets.Close(h.ctx, h.action(channel.ID, staff1)))
	if got := h.channel(channel.ID).Name; got != "closed-support-0001" {
		t.Fatalf("retry should finish the close, got %s", got)
	}

	h.must(h.tickets.Reopen(h.ctx, h.action(channel.ID, staff1)))
	reopened := h.channel(channel.ID)
	if reopened.Name != "support-0001" {
		t.Errorf("expected support-0001, got %s", reopened.Name)
	}
	if !h.view().canView(customer1, reopened) {
		t.Errorf("creator should see the reopened ticket")
	}
}

func TestReopenRetriesAfterRenameFailure(t *testing.T) {
	h := newHarness(t)
	channel := h.open(customer1)
	h.must(h.tickets.Close(h.ctx, h.action(channel.ID, staff1)))

	h.platform.FailNext("RenameChannel", errors.New("rate limited"))
	if err := h.tickets.Reopen(h.ctx, h.action(channel.ID, staff1)); errorCode(err) != errorutil.CodePlatform {
		t.Fatalf("expected platform error, got %v", err)
	}
	if _, ok := h.store.Snapshot().ClosedTickets[channel.ID]; !ok {
		t.Fatalf("snapshot must be kept until reopen succeeds")
	}

	h.must(h.tickets.Reopen(h.ctx, h.action(channel.ID, staff1)))
	if got := h.channel(channel.ID).Name; got != "support-0001" {
		t.Errorf("expected support-0001, got %s", got)
	}
	if _, ok := h.store.Snapshot().ClosedTickets[channel.ID]; ok {
		t.Errorf("snapshot should be purged after reopen")
	}
}

func TestAuditDeliveryFailureIsLogged(t *testing.T) {
	h := newHarness(t)
	channel := h.open(customer1)
	before := len(h.auditEntries())

	h.platform.FailNextIn("SendMessage", auditChannel, errors.New("missing access"))
	if err := h.tickets.Claim(h.ctx, h.action(channel.ID, staff1)); err != nil {
		t.Fatalf("audit failure must not fail the claim: %v", err)
	}
	if got := len(h.auditEntries()); got != before {
		t.Errorf("failed delivery should post nothing, got %d new entries", got-before)
	}
	if len(h.eventsOf(domain.EventClaimed)) != 1 {
		t.Errorf("claimed event should still be emitted")
	}
	if got := h.logs.FilterMessage("deliver audit entry failed").Len(); got != 1 {
		t.Errorf("expected one logged delivery failure, got %d", got)
	}

	h.must(h.tickets.Close(h.ctx, h.action(channel.ID, staff1)))
	if got := len(h.auditEntries()); got != before+1 {
		t.Errorf("later entries should be delivered, got %d new", got-before)
	}
}

func TestPersistenceFailureDoesNotStopTransition(t *testing.T) {
	h := newHarness(t)
	channel := h.open(customer1)

	h.backend.failing.Store(true)
	err := h.tickets.Close(h.ctx, h.action(channel.ID, staff1))
	if errorCode(err) != errorutil.CodePersistence {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if got := h.channel(channel.ID).Name; got != "closed-support-0001" {
		t.Errorf("close should complete on the platform, got %s", got)
	}
	state := h.store.Snapshot()
	if state.TicketStatus[channel.ID].Status != domain.TicketStatusClosed {
		t.Errorf("in-memory status should be closed")
	}
	if _, ok := state.ClosedTickets[channel.ID]; !ok {
		t.Errorf("in-memory snapshot should be kept")
	}
	if len(h.eventsOf(domain.EventClosed)) != 1 {
		t.Errorf("closed event should be emitted")
	}

	h.backend.failing.Store(false)
	h.must(h.tickets.Reopen(h.ctx, h.action(channel.ID, staff1)))

	reloaded := store.Open(h.ctx, h.backend, nil).Snapshot()
	if reloaded.TicketStatus[channel.ID].Status != domain.TicketStatusOpen {
		t.Errorf("next successful write should persist the reopened status")
	}
	if _, ok := reloaded.ClosedTickets[channel.ID]; ok {
		t.Errorf("persisted state should not keep the snapshot")
	}
}
