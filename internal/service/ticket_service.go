package service

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/clock"
	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/observability"
	"github.com/spec-kit/ticket-bot/internal/permissions"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/store"
	"github.com/spec-kit/ticket-bot/pkg/util/errorutil"
)

const closedPrefix = "closed-"

var ticketNamePattern = regexp.MustCompile(`-\d`)

// TicketService owns the ticket state machine and every side effect of a
// transition.
type TicketService struct {
	store      *store.Store
	platform   platform.Platform
	dispatcher events.Dispatcher
	clock      clock.Clock
	delays     config.LifecycleConfig
	metrics    *observability.Metrics
	logger     *zap.Logger
	locks      *keyedMutex
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store      *store.Store
	Platform   platform.Platform
	Dispatcher events.Dispatcher
	Clock      clock.Clock
	Delays     config.LifecycleConfig
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// OpenRequest asks for a new ticket in one category.
type OpenRequest struct {
	GuildID    string
	PanelID    string
	SubPanelID string
	// ParentID places the channel under a channel category; optional.
	ParentID string
	User     platform.Member
}

// TicketAction identifies a transition on an existing ticket channel.
type TicketAction struct {
	GuildID   string
	ChannelID string
	Actor     platform.Member
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return &TicketService{
		store:      deps.Store,
		platform:   deps.Platform,
		dispatcher: deps.Dispatcher,
		clock:      clk,
		delays:     deps.Delays,
		metrics:    deps.Metrics,
		logger:     logger,
		locks:      newKeyedMutex(),
	}
}

// IsTicketChannel recognises ticket channels by name: a closed- prefix or any
// dash followed by a digit.
func IsTicketChannel(name string) bool {
	return strings.HasPrefix(name, closedPrefix) || ticketNamePattern.MatchString(name)
}

// IsTicketChannel reports whether the named channel is a ticket.
func (s *TicketService) IsTicketChannel(name string) bool {
	return IsTicketChannel(name)
}

// Statuses returns the status entry of every tracked ticket keyed by channel id.
func (s *TicketService) Statuses() map[string]*domain.TicketRecord {
	return s.store.Snapshot().TicketStatus
}

// Open creates a ticket channel for the requester.
func (s *TicketService) Open(ctx context.Context, req OpenRequest) (*platform.Channel, error) {
	state := s.store.Snapshot()
	panel, sub, ok := state.FindSubPanel(req.PanelID, req.SubPanelID)
	if !ok {
		return nil, errorutil.NewNotFound("ticket category", map[string]any{"panel_id": req.PanelID, "sub_panel_id": req.SubPanelID})
	}
	if sub.Hidden {
		return nil, errorutil.NewValidationError("this ticket category is not available", map[string]any{"sub_panel_id": sub.ID})
	}

	view, err := loadServerView(ctx, s.platform, req.GuildID, state.StaffRoles, false)
	if err != nil {
		return nil, err
	}

	var pending error
	var seq int
	category := sub.Name
	if err := s.update(ctx, &pending, func(st *store.State) error {
		seq = store.NextTicketNumber(st, category)
		return nil
	}); err != nil {
		return nil, err
	}
	name := TicketName(category, seq)

	overlays := permissions.Resolve(permissions.Request{
		EveryoneRoleID:  view.guild.ID,
		RequesterID:     req.User.ID,
		Sets:            sub.Permissions.Normalize(),
		StaffRoleIDs:    state.StaffRoles,
		LiveRoles:       view.liveRoles(),
		AuthorizedRoles: sub.AuthorizedRoles,
		AuthorizedUsers: sub.AuthorizedUsers,
	})
	channel, err := s.platform.CreateTextChannel(ctx, req.GuildID, platform.ChannelSpec{
		Name:     name,
		ParentID: req.ParentID,
		Topic:    fmt.Sprintf("%s ticket for %s", sub.TicketTitle, req.User.Name()),
		Overlays: overlays,
		Reason:   fmt.Sprintf("Ticket opened by %s (%s)", req.User.Username, req.User.ID),
	})
	if err != nil {
		return nil, errorutil.NewPlatformError("create ticket channel", err)
	}

	record := &domain.TicketRecord{
		OriginalName: name,
		Status:       domain.TicketStatusOpen,
		CreatedBy:    req.User.ID,
		CreatedAt:    s.clock.Now(),
		TicketType:   category,
		PanelID:      panel.ID,
		SubPanelID:   sub.ID,
	}
	if err := s.update(ctx, &pending, func(st *store.State) error {
		st.TicketStatus[channel.ID] = record
		return nil
	}); err != nil {
		return nil, err
	}

	_, err = s.platform.SendMessage(ctx, channel.ID, platform.OutgoingMessage{
		Content: fmt.Sprintf("<@%s>", req.User.ID),
		Embeds: []platform.Embed{{
			Title:       sub.TicketTitle,
			Description: sub.TicketDescription,
			Footer:      sub.TicketFooter,
			Color:       colorTicket,
		}},
		Components: []platform.ActionRow{TicketControlRow(sub.CloseButtonLabel)},
	})
	if err != nil {
		return channel, errorutil.NewPlatformError("send ticket welcome message", err)
	}

	s.logger.Info("ticket opened",
		zap.String("channel_id", channel.ID),
		zap.String("ticket", name),
		zap.String("actor", req.User.ID))
	s.emit(ctx, domain.EventOpened, req.GuildID, channel.ID, req.User, events.TicketPayload{
		ChannelName: name,
		Category:    category,
		PanelTitle:  sub.PanelTitle,
	})
	return channel, pending
}

// Close snapshots member permissions, hides the ticket from non-staff members
// and renames it into the closed form.
func (s *TicketService) Close(ctx context.Context, action TicketAction) error {
	unlock := s.locks.Lock(action.ChannelID)
	defer unlock()

	channel, err := s.ticketChannel(ctx, action.ChannelID)
	if err != nil {
		return err
	}
	state := s.store.Snapshot()
	record := state.TicketStatus[channel.ID]
	if strings.HasPrefix(channel.Name, closedPrefix) || (record != nil && record.Status == domain.TicketStatusClosed) {
		return errorutil.NewValidationError("this ticket is already closed", map[string]any{"channel_id": channel.ID})
	}

	view, err := loadServerView(ctx, s.platform, action.GuildID, state.StaffRoles, true)
	if err != nil {
		return err
	}
	viewers := view.viewers(channel)

	originalName := channel.Name
	if record != nil && record.OriginalName != "" {
		originalName = record.OriginalName
	}
	snapshot := &domain.ClosedSnapshot{
		ChannelID:    channel.ID,
		OriginalName: originalName,
		ClosedBy:     action.Actor.ID,
		ClosedAt:     s.clock.Now(),
		Permissions:  make(map[string]domain.MemberPermissions, len(viewers)),
	}
	// A retried close must not lose members an earlier attempt already hid.
	if previous, ok := state.ClosedTickets[channel.ID]; ok {
		for id, triple := range previous.Permissions {
			snapshot.Permissions[id] = triple
		}
	}
	for _, m := range viewers {
		if _, recorded := snapshot.Permissions[m.ID]; !recorded {
			snapshot.Permissions[m.ID] = memberTriple(channel, m.ID)
		}
	}

	var pending error
	if err := s.update(ctx, &pending, func(st *store.State) error {
		st.ClosedTickets[channel.ID] = snapshot
		return nil
	}); err != nil {
		return err
	}

	closing := s.notice(ctx, channel.ID, fmt.Sprintf("🔒 This ticket will be closed in %s...", humanDelay(s.delays.CloseDelay)))
	s.clock.Sleep(s.delays.CloseDelay)
	s.dismiss(ctx, closing)

	reason := fmt.Sprintf("Ticket closed by %s (%s)", action.Actor.Username, action.Actor.ID)
	for _, m := range viewers {
		if view.isAdmin(m) || view.isStaff(m) {
			continue
		}
		overwrite := withCapabilities(channel, m.ID, map[domain.Capability]domain.Tristate{domain.CapViewChannel: domain.Deny})
		if err := s.platform.SetOverwrite(ctx, channel.ID, overwrite, reason); err != nil {
			return errorutil.NewPlatformError("hide ticket from member", err)
		}
	}

	closedName := closedPrefix + channel.Name
	if !strings.HasPrefix(channel.Name, closedPrefix) {
		s.clock.Sleep(s.delays.RenameDelay)
		if err := s.platform.RenameChannel(ctx, channel.ID, closedName, reason); err != nil {
			return errorutil.NewPlatformError("rename ticket channel", err)
		}
	}

	if err := s.update(ctx, &pending, func(st *store.State) error {
		if r := st.TicketStatus[channel.ID]; r != nil {
			r.Status = domain.TicketStatusClosed
			return nil
		}
		st.TicketStatus[channel.ID] = &domain.TicketRecord{
			OriginalName: originalName,
			Status:       domain.TicketStatusClosed,
			CreatedAt:    snapshot.ClosedAt,
			TicketType:   categoryOf(originalName),
		}
		return nil
	}); err != nil {
		return err
	}

	_, err = s.platform.SendMessage(ctx, channel.ID, platform.OutgoingMessage{
		Embeds: []platform.Embed{{
			Title:       "Ticket Closed",
			Description: fmt.Sprintf("This ticket was closed by <@%s>.", action.Actor.ID),
			Color:       colorClosed,
		}},
		Components: []platform.ActionRow{ClosedControlRow()},
	})
	if err != nil {
		return errorutil.NewPlatformError("send closed controls", err)
	}

	s.logger.Info("ticket closed",
		zap.String("channel_id", channel.ID),
		zap.String("ticket", closedName),
		zap.String("actor", action.Actor.ID))
	s.emit(ctx, domain.EventClosed, action.GuildID, channel.ID, action.Actor, s.payload(channel.ID, closedName))
	return pending
}

// Reopen restores the name and the member permissions recorded at closure.
func (s *TicketService) Reopen(ctx context.Context, action TicketAction) error {
	unlock := s.locks.Lock(action.ChannelID)
	defer unlock()

	channel, err := s.ticketChannel(ctx, action.ChannelID)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(channel.Name, closedPrefix) {
		return errorutil.NewValidationError("this ticket is not closed", map[string]any{"channel_id": channel.ID})
	}
	state := s.store.Snapshot()
	snapshot, ok := state.ClosedTickets[channel.ID]
	if !ok {
		return errorutil.NewInvariantViolation("no closure record exists for this ticket; it cannot be reopened", map[string]any{"channel_id": channel.ID})
	}

	view, err := loadServerView(ctx, s.platform, action.GuildID, state.StaffRoles, true)
	if err != nil {
		return err
	}

	reason := fmt.Sprintf("Ticket reopened by %s (%s)", action.Actor.Username, action.Actor.ID)
	if channel.Name != snapshot.OriginalName {
		s.clock.Sleep(s.delays.RenameDelay)
		if err := s.platform.RenameChannel(ctx, channel.ID, snapshot.OriginalName, reason); err != nil {
			return errorutil.NewPlatformError("rename ticket channel", err)
		}
	}

	memberIDs := make([]string, 0, len(snapshot.Permissions))
	for id := range snapshot.Permissions {
		memberIDs = append(memberIDs, id)
	}
	sort.Strings(memberIDs)
	for _, id := range memberIDs {
		if _, present := view.member(id); !present {
			continue
		}
		triple := snapshot.Permissions[id]
		overwrite := withCapabilities(channel, id, map[domain.Capability]domain.Tristate{
			domain.CapViewChannel:        triple.ViewChannel,
			domain.CapSendMessages:       triple.SendMessages,
			domain.CapReadMessageHistory: triple.ReadMessageHistory,
		})
		if err := s.platform.SetOverwrite(ctx, channel.ID, overwrite, reason); err != nil {
			return errorutil.NewPlatformError("restore member permissions", err)
		}
	}

	var pending error
	if err := s.update(ctx, &pending, func(st *store.State) error {
		delete(st.ClosedTickets, channel.ID)
		if r := st.TicketStatus[channel.ID]; r != nil {
			r.Status = domain.TicketStatusOpen
		}
		return nil
	}); err != nil {
		return err
	}

	_, err = s.platform.SendMessage(ctx, channel.ID, platform.OutgoingMessage{
		Embeds: []platform.Embed{{
			Title:       "Ticket Reopened",
			Description: fmt.Sprintf("This ticket was reopened by <@%s>.", action.Actor.ID),
			Color:       colorTicket,
		}},
		Components: []platform.ActionRow{TicketControlRow(s.closeLabel(state, channel.ID))},
	})
	if err != nil {
		return errorutil.NewPlatformError("send ticket controls", err)
	}

	s.logger.Info("ticket reopened",
		zap.String("channel_id", channel.ID),
		zap.String("ticket", snapshot.OriginalName),
		zap.String("actor", action.Actor.ID))
	s.emit(ctx, domain.EventReopened, action.GuildID, channel.ID, action.Actor, s.payload(channel.ID, snapshot.OriginalName))
	return pending
}

// Delete destroys a ticket channel, open or closed, and forgets its state.
// Counters are left alone.
func (s *TicketService) Delete(ctx context.Context, action TicketAction) error {
	unlock := s.locks.Lock(action.ChannelID)
	defer unlock()

	channel, err := s.ticketChannel(ctx, action.ChannelID)
	if err != nil {
		return err
	}
	payload := s.payload(channel.ID, channel.Name)

	s.notice(ctx, channel.ID, fmt.Sprintf("🗑️ This ticket will be deleted in %s...", humanDelay(s.delays.DeleteDelay)))
	s.clock.Sleep(s.delays.DeleteDelay)

	reason := fmt.Sprintf("Ticket deleted by %s (%s)", action.Actor.Username, action.Actor.ID)
	if err := s.platform.DeleteChannel(ctx, channel.ID, reason); err != nil {
		return errorutil.NewPlatformError("delete ticket channel", err)
	}

	var pending error
	if err := s.update(ctx, &pending, func(st *store.State) error {
		delete(st.ClosedTickets, channel.ID)
		delete(st.TicketStatus, channel.ID)
		return nil
	}); err != nil {
		return err
	}

	s.logger.Info("ticket deleted",
		zap.String("channel_id", channel.ID),
		zap.String("ticket", channel.Name),
		zap.String("actor", action.Actor.ID))
	s.emit(ctx, domain.EventDeleted, action.GuildID, channel.ID, action.Actor, payload)
	return pending
}

// Claim hides an open ticket from every non-administrator except the
// claimant and staff ranked at or below the claimant. The creator loses view
// too.
func (s *TicketService) Claim(ctx context.Context, action TicketAction) error {
	unlock := s.locks.Lock(action.ChannelID)
	defer unlock()

	channel, err := s.ticketChannel(ctx, action.ChannelID)
	if err != nil {
		return err
	}
	if strings.HasPrefix(channel.Name, closedPrefix) {
		return errorutil.NewValidationError("closed tickets cannot be claimed", map[string]any{"channel_id": channel.ID})
	}
	state := s.store.Snapshot()
	view, err := loadServerView(ctx, s.platform, action.GuildID, state.StaffRoles, true)
	if err != nil {
		return err
	}
	claimant, ok := view.member(action.Actor.ID)
	if !ok {
		return errorutil.NewNotFound("member", map[string]any{"user_id": action.Actor.ID})
	}
	if !view.isStaff(claimant) && !view.isAdmin(claimant) {
		return errorutil.NewForbidden("only staff can claim tickets")
	}

	keep := map[string]bool{claimant.ID: true}
	claimantRank := view.topPosition(claimant)
	for _, m := range view.members {
		if view.isStaff(m) && view.topPosition(m) <= claimantRank {
			keep[m.ID] = true
		}
	}

	reason := fmt.Sprintf("Ticket claimed by %s (%s)", action.Actor.Username, action.Actor.ID)
	for _, m := range view.viewers(channel) {
		if keep[m.ID] || view.isAdmin(m) {
			continue
		}
		overwrite := withCapabilities(channel, m.ID, map[domain.Capability]domain.Tristate{domain.CapViewChannel: domain.Deny})
		if err := s.platform.SetOverwrite(ctx, channel.ID, overwrite, reason); err != nil {
			return errorutil.NewPlatformError("hide ticket from member", err)
		}
	}

	s.notice(ctx, channel.ID, fmt.Sprintf("🙋 This ticket has been claimed by <@%s>.", claimant.ID))
	s.logger.Info("ticket claimed",
		zap.String("channel_id", channel.ID),
		zap.String("ticket", channel.Name),
		zap.String("actor", action.Actor.ID))
	s.emit(ctx, domain.EventClaimed, action.GuildID, channel.ID, action.Actor, s.payload(channel.ID, channel.Name))
	return nil
}

func (s *TicketService) ticketChannel(ctx context.Context, channelID string) (*platform.Channel, error) {
	channel, err := s.platform.Channel(ctx, channelID)
	if err != nil {
		return nil, errorutil.NewPlatformError("fetch channel", err)
	}
	if !IsTicketChannel(channel.Name) {
		return nil, errorutil.NewValidationError("this command can only be used inside a ticket channel", map[string]any{"channel_id": channelID})
	}
	return channel, nil
}

// update applies fn through the store. A persistence failure is remembered
// in pending and does not stop the transition.
func (s *TicketService) update(ctx context.Context, pending *error, fn func(*store.State) error) error {
	err := s.store.Update(ctx, fn)
	if err == nil {
		return nil
	}
	if errorutil.IsCode(err, errorutil.CodePersistence) {
		if *pending == nil {
			*pending = err
		}
		return nil
	}
	return err
}

func (s *TicketService) notice(ctx context.Context, channelID, text string) *platform.Message {
	msg, err := s.platform.SendMessage(ctx, channelID, platform.OutgoingMessage{Content: text})
	if err != nil {
		s.logger.Warn("send ticket notice failed", zap.String("channel_id", channelID), zap.Error(err))
		return nil
	}
	return msg
}

// dismiss removes a countdown notice once its wait is over.
func (s *TicketService) dismiss(ctx context.Context, msg *platform.Message) {
	if msg == nil {
		return
	}
	if err := s.platform.DeleteMessage(ctx, msg.ChannelID, msg.ID); err != nil {
		s.logger.Warn("remove ticket notice failed",
			zap.String("channel_id", msg.ChannelID),
			zap.String("message_id", msg.ID),
			zap.Error(err))
	}
}

func (s *TicketService) closeLabel(state *store.State, channelID string) string {
	record := state.TicketStatus[channelID]
	if record == nil {
		return domain.DefaultCloseButtonLabel
	}
	if _, sub, ok := state.FindSubPanel(record.PanelID, record.SubPanelID); ok {
		return sub.CloseButtonLabel
	}
	return domain.DefaultCloseButtonLabel
}

func (s *TicketService) payload(channelID, channelName string) events.TicketPayload {
	return ticketPayload(s.store.Snapshot(), channelID, channelName)
}

func ticketPayload(state *store.State, channelID, channelName string) events.TicketPayload {
	payload := events.TicketPayload{ChannelName: channelName, Category: categoryOf(channelName)}
	record := state.TicketStatus[channelID]
	if record == nil {
		payload.PanelTitle = payload.Category
		return payload
	}
	if record.TicketType != "" {
		payload.Category = record.TicketType
	}
	payload.PanelTitle = payload.Category
	if _, sub, ok := state.FindSubPanel(record.PanelID, record.SubPanelID); ok && sub.PanelTitle != "" {
		payload.PanelTitle = sub.PanelTitle
	}
	return payload
}

func (s *TicketService) emit(ctx context.Context, kind domain.EventKind, guildID, channelID string, actor platform.Member, payload any) {
	s.metrics.RecordTransition(string(kind))
	publishEvent(ctx, s.dispatcher, s.clock, s.logger, events.Event{
		Type:      kind,
		GuildID:   guildID,
		ChannelID: channelID,
		Actor:     actorOf(actor),
		Payload:   payload,
	})
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, clk clock.Clock, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = clk.Now()
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func actorOf(m platform.Member) events.Actor {
	return events.Actor{UserID: m.ID, Name: m.Name(), AvatarURL: m.AvatarURL}
}

// categoryOf strips the closed- prefix and the sequence suffix from a ticket
// channel name.
func categoryOf(name string) string {
	name = strings.TrimPrefix(name, closedPrefix)
	if i := strings.LastIndex(name, "-"); i > 0 {
		return name[:i]
	}
	return name
}

func humanDelay(d time.Duration) string {
	if d < time.Second {
		return "a moment"
	}
	return d.Round(time.Second).String()
}
