// Package fake is an in-memory chat platform for tests.
package fake

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/platform"
)

// BotID is the author id of every message the fake sends.
const BotID = "bot"

// Reaction records an AddReaction call.
type Reaction struct {
	ChannelID string
	MessageID string
	Emoji     string
}

// Platform implements platform.Platform over maps.
type Platform struct {
	mu sync.Mutex

	nextID    int
	now       time.Time
	guilds    map[string]*platform.Guild
	roles     map[string]map[string]*platform.Role
	members   map[string]map[string]*platform.Member
	channels  map[string]*platform.Channel
	messages  map[string][]*platform.Message
	reactions []Reaction
	failures  map[string]error
	calls     []string
}

var _ platform.Platform = (*Platform)(nil)

// New returns a platform with one guild whose everyone role shares its id.
func New(guildID, guildName, ownerID string) *Platform {
	p := &Platform{
		nextID:   1000,
		now:      time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC),
		guilds:   make(map[string]*platform.Guild),
		roles:    make(map[string]map[string]*platform.Role),
		members:  make(map[string]map[string]*platform.Member),
		channels: make(map[string]*platform.Channel),
		messages: make(map[string][]*platform.Message),
		failures: make(map[string]error),
	}
	p.guilds[guildID] = &platform.Guild{ID: guildID, Name: guildName, OwnerID: ownerID}
	p.roles[guildID] = map[string]*platform.Role{guildID: {ID: guildID, Name: "@everyone"}}
	p.members[guildID] = map[string]*platform.Member{
		BotID: {ID: BotID, Username: "ticket-bot", Bot: true},
	}
	return p
}

func (p *Platform) newID() string {
	p.nextID++
	return strconv.Itoa(p.nextID)
}

// AddRole registers a role.
func (p *Platform) AddRole(guildID string, role platform.Role) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r := role
	p.roles[guildID][role.ID] = &r
}

// RemoveRole deletes a role.
func (p *Platform) RemoveRole(guildID, roleID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.roles[guildID], roleID)
}

// AddMember registers a member.
func (p *Platform) AddMember(guildID string, member platform.Member) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m := member
	m.Roles = append([]string(nil), member.Roles...)
	p.members[guildID][member.ID] = &m
}

// RemoveMember makes a member leave the guild.
func (p *Platform) RemoveMember(guildID, userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.members[guildID], userID)
}

// AddChannel registers an existing channel.
func (p *Platform) AddChannel(channel platform.Channel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := channel
	c.Overwrites = append([]domain.Overlay(nil), channel.Overwrites...)
	p.channels[c.ID] = &c
}

// Post appends a message authored by a member.
func (p *Platform) Post(channelID string, author platform.Member, content string, attachments ...platform.Attachment) *platform.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.now = p.now.Add(time.Minute)
	msg := &platform.Message{
		ID:          p.newID(),
		ChannelID:   channelID,
		Author:      author,
		Content:     content,
		Timestamp:   p.now,
		Attachments: attachments,
	}
	p.messages[channelID] = append(p.messages[channelID], msg)
	return msg
}

// FailNext makes the next call of operation return err.
func (p *Platform) FailNext(operation string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[operation] = err
}

// FailNextIn makes the next call of operation against channelID return err.
// Calls against other channels are unaffected.
func (p *Platform) FailNextIn(operation, channelID string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[operation+"@"+channelID] = err
}

// enterIn is enter for calls that target one channel.
func (p *Platform) enterIn(operation, channelID string) error {
	key := operation + "@" + channelID
	if err, ok := p.failures[key]; ok {
		p.calls = append(p.calls, operation)
		delete(p.failures, key)
		return err
	}
	return p.enter(operation)
}

func (p *Platform) enter(operation string) error {
	p.calls = append(p.calls, operation)
	if err, ok := p.failures[operation]; ok {
		delete(p.failures, operation)
		return err
	}
	return nil
}

// Calls lists operation names in call order.
func (p *Platform) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// Messages returns a copy of a channel's messages, oldest first.
func (p *Platform) Messages(channelID string) []platform.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]platform.Message, 0, len(p.messages[channelID]))
	for _, m := range p.messages[channelID] {
		out = append(out, *m)
	}
	return out
}

// Reactions returns every reaction added.
func (p *Platform) Reactions() []Reaction {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Reaction(nil), p.reactions...)
}

// ChannelByName finds a live channel.
func (p *Platform) ChannelByName(name string) (*platform.Channel, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.channels {
		if c.Name == name {
			return cloneChannel(c), true
		}
	}
	return nil, false
}

// ChannelNames lists live channel names sorted.
func (p *Platform) ChannelNames() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.channels))
	for _, c := range p.channels {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names
}

func cloneChannel(c *platform.Channel) *platform.Channel {
	out := *c
	out.Overwrites = make([]domain.Overlay, len(c.Overwrites))
	for i, o := range c.Overwrites {
		out.Overwrites[i] = domain.Overlay{
			ID:    o.ID,
			Type:  o.Type,
			Allow: append([]domain.Capability(nil), o.Allow...),
			Deny:  append([]domain.Capability(nil), o.Deny...),
		}
	}
	return &out
}

func (p *Platform) Guild(_ context.Context, guildID string) (*platform.Guild, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter("Guild"); err != nil {
		return nil, err
	}
	g, ok := p.guilds[guildID]
	if !ok {
		return nil, platform.ErrNotFound
	}
	out := *g
	return &out, nil
}

func (p *Platform) Role(_ context.Context, guildID, roleID string) (*platform.Role, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter("Role"); err != nil {
		return nil, err
	}
	r, ok := p.roles[guildID][roleID]
	if !ok {
		return nil, platform.ErrNotFound
	}
	out := *r
	return &out, nil
}

func (p *Platform) Roles(_ context.Context, guildID string) ([]platform.Role, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter("Roles"); err != nil {
		return nil, err
	}
	out := make([]platform.Role, 0, len(p.roles[guildID]))
	for _, r := range p.roles[guildID] {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (p *Platform) Member(_ context.Context, guildID, userID string) (*platform.Member, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter("Member"); err != nil {
		return nil, err
	}
	m, ok := p.members[guildID][userID]
	if !ok {
		return nil, platform.ErrNotFound
	}
	out := *m
	out.Roles = append([]string(nil), m.Roles...)
	return &out, nil
}

func (p *Platform) Members(_ context.Context, guildID string) ([]platform.Member, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter("Members"); err != nil {
		return nil, err
	}
	out := make([]platform.Member, 0, len(p.members[guildID]))
	for _, m := range p.members[guildID] {
		member := *m
		member.Roles = append([]string(nil), m.Roles...)
		out = append(out, member)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (p *Platform) Channel(_ context.Context, channelID string) (*platform.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter("Channel"); err != nil {
		return nil, err
	}
	c, ok := p.channels[channelID]
	if !ok {
		return nil, platform.ErrNotFound
	}
	return cloneChannel(c), nil
}

func (p *Platform) Message(_ context.Context, channelID, messageID string) (*platform.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter("Message"); err != nil {
		return nil, err
	}
	for _, m := range p.messages[channelID] {
		if m.ID == messageID {
			out := *m
			return &out, nil
		}
	}
	return nil, platform.ErrNotFound
}

func (p *Platform) CreateTextChannel(_ context.Context, guildID string, spec platform.ChannelSpec) (*platform.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter("CreateTextChannel"); err != nil {
		return nil, err
	}
	if _, ok := p.guilds[guildID]; !ok {
		return nil, platform.ErrNotFound
	}
	c := &platform.Channel{
		ID:         p.newID(),
		GuildID:    guildID,
		ParentID:   spec.ParentID,
		Name:       spec.Name,
		Overwrites: append([]domain.Overlay(nil), spec.Overlays...),
	}
	p.channels[c.ID] = c
	return cloneChannel(c), nil
}

func (p *Platform) RenameChannel(_ context.Context, channelID, name, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter("RenameChannel"); err != nil {
		return err
	}
	c, ok := p.channels[channelID]
	if !ok {
		return platform.ErrNotFound
	}
	c.Name = name
	return nil
}

func (p *Platform) DeleteChannel(_ context.Context, channelID, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter("DeleteChannel"); err != nil {
		return err
	}
	if _, ok := p.channels[channelID]; !ok {
		return platform.ErrNotFound
	}
	delete(p.channels, channelID)
	delete(p.messages, channelID)
	return nil
}

func (p *Platform) SetOverwrite(_ context.Context, channelID string, overwrite domain.Overlay, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter("SetOverwrite"); err != nil {
		return err
	}
	c, ok := p.channels[channelID]
	if !ok {
		return platform.ErrNotFound
	}
	for i, o := range c.Overwrites {
		if o.Type == overwrite.Type && o.ID == overwrite.ID {
			c.Overwrites[i] = overwrite
			return nil
		}
	}
	c.Overwrites = append(c.Overwrites, overwrite)
	return nil
}

func (p *Platform) SendMessage(_ context.Context, channelID string, msg platform.OutgoingMessage) (*platform.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enterIn("SendMessage", channelID); err != nil {
		return nil, err
	}
	if _, ok := p.channels[channelID]; !ok {
		return nil, fmt.Errorf("send to %s: %w", channelID, platform.ErrNotFound)
	}
	p.now = p.now.Add(time.Second)
	sent := &platform.Message{
		ID:         p.newID(),
		ChannelID:  channelID,
		Author:     *p.members[p.channels[channelID].GuildID][BotID],
		Content:    msg.Content,
		Timestamp:  p.now,
		Embeds:     msg.Embeds,
		Components: msg.Components,
	}
	for _, f := range msg.Files {
		sent.Attachments = append(sent.Attachments, platform.Attachment{
			Filename: f.Name,
			URL:      "https://cdn.invalid/" + f.Name,
			Size:     len(f.Data),
		})
	}
	p.messages[channelID] = append(p.messages[channelID], sent)
	out := *sent
	return &out, nil
}

func (p *Platform) EditMessage(_ context.Context, channelID, messageID string, msg platform.OutgoingMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter("EditMessage"); err != nil {
		return err
	}
	for _, m := range p.messages[channelID] {
		if m.ID == messageID {
			m.Content = msg.Content
			m.Embeds = msg.Embeds
			m.Components = msg.Components
			return nil
		}
	}
	return platform.ErrNotFound
}

func (p *Platform) DeleteMessage(_ context.Context, channelID, messageID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter("DeleteMessage"); err != nil {
		return err
	}
	for i, m := range p.messages[channelID] {
		if m.ID == messageID {
			p.messages[channelID] = append(p.messages[channelID][:i], p.messages[channelID][i+1:]...)
			return nil
		}
	}
	return platform.ErrNotFound
}

func (p *Platform) AddReaction(_ context.Context, channelID, messageID, emoji string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter("AddReaction"); err != nil {
		return err
	}
	p.reactions = append(p.reactions, Reaction{ChannelID: channelID, MessageID: messageID, Emoji: emoji})
	return nil
}

func (p *Platform) History(_ context.Context, channelID string) ([]platform.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter("History"); err != nil {
		return nil, err
	}
	if _, ok := p.channels[channelID]; !ok {
		return nil, platform.ErrNotFound
	}
	out := make([]platform.Message, 0, len(p.messages[channelID]))
	for _, m := range p.messages[channelID] {
		out = append(out, *m)
	}
	return out, nil
}
