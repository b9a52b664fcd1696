// Package tests provides in-memory fakes shared by the service level test
// suites. They mirror the persistence and gateway behaviour closely enough to
// exercise the execution and reconciliation paths without a live backend.
package tests

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/wardenbot/warden/internal/action"
	"github.com/wardenbot/warden/internal/cases"
	"github.com/wardenbot/warden/internal/database"
	"github.com/wardenbot/warden/internal/discord"
	"github.com/wardenbot/warden/internal/settings"
)

// MemoryStore implements the case store interfaces backed by maps. Case ids
// are allocated per guild the same way the counter table does.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]int64
	cases    map[string]cases.Case
	tempBans map[string]cases.TempBan
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		counters: map[string]int64{},
		cases:    map[string]cases.Case{},
		tempBans: map[string]cases.TempBan{},
	}
}

func caseKey(guildID string, caseID int64) string {
	return fmt.Sprintf("%s/%d", guildID, caseID)
}

func (m *MemoryStore) Create(_ context.Context, kase cases.Case, tempBan *cases.TempBan) (cases.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counters[kase.GuildID]++
	kase.CaseID = m.counters[kase.GuildID]
	m.cases[caseKey(kase.GuildID, kase.CaseID)] = kase

	if tempBan != nil {
		m.tempBans[tempBan.GuildID+"/"+tempBan.UserID] = *tempBan
	}

	if kase.Kind == action.Unban {
		delete(m.tempBans, kase.GuildID+"/"+kase.TargetID)
	}

	return kase, nil
}

func (m *MemoryStore) Delete(_ context.Context, kase cases.Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.cases, caseKey(kase.GuildID, kase.CaseID))

	if kase.Kind == action.TempBan {
		delete(m.tempBans, kase.GuildID+"/"+kase.TargetID)
	}

	return nil
}

func (m *MemoryStore) FindByID(_ context.Context, guildID string, caseID int64) (cases.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kase, found := m.cases[caseKey(guildID, caseID)]
	if !found {
		return cases.Case{}, database.ErrNoResult
	}

	return kase, nil
}

func (m *MemoryStore) FindByUserNotPending(_ context.Context, guildID string, userID string) ([]cases.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var results []cases.Case

	for _, kase := range m.cases {
		if kase.GuildID == guildID && kase.TargetID == userID && !kase.Pending {
			results = append(results, kase)
		}
	}

	return results, nil
}

func (m *MemoryStore) FindPending(_ context.Context, guildID string, targetID string, kind action.Kind, maxAge time.Duration) (cases.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		best  cases.Case
		found bool
	)

	cutoff := time.Now().Add(-maxAge)

	for _, kase := range m.cases {
		if kase.GuildID != guildID || kase.TargetID != targetID || kase.Kind != kind {
			continue
		}

		if !kase.Pending || kase.ActionTime.Before(cutoff) {
			continue
		}

		if !found || kase.ActionTime.After(best.ActionTime) {
			best = kase
			found = true
		}
	}

	if !found {
		return cases.Case{}, database.ErrNoResult
	}

	return best, nil
}

func (m *MemoryStore) MarkSettled(_ context.Context, guildID string, caseID int64) error {
	return m.update(guildID, caseID, func(kase cases.Case) cases.Case {
		return kase.Settled()
	})
}

func (m *MemoryStore) SetLogMessageID(_ context.Context, guildID string, caseID int64, messageID string) error {
	return m.update(guildID, caseID, func(kase cases.Case) cases.Case {
		return kase.WithLogMessageID(messageID)
	})
}

func (m *MemoryStore) SetNotification(_ context.Context, guildID string, caseID int64, notification cases.Notification) error {
	return m.update(guildID, caseID, func(kase cases.Case) cases.Case {
		return kase.WithNotification(notification)
	})
}

func (m *MemoryStore) SetReason(_ context.Context, guildID string, caseID int64, reason string) error {
	return m.update(guildID, caseID, func(kase cases.Case) cases.Case {
		return kase.WithReason(reason)
	})
}

func (m *MemoryStore) SetReasonRange(_ context.Context, guildID string, fromID int64, toID int64, reason string) error {
	for caseID := fromID; caseID <= toID; caseID++ {
		if errUpdate := m.update(guildID, caseID, func(kase cases.Case) cases.Case {
			return kase.WithReason(reason)
		}); errUpdate != nil {
			return errUpdate
		}
	}

	return nil
}

func (m *MemoryStore) update(guildID string, caseID int64, mutate func(cases.Case) cases.Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kase, found := m.cases[caseKey(guildID, caseID)]
	if !found {
		return database.ErrNoResult
	}

	m.cases[caseKey(guildID, caseID)] = mutate(kase)

	return nil
}

// Case returns the stored case for assertions, failing silently with a zero
// value when missing.
func (m *MemoryStore) Case(guildID string, caseID int64) (cases.Case, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kase, found := m.cases[caseKey(guildID, caseID)]

	return kase, found
}

func (m *MemoryStore) CaseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.cases)
}

func (m *MemoryStore) TempBan(guildID string, userID string) (cases.TempBan, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tempBan, found := m.tempBans[guildID+"/"+userID]

	return tempBan, found
}

// PlatformCall records one gateway mutation for order sensitive assertions.
type PlatformCall struct {
	Op       string
	GuildID  string
	UserID   string
	Reason   string
	Duration time.Duration
}

// Platform is a scripted gateway double. Errors keyed by op are returned on
// the matching call.
type Platform struct {
	mu     sync.Mutex
	Calls  []PlatformCall
	Errors map[string]error
}

func NewPlatform() *Platform {
	return &Platform{Errors: map[string]error{}}
}

func (p *Platform) record(call PlatformCall) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Calls = append(p.Calls, call)

	return p.Errors[call.Op]
}

func (p *Platform) BanMember(_ context.Context, guildID string, userID string, reason string, _ int) error {
	return p.record(PlatformCall{Op: "ban", GuildID: guildID, UserID: userID, Reason: reason})
}

func (p *Platform) UnbanMember(_ context.Context, guildID string, userID string) error {
	return p.record(PlatformCall{Op: "unban", GuildID: guildID, UserID: userID})
}

func (p *Platform) KickMember(_ context.Context, guildID string, userID string, reason string) error {
	return p.record(PlatformCall{Op: "kick", GuildID: guildID, UserID: userID, Reason: reason})
}

func (p *Platform) TimeoutMember(_ context.Context, guildID string, userID string, dur time.Duration) error {
	return p.record(PlatformCall{Op: "timeout", GuildID: guildID, UserID: userID, Duration: dur})
}

func (p *Platform) RemoveTimeout(_ context.Context, guildID string, userID string) error {
	return p.record(PlatformCall{Op: "remove_timeout", GuildID: guildID, UserID: userID})
}

// Notifier fakes the DM channel. SendErr makes every send fail; deletions are
// tracked so rollback behaviour can be asserted.
type Notifier struct {
	mu      sync.Mutex
	SendErr error
	Sent    []discord.SentMessage
	Deleted []discord.SentMessage
	nextID  int
}

func NewNotifier() *Notifier {
	return &Notifier{}
}

func (n *Notifier) SendDM(_ context.Context, userID string, _ *discordgo.MessageEmbed) (discord.SentMessage, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.SendErr != nil {
		return discord.SentMessage{}, n.SendErr
	}

	n.nextID++
	sent := discord.SentMessage{
		ChannelID: "dm-" + userID,
		MessageID: fmt.Sprintf("msg-%d", n.nextID),
	}
	n.Sent = append(n.Sent, sent)

	return sent, nil
}

func (n *Notifier) DeleteDM(_ context.Context, sent discord.SentMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.Deleted = append(n.Deleted, sent)

	return nil
}

func (n *Notifier) SentCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return len(n.Sent)
}

// Poster fakes the case log channel.
type Poster struct {
	mu      sync.Mutex
	PostErr error
	Posted  []string
	Edited  []string
	nextID  int
}

func NewPoster() *Poster {
	return &Poster{}
}

func (p *Poster) Post(_ context.Context, channelID string, kase cases.Case) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.PostErr != nil {
		return "", p.PostErr
	}

	p.nextID++
	messageID := fmt.Sprintf("log-%d", p.nextID)
	p.Posted = append(p.Posted, fmt.Sprintf("%s/%s/case-%d", channelID, messageID, kase.CaseID))

	return messageID, nil
}

func (p *Poster) Edit(_ context.Context, channelID string, messageID string, kase cases.Case) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Edited = append(p.Edited, fmt.Sprintf("%s/%s/case-%d", channelID, messageID, kase.CaseID))

	return nil
}

func (p *Poster) PostCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.Posted)
}

// Settings serves a single fixed guild configuration.
type Settings struct {
	Config settings.Guild
}

func NewSettings(guild settings.Guild) *Settings {
	return &Settings{Config: guild}
}

func (s *Settings) Guild(_ context.Context, guildID string) (settings.Guild, error) {
	guild := s.Config
	guild.GuildID = guildID

	return guild, nil
}

// Members fakes guild membership lookups.
type Members struct {
	mu        sync.Mutex
	members   map[string]*discordgo.Member
	guildName string
}

func NewMembers(guildName string) *Members {
	return &Members{members: map[string]*discordgo.Member{}, guildName: guildName}
}

func (m *Members) Add(userID string, member *discordgo.Member) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if member == nil {
		member = &discordgo.Member{User: &discordgo.User{ID: userID, Username: "user-" + userID}}
	}

	m.members[userID] = member
}

func (m *Members) Member(_ context.Context, _ string, userID string) (*discordgo.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	member, found := m.members[userID]
	if !found {
		return nil, database.ErrNoResult
	}

	return member, nil
}

func (m *Members) IsMember(_ context.Context, _ string, userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, found := m.members[userID]

	return found
}

func (m *Members) GuildName(_ string) string {
	return m.guildName
}

// Hierarchy allows everything unless a target is explicitly denied.
type Hierarchy struct {
	Denied map[string]bool
}

func NewHierarchy() *Hierarchy {
	return &Hierarchy{Denied: map[string]bool{}}
}

func (h *Hierarchy) CanActOn(_ context.Context, _ string, _ string, targetID string) (bool, error) {
	return !h.Denied[targetID], nil
}
