package tickets

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/globalsign/mgo/bson"
	"github.com/hibiki-discord/hibiki/helpers"
	"github.com/hibiki-discord/hibiki/models"
	"github.com/sirupsen/logrus"
)

type memoryStore struct {
	sync.Mutex
	tickets  map[string]models.TicketEntry
	counters map[string]int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		tickets:  make(map[string]models.TicketEntry),
		counters: make(map[string]int),
	}
}

func (s *memoryStore) NextNumber(guildID string) (int, error) {
	s.Lock()
	defer s.Unlock()

	s.counters[guildID]++
	return s.counters[guildID], nil
}

func (s *memoryStore) Insert(entry models.TicketEntry) (models.TicketEntry, error) {
	s.Lock()
	defer s.Unlock()

	entry.ID = bson.NewObjectId()
	s.tickets[helpers.MdbIdToHuman(entry.ID)] = entry
	return entry, nil
}

func (s *memoryStore) ByID(id string) (models.TicketEntry, error) {
	s.Lock()
	defer s.Unlock()

	entry, ok := s.tickets[id]
	if !ok {
		return entry, ErrTicketNotFound
	}
	return entry, nil
}

func (s *memoryStore) ByChannel(guildID, channelID string) (models.TicketEntry, error) {
	s.Lock()
	defer s.Unlock()

	for _, entry := range s.tickets {
		if entry.GuildID == guildID && entry.ChannelID == channelID {
			return entry, nil
		}
	}
	return models.TicketEntry{}, ErrTicketNotFound
}

func (s *memoryStore) ActiveByOwner(guildID, ownerID string) (models.TicketEntry, bool, error) {
	s.Lock()
	defer s.Unlock()

	for _, entry := range s.tickets {
		if entry.GuildID == guildID && entry.OwnerID == ownerID && entry.Status.Active() {
			return entry, true, nil
		}
	}
	return models.TicketEntry{}, false, nil
}

func (s *memoryStore) History(guildID, ownerID string, limit int) ([]models.TicketEntry, error) {
	s.Lock()
	defer s.Unlock()

	var result []models.TicketEntry
	for _, entry := range s.tickets {
		if entry.GuildID == guildID && entry.OwnerID == ownerID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func (s *memoryStore) ListGuild(guildID string, limit int) ([]models.TicketEntry, error) {
	s.Lock()
	defer s.Unlock()

	var result []models.TicketEntry
	for _, entry := range s.tickets {
		if entry.GuildID == guildID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func (s *memoryStore) Claim(id string, staffID string) error {
	s.Lock()
	defer s.Unlock()

	entry, ok := s.tickets[id]
	if !ok {
		return ErrTicketNotFound
	}
	if entry.Status != models.TicketStatusOpen {
		return ErrInvalidTransition
	}

	entry.Status = models.TicketStatusClaimed
	entry.ClaimedBy = staffID
	s.tickets[id] = entry
	return nil
}

func (s *memoryStore) Close(id string, closedBy, resolution string, at time.Time) error {
	s.Lock()
	defer s.Unlock()

	entry, ok := s.tickets[id]
	if !ok {
		return ErrTicketNotFound
	}
	if !entry.Status.Active() {
		return ErrInvalidTransition
	}

	entry.Status = models.TicketStatusClosed
	entry.ClosedBy = closedBy
	entry.Resolution = resolution
	entry.ClosedAt = at
	s.tickets[id] = entry
	return nil
}

func (s *memoryStore) set(id string, mutate func(*models.TicketEntry)) error {
	s.Lock()
	defer s.Unlock()

	entry, ok := s.tickets[id]
	if !ok {
		return ErrTicketNotFound
	}
	mutate(&entry)
	s.tickets[id] = entry
	return nil
}

func (s *memoryStore) SetCategory(id, category string) error {
	return s.set(id, func(entry *models.TicketEntry) { entry.Category = category })
}

func (s *memoryStore) SetRating(id string, rating int) error {
	return s.set(id, func(entry *models.TicketEntry) { entry.Rating = rating })
}

func (s *memoryStore) SetResolution(id, resolution string) error {
	return s.set(id, func(entry *models.TicketEntry) { entry.Resolution = resolution })
}

func (s *memoryStore) SetTranscriptURL(id, url string) error {
	return s.set(id, func(entry *models.TicketEntry) { entry.TranscriptURL = url })
}

func (s *memoryStore) SetLogMessageID(id, messageID string) error {
	return s.set(id, func(entry *models.TicketEntry) { entry.LogMessageID = messageID })
}

func (s *memoryStore) Purge(guildID string) (int, error) {
	s.Lock()
	defer s.Unlock()

	removed := 0
	for id, entry := range s.tickets {
		if entry.GuildID == guildID {
			delete(s.tickets, id)
			removed++
		}
	}
	delete(s.counters, guildID)
	return removed, nil
}

type recordingDispatcher struct {
	sync.Mutex
	channelsCreated int
	channelsDeleted int
	archived        []string
	messages        []string
}

func (d *recordingDispatcher) CreateTicketChannel(guildID, ownerID, categoryID, name string) (string, error) {
	d.Lock()
	defer d.Unlock()

	d.channelsCreated++
	return fmt.Sprintf("channel-%d", d.channelsCreated), nil
}

func (d *recordingDispatcher) SendMessage(channelID, content string) (string, error) {
	d.Lock()
	defer d.Unlock()

	d.messages = append(d.messages, content)
	return fmt.Sprintf("message-%d", len(d.messages)), nil
}

func (d *recordingDispatcher) SendEmbed(channelID string, embed *discordgo.MessageEmbed) (string, error) {
	return d.SendMessage(channelID, embed.Title+": "+embed.Description)
}

func (d *recordingDispatcher) ArchiveChannel(channelID, ownerID string) error {
	d.Lock()
	defer d.Unlock()

	d.archived = append(d.archived, channelID)
	return nil
}

func (d *recordingDispatcher) DeleteChannel(channelID string) error {
	d.Lock()
	defer d.Unlock()

	d.channelsDeleted++
	return nil
}

func (d *recordingDispatcher) DMUser(userID, content string) error {
	return nil
}

func testSettings(guildID string) models.Config {
	settings := models.Config{}.Default(guildID)
	settings.TicketsEnabled = true
	settings.StaffRoleID = "staff-role"
	return settings
}

func staffOnly(guildID, userID string) bool {
	return userID == "staff"
}

func newTestManager() (*Manager, *memoryStore, *recordingDispatcher) {
	store := newMemoryStore()
	dispatch := new(recordingDispatcher)
	manager := NewManager(store, dispatch, testSettings, staffOnly, nil, logrus.WithField("module", "tickets"))
	manager.asyncEffects = false
	return manager, store, dispatch
}

func TestOpenCreatesTicket(t *testing.T) {
	manager, _, dispatch := newTestManager()

	ticket, err := manager.Open("guild", "owner", "my bot broke")
	if err != nil {
		t.Fatal("expected open to succeed, got", err)
	}
	if ticket.TicketNumber != 1 {
		t.Fatalf("expected ticket number 1, got %d", ticket.TicketNumber)
	}
	if ticket.Status != models.TicketStatusOpen {
		t.Fatalf("expected status OPEN, got %s", ticket.Status)
	}
	if dispatch.channelsCreated != 1 {
		t.Fatalf("expected one channel, got %d", dispatch.channelsCreated)
	}
}

func TestOpenRequiresConfiguration(t *testing.T) {
	store := newMemoryStore()
	dispatch := new(recordingDispatcher)
	manager := NewManager(store, dispatch, func(guildID string) models.Config {
		return models.Config{}.Default(guildID)
	}, staffOnly, nil, logrus.WithField("module", "tickets"))

	if _, err := manager.Open("guild", "owner", "anything"); err != ErrNotConfigured {
		t.Fatal("expected ErrNotConfigured, got", err)
	}
}

func TestOpenRejectsSecondActiveTicket(t *testing.T) {
	manager, _, dispatch := newTestManager()

	if _, err := manager.Open("guild", "owner", "first problem"); err != nil {
		t.Fatal("expected first open to succeed, got", err)
	}
	if _, err := manager.Open("guild", "owner", "second problem"); err != ErrDuplicateActiveTicket {
		t.Fatal("expected ErrDuplicateActiveTicket, got", err)
	}
	if dispatch.channelsCreated != 1 {
		t.Fatalf("expected no second channel, got %d", dispatch.channelsCreated)
	}

	// a different owner on the same guild is unaffected
	ticket, err := manager.Open("guild", "other", "unrelated")
	if err != nil {
		t.Fatal("expected open for other owner to succeed, got", err)
	}
	if ticket.TicketNumber != 2 {
		t.Fatalf("expected ticket number 2, got %d", ticket.TicketNumber)
	}
}

func TestOpenAllowsReopenAfterClose(t *testing.T) {
	manager, _, _ := newTestManager()

	first, err := manager.Open("guild", "owner", "first problem")
	if err != nil {
		t.Fatal("expected open to succeed, got", err)
	}
	if _, err := manager.Close(helpers.MdbIdToHuman(first.ID), "owner", "figured it out"); err != nil {
		t.Fatal("expected close to succeed, got", err)
	}

	second, err := manager.Open("guild", "owner", "new problem")
	if err != nil {
		t.Fatal("expected reopen to succeed, got", err)
	}
	if second.TicketNumber != 2 {
		t.Fatalf("expected ticket number 2, got %d", second.TicketNumber)
	}
}

func TestClaimRequiresStaff(t *testing.T) {
	manager, _, _ := newTestManager()

	ticket, _ := manager.Open("guild", "owner", "problem")
	if _, err := manager.Claim(helpers.MdbIdToHuman(ticket.ID), "owner"); err != ErrUnauthorized {
		t.Fatal("expected ErrUnauthorized, got", err)
	}
}

func TestConcurrentClaimsSingleWinner(t *testing.T) {
	manager, _, _ := newTestManager()
	manager.asyncEffects = true

	ticket, _ := manager.Open("guild", "owner", "problem")
	id := helpers.MdbIdToHuman(ticket.ID)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := manager.Claim(id, "staff")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	won, lost := 0, 0
	for err := range errs {
		switch err {
		case nil:
			won++
		case ErrInvalidTransition:
			lost++
		default:
			t.Fatal("unexpected claim error:", err)
		}
	}
	if won != 1 || lost != 1 {
		t.Fatalf("expected exactly one winner, got %d winners and %d losers", won, lost)
	}
}

func TestCloseCommitsBeforeSideEffects(t *testing.T) {
	manager, store, dispatch := newTestManager()

	ticket, _ := manager.Open("guild", "owner", "problem")
	id := helpers.MdbIdToHuman(ticket.ID)

	closed, err := manager.Close(id, "staff", "resolved")
	if err != nil {
		t.Fatal("expected close to succeed, got", err)
	}
	if closed.Status != models.TicketStatusClosed {
		t.Fatalf("expected status CLOSED, got %s", closed.Status)
	}

	stored, err := store.ByID(id)
	if err != nil {
		t.Fatal("expected ticket to remain stored, got", err)
	}
	if stored.Resolution != "resolved" {
		t.Fatalf("expected resolution to persist, got %q", stored.Resolution)
	}
	if len(dispatch.archived) != 1 || dispatch.archived[0] != ticket.ChannelID {
		t.Fatalf("expected the ticket channel to be archived, got %v", dispatch.archived)
	}
}

func TestCloseRejectsSecondClose(t *testing.T) {
	manager, _, dispatch := newTestManager()

	ticket, _ := manager.Open("guild", "owner", "problem")
	id := helpers.MdbIdToHuman(ticket.ID)

	if _, err := manager.Close(id, "owner", "done"); err != nil {
		t.Fatal("expected first close to succeed, got", err)
	}
	if _, err := manager.Close(id, "owner", "done again"); err != ErrInvalidTransition {
		t.Fatal("expected ErrInvalidTransition, got", err)
	}
	if len(dispatch.archived) != 1 {
		t.Fatalf("expected side effects to run once, got %d archivals", len(dispatch.archived))
	}
}

func TestCloseRequiresOwnerOrStaff(t *testing.T) {
	manager, _, _ := newTestManager()

	ticket, _ := manager.Open("guild", "owner", "problem")
	if _, err := manager.Close(helpers.MdbIdToHuman(ticket.ID), "stranger", "nope"); err != ErrUnauthorized {
		t.Fatal("expected ErrUnauthorized, got", err)
	}
}

func TestRatingValidatesBeforeWrite(t *testing.T) {
	manager, store, _ := newTestManager()

	ticket, _ := manager.Open("guild", "owner", "problem")
	id := helpers.MdbIdToHuman(ticket.ID)
	manager.Close(id, "staff", "resolved")

	err := manager.SetRating(id, "owner", 6)
	if !IsValidationError(err) {
		t.Fatal("expected a validation error, got", err)
	}

	stored, _ := store.ByID(id)
	if stored.Rating != 0 {
		t.Fatalf("expected rating to stay unset, got %d", stored.Rating)
	}

	if err := manager.SetRating(id, "owner", 4); err != nil {
		t.Fatal("expected valid rating to succeed, got", err)
	}
	stored, _ = store.ByID(id)
	if stored.Rating != 4 {
		t.Fatalf("expected rating 4, got %d", stored.Rating)
	}
}

func TestRatingRequiresClosedTicket(t *testing.T) {
	manager, _, _ := newTestManager()

	ticket, _ := manager.Open("guild", "owner", "problem")
	if err := manager.SetRating(helpers.MdbIdToHuman(ticket.ID), "owner", 3); err != ErrInvalidTransition {
		t.Fatal("expected ErrInvalidTransition, got", err)
	}
}

func TestCategoryStaffOnlyOnClosed(t *testing.T) {
	manager, store, _ := newTestManager()

	ticket, _ := manager.Open("guild", "owner", "problem")
	id := helpers.MdbIdToHuman(ticket.ID)

	if err := manager.SetCategory(id, "staff", "billing"); err != ErrInvalidTransition {
		t.Fatal("expected ErrInvalidTransition on open ticket, got", err)
	}

	manager.Close(id, "staff", "resolved")

	if err := manager.SetCategory(id, "owner", "billing"); err != ErrUnauthorized {
		t.Fatal("expected ErrUnauthorized, got", err)
	}
	if err := manager.SetCategory(id, "staff", "billing"); err != nil {
		t.Fatal("expected category to be set, got", err)
	}

	stored, _ := store.ByID(id)
	if stored.Category != "billing" {
		t.Fatalf("expected category billing, got %q", stored.Category)
	}
}

func TestPurgeRemovesGuildTickets(t *testing.T) {
	manager, _, _ := newTestManager()

	manager.Open("guild", "owner", "problem")
	manager.Open("guild", "other", "problem")
	manager.Open("elsewhere", "owner", "problem")

	removed, err := manager.Purge("guild")
	if err != nil {
		t.Fatal("expected purge to succeed, got", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed tickets, got %d", removed)
	}

	remaining, _ := manager.ListGuild("elsewhere", 0)
	if len(remaining) != 1 {
		t.Fatalf("expected the other guild untouched, got %d tickets", len(remaining))
	}

	// the counter restarts per guild after a purge
	ticket, _ := manager.Open("guild", "owner", "fresh start")
	if ticket.TicketNumber != 1 {
		t.Fatalf("expected numbering to restart at 1, got %d", ticket.TicketNumber)
	}
}
