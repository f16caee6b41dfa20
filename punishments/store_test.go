package punishments

import (
	"testing"
	"time"

	rediscache "github.com/go-redis/cache"
	"github.com/hibiki-discord/hibiki/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type fakeCache struct {
	items  map[string]models.PunishmentRedisEntry
	broken bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: make(map[string]models.PunishmentRedisEntry)}
}

func (f *fakeCache) Get(key string, object interface{}) error {
	if f.broken {
		return errors.New("connection refused")
	}
	item, ok := f.items[key]
	if !ok {
		return rediscache.ErrCacheMiss
	}
	*(object.(*models.PunishmentRedisEntry)) = item
	return nil
}

func (f *fakeCache) Set(item *rediscache.Item) error {
	if f.broken {
		return errors.New("connection refused")
	}
	f.items[item.Key] = item.Object.(models.PunishmentRedisEntry)
	return nil
}

func (f *fakeCache) Delete(key string) error {
	if f.broken {
		return errors.New("connection refused")
	}
	if _, ok := f.items[key]; !ok {
		return rediscache.ErrCacheMiss
	}
	delete(f.items, key)
	return nil
}

type fakeDurable struct {
	entries []models.PunishmentEntry
}

func (f *fakeDurable) Upsert(entry models.PunishmentEntry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeDurable) Get(guildID, userID string) (models.PunishmentEntry, bool, error) {
	var latest models.PunishmentEntry
	found := false
	for _, entry := range f.entries {
		if entry.GuildID != guildID || entry.UserID != userID {
			continue
		}
		if !found || entry.PunishedUntil.After(latest.PunishedUntil) {
			latest = entry
			found = true
		}
	}
	return latest, found, nil
}

func (f *fakeDurable) Delete(guildID, userID string) error {
	return nil
}

func (f *fakeDurable) CountSince(guildID, userID string, since time.Time) (int, error) {
	count := 0
	for _, entry := range f.entries {
		if entry.GuildID == guildID && entry.UserID == userID && !entry.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func testLogger() *logrus.Entry {
	return logrus.New().WithField("module", "punishments-test")
}

func TestStorePunishAndGet(t *testing.T) {
	store := NewStore(newFakeCache(), &fakeDurable{}, testLogger())
	now := time.Now()
	until := now.Add(10 * time.Minute)

	err := store.Punish("guild-1", "user-1", "single-channel-spam", now, until)
	if err != nil {
		t.Fatalf("punishments.Store.Punish() returned error: %s", err.Error())
	}

	// active for any query time before until
	state := store.Get("guild-1", "user-1", until.Add(-1*time.Second))
	if state == nil {
		t.Fatal("punishments.Store.Get() returned nil for an active window")
	}
	if !state.PunishedUntil.Equal(until) {
		t.Fatalf("punishments.Store.Get() returned wrong window end: %v", state.PunishedUntil)
	}

	// gone for any query time at or past until
	if store.Get("guild-1", "user-1", until) != nil {
		t.Fatal("punishments.Store.Get() returned a window queried exactly at its end")
	}
	if store.Get("guild-1", "user-1", until.Add(time.Hour)) != nil {
		t.Fatal("punishments.Store.Get() returned an expired window")
	}
}

func TestStoreGetUnknownSubject(t *testing.T) {
	store := NewStore(newFakeCache(), nil, testLogger())

	if store.Get("guild-1", "user-unknown", time.Now()) != nil {
		t.Fatal("punishments.Store.Get() invented a punishment for an unknown subject")
	}
}

func TestStoreDurableFallbackRepopulatesCache(t *testing.T) {
	cache := newFakeCache()
	durable := &fakeDurable{}
	store := NewStore(cache, durable, testLogger())
	now := time.Now()
	until := now.Add(30 * time.Minute)

	// simulate a restart: the durable row exists, the cache is cold
	durable.Upsert(models.PunishmentEntry{
		GuildID:       "guild-1",
		UserID:        "user-1",
		PunishedUntil: until,
		Verdict:       "multi-channel-spam",
		CreatedAt:     now,
	})

	state := store.Get("guild-1", "user-1", now)
	if state == nil {
		t.Fatal("punishments.Store.Get() missed the durable fallback row")
	}
	if state.Verdict != "multi-channel-spam" {
		t.Fatalf("punishments.Store.Get() returned wrong verdict: %s", state.Verdict)
	}

	if len(cache.items) != 1 {
		t.Fatal("punishments.Store.Get() did not repopulate the cache from the fallback")
	}
}

func TestStoreFailsOpenOnBrokenCache(t *testing.T) {
	cache := newFakeCache()
	cache.broken = true
	store := NewStore(cache, &fakeDurable{}, testLogger())

	if store.Get("guild-1", "user-1", time.Now()) != nil {
		t.Fatal("punishments.Store.Get() did not fail open with a broken cache")
	}
}

func TestStoreOffenseCount(t *testing.T) {
	durable := &fakeDurable{}
	store := NewStore(newFakeCache(), durable, testLogger())
	now := time.Now()

	store.Punish("guild-1", "user-1", "single-channel-spam", now.Add(-2*time.Hour), now.Add(-110*time.Minute))
	store.Punish("guild-1", "user-1", "single-channel-spam", now, now.Add(10*time.Minute))

	if got := store.OffenseCount("guild-1", "user-1", now.Add(-24*time.Hour)); got != 2 {
		t.Fatalf("punishments.Store.OffenseCount() = %d, expected 2", got)
	}
	if got := store.OffenseCount("guild-1", "user-1", now.Add(-1*time.Hour)); got != 1 {
		t.Fatalf("punishments.Store.OffenseCount() = %d inside the repeat window, expected 1", got)
	}
}

func TestDurationEscalation(t *testing.T) {
	settings := models.Config{}.Default("guild-1")
	settings.SpamPunishmentDuration = 10 * time.Minute

	if got := Duration(settings, 0); got != 10*time.Minute {
		t.Fatalf("punishments.Duration() = %v for a first offense, expected 10m", got)
	}

	// flat by default, escalation only when configured
	if got := Duration(settings, 3); got != 10*time.Minute {
		t.Fatalf("punishments.Duration() = %v without escalation configured, expected 10m", got)
	}

	settings.SpamPunishmentEscalation = 2
	if got := Duration(settings, 2); got != 40*time.Minute {
		t.Fatalf("punishments.Duration() = %v with multiplier 2 after 2 offenses, expected 40m", got)
	}
}
