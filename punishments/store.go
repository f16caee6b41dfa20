// Package punishments tracks active punishment windows per subject.
// The redis cache is the authoritative source, the database row is a
// slower fallback so punishments survive restarts. A dead cache never
// blocks message processing: reads fail open to "not punished".
package punishments

import (
	"fmt"
	"time"

	rediscache "github.com/go-redis/cache"
	"github.com/hibiki-discord/hibiki/models"
	"github.com/sirupsen/logrus"
)

// Cache is the subset of the redis cache codec the store needs.
// *rediscache.Codec satisfies it.
type Cache interface {
	Get(key string, object interface{}) error
	Set(item *rediscache.Item) error
	Delete(key string) error
}

// Durable persists punishments across restarts. May be nil, in which
// case punishments only live as long as the cache TTL.
type Durable interface {
	Upsert(entry models.PunishmentEntry) error
	Get(guildID, userID string) (models.PunishmentEntry, bool, error)
	Delete(guildID, userID string) error
	CountSince(guildID, userID string, since time.Time) (int, error)
}

// State is an active punishment window.
type State struct {
	GuildID       string
	SubjectID     string
	PunishedUntil time.Time
	Verdict       string
}

type Store struct {
	cache   Cache
	durable Durable
	log     *logrus.Entry
}

// NewStore wires an explicitly constructed store. $durable may be nil.
func NewStore(cache Cache, durable Durable, log *logrus.Entry) *Store {
	return &Store{
		cache:   cache,
		durable: durable,
		log:     log,
	}
}

func redisKey(guildID, subjectID string) string {
	return fmt.Sprintf(models.PunishmentRedisKey, guildID, subjectID)
}

// Get returns the active punishment for the subject, or nil when the
// subject is not punished. Expired entries are cleared on read.
func (s *Store) Get(guildID, subjectID string, now time.Time) *State {
	key := redisKey(guildID, subjectID)

	var cached models.PunishmentRedisEntry
	err := s.cache.Get(key, &cached)
	switch {
	case err == nil:
		if cached.PunishedUntil.After(now) {
			return &State{
				GuildID:       guildID,
				SubjectID:     subjectID,
				PunishedUntil: cached.PunishedUntil,
				Verdict:       cached.Verdict,
			}
		}
		s.clear(guildID, subjectID, key)
		return nil
	case err == rediscache.ErrCacheMiss:
		return s.getDurable(guildID, subjectID, key, now)
	default:
		// cache down, fail open so messages keep flowing
		s.log.Warn("punishment cache read failed, failing open: ", err.Error())
		return nil
	}
}

func (s *Store) getDurable(guildID, subjectID, key string, now time.Time) *State {
	if s.durable == nil {
		return nil
	}

	entry, found, err := s.durable.Get(guildID, subjectID)
	if err != nil {
		s.log.Warn("punishment fallback read failed, failing open: ", err.Error())
		return nil
	}
	if !found {
		return nil
	}

	if !entry.PunishedUntil.After(now) {
		s.clear(guildID, subjectID, key)
		return nil
	}

	// repopulate the cache for the rest of the window
	err = s.cache.Set(&rediscache.Item{
		Key: key,
		Object: models.PunishmentRedisEntry{
			PunishedUntil: entry.PunishedUntil,
			Verdict:       entry.Verdict,
		},
		Expiration: entry.PunishedUntil.Sub(now),
	})
	if err != nil {
		s.log.Warn("punishment cache repopulate failed: ", err.Error())
	}

	return &State{
		GuildID:       guildID,
		SubjectID:     subjectID,
		PunishedUntil: entry.PunishedUntil,
		Verdict:       entry.Verdict,
	}
}

// Punish records a punishment window ending at $until. The cache TTL
// mirrors the window so entries vanish on their own.
func (s *Store) Punish(guildID, subjectID string, verdict string, now, until time.Time) error {
	err := s.cache.Set(&rediscache.Item{
		Key: redisKey(guildID, subjectID),
		Object: models.PunishmentRedisEntry{
			PunishedUntil: until,
			Verdict:       verdict,
		},
		Expiration: until.Sub(now),
	})
	if err != nil {
		s.log.Warn("punishment cache write failed: ", err.Error())
	}

	if s.durable != nil {
		durableErr := s.durable.Upsert(models.PunishmentEntry{
			GuildID:       guildID,
			UserID:        subjectID,
			PunishedUntil: until,
			Verdict:       verdict,
			CreatedAt:     now,
		})
		if durableErr != nil {
			s.log.Warn("punishment fallback write failed: ", durableErr.Error())
			// the cache write carried the state, only fail when both died
			if err != nil {
				return durableErr
			}
			return nil
		}
		// the durable row carried the state
		return nil
	}

	return err
}

// ClearExpired removes the punishment when its window has passed
func (s *Store) ClearExpired(guildID, subjectID string, now time.Time) {
	if state := s.Get(guildID, subjectID, now); state == nil {
		return
	} else if !state.PunishedUntil.After(now) {
		s.clear(guildID, subjectID, redisKey(guildID, subjectID))
	}
}

// OffenseCount reports how many punishments the subject collected since
// $since, used for the explicit escalation rule.
func (s *Store) OffenseCount(guildID, subjectID string, since time.Time) int {
	if s.durable == nil {
		return 0
	}

	count, err := s.durable.CountSince(guildID, subjectID, since)
	if err != nil {
		s.log.Warn("punishment offense count failed: ", err.Error())
		return 0
	}
	return count
}

func (s *Store) clear(guildID, subjectID, key string) {
	if err := s.cache.Delete(key); err != nil && err != rediscache.ErrCacheMiss {
		s.log.Warn("punishment cache delete failed: ", err.Error())
	}
	if s.durable != nil {
		if err := s.durable.Delete(guildID, subjectID); err != nil {
			s.log.Warn("punishment fallback delete failed: ", err.Error())
		}
	}
}

// Duration resolves the punishment window length from the guild
// settings, applying the escalation multiplier per prior offense when
// one is configured. Escalation is explicit configuration, never an
// implicit default.
func Duration(settings models.Config, priorOffenses int) time.Duration {
	duration := settings.SpamPunishmentDuration
	if duration <= 0 {
		duration = 10 * time.Minute
	}

	if settings.SpamPunishmentEscalation > 1 && priorOffenses > 0 {
		scaled := float64(duration)
		for i := 0; i < priorOffenses; i++ {
			scaled *= settings.SpamPunishmentEscalation
		}
		duration = time.Duration(scaled)
	}

	return duration
}
