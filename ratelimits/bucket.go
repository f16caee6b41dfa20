package ratelimits

import (
	"errors"
	"sync"
	"time"
)

const (
	// How many keys a bucket holds when created
	BUCKET_INITIAL_FILL = 16

	// The maximum amount of keys a user may possess
	BUCKET_UPPER_BOUND = 32

	// How often new keys drip into the buckets
	DROP_INTERVAL = 10 * time.Second

	// How many keys may drop at a time
	DROP_SIZE = 1
)

// Global pointer to a container instance
var Container = &BucketContainer{}

// BucketContainer guards the per-user key counts
type BucketContainer struct {
	sync.RWMutex

	// Maps discord ids to key-counts
	buckets map[string]int8
}

// Init allocates the map and starts the refiller
func (b *BucketContainer) Init() {
	b.Lock()
	b.buckets = make(map[string]int8)
	b.Unlock()

	go b.Refiller()
}

// Refiller refills user buckets in a set interval
func (b *BucketContainer) Refiller() {
	for {
		b.Lock()
		for user, keys := range b.buckets {
			// Chill zone
			if keys == -1 {
				b.buckets[user]++
				continue
			}

			// Chill zone exit
			if keys == 0 {
				b.buckets[user] = BUCKET_INITIAL_FILL
				continue
			}

			if keys < BUCKET_UPPER_BOUND {
				b.buckets[user] += DROP_SIZE
				continue
			}
		}
		b.Unlock()

		time.Sleep(DROP_INTERVAL)
	}
}

// CreateBucketIfNotExists creates the user's bucket on first sight
func (b *BucketContainer) CreateBucketIfNotExists(user string) {
	if b.buckets == nil {
		return
	}

	b.RLock()
	_, e := b.buckets[user]
	b.RUnlock()

	if !e {
		b.Lock()
		b.buckets[user] = BUCKET_INITIAL_FILL
		b.Unlock()
	}
}

// Drain drains $amount from $user if there are enough keys left
func (b *BucketContainer) Drain(amount int8, user string) error {
	b.CreateBucketIfNotExists(user)

	// Check if there are enough keys left
	b.RLock()
	userAmount := b.buckets[user]
	b.RUnlock()

	if amount > userAmount {
		return errors.New("not enough keys")
	}

	// Remove keys from bucket
	b.Lock()
	b.buckets[user] -= amount
	b.Unlock()

	return nil
}

// HasKeys checks whether the user still has keys
func (b *BucketContainer) HasKeys(user string) bool {
	b.CreateBucketIfNotExists(user)

	b.RLock()
	defer b.RUnlock()

	return b.buckets[user] > 0
}

// Get returns the remaining keys of the user
func (b *BucketContainer) Get(user string) int8 {
	b.RLock()
	defer b.RUnlock()

	return b.buckets[user]
}

// Set sets the user's keys to $value
func (b *BucketContainer) Set(user string, value int8) {
	b.Lock()
	defer b.Unlock()

	b.buckets[user] = value
}
