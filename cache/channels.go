package cache

import (
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// How long a cached channel pointer stays valid (seconds)
const channelTimeout int64 = 60

var (
	channelsMutex sync.RWMutex
	channels      = make(map[string]*discordgo.Channel)
	channelMeta   = make(map[string]int64)
)

func updateChannel(id string) error {
	channel, err := GetSession().Channel(id)
	if err != nil {
		return err
	}

	channelsMutex.Lock()
	channels[id] = channel
	channelMeta[id] = time.Now().Unix()
	channelsMutex.Unlock()

	return nil
}

// Channel returns a cached channel pointer, requesting it from the
// gateway if it is missing or timed out.
func Channel(id string) (*discordgo.Channel, error) {
	channelsMutex.RLock()
	cached := channels[id]
	cachedAt := channelMeta[id]
	channelsMutex.RUnlock()

	if cached != nil && time.Now().Unix()-cachedAt <= channelTimeout {
		return cached, nil
	}

	if err := updateChannel(id); err != nil {
		if cached != nil {
			return cached, nil
		}
		return nil, err
	}

	channelsMutex.RLock()
	defer channelsMutex.RUnlock()
	return channels[id], nil
}
