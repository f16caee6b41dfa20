package antispam

import (
	"testing"
	"time"
)

func TestTrackerPrunesOldEvents(t *testing.T) {
	tracker := NewTracker()
	horizon := 12 * time.Second
	base := time.Now()

	for i := 0; i < 5; i++ {
		tracker.Observe("guild-1", Event{
			SubjectID: "user-1",
			ChannelID: "channel-1",
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}, horizon)
	}

	// an event far in the future prunes everything before it
	window := tracker.Observe("guild-1", Event{
		SubjectID: "user-1",
		ChannelID: "channel-1",
		Timestamp: base.Add(1 * time.Minute),
	}, horizon)

	if len(window) != 1 {
		t.Fatalf("antispam.Tracker kept %d events past the horizon, expected 1", len(window))
	}
}

func TestTrackerKeepsSubjectsApart(t *testing.T) {
	tracker := NewTracker()
	horizon := 12 * time.Second
	now := time.Now()

	tracker.Observe("guild-1", Event{SubjectID: "user-1", ChannelID: "channel-1", Timestamp: now}, horizon)
	tracker.Observe("guild-1", Event{SubjectID: "user-2", ChannelID: "channel-1", Timestamp: now}, horizon)
	window := tracker.Observe("guild-2", Event{SubjectID: "user-1", ChannelID: "channel-1", Timestamp: now}, horizon)

	if len(window) != 1 {
		t.Fatalf("antispam.Tracker mixed windows across guilds, got %d events", len(window))
	}
	if tracker.Size() != 3 {
		t.Fatalf("antispam.Tracker tracks %d windows, expected 3", tracker.Size())
	}
}

func TestTrackerForget(t *testing.T) {
	tracker := NewTracker()
	now := time.Now()

	tracker.Observe("guild-1", Event{SubjectID: "user-1", ChannelID: "channel-1", Timestamp: now}, time.Minute)
	tracker.Forget("guild-1", "user-1")

	window := tracker.Observe("guild-1", Event{SubjectID: "user-1", ChannelID: "channel-1", Timestamp: now}, time.Minute)
	if len(window) != 1 {
		t.Fatalf("antispam.Tracker kept %d events after Forget(), expected 1", len(window))
	}
}
