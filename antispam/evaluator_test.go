package antispam

import (
	"fmt"
	"testing"
	"time"
)

func testLimits() Limits {
	return Limits{
		SingleChannelThreshold:  5,
		SingleChannelTimeWindow: 10 * time.Second,
		MultiChannelThreshold:   6,
		MultiChannelTimeWindow:  12 * time.Second,
	}
}

func TestEvaluateSingleChannelBurst(t *testing.T) {
	limits := testLimits()
	now := time.Now()

	// 5 messages in the same channel within 10 seconds
	window := make([]Event, 0)
	for i := 0; i < 5; i++ {
		window = append(window, Event{
			SubjectID: "user-1",
			ChannelID: "channel-1",
			Timestamp: now.Add(-time.Duration(4-i) * time.Second),
		})
	}

	verdict := Evaluate("channel-1", now, window, limits)
	if verdict != VerdictSingleChannelSpam {
		t.Fatalf("antispam.Evaluate() returned %s for a single channel burst, expected single-channel-spam", verdict)
	}

	// one message less stays clean
	verdict = Evaluate("channel-1", now, window[1:], limits)
	if verdict != VerdictClean {
		t.Fatalf("antispam.Evaluate() returned %s below the burst threshold, expected clean", verdict)
	}
}

func TestEvaluateIgnoresEventsOutsideWindow(t *testing.T) {
	limits := testLimits()
	now := time.Now()

	// 4 recent messages plus a pile of stale ones
	window := make([]Event, 0)
	for i := 0; i < 4; i++ {
		window = append(window, Event{ChannelID: "channel-1", Timestamp: now.Add(-time.Duration(i) * time.Second)})
	}
	for i := 0; i < 10; i++ {
		window = append(window, Event{ChannelID: "channel-1", Timestamp: now.Add(-time.Duration(30+i) * time.Second)})
	}

	verdict := Evaluate("channel-1", now, window, limits)
	if verdict != VerdictClean {
		t.Fatalf("antispam.Evaluate() counted events outside the time window, verdict %s", verdict)
	}
}

func TestEvaluateMultiChannelSpread(t *testing.T) {
	limits := testLimits()
	now := time.Now()

	// 1 message each in 6 distinct channels within 12 seconds, no
	// channel individually tripping the burst rule
	window := make([]Event, 0)
	for i := 0; i < 6; i++ {
		window = append(window, Event{
			SubjectID: "user-1",
			ChannelID: fmt.Sprintf("channel-%d", i),
			Timestamp: now.Add(-time.Duration(10-i*2) * time.Second),
		})
	}

	verdict := Evaluate("channel-5", now, window, limits)
	if verdict != VerdictMultiChannelSpam {
		t.Fatalf("antispam.Evaluate() returned %s for a multi channel spread, expected multi-channel-spam", verdict)
	}

	verdict = Evaluate("channel-4", now, window[1:], limits)
	if verdict != VerdictClean {
		t.Fatalf("antispam.Evaluate() returned %s below the spread threshold, expected clean", verdict)
	}
}

func TestEvaluateSingleChannelWinsOverMultiChannel(t *testing.T) {
	limits := Limits{
		SingleChannelThreshold:  3,
		SingleChannelTimeWindow: 10 * time.Second,
		MultiChannelThreshold:   3,
		MultiChannelTimeWindow:  10 * time.Second,
	}
	now := time.Now()

	// trips both rules at once, burst rule is checked first
	window := []Event{
		{ChannelID: "channel-1", Timestamp: now.Add(-3 * time.Second)},
		{ChannelID: "channel-1", Timestamp: now.Add(-2 * time.Second)},
		{ChannelID: "channel-2", Timestamp: now.Add(-2 * time.Second)},
		{ChannelID: "channel-3", Timestamp: now.Add(-1 * time.Second)},
		{ChannelID: "channel-1", Timestamp: now},
	}

	verdict := Evaluate("channel-1", now, window, limits)
	if verdict != VerdictSingleChannelSpam {
		t.Fatalf("antispam.Evaluate() returned %s, the burst rule should win over the spread rule", verdict)
	}
}

func TestEvaluateDisabledLimits(t *testing.T) {
	now := time.Now()
	window := []Event{
		{ChannelID: "channel-1", Timestamp: now},
		{ChannelID: "channel-1", Timestamp: now},
	}

	verdict := Evaluate("channel-1", now, window, Limits{})
	if verdict != VerdictClean {
		t.Fatalf("antispam.Evaluate() punished with zeroed limits, verdict %s", verdict)
	}
}
