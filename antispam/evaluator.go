// Package antispam decides whether a subject is flooding chat. The
// evaluator itself is a pure function over a sliding window of message
// events; the tracker owns the windows and prunes them.
package antispam

import "time"

type Verdict int

const (
	VerdictClean Verdict = iota
	VerdictSingleChannelSpam
	VerdictMultiChannelSpam
)

func (v Verdict) String() string {
	switch v {
	case VerdictSingleChannelSpam:
		return "single-channel-spam"
	case VerdictMultiChannelSpam:
		return "multi-channel-spam"
	}
	return "clean"
}

// Event is one observed message. Ephemeral, never persisted.
type Event struct {
	SubjectID string
	ChannelID string
	Timestamp time.Time
}

// Limits carries the per-guild thresholds. Comparisons are inclusive.
type Limits struct {
	SingleChannelThreshold  int
	SingleChannelTimeWindow time.Duration
	MultiChannelThreshold   int
	MultiChannelTimeWindow  time.Duration
}

// MaxWindow returns the pruning horizon for a window under these limits
func (l Limits) MaxWindow() time.Duration {
	if l.SingleChannelTimeWindow > l.MultiChannelTimeWindow {
		return l.SingleChannelTimeWindow
	}
	return l.MultiChannelTimeWindow
}

// Evaluate checks $window against $limits. The caller appends the
// newest event before calling; $channelID is the channel of that event.
// The single-channel burst rule wins over the multi-channel spread rule
// because it is checked first.
func Evaluate(channelID string, now time.Time, window []Event, limits Limits) Verdict {
	if limits.SingleChannelThreshold > 0 {
		count := 0
		for _, event := range window {
			if event.ChannelID != channelID {
				continue
			}
			if now.Sub(event.Timestamp) <= limits.SingleChannelTimeWindow {
				count++
			}
		}
		if count >= limits.SingleChannelThreshold {
			return VerdictSingleChannelSpam
		}
	}

	if limits.MultiChannelThreshold > 0 {
		distinct := make(map[string]struct{})
		for _, event := range window {
			if now.Sub(event.Timestamp) <= limits.MultiChannelTimeWindow {
				distinct[event.ChannelID] = struct{}{}
			}
		}
		if len(distinct) >= limits.MultiChannelThreshold {
			return VerdictMultiChannelSpam
		}
	}

	return VerdictClean
}
