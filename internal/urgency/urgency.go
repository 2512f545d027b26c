// Package urgency implements the Urgency Router (spec.md §4.6): a pure
// lookup table mapping an event kind (plus a little context) onto one of
// {High, Medium, Low}.
package urgency

import "github.com/cam-watcher/cam/internal/model"

// Context carries the extra bits the routing table needs beyond the event
// kind (spec.md §4.6 table: Notification subtype, Stop's detected-question
// flag).
type Context struct {
	NotificationSubtype string
	StopHasQuestion     bool
}

// Route implements the exhaustive table of spec.md §4.6.
func Route(kind model.EventKind, ctx Context) model.Urgency {
	switch kind {
	case model.EventWaitingForInput, model.EventError, model.EventPermissionReq:
		return model.UrgencyHigh
	case model.EventNotification:
		switch ctx.NotificationSubtype {
		case model.SubtypePermissionPrompt:
			return model.UrgencyHigh
		case model.SubtypeIdlePrompt:
			return model.UrgencyMedium
		default:
			return model.UrgencyLow
		}
	case model.EventAgentExited:
		return model.UrgencyMedium
	case model.EventStop:
		if ctx.StopHasQuestion {
			return model.UrgencyHigh
		}
		return model.UrgencyLow
	case model.EventSessionStart, model.EventSessionEnd:
		return model.UrgencyLow
	case model.EventToolUse:
		return model.UrgencyLow
	default:
		return model.UrgencyLow
	}
}

// IsLow reports whether u should be silently dropped before delivery
// (spec.md §4.6 "Low events are silently dropped before delivery").
func IsLow(u model.Urgency) bool {
	return u == model.UrgencyLow
}
