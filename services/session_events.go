package services

import "fmt"

// ChangeMessage is the wire format published on a user's session channel
// whenever a session row changes.
type ChangeMessage struct {
	Op         string `json:"op"` // insert, update, delete
	SessionID  string `json:"session_id"`
	TokenHash  string `json:"token_hash"`
	DeviceName string `json:"device_name"`
	IsActive   bool   `json:"is_active"`
}

const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

type SessionEventKind int

const (
	EventInserted SessionEventKind = iota
	EventUpdatedSelf
	EventUpdatedOther
	EventDeleted
)

func (k SessionEventKind) String() string {
	switch k {
	case EventInserted:
		return "inserted"
	case EventUpdatedSelf:
		return "updated_self"
	case EventUpdatedOther:
		return "updated_other"
	case EventDeleted:
		return "deleted"
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// SessionEvent is a change message classified against the local token hash.
type SessionEvent struct {
	Kind       SessionEventKind
	SessionID  string
	DeviceName string
	IsActive   bool
}

// ClassifyChange turns a raw change message into a tagged event. An insert
// for the local hash is treated as a benign self update so that a device
// never alerts on its own registration.
func ClassifyChange(msg ChangeMessage, localHash string) SessionEvent {
	self := TokenHashEqual(msg.TokenHash, localHash)

	ev := SessionEvent{
		SessionID:  msg.SessionID,
		DeviceName: msg.DeviceName,
		IsActive:   msg.IsActive,
	}

	switch msg.Op {
	case OpDelete:
		ev.Kind = EventDeleted
	case OpInsert:
		if self {
			ev.Kind = EventUpdatedSelf
		} else {
			ev.Kind = EventInserted
		}
	default:
		if self {
			ev.Kind = EventUpdatedSelf
		} else {
			ev.Kind = EventUpdatedOther
		}
	}
	return ev
}

// Reaction is what a device should do about a session event.
type Reaction struct {
	Notify       string `json:"notify,omitempty"`
	Refresh      bool   `json:"refresh,omitempty"`
	ForceSignOut bool   `json:"force_sign_out,omitempty"`
}

// Reduce maps a session event to its reaction:
//   - a foreign insert is a new concurrent login: warn and refresh
//   - a self update that flips is_active off is a remote kill: sign out
//   - a self update while still active (another heartbeat, a benign field
//     change) is ignored so heartbeats don't cause refresh storms
//   - foreign updates and deletes only refresh the list
func Reduce(ev SessionEvent) Reaction {
	switch ev.Kind {
	case EventInserted:
		name := ev.DeviceName
		if name == "" {
			name = "an unknown device"
		}
		return Reaction{
			Notify:  fmt.Sprintf("New login detected on %s", name),
			Refresh: true,
		}
	case EventUpdatedSelf:
		if !ev.IsActive {
			return Reaction{
				Notify:       "This session was signed out remotely",
				ForceSignOut: true,
			}
		}
		return Reaction{}
	case EventUpdatedOther, EventDeleted:
		return Reaction{Refresh: true}
	}
	return Reaction{}
}
