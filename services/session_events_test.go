package services

import "testing"

const (
	testLocalHash  = "local-hash"
	testRemoteHash = "remote-hash"
)

func TestClassifyChange(t *testing.T) {
	tests := []struct {
		name     string
		msg      ChangeMessage
		wantKind SessionEventKind
	}{
		{
			name:     "Foreign insert",
			msg:      ChangeMessage{Op: OpInsert, TokenHash: testRemoteHash},
			wantKind: EventInserted,
		},
		{
			name:     "Own insert is a benign self update",
			msg:      ChangeMessage{Op: OpInsert, TokenHash: testLocalHash},
			wantKind: EventUpdatedSelf,
		},
		{
			name:     "Own update",
			msg:      ChangeMessage{Op: OpUpdate, TokenHash: testLocalHash},
			wantKind: EventUpdatedSelf,
		},
		{
			name:     "Foreign update",
			msg:      ChangeMessage{Op: OpUpdate, TokenHash: testRemoteHash},
			wantKind: EventUpdatedOther,
		},
		{
			name:     "Delete",
			msg:      ChangeMessage{Op: OpDelete, TokenHash: testRemoteHash},
			wantKind: EventDeleted,
		},
		{
			name:     "Own delete is still a delete",
			msg:      ChangeMessage{Op: OpDelete, TokenHash: testLocalHash},
			wantKind: EventDeleted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := ClassifyChange(tt.msg, testLocalHash)

			t.Logf("Op: %s, hash: %s", tt.msg.Op, tt.msg.TokenHash)
			t.Logf("Got kind: %s, want: %s", ev.Kind, tt.wantKind)

			if ev.Kind != tt.wantKind {
				t.Errorf("ClassifyChange() kind = %s, want %s", ev.Kind, tt.wantKind)
			}
		})
	}
}

func TestReduce(t *testing.T) {
	tests := []struct {
		name string
		ev   SessionEvent
		want Reaction
	}{
		{
			name: "New login notifies and refreshes",
			ev:   SessionEvent{Kind: EventInserted, DeviceName: "Chrome on Windows", IsActive: true},
			want: Reaction{Notify: "New login detected on Chrome on Windows", Refresh: true},
		},
		{
			name: "New login without a device name",
			ev:   SessionEvent{Kind: EventInserted, IsActive: true},
			want: Reaction{Notify: "New login detected on an unknown device", Refresh: true},
		},
		{
			name: "Remote kill forces sign-out",
			ev:   SessionEvent{Kind: EventUpdatedSelf, IsActive: false},
			want: Reaction{Notify: "This session was signed out remotely", ForceSignOut: true},
		},
		{
			name: "Own heartbeat is ignored",
			ev:   SessionEvent{Kind: EventUpdatedSelf, IsActive: true},
			want: Reaction{},
		},
		{
			name: "Foreign update refreshes only",
			ev:   SessionEvent{Kind: EventUpdatedOther, IsActive: true},
			want: Reaction{Refresh: true},
		},
		{
			name: "Delete refreshes only",
			ev:   SessionEvent{Kind: EventDeleted},
			want: Reaction{Refresh: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reduce(tt.ev)

			t.Logf("Event: kind=%s active=%v", tt.ev.Kind, tt.ev.IsActive)
			t.Logf("Got reaction: %+v", got)

			if got != tt.want {
				t.Errorf("Reduce() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestReduceRemoteKillNeverSignsOutOthers(t *testing.T) {
	// A foreign session being killed must never sign this device out.
	msg := ChangeMessage{Op: OpUpdate, TokenHash: testRemoteHash, IsActive: false}
	got := Reduce(ClassifyChange(msg, testLocalHash))

	if got.ForceSignOut {
		t.Errorf("Reduce() forced sign-out for a foreign kill: %+v", got)
	}
	if !got.Refresh {
		t.Error("Reduce() should refresh the list after a foreign kill")
	}
}
