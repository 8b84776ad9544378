package services

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func rawMessage(payload string) *redis.Message {
	return &redis.Message{Payload: payload}
}

func TestForwardChangeMessages(t *testing.T) {
	in := make(chan *redis.Message, 4)
	out := make(chan ChangeMessage, 4)
	done := make(chan struct{})

	finished := make(chan struct{})
	go func() {
		forwardChangeMessages(in, out, done)
		close(finished)
	}()

	in <- rawMessage(`{"op":"insert","session_id":"s-1","token_hash":"h-1","device_name":"Chrome on Windows","is_active":true}`)
	in <- rawMessage(`not json at all`)
	in <- rawMessage(`{"op":"update","session_id":"s-1","token_hash":"h-1","is_active":false}`)
	close(in)

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("forwarder did not stop when the input closed")
	}

	// The forwarder has returned, so nothing else writes to out.
	close(out)
	var got []ChangeMessage
	for msg := range out {
		got = append(got, msg)
	}

	t.Logf("Forwarded %d messages", len(got))

	if len(got) != 2 {
		t.Fatalf("forwarded %d messages, want 2 (malformed payload dropped)", len(got))
	}
	if got[0].Op != OpInsert || got[0].DeviceName != "Chrome on Windows" {
		t.Errorf("got[0] = %+v, want the decoded insert", got[0])
	}
	if got[1].Op != OpUpdate || got[1].IsActive {
		t.Errorf("got[1] = %+v, want the decoded kill update", got[1])
	}
}

func TestForwardChangeMessagesStopsWhenConsumerGone(t *testing.T) {
	in := make(chan *redis.Message, 4)
	out := make(chan ChangeMessage, 1)
	done := make(chan struct{})

	finished := make(chan struct{})
	go func() {
		forwardChangeMessages(in, out, done)
		close(finished)
	}()

	// Fill the buffer, then keep publishing with nobody draining: the
	// second send blocks inside the forwarder.
	in <- rawMessage(`{"op":"update","session_id":"s-1"}`)
	in <- rawMessage(`{"op":"update","session_id":"s-2"}`)

	select {
	case <-finished:
		t.Fatal("forwarder stopped before done was closed")
	case <-time.After(100 * time.Millisecond):
	}

	close(done)

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("forwarder stayed blocked on a full buffer after done closed")
	}
}
