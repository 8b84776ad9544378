package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"main/model"
)

// fakeSessionStore records calls instead of touching a database.
type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*model.Session // keyed by token hash
	others   int
	countErr error
	touched  []string
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]*model.Session)}
}

func (s *fakeSessionStore) UpsertByTokenHash(_ context.Context, session *model.Session) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.sessions[session.TokenHash]
	s.sessions[session.TokenHash] = session
	return !exists, nil
}

func (s *fakeSessionStore) Touch(_ context.Context, tokenHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = append(s.touched, tokenHash)
	_, live := s.sessions[tokenHash]
	return live, nil
}

func (s *fakeSessionStore) GetByTokenHash(_ context.Context, tokenHash string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[tokenHash], nil
}

func (s *fakeSessionStore) GetUserActiveSessions(string) ([]*model.Session, error) {
	return nil, nil
}

func (s *fakeSessionStore) CountOtherActiveSessions(string, string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.others, s.countErr
}

func (s *fakeSessionStore) Deactivate(context.Context, string, string) (*model.Session, error) {
	return nil, nil
}

func (s *fakeSessionStore) DeactivateOthers(context.Context, string, string) (int64, error) {
	return 0, nil
}

func (s *fakeSessionStore) touchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.touched)
}

type fakeAuditStore struct {
	mu      sync.Mutex
	entries []*model.AuditEntry
}

func (a *fakeAuditStore) Append(_ context.Context, entry *model.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return nil
}

func (a *fakeAuditStore) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

const testUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/92.0.4515.131 Safari/537.36"

func newTestRegistrar(store *fakeSessionStore, audit *fakeAuditStore) *SessionRegistrar {
	r := NewSessionRegistrar(store, audit, nil)
	return r
}

func TestRegisterSessionNilUser(t *testing.T) {
	store := newFakeSessionStore()
	audit := &fakeAuditStore{}
	registrar := newTestRegistrar(store, audit)

	hadOthers, err := registrar.RegisterSession(context.Background(), nil, "hash", testUserAgent, "1.2.3.4")
	if err != nil {
		t.Fatalf("RegisterSession() error = %v", err)
	}
	if hadOthers {
		t.Error("RegisterSession() reported other sessions for a nil user")
	}
	if len(store.sessions) != 0 {
		t.Errorf("RegisterSession() stored %d sessions, want 0", len(store.sessions))
	}
	if audit.count() != 0 {
		t.Errorf("RegisterSession() appended %d audit entries, want 0", audit.count())
	}
}

func TestRegisterSessionEmptyHash(t *testing.T) {
	store := newFakeSessionStore()
	registrar := newTestRegistrar(store, &fakeAuditStore{})
	user := &model.User{UserID: "user-1", Email: "user@example.com"}

	hadOthers, err := registrar.RegisterSession(context.Background(), user, "", testUserAgent, "1.2.3.4")
	if err != nil {
		t.Fatalf("RegisterSession() error = %v", err)
	}
	if hadOthers {
		t.Error("RegisterSession() reported other sessions for an empty hash")
	}
	if len(store.sessions) != 0 {
		t.Errorf("RegisterSession() stored %d sessions, want 0", len(store.sessions))
	}
}

func TestRegisterSessionReportsOthers(t *testing.T) {
	tests := []struct {
		name       string
		others     int
		wantOthers bool
	}{
		{name: "First device", others: 0, wantOthers: false},
		{name: "Second device", others: 1, wantOthers: true},
		{name: "Many devices", others: 4, wantOthers: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeSessionStore()
			store.others = tt.others
			registrar := newTestRegistrar(store, &fakeAuditStore{})
			user := &model.User{UserID: "user-1", Email: "user@example.com"}

			hadOthers, err := registrar.RegisterSession(context.Background(), user, "hash-1", testUserAgent, "1.2.3.4")
			if err != nil {
				t.Fatalf("RegisterSession() error = %v", err)
			}

			t.Logf("Other live sessions: %d, hadOthers: %v", tt.others, hadOthers)

			if hadOthers != tt.wantOthers {
				t.Errorf("RegisterSession() hadOthers = %v, want %v", hadOthers, tt.wantOthers)
			}
		})
	}
}

func TestRegisterSessionCountFailureIsAdvisory(t *testing.T) {
	store := newFakeSessionStore()
	store.countErr = context.DeadlineExceeded
	registrar := newTestRegistrar(store, &fakeAuditStore{})
	user := &model.User{UserID: "user-1", Email: "user@example.com"}

	hadOthers, err := registrar.RegisterSession(context.Background(), user, "hash-1", testUserAgent, "1.2.3.4")
	if err != nil {
		t.Fatalf("RegisterSession() error = %v, want nil despite count failure", err)
	}
	if hadOthers {
		t.Error("RegisterSession() hadOthers = true after a failed count, want false")
	}
	if len(store.sessions) != 1 {
		t.Errorf("RegisterSession() stored %d sessions, want 1", len(store.sessions))
	}
}

func TestRegisterSessionIdempotentByHash(t *testing.T) {
	store := newFakeSessionStore()
	audit := &fakeAuditStore{}
	registrar := newTestRegistrar(store, audit)
	user := &model.User{UserID: "user-1", Email: "user@example.com"}

	for i := 0; i < 3; i++ {
		if _, err := registrar.RegisterSession(context.Background(), user, "hash-1", testUserAgent, "1.2.3.4"); err != nil {
			t.Fatalf("RegisterSession() attempt %d error = %v", i, err)
		}
	}

	if len(store.sessions) != 1 {
		t.Errorf("repeated registration stored %d sessions, want 1", len(store.sessions))
	}
	// Only the first registration is a new device worth auditing.
	if audit.count() != 1 {
		t.Errorf("repeated registration appended %d audit entries, want 1", audit.count())
	}
}

func TestRegisterSessionAlertsOnNewDeviceOnly(t *testing.T) {
	alerted := make(chan NewDeviceAlert, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		alerted <- NewDeviceAlert{}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store := newFakeSessionStore()
	registrar := newTestRegistrar(store, &fakeAuditStore{})
	registrar.Alerts = &AlertService{
		Endpoint: server.URL,
		Client:   server.Client(),
	}
	user := &model.User{UserID: "user-1", Email: "user@example.com"}

	if _, err := registrar.RegisterSession(context.Background(), user, "hash-1", testUserAgent, "1.2.3.4"); err != nil {
		t.Fatalf("RegisterSession() error = %v", err)
	}

	select {
	case <-alerted:
	case <-time.After(2 * time.Second):
		t.Fatal("new-device alert never reached the endpoint")
	}

	// Re-registering the same hash is not a new device.
	if _, err := registrar.RegisterSession(context.Background(), user, "hash-1", testUserAgent, "1.2.3.4"); err != nil {
		t.Fatalf("RegisterSession() error = %v", err)
	}

	select {
	case <-alerted:
		t.Error("re-registration fired a second new-device alert")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestRegisterSessionPopulatesDeviceFields(t *testing.T) {
	store := newFakeSessionStore()
	registrar := newTestRegistrar(store, &fakeAuditStore{})
	user := &model.User{UserID: "user-1", Email: "user@example.com"}

	if _, err := registrar.RegisterSession(context.Background(), user, "hash-1", testUserAgent, "1.2.3.4"); err != nil {
		t.Fatalf("RegisterSession() error = %v", err)
	}

	session := store.sessions["hash-1"]
	if session == nil {
		t.Fatal("session was not stored under its token hash")
	}

	t.Logf("Device name: %s, type: %s, browser: %s", session.DeviceName, session.DeviceType, session.Browser)

	if session.DeviceName != "Chrome on Windows" {
		t.Errorf("DeviceName = %q, want %q", session.DeviceName, "Chrome on Windows")
	}
	if session.Browser != "Chrome" {
		t.Errorf("Browser = %q, want %q", session.Browser, "Chrome")
	}
	if !session.IsActive {
		t.Error("registered session is not active")
	}
	if session.IPAddress != "1.2.3.4" {
		t.Errorf("IPAddress = %q, want %q", session.IPAddress, "1.2.3.4")
	}
	if !session.ExpiresAt.After(session.CreatedAt) {
		t.Error("ExpiresAt is not after CreatedAt")
	}
}
