package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"rony-server/internal/models"

	"github.com/gorilla/websocket"
)

var errConnClosed = errors.New("connection closed")

// mockConn implements the wsConn interface for testing.
type mockConn struct {
	mu       sync.Mutex
	reads    [][]byte
	writes   [][]byte
	closed   bool
	writeErr error
}

func newMockConn(reads ...[]byte) *mockConn {
	return &mockConn{reads: reads}
}

func (m *mockConn) ReadMessage() (int, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || len(m.reads) == 0 {
		return 0, nil, errConnClosed
	}
	next := m.reads[0]
	m.reads = m.reads[1:]
	return websocket.TextMessage, next, nil
}

func (m *mockConn) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errConnClosed
	}
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writes = append(m.writes, data)
	return nil
}

func (m *mockConn) SetReadLimit(limit int64)            {}
func (m *mockConn) SetReadDeadline(t time.Time) error   { return nil }
func (m *mockConn) SetWriteDeadline(t time.Time) error  { return nil }
func (m *mockConn) SetPongHandler(h func(string) error) {}

func (m *mockConn) writtenMessages() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([][]byte, len(m.writes))
	copy(result, m.writes)
	return result
}

func (m *mockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// mockPresenceStore records persisted status transitions.
type mockPresenceStore struct {
	mu       sync.Mutex
	calls    []statusCall
	failWith error
}

type statusCall struct {
	userID uint
	status string
}

func (s *mockPresenceStore) SetStatus(ctx context.Context, userID uint, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	s.calls = append(s.calls, statusCall{userID: userID, status: status})
	return nil
}

func (s *mockPresenceStore) countStatus(userID uint, status string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.userID == userID && c.status == status {
			n++
		}
	}
	return n
}

// mockConversationStore serves conversations from a map. A missing ID is
// reported as (nil, nil), matching the repository contract.
type mockConversationStore struct {
	conversations map[uint]*models.Conversation
	failWith      error
}

func (s *mockConversationStore) GetConversation(ctx context.Context, id uint) (*models.Conversation, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	return s.conversations[id], nil
}

// testEnv wires a full in-memory stack around mock stores.
type testEnv struct {
	registry *Registry
	presence *Presence
	store    *mockPresenceStore
	convs    *mockConversationStore
	router   *Router
	gateway  *Gateway
}

func newTestEnv() *testEnv {
	registry := NewRegistry()
	store := &mockPresenceStore{}
	presence := NewPresence(store)
	convs := &mockConversationStore{conversations: make(map[uint]*models.Conversation)}
	router := NewRouter(registry, convs)
	gateway := NewGateway(registry, presence, router)
	return &testEnv{
		registry: registry,
		presence: presence,
		store:    store,
		convs:    convs,
		router:   router,
		gateway:  gateway,
	}
}

func (e *testEnv) addConversation(id, creatorID, participantID uint) {
	conv := &models.Conversation{CreatorID: creatorID, ParticipantID: participantID}
	conv.ID = id
	e.convs.conversations[id] = conv
}

// connect creates a client and runs the authenticate handshake for userID.
func (e *testEnv) connect(t *testing.T, userID uint) *Client {
	t.Helper()
	c := newClient(e.gateway, newMockConn())
	e.gateway.handleFrame(c, authFrame(userID))
	if !c.Authenticated() {
		t.Fatalf("client failed to authenticate as user %d", userID)
	}
	return c
}

func authFrame(userID uint) []byte {
	return []byte(fmt.Sprintf(`{"type":"authenticate","data":{"userId":%d}}`, userID))
}

// takeFrame pops the next queued outbound frame. Delivery is synchronous, so
// an empty queue means nothing was sent.
func takeFrame(t *testing.T, c *Client) Frame {
	t.Helper()
	select {
	case data := <-c.send:
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			t.Fatalf("queued frame is not valid JSON: %v", err)
		}
		return f
	default:
		t.Fatal("expected a queued frame, found none")
		return Frame{}
	}
}

func assertNoFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("expected no queued frame, found %s", data)
	default:
	}
}

func drainFrames(c *Client) {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}
