package realtime

import (
	"encoding/json"
	"sync"
	"testing"

	"rony-server/internal/models"
)

// Test that authenticate binds the user, registers the connection and
// broadcasts the online transition
func TestGatewayAuthenticate(t *testing.T) {
	env := newTestEnv()

	observer := env.connect(t, 9)
	drainFrames(observer)

	c := newClient(env.gateway, newMockConn())
	env.gateway.handleFrame(c, authFrame(1))

	if !c.Authenticated() || c.UserID() != 1 {
		t.Fatalf("Client should be bound to user 1, got %d", c.UserID())
	}
	if !env.registry.IsOnline(1) {
		t.Error("User should be registered after authenticate")
	}
	if env.presence.Status(1) != models.StatusOnline {
		t.Errorf("Expected online, got %s", env.presence.Status(1))
	}

	frame := takeFrame(t, observer)
	if frame.Type != FrameTypeUserStatus {
		t.Errorf("Expected user_status broadcast, got %s", frame.Type)
	}
	var data StatusData
	json.Unmarshal(frame.Data, &data)
	if data.UserID != 1 || data.Status != models.StatusOnline {
		t.Errorf("Unexpected status payload: %+v", data)
	}
}

// Test that a second authenticate on a bound connection is ignored
func TestGatewayRepeatedAuthenticateIgnored(t *testing.T) {
	env := newTestEnv()

	c := env.connect(t, 1)
	env.gateway.handleFrame(c, authFrame(2))

	if c.UserID() != 1 {
		t.Errorf("Rebinding should be ignored, got user %d", c.UserID())
	}
	if env.registry.IsOnline(2) {
		t.Error("Second user should not have been registered")
	}
}

// Test that an authenticate frame without a user is dropped
func TestGatewayInvalidAuthenticate(t *testing.T) {
	env := newTestEnv()

	c := newClient(env.gateway, newMockConn())
	env.gateway.handleFrame(c, []byte(`{"type":"authenticate","data":{}}`))
	if c.Authenticated() {
		t.Error("Authenticate without userId should be dropped")
	}

	env.gateway.handleFrame(c, []byte(`{"type":"authenticate","data":"bogus"}`))
	if c.Authenticated() {
		t.Error("Authenticate with malformed data should be dropped")
	}
}

// Test that frames before the handshake are silently dropped and the
// connection stays usable
func TestGatewayPreAuthFramesIgnored(t *testing.T) {
	env := newTestEnv()
	env.addConversation(10, 1, 2)

	recipient := env.connect(t, 2)
	drainFrames(recipient)

	c := newClient(env.gateway, newMockConn())
	env.gateway.handleFrame(c, []byte(`{"type":"new_message","data":{"conversationId":10,"message":{}}}`))
	env.gateway.handleFrame(c, []byte(`{"type":"user_typing","data":{"conversationId":10,"isTyping":true}}`))

	assertNoFrame(t, recipient)
	if c.isClosed() {
		t.Error("Pre-auth frames should not close the connection")
	}

	// The same connection can still complete the handshake afterwards
	env.gateway.handleFrame(c, authFrame(1))
	if !c.Authenticated() {
		t.Error("Connection should authenticate after dropped frames")
	}
}

// Test that malformed frames are dropped without closing the connection
func TestGatewayMalformedFramesDropped(t *testing.T) {
	env := newTestEnv()
	c := env.connect(t, 1)
	drainFrames(c)

	cases := [][]byte{
		[]byte(`not json at all`),
		[]byte(`{"type":"","data":{}}`),
		[]byte(`{"type":"mystery","data":{}}`),
		[]byte(`{"type":"new_message","data":{"conversationId":0}}`),
		[]byte(`{"type":"user_typing","data":"nope"}`),
		[]byte(`{"type":"call_signal","data":{"target":0}}`),
		[]byte(`{"type":"user_status","data":{"userId":1,"status":"online"}}`),
	}
	for _, raw := range cases {
		env.gateway.handleFrame(c, raw)
	}

	if c.isClosed() {
		t.Error("Malformed frames should not close the connection")
	}
	if !env.registry.IsOnline(1) {
		t.Error("User should remain registered after malformed frames")
	}
}

// Test that cleanup runs exactly once even when several closes race
func TestGatewayCleanupRunsOnce(t *testing.T) {
	env := newTestEnv()
	c := env.connect(t, 1)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Close()
			env.gateway.dropClient(c)
		}()
	}
	wg.Wait()

	if env.registry.IsOnline(1) {
		t.Error("User should be offline after cleanup")
	}
	if got := env.store.countStatus(1, models.StatusOffline); got != 1 {
		t.Errorf("Offline transition should be persisted exactly once, got %d", got)
	}
}

// Test that a connection closed before authenticating triggers no presence
// transition
func TestGatewayDropUnauthenticatedClient(t *testing.T) {
	env := newTestEnv()
	c := newClient(env.gateway, newMockConn())

	env.gateway.dropClient(c)

	if len(env.store.calls) != 0 {
		t.Errorf("No presence transition expected, got %d", len(env.store.calls))
	}
}

// Test that closing one of several connections keeps the user online and the
// remaining connections receiving
func TestGatewayMultiDeviceDisconnect(t *testing.T) {
	env := newTestEnv()
	env.addConversation(10, 1, 2)

	sender := env.connect(t, 1)
	phone := env.connect(t, 2)
	laptop := env.connect(t, 2)
	drainFrames(sender)
	drainFrames(phone)
	drainFrames(laptop)

	phone.Close()
	env.gateway.dropClient(phone)

	if !env.registry.IsOnline(2) {
		t.Error("User should stay online while the laptop connection lives")
	}
	// No offline broadcast was sent
	assertNoFrame(t, sender)
	assertNoFrame(t, laptop)

	env.gateway.handleFrame(sender, []byte(`{"type":"new_message","data":{"conversationId":10,"message":{"content":"still there?"}}}`))
	frame := takeFrame(t, laptop)
	if frame.Type != FrameTypeNewMessage {
		t.Errorf("Surviving connection should receive messages, got %s", frame.Type)
	}

	laptop.Close()
	env.gateway.dropClient(laptop)

	if env.registry.IsOnline(2) {
		t.Error("User should be offline after the last connection closed")
	}
	frame = takeFrame(t, sender)
	if frame.Type != FrameTypeUserStatus {
		t.Errorf("Expected offline broadcast, got %s", frame.Type)
	}
	var data StatusData
	json.Unmarshal(frame.Data, &data)
	if data.UserID != 2 || data.Status != models.StatusOffline {
		t.Errorf("Unexpected status payload: %+v", data)
	}
}

// Test a full session through the read pump: authenticate, exchange a
// message, then disconnect and clean up
func TestGatewayReadPumpSession(t *testing.T) {
	env := newTestEnv()
	env.addConversation(10, 1, 2)

	recipient := env.connect(t, 2)
	drainFrames(recipient)

	conn := newMockConn(
		authFrame(1),
		[]byte(`{"type":"user_typing","data":{"conversationId":10,"isTyping":true}}`),
		[]byte(`{"type":"new_message","data":{"conversationId":10,"message":{"content":"hi"}}}`),
	)
	c := newClient(env.gateway, conn)

	// The pump consumes the scripted frames, then the read error runs cleanup
	c.readPump()

	if frame := takeFrame(t, recipient); frame.Type != FrameTypeUserStatus {
		t.Errorf("Expected online broadcast, got %s", frame.Type)
	}
	if frame := takeFrame(t, recipient); frame.Type != FrameTypeUserTyping {
		t.Errorf("Expected user_typing, got %s", frame.Type)
	}
	if frame := takeFrame(t, recipient); frame.Type != FrameTypeNewMessage {
		t.Errorf("Expected new_message, got %s", frame.Type)
	}

	if env.registry.IsOnline(1) {
		t.Error("User should be unregistered after the pump exits")
	}
	if frame := takeFrame(t, recipient); frame.Type != FrameTypeUserStatus {
		t.Errorf("Expected offline broadcast, got %s", frame.Type)
	}
}

// Test that high connection churn never leaves stale registry entries
func TestGatewayConnectionChurn(t *testing.T) {
	env := newTestEnv()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			userID := uint(n%5 + 1)
			conn := newMockConn(authFrame(userID))
			c := newClient(env.gateway, conn)
			c.readPump()
		}(i)
	}
	wg.Wait()

	if got := env.registry.ConnectionCount(); got != 0 {
		t.Errorf("Expected no registered connections after churn, got %d", got)
	}
	for u := uint(1); u <= 5; u++ {
		if env.registry.IsOnline(u) {
			t.Errorf("User %d should be offline after churn", u)
		}
	}
}
