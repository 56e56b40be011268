package signal_test

import (
	"strings"
	"testing"

	"huddle/internal/signal"
)

func TestParseClientRoundTrip(t *testing.T) {
	data, err := signal.MarshalClient(signal.ClientEcho, signal.Echo{Text: "hello"})
	if err != nil {
		t.Fatalf("MarshalClient: %v", err)
	}
	env, err := signal.ParseClient(data)
	if err != nil {
		t.Fatalf("ParseClient: %v", err)
	}
	if env.Action != signal.ClientEcho {
		t.Fatalf("want action %q, got %q", signal.ClientEcho, env.Action)
	}
	var echo signal.Echo
	if err := env.Decode(&echo); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if echo.Text != "hello" {
		t.Fatalf("want text hello, got %q", echo.Text)
	}
}

func TestParseClientWireShape(t *testing.T) {
	// The wire format is action-tagged with camelCase payload keys.
	raw := `{"action":"consume","payload":{"producerId":"p-1"}}`
	env, err := signal.ParseClient([]byte(raw))
	if err != nil {
		t.Fatalf("ParseClient: %v", err)
	}
	if env.Action != signal.ClientConsume {
		t.Fatalf("want action consume, got %q", env.Action)
	}
	var c signal.Consume
	if err := env.Decode(&c); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if c.ProducerID != "p-1" {
		t.Fatalf("want producer p-1, got %q", c.ProducerID)
	}
}

func TestParseClientRejectsMissingAction(t *testing.T) {
	if _, err := signal.ParseClient([]byte(`{"payload":{}}`)); err == nil {
		t.Fatal("want error for message without action")
	}
	if _, err := signal.ParseClient([]byte(`not json`)); err == nil {
		t.Fatal("want error for malformed frame")
	}
}

func TestMarshalServerBareAction(t *testing.T) {
	data, err := signal.MarshalServer(signal.ServerConnectedConsumerTransport, nil)
	if err != nil {
		t.Fatalf("MarshalServer: %v", err)
	}
	if strings.Contains(string(data), "payload") {
		t.Fatalf("nil payload should be omitted, got %s", data)
	}
	env, err := signal.ParseServer(data)
	if err != nil {
		t.Fatalf("ParseServer: %v", err)
	}
	if env.Action != signal.ServerConnectedConsumerTransport {
		t.Fatalf("want connectedConsumerTransport, got %q", env.Action)
	}
}

func TestDecodeEmptyPayload(t *testing.T) {
	env, err := signal.ParseServer([]byte(`{"action":"error"}`))
	if err != nil {
		t.Fatalf("ParseServer: %v", err)
	}
	var info signal.ErrorInfo
	if err := env.Decode(&info); err == nil {
		t.Fatal("want error decoding empty payload")
	}
}

func TestEchoOmitsPeerFromClient(t *testing.T) {
	data, err := signal.MarshalClient(signal.ClientEcho, signal.Echo{Text: "hi"})
	if err != nil {
		t.Fatalf("MarshalClient: %v", err)
	}
	if strings.Contains(string(data), "peerId") {
		t.Fatalf("client echo must not carry peerId, got %s", data)
	}
}
