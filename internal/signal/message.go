package signal

import (
	"encoding/json"
	"fmt"
)

// ClientAction names a client-to-server message.
type ClientAction string

const (
	ClientInitAction               ClientAction = "init"
	ClientConnectProducerTransport ClientAction = "connectProducerTransport"
	ClientProduce                  ClientAction = "produce"
	ClientProducerRemove           ClientAction = "producerRemove"
	ClientConnectConsumerTransport ClientAction = "connectConsumerTransport"
	ClientConsume                  ClientAction = "consume"
	ClientConsumerResume           ClientAction = "consumerResume"
	ClientEcho                     ClientAction = "echo"
	ClientNotification             ClientAction = "notification"
	ClientCandidate                ClientAction = "candidate"
)

// ServerAction names a server-to-client message.
type ServerAction string

const (
	ServerInitAction                 ServerAction = "init"
	ServerConnectedProducerTransport ServerAction = "connectedProducerTransport"
	ServerProducerCreated            ServerAction = "producerCreated"
	ServerConnectedConsumerTransport ServerAction = "connectedConsumerTransport"
	ServerConsumerCreated            ServerAction = "consumerCreated"
	ServerProducerAdd                ServerAction = "producerAdd"
	ServerProducerRemove             ServerAction = "producerRemove"
	ServerEcho                       ServerAction = "echo"
	ServerNotification               ServerAction = "notification"
	ServerCandidate                  ServerAction = "candidate"
	ServerError                      ServerAction = "error"
)

// ClientEnvelope is a decoded client frame with the payload still raw.
type ClientEnvelope struct {
	Action  ClientAction    `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerEnvelope is a decoded server frame with the payload still raw.
type ServerEnvelope struct {
	Action  ServerAction    `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ParseClient decodes one client frame.
func ParseClient(data []byte) (ClientEnvelope, error) {
	var env ClientEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return ClientEnvelope{}, fmt.Errorf("parse client message: %w", err)
	}
	if env.Action == "" {
		return ClientEnvelope{}, fmt.Errorf("client message without action")
	}
	return env, nil
}

// ParseServer decodes one server frame.
func ParseServer(data []byte) (ServerEnvelope, error) {
	var env ServerEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return ServerEnvelope{}, fmt.Errorf("parse server message: %w", err)
	}
	if env.Action == "" {
		return ServerEnvelope{}, fmt.Errorf("server message without action")
	}
	return env, nil
}

// Decode unmarshals an envelope payload into its typed struct.
func (e ClientEnvelope) Decode(into any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s: empty payload", e.Action)
	}
	if err := json.Unmarshal(e.Payload, into); err != nil {
		return fmt.Errorf("%s payload: %w", e.Action, err)
	}
	return nil
}

// Decode unmarshals an envelope payload into its typed struct.
func (e ServerEnvelope) Decode(into any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s: empty payload", e.Action)
	}
	if err := json.Unmarshal(e.Payload, into); err != nil {
		return fmt.Errorf("%s payload: %w", e.Action, err)
	}
	return nil
}

// MarshalClient encodes a client frame. A nil payload yields a bare action.
func MarshalClient(action ClientAction, payload any) ([]byte, error) {
	return marshal(string(action), payload)
}

// MarshalServer encodes a server frame. A nil payload yields a bare action.
func MarshalServer(action ServerAction, payload any) ([]byte, error) {
	return marshal(string(action), payload)
}

func marshal(action string, payload any) ([]byte, error) {
	env := struct {
		Action  string `json:"action"`
		Payload any    `json:"payload,omitempty"`
	}{Action: action, Payload: payload}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", action, err)
	}
	return data, nil
}
