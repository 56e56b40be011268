// Package signal defines the JSON signaling protocol spoken over the
// WebSocket between clients and the server.
//
// Every frame is a text envelope {"action": ..., "payload": {...}}. Client
// actions drive transport negotiation and room interaction; server actions
// carry negotiation results and room events. Payload field names are
// camelCase to match what browser clients expect.
package signal
