package model

// Envelope is the message published to Kafka for one outbox record.
// ID is a correlation id minted at dispatch time; EventType mirrors the
// outbox discriminator so fault payloads stay self-describing.
type Envelope struct {
	ID        string     `json:"id"`
	EventType string     `json:"event_type"`
	Data      OrderEvent `json:"data"`
}

// FaultEnvelope is published to a consumer's fault topic when a message is
// rejected (validation failure). The original envelope travels along for
// inspection and manual replay.
type FaultEnvelope struct {
	FaultedMessageID string   `json:"faulted_message_id"`
	Consumer         string   `json:"consumer"`
	Reason           string   `json:"reason"`
	Message          Envelope `json:"message"`
}
