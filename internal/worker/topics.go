package worker

import "github.com/ordergw/order-gateway/internal/model"

// Topic-per-event-type convention. Fault topics hang off the consumer group
// so each (view, event) consumer keeps its own dead-letter stream.
const (
	TopicOrderCreated = "orders.created"
	TopicOrderUpdated = "orders.updated"
	TopicOrderDeleted = "orders.deleted"
)

// TopicFor maps an event-type discriminator to its bus topic. Empty string
// means the event type has no topic mapping.
func TopicFor(eventType string) string {
	switch eventType {
	case model.EventTypeOrderCreated:
		return TopicOrderCreated
	case model.EventTypeOrderUpdated:
		return TopicOrderUpdated
	case model.EventTypeOrderDeleted:
		return TopicOrderDeleted
	}
	return ""
}

// FaultTopicFor names the dead-letter topic of one consumer instantiation.
func FaultTopicFor(eventType, group string) string {
	return TopicFor(eventType) + ".fault." + group
}
