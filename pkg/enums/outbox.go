package enums

import "fmt"

// OutboxAggregateType identifies the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregateRequest OutboxAggregateType = "request"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateRequest,
}

// IsValid reports whether the value is a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType names the domain event stored in outbox_events.
type OutboxEventType string

const (
	EventOrderPlaced            OutboxEventType = "order.placed"
	EventOrderApproved          OutboxEventType = "order.approved"
	EventOrderRejected          OutboxEventType = "order.rejected"
	EventOrderCancelled         OutboxEventType = "order.cancelled"
	EventOrderStatusChanged     OutboxEventType = "order.status_changed"
	EventOrderRequestReconciled OutboxEventType = "order.request_reconciled"
)

var validEventTypes = []OutboxEventType{
	EventOrderPlaced,
	EventOrderApproved,
	EventOrderRejected,
	EventOrderCancelled,
	EventOrderStatusChanged,
	EventOrderRequestReconciled,
}

// IsValid reports whether the value is a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
