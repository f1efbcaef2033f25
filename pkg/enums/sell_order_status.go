package enums

import "fmt"

// SellOrderStatus tracks the lifecycle of a customer sell order.
type SellOrderStatus string

const (
	SellOrderStatusConfirmed SellOrderStatus = "confirmed"
	SellOrderStatusPickedUp  SellOrderStatus = "picked_up"
	SellOrderStatusEvaluated SellOrderStatus = "evaluated"
	SellOrderStatusCompleted SellOrderStatus = "completed"
	SellOrderStatusCancelled SellOrderStatus = "cancelled"
)

var validSellOrderStatuses = []SellOrderStatus{
	SellOrderStatusConfirmed,
	SellOrderStatusPickedUp,
	SellOrderStatusEvaluated,
	SellOrderStatusCompleted,
	SellOrderStatusCancelled,
}

var sellOrderTransitions = map[SellOrderStatus][]SellOrderStatus{
	SellOrderStatusConfirmed: {SellOrderStatusPickedUp, SellOrderStatusEvaluated, SellOrderStatusCancelled},
	SellOrderStatusPickedUp:  {SellOrderStatusEvaluated, SellOrderStatusCancelled},
	SellOrderStatusEvaluated: {SellOrderStatusCompleted},
}

// String implements fmt.Stringer.
func (s SellOrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SellOrderStatus.
func (s SellOrderStatus) IsValid() bool {
	for _, candidate := range validSellOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s SellOrderStatus) CanTransitionTo(next SellOrderStatus) bool {
	for _, candidate := range sellOrderTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseSellOrderStatus converts raw input into a SellOrderStatus.
func ParseSellOrderStatus(value string) (SellOrderStatus, error) {
	for _, candidate := range validSellOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sell order status %q", value)
}
