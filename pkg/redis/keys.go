package redis

import "strings"

const keyNamespace = "rs"

func buildKey(parts ...string) string {
	clean := make([]string, 0, len(parts)+1)
	clean = append(clean, keyNamespace)
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			clean = append(clean, part)
		}
	}
	return strings.Join(clean, ":")
}

func (c *Client) IdempotencyKey(scope, id string) string {
	return buildKey("idempotency", scope, id)
}

func (c *Client) RateLimitKey(scope string) string {
	return buildKey("rate_limit", scope)
}

func (c *Client) CounterKey(name string) string {
	return buildKey("counter", name)
}

// PickupCodeKey holds the hashed pickup code for an order.
func (c *Client) PickupCodeKey(orderID string) string {
	return buildKey("pickup", orderID, "code")
}

// PickupAttemptsKey counts failed pickup code checks for an order.
func (c *Client) PickupAttemptsKey(orderID string) string {
	return buildKey("pickup", orderID, "attempts")
}
