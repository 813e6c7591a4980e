package cache

import "fmt"

// OrderKey caches one order with its details.
func OrderKey(orderID string) string {
	return fmt.Sprintf("minishop:order:%s", orderID)
}

// OrderPaymentsKey caches the payment history of one order.
func OrderPaymentsKey(orderID string) string {
	return fmt.Sprintf("minishop:order:%s:payments", orderID)
}
