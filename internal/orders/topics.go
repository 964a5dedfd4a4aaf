package orders

import "strconv"

const (
	TopicOrders        = "storefront.orders"
	TopicCatalog       = "storefront.catalog"
	TopicNotifications = "storefront.notifications"
	TopicReplies       = "storefront.replies"
)

// Partition key = order_id, so every event of one order keeps its order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }

// UserKey partitions per-user traffic (notifications, replies).
func UserKey(user int64) []byte { return []byte(strconv.FormatInt(user, 10)) }
