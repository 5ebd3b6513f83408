package pos

const (
	TopicOrders = "pos.orders"
	TopicTables = "pos.tables"
)
