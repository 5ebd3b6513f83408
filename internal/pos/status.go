package pos

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusServed    OrderStatus = "served"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
	StatusPaid      OrderStatus = "paid"
)

var validNext = map[OrderStatus]map[OrderStatus]bool{
	StatusPending:   {StatusPreparing: true, StatusCancelled: true},
	StatusPreparing: {StatusReady: true, StatusCancelled: true},
	StatusReady:     {StatusServed: true, StatusCompleted: true, StatusCancelled: true},
	StatusServed:    {StatusCompleted: true, StatusPaid: true},
	StatusCompleted: {},
	StatusCancelled: {},
	StatusPaid:      {},
}

func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

// Terminal reports whether no further transitions are expected, i.e. the
// order drops out of the running view.
func (s OrderStatus) Terminal() bool {
	return len(validNext[s]) == 0
}

type TableStatus string

const (
	TableAvailable   TableStatus = "available"
	TableOccupied    TableStatus = "occupied"
	TableReserved    TableStatus = "reserved"
	TableMaintenance TableStatus = "maintenance"
)
