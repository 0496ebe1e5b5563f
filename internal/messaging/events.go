package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventOrderReceived = "order.received"
	EventSaleRecorded  = "sale.recorded"
	EventStockLow      = "stock.low"
	EventMedicineAdded = "medicine.created"
)

// Event is the envelope shared by every transport.
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// OrderReceivedEvent is published after an order intake commits
type OrderReceivedEvent struct {
	OrderID     string `json:"order_id"`
	OrderNumber int64  `json:"order_number"`
	Supplier    string `json:"supplier,omitempty"`
	BatchCount  int    `json:"batch_count"`
	ActorID     string `json:"actor_id"`
}

// SaleRecordedEvent is published after a sale commits
type SaleRecordedEvent struct {
	SaleID         string `json:"sale_id"`
	MedicineID     string `json:"medicine_id"`
	BatchID        string `json:"batch_id"`
	Quantity       int    `json:"quantity"`
	TotalAmount    string `json:"total_amount"`
	RemainingStock int64  `json:"remaining_stock"`
	ActorID        string `json:"actor_id"`
}

// StockLowEvent is published when a sale leaves a medicine at or below its reorder level
type StockLowEvent struct {
	MedicineID     string `json:"medicine_id"`
	MedicineName   string `json:"medicine_name"`
	RemainingStock int64  `json:"remaining_stock"`
	ReorderLevel   int    `json:"reorder_level"`
}

// MedicineCreatedEvent is published after a catalog entry is added
type MedicineCreatedEvent struct {
	MedicineID   string `json:"medicine_id"`
	Name         string `json:"name"`
	InitialStock int    `json:"initial_stock"`
}
