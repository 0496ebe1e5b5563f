package model

const (
	SequenceBatchNumber = "batch_number"
	SequenceOrderNumber = "order_number"
)

// Sequence is a named monotonic counter.
type Sequence struct {
	Name  string `gorm:"type:varchar(50);primaryKey"`
	Value int64  `gorm:"not null;default:0"`
}
