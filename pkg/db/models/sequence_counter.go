package models

// SequenceCounter backs a named monotonically increasing sequence.
type SequenceCounter struct {
	ID  string `gorm:"column:id;type:text;primaryKey"`
	Seq int64  `gorm:"column:seq;not null"`
}

func (SequenceCounter) TableName() string {
	return "sequence_counters"
}
