package sqlstore

import (
	"time"

	"gorm.io/datatypes"
)

// record is the single table sqlstore persists every model instance into,
// mirroring the teacher's models.Stage.TargetQuery column: the payload lives
// in a datatypes.JSON blob, keyed by the model's own "@id".
type record struct {
	ID        string `gorm:"primaryKey"`
	Data      datatypes.JSON
	UpdatedAt time.Time
}

func (record) TableName() string { return "mesh_records" }
