package models

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Local radius bounds in kilometers.
const (
	MinLocalRadiusKm     = 5
	MaxLocalRadiusKm     = 50
	LocalRadiusStepKm    = 5
	DefaultLocalRadiusKm = 50
)

// InterestList is a nullable list of category names. A nil list means "all
// categories", an empty non-nil list means "none".
type InterestList pq.StringArray

// Value implements driver.Valuer. A nil list is stored as NULL.
func (l InterestList) Value() (driver.Value, error) {
	return pq.StringArray(l).Value()
}

// Scan implements sql.Scanner. NULL scans to a nil list.
func (l *InterestList) Scan(src any) error {
	return (*pq.StringArray)(l).Scan(src)
}

// GormDBDataType stores the list as text[] on Postgres and as its array
// literal elsewhere.
func (InterestList) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

// Profile holds per-user preferences. Its ID is the identity provider subject.
type Profile struct {
	ID          uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt   time.Time    `json:"created_at"`
	Karma       int          `gorm:"not null;default:0" json:"karma"`
	LocalRadius int          `gorm:"not null;default:50" json:"local_radius"`
	Interests   InterestList `json:"interests"`
}

// ProfilePatch is a partial profile update. Nil fields are left untouched;
// ResetInterests clears the interest list back to "all categories".
type ProfilePatch struct {
	Interests      *[]Category
	ResetInterests bool
	LocalRadius    *int
}
