package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OwnerType tags who a schedule entry belongs to: the cook's tenant-wide
// defaults or a single meal's override.
type OwnerType string

const (
	OwnerCook OwnerType = "cook"
	OwnerMeal OwnerType = "meal"
)

const (
	// MaxEntriesPerDay caps the number of entries per (owner, day).
	MaxEntriesPerDay = 3
	// MaxOrderStartDayOffset is how many days before the service day
	// ordering may open.
	MaxOrderStartDayOffset = 7
	// MaxOrderEndDayOffset is how many days before the service day
	// ordering may close.
	MaxOrderEndDayOffset = 1
)

// ScheduleOwner identifies the owning side of a set of schedule entries.
// Cook-owned entries carry the tenant ID as the owner ID; meal-owned
// entries carry the meal ID and keep the tenant ID for scoping.
type ScheduleOwner struct {
	Type     OwnerType
	ID       uuid.UUID
	TenantID uuid.UUID
}

// CookOwner returns the owner for a tenant's cook-level default schedule.
func CookOwner(tenantID uuid.UUID) ScheduleOwner {
	return ScheduleOwner{Type: OwnerCook, ID: tenantID, TenantID: tenantID}
}

// MealOwner returns the owner for a meal's custom schedule.
func MealOwner(tenantID, mealID uuid.UUID) ScheduleOwner {
	return ScheduleOwner{Type: OwnerMeal, ID: mealID, TenantID: tenantID}
}

// ScheduleEntry is the atomic unit of weekly availability. An entry with
// IsAvailable=false marks its day explicitly closed rather than absent.
type ScheduleEntry struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerType OwnerType `gorm:"size:10;not null;uniqueIndex:idx_owner_day_position" json:"owner_type"`
	OwnerID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_owner_day_position" json:"owner_id"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	DayOfWeek string    `gorm:"size:10;not null;uniqueIndex:idx_owner_day_position" json:"day_of_week"`
	Position  int       `gorm:"not null;uniqueIndex:idx_owner_day_position" json:"position"`

	IsAvailable bool   `gorm:"not null;default:true" json:"is_available"`
	Label       string `gorm:"size:100" json:"label"`

	OrderStartTime      string `gorm:"size:5;not null" json:"order_start_time"`
	OrderStartDayOffset int    `gorm:"not null;default:0" json:"order_start_day_offset"`
	OrderEndTime        string `gorm:"size:5;not null" json:"order_end_time"`
	OrderEndDayOffset   int    `gorm:"not null;default:0" json:"order_end_day_offset"`

	DeliveryEnabled   bool   `gorm:"not null;default:false" json:"delivery_enabled"`
	DeliveryStartTime string `gorm:"size:5" json:"delivery_start_time"`
	DeliveryEndTime   string `gorm:"size:5" json:"delivery_end_time"`

	PickupEnabled   bool   `gorm:"not null;default:false" json:"pickup_enabled"`
	PickupStartTime string `gorm:"size:5" json:"pickup_start_time"`
	PickupEndTime   string `gorm:"size:5" json:"pickup_end_time"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ScheduleEntry) TableName() string {
	return "schedule_entries"
}

func (e *ScheduleEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// Owner returns the owner tag the entry belongs to.
func (e *ScheduleEntry) Owner() ScheduleOwner {
	return ScheduleOwner{Type: e.OwnerType, ID: e.OwnerID, TenantID: e.TenantID}
}

// DisplayLabel is the human-facing slot name. It is derived from Position
// when no custom label is set, never stored, so it cannot go stale when
// entries are reordered.
func (e *ScheduleEntry) DisplayLabel() string {
	if e.Label != "" {
		return e.Label
	}
	return fmt.Sprintf("Slot %d", e.Position)
}
