package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dancymeals/backend/internal/models"
)

var (
	// ErrDayFull is returned when a day already holds MaxEntriesPerDay entries.
	ErrDayFull = errors.New("schedule day already has the maximum number of entries")
	// ErrWindowOverlap is returned when an insert would collide with a
	// sibling entry's window of the same type.
	ErrWindowOverlap = errors.New("schedule window overlaps an existing entry")
)

// ScheduleRepository provides owner-and-day-scoped access to schedule
// entries. Cook-level defaults and meal-level overrides share the same
// shape; the owner tag selects between them. Every query is tenant-scoped.
type ScheduleRepository struct {
	db *gorm.DB
}

// NewScheduleRepository creates a new ScheduleRepository instance.
func NewScheduleRepository(db *gorm.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func ownerScope(tx *gorm.DB, owner models.ScheduleOwner) *gorm.DB {
	return tx.Where("owner_type = ? AND owner_id = ? AND tenant_id = ?",
		owner.Type, owner.ID, owner.TenantID)
}

// EntriesForOwnerAndDay returns the owner's entries for one day of week,
// ordered by position. excludeID skips one entry, used when editing.
func (r *ScheduleRepository) EntriesForOwnerAndDay(ctx context.Context, owner models.ScheduleOwner, dayOfWeek string, excludeID *uuid.UUID) ([]models.ScheduleEntry, error) {
	query := ownerScope(r.db.WithContext(ctx), owner).
		Where("day_of_week = ?", dayOfWeek).
		Order("position")
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var entries []models.ScheduleEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// EntriesGroupedByDay returns all of the owner's entries keyed by day of
// week, position-ordered within each day.
func (r *ScheduleRepository) EntriesGroupedByDay(ctx context.Context, owner models.ScheduleOwner) (map[string][]models.ScheduleEntry, error) {
	var entries []models.ScheduleEntry
	err := ownerScope(r.db.WithContext(ctx), owner).
		Order("day_of_week, position").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	grouped := make(map[string][]models.ScheduleEntry)
	for _, e := range entries {
		grouped[e.DayOfWeek] = append(grouped[e.DayOfWeek], e)
	}
	return grouped, nil
}

// HasCustomSchedule reports whether the meal carries its own schedule
// entries. Presence of any row switches the meal off the cook defaults
// entirely; there is no partial-day inheritance.
func (r *ScheduleRepository) HasCustomSchedule(ctx context.Context, tenantID, mealID uuid.UUID) (bool, error) {
	var count int64
	err := ownerScope(r.db.WithContext(ctx).Model(&models.ScheduleEntry{}), models.MealOwner(tenantID, mealID)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountForOwnerAndDay counts the owner's entries for one day of week.
func (r *ScheduleRepository) CountForOwnerAndDay(ctx context.Context, owner models.ScheduleOwner, dayOfWeek string) (int64, error) {
	var count int64
	err := ownerScope(r.db.WithContext(ctx).Model(&models.ScheduleEntry{}), owner).
		Where("day_of_week = ?", dayOfWeek).
		Count(&count).Error
	return count, err
}

// HasAvailableEntries reports whether the owner has at least one entry
// marked available, on any day.
func (r *ScheduleRepository) HasAvailableEntries(ctx context.Context, owner models.ScheduleOwner) (bool, error) {
	var count int64
	err := ownerScope(r.db.WithContext(ctx).Model(&models.ScheduleEntry{}), owner).
		Where("is_available = ?", true).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// AvailableWeekdays returns the set of day names on which the owner has at
// least one available entry.
func (r *ScheduleRepository) AvailableWeekdays(ctx context.Context, owner models.ScheduleOwner) (map[string]bool, error) {
	var days []string
	err := ownerScope(r.db.WithContext(ctx).Model(&models.ScheduleEntry{}), owner).
		Where("is_available = ?", true).
		Distinct().
		Pluck("day_of_week", &days).Error
	if err != nil {
		return nil, err
	}
	weekdays := make(map[string]bool, len(days))
	for _, d := range days {
		weekdays[d] = true
	}
	return weekdays, nil
}

// GetEntry fetches a single entry scoped to the tenant.
func (r *ScheduleRepository) GetEntry(ctx context.Context, tenantID, id uuid.UUID) (*models.ScheduleEntry, error) {
	var entry models.ScheduleEntry
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&entry, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// CreateEntry inserts a schedule entry. The per-day cap and the overlap
// invariant are re-checked inside one transaction with the sibling rows
// locked, so two concurrent inserts for the same (owner, day) cannot both
// slip past the checks. The composite unique index on
// (owner_type, owner_id, day_of_week, position) backstops the position;
// a duplicate-key insert is retried once with a freshly assigned position.
func (r *ScheduleRepository) CreateEntry(ctx context.Context, entry *models.ScheduleEntry) error {
	err := r.createEntryTx(ctx, entry)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		entry.Position = 0
		err = r.createEntryTx(ctx, entry)
	}
	return err
}

func (r *ScheduleRepository) createEntryTx(ctx context.Context, entry *models.ScheduleEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked := tx
		// SQLite serializes writers on its own and rejects FOR UPDATE.
		if tx.Dialector.Name() == "postgres" {
			locked = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var siblings []models.ScheduleEntry
		err := ownerScope(locked, entry.Owner()).
			Where("day_of_week = ?", entry.DayOfWeek).
			Order("position").
			Find(&siblings).Error
		if err != nil {
			return err
		}

		if len(siblings) >= models.MaxEntriesPerDay {
			return ErrDayFull
		}
		if conflict := windowConflictType(windowsOf(entry), siblings); conflict != "" {
			return fmt.Errorf("%w: %s window", ErrWindowOverlap, conflict)
		}
		if entry.Position == 0 {
			entry.Position = nextFreePosition(siblings)
		}
		return tx.Create(entry).Error
	})
}

// UpdateEntry persists changes to an existing entry.
func (r *ScheduleRepository) UpdateEntry(ctx context.Context, entry *models.ScheduleEntry) error {
	return r.db.WithContext(ctx).Save(entry).Error
}

// DeleteAllForOwner removes every entry the owner holds and returns the
// number of rows deleted. Used when a meal reverts to the cook defaults.
func (r *ScheduleRepository) DeleteAllForOwner(ctx context.Context, owner models.ScheduleOwner) (int64, error) {
	result := ownerScope(r.db.WithContext(ctx), owner).Delete(&models.ScheduleEntry{})
	return result.RowsAffected, result.Error
}

func nextFreePosition(siblings []models.ScheduleEntry) int {
	taken := make(map[int]bool, len(siblings))
	for _, s := range siblings {
		taken[s.Position] = true
	}
	for p := 1; p <= models.MaxEntriesPerDay; p++ {
		if !taken[p] {
			return p
		}
	}
	return len(siblings) + 1
}
