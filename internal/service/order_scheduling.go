package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dancymeals/backend/internal/models"
	"github.com/dancymeals/backend/internal/timeline"
)

// OrderWindowDays is the length of the rolling ordering window. The window
// starts the day after "now"; same-day ordering is never offered.
const OrderWindowDays = 14

const (
	dateLayout        = "2006-01-02"
	displayDateLayout = "Monday, Jan 2"
	longDateLayout    = "Monday, January 2, 2006"
)

// CalendarDay is one derived day of the ordering window.
type CalendarDay struct {
	Date        string `json:"date"`
	DayOfWeek   string `json:"day_of_week"`
	DisplayDate string `json:"display_date"`
	Available   bool   `json:"available"`
}

// DateValidation is the outcome of checking a client-chosen date.
type DateValidation struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// CartItem is the slice of a cart this core cares about.
type CartItem struct {
	MealID      uuid.UUID `json:"meal_id"`
	ComponentID uuid.UUID `json:"component_id"`
	Quantity    int       `json:"quantity"`
}

// UnavailableItem flags a meal that cannot be fulfilled on the chosen date.
type UnavailableItem struct {
	MealID uuid.UUID `json:"meal_id"`
	Reason string    `json:"reason"`
}

// NextAvailableSlot points at the first orderable date, if any.
type NextAvailableSlot struct {
	Date     *string `json:"date"`
	Text     string  `json:"text"`
	DayLabel *string `json:"day_label"`
}

// OrderSchedulingService derives the client-facing ordering calendar from
// the cook's weekly schedule and checks client selections against it.
type OrderSchedulingService struct {
	repo   *ScheduleRepository
	clock  Clock
	logger zerolog.Logger
}

// NewOrderSchedulingService creates a new OrderSchedulingService instance.
func NewOrderSchedulingService(repo *ScheduleRepository, clock Clock, logger zerolog.Logger) *OrderSchedulingService {
	return &OrderSchedulingService{repo: repo, clock: clock, logger: logger}
}

func (s *OrderSchedulingService) today() time.Time {
	now := s.clock.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// GetAvailableDates enumerates the next OrderWindowDays dates starting
// tomorrow, each annotated with the tenant's cook-level weekday
// availability. The result always has exactly OrderWindowDays entries in
// chronological order, available or not.
func (s *OrderSchedulingService) GetAvailableDates(ctx context.Context, tenantID uuid.UUID) ([]CalendarDay, error) {
	weekdays, err := s.repo.AvailableWeekdays(ctx, models.CookOwner(tenantID))
	if err != nil {
		return nil, fmt.Errorf("load available weekdays: %w", err)
	}

	today := s.today()
	days := make([]CalendarDay, 0, OrderWindowDays)
	for i := 1; i <= OrderWindowDays; i++ {
		date := today.AddDate(0, 0, i)
		dayName := timeline.DayName(date.Weekday())
		days = append(days, CalendarDay{
			Date:        date.Format(dateLayout),
			DayOfWeek:   dayName,
			DisplayDate: date.Format(displayDateLayout),
			Available:   weekdays[dayName],
		})
	}
	return days, nil
}

// HasAvailableDates reports whether any date in the ordering window is
// available.
func (s *OrderSchedulingService) HasAvailableDates(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	days, err := s.GetAvailableDates(ctx, tenantID)
	if err != nil {
		return false, err
	}
	for _, d := range days {
		if d.Available {
			return true, nil
		}
	}
	return false, nil
}

// ValidateScheduledDate checks a client-chosen date against the ordering
// window. Every failure case yields a human-readable error; only storage
// failures surface as Go errors.
func (s *OrderSchedulingService) ValidateScheduledDate(ctx context.Context, tenantID uuid.UUID, dateStr string) (DateValidation, error) {
	date, err := time.ParseInLocation(dateLayout, dateStr, s.clock.Now().Location())
	if err != nil {
		return DateValidation{Error: "Please select a valid delivery date."}, nil
	}

	today := s.today()
	if !date.After(today) {
		return DateValidation{Error: "Orders must be scheduled at least one day in advance."}, nil
	}
	if date.After(today.AddDate(0, 0, OrderWindowDays)) {
		return DateValidation{Error: fmt.Sprintf("Orders can only be scheduled up to %d days in advance.", OrderWindowDays)}, nil
	}

	weekdays, err := s.repo.AvailableWeekdays(ctx, models.CookOwner(tenantID))
	if err != nil {
		return DateValidation{}, fmt.Errorf("load available weekdays: %w", err)
	}
	dayName := timeline.DayName(date.Weekday())
	if !weekdays[dayName] {
		return DateValidation{Error: fmt.Sprintf("The cook is not taking orders for %s.", date.Format("Monday"))}, nil
	}

	return DateValidation{Valid: true}, nil
}

// GetUnavailableCartItems checks every distinct meal in the cart against
// its schedule for the chosen date. Meals without a custom schedule inherit
// the cook's tenant-wide availability and are never flagged here; that is a
// whole-store concern handled upstream. Duplicated meal IDs collapse into
// one result entry.
func (s *OrderSchedulingService) GetUnavailableCartItems(ctx context.Context, tenantID uuid.UUID, dateStr string, items []CartItem) ([]UnavailableItem, error) {
	date, err := time.ParseInLocation(dateLayout, dateStr, s.clock.Now().Location())
	if err != nil {
		return nil, fmt.Errorf("parse scheduled date %q: %w", dateStr, err)
	}
	dayName := timeline.DayName(date.Weekday())

	seen := make(map[uuid.UUID]bool, len(items))
	var unavailable []UnavailableItem
	for _, item := range items {
		if seen[item.MealID] {
			continue
		}
		seen[item.MealID] = true

		custom, err := s.repo.HasCustomSchedule(ctx, tenantID, item.MealID)
		if err != nil {
			return nil, fmt.Errorf("check custom schedule for meal %s: %w", item.MealID, err)
		}
		if !custom {
			continue
		}

		entries, err := s.repo.EntriesForOwnerAndDay(ctx, models.MealOwner(tenantID, item.MealID), dayName, nil)
		if err != nil {
			return nil, fmt.Errorf("load meal schedule for %s: %w", item.MealID, err)
		}
		if hasAvailableEntry(entries) {
			continue
		}

		s.logger.Debug().
			Str("meal_id", item.MealID.String()).
			Str("date", dateStr).
			Msg("meal unavailable on scheduled date")
		unavailable = append(unavailable, UnavailableItem{
			MealID: item.MealID,
			Reason: fmt.Sprintf("This meal is not available on %s.", date.Format("Monday")),
		})
	}
	return unavailable, nil
}

func hasAvailableEntry(entries []models.ScheduleEntry) bool {
	for _, e := range entries {
		if e.IsAvailable {
			return true
		}
	}
	return false
}

// GetNextAvailableSlot scans the ordering window and returns the first
// available date, or a no-dates sentinel when the whole window is closed.
func (s *OrderSchedulingService) GetNextAvailableSlot(ctx context.Context, tenantID uuid.UUID) (NextAvailableSlot, error) {
	days, err := s.GetAvailableDates(ctx, tenantID)
	if err != nil {
		return NextAvailableSlot{}, err
	}
	for _, d := range days {
		if !d.Available {
			continue
		}
		date := d.Date
		label := d.DisplayDate
		return NextAvailableSlot{
			Date:     &date,
			Text:     fmt.Sprintf("Next available: %s", label),
			DayLabel: &label,
		}, nil
	}
	return NextAvailableSlot{Text: "No available dates in the next two weeks."}, nil
}

// FormatScheduledDate renders an ISO date for display. Unparsable input is
// echoed back unchanged; this feeds informational display, not gating.
func (s *OrderSchedulingService) FormatScheduledDate(dateStr string) string {
	date, err := time.Parse(dateLayout, dateStr)
	if err != nil {
		return dateStr
	}
	return date.Format(longDateLayout)
}
