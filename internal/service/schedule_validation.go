package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dancymeals/backend/internal/models"
	"github.com/dancymeals/backend/internal/timeline"
)

// Window type names, also used as the overlap check order: when a candidate
// conflicts on more than one window type, the first type in this order is
// the one reported.
const (
	WindowOrder    = "order"
	WindowDelivery = "delivery"
	WindowPickup   = "pickup"
)

// ValidationResult carries an aggregated field-to-message error map so the
// caller can highlight every invalid field at once. Valid is true iff
// Errors is empty.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors,omitempty"`
}

func newValidationResult() ValidationResult {
	return ValidationResult{Valid: true, Errors: map[string]string{}}
}

func (r *ValidationResult) addError(field, message string) {
	if _, exists := r.Errors[field]; exists {
		return
	}
	r.Errors[field] = message
	r.Valid = false
}

// FieldCheck is a single yes/no check with a human-readable failure message.
type FieldCheck struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// OverlapCheck reports the first window type of a candidate entry that
// collides with a sibling entry on the same day.
type OverlapCheck struct {
	Overlapping bool   `json:"overlapping"`
	Type        string `json:"type,omitempty"`
}

// WindowSet holds a candidate entry's windows in interchange form. A
// delivery or pickup window is considered present only when both of its
// clock times are set.
type WindowSet struct {
	OrderStartTime      string
	OrderStartDayOffset int
	OrderEndTime        string
	OrderEndDayOffset   int
	DeliveryStartTime   string
	DeliveryEndTime     string
	PickupStartTime     string
	PickupEndTime       string
}

func windowsOf(entry *models.ScheduleEntry) WindowSet {
	w := WindowSet{
		OrderStartTime:      entry.OrderStartTime,
		OrderStartDayOffset: entry.OrderStartDayOffset,
		OrderEndTime:        entry.OrderEndTime,
		OrderEndDayOffset:   entry.OrderEndDayOffset,
	}
	if entry.DeliveryEnabled {
		w.DeliveryStartTime = entry.DeliveryStartTime
		w.DeliveryEndTime = entry.DeliveryEndTime
	}
	if entry.PickupEnabled {
		w.PickupStartTime = entry.PickupStartTime
		w.PickupEndTime = entry.PickupEndTime
	}
	return w
}

// ScheduleValidationService decides whether a candidate schedule entry is
// acceptable. All failures come back as field-scoped messages, never as
// panics, so the calling layer can re-render inline form errors.
type ScheduleValidationService struct {
	repo *ScheduleRepository
}

// NewScheduleValidationService creates a new ScheduleValidationService instance.
func NewScheduleValidationService(repo *ScheduleRepository) *ScheduleValidationService {
	return &ScheduleValidationService{repo: repo}
}

// IsValidTimeFormat reports whether s is a strict 24-hour HH:MM time.
func (s *ScheduleValidationService) IsValidTimeFormat(t string) bool {
	return timeline.IsValidTime(t)
}

// IsOrderIntervalValid reports whether the order window opens strictly
// before it closes on the signed day-offset axis.
func (s *ScheduleValidationService) IsOrderIntervalValid(startTime string, startOffset int, endTime string, endOffset int) bool {
	return timeline.AbsoluteMinutes(startTime, startOffset) < timeline.AbsoluteMinutes(endTime, endOffset)
}

// IsDeliveryIntervalValid reports whether a same-day delivery window opens
// strictly before it closes.
func (s *ScheduleValidationService) IsDeliveryIntervalValid(start, end string) bool {
	return timeline.AbsoluteMinutes(start, 0) < timeline.AbsoluteMinutes(end, 0)
}

// IsPickupIntervalValid reports whether a same-day pickup window opens
// strictly before it closes.
func (s *ScheduleValidationService) IsPickupIntervalValid(start, end string) bool {
	return s.IsDeliveryIntervalValid(start, end)
}

// IsStartDayOffsetValid reports whether an order-open day offset is in range.
func (s *ScheduleValidationService) IsStartDayOffsetValid(n int) bool {
	return n >= 0 && n <= models.MaxOrderStartDayOffset
}

// IsEndDayOffsetValid reports whether an order-close day offset is in range.
func (s *ScheduleValidationService) IsEndDayOffsetValid(n int) bool {
	return n >= 0 && n <= models.MaxOrderEndDayOffset
}

// HasDeliveryOrPickup reports whether at least one fulfillment method is
// enabled. An available entry must offer one.
func (s *ScheduleValidationService) HasDeliveryOrPickup(deliveryEnabled, pickupEnabled bool) bool {
	return deliveryEnabled || pickupEnabled
}

// ValidateOrderEndBeforeDeliveryStart checks that ordering closes at or
// before delivery starts. An order window that closes on a prior day is
// always fine.
func (s *ScheduleValidationService) ValidateOrderEndBeforeDeliveryStart(orderEndTime string, orderEndOffset int, deliveryStartTime string) FieldCheck {
	return orderEndBeforeFulfillment(orderEndTime, orderEndOffset, deliveryStartTime, WindowDelivery)
}

// ValidateOrderEndBeforePickupStart is the pickup analogue of
// ValidateOrderEndBeforeDeliveryStart.
func (s *ScheduleValidationService) ValidateOrderEndBeforePickupStart(orderEndTime string, orderEndOffset int, pickupStartTime string) FieldCheck {
	return orderEndBeforeFulfillment(orderEndTime, orderEndOffset, pickupStartTime, WindowPickup)
}

func orderEndBeforeFulfillment(orderEndTime string, orderEndOffset int, fulfillmentStart, kind string) FieldCheck {
	endMinutes := timeline.OrderEndMinutesOnServiceDay(orderEndTime, orderEndOffset)
	startMinutes := timeline.AbsoluteMinutes(fulfillmentStart, 0)
	if endMinutes <= startMinutes {
		return FieldCheck{Valid: true}
	}
	return FieldCheck{
		Valid:   false,
		Message: fmt.Sprintf("order window closes after %s would start", kind),
	}
}

// HasAvailableSchedules reports whether the owner has at least one entry
// marked available, gating "go live" displays.
func (s *ScheduleValidationService) HasAvailableSchedules(ctx context.Context, owner models.ScheduleOwner) (bool, error) {
	return s.repo.HasAvailableEntries(ctx, owner)
}

// CheckForOverlaps compares the candidate windows against every sibling
// entry of the same owner and day, excluding excludeID when editing. Only
// window types present on both sides are compared. Types are checked in
// order, delivery, pickup order and the first conflict wins.
func (s *ScheduleValidationService) CheckForOverlaps(ctx context.Context, owner models.ScheduleOwner, dayOfWeek string, windows WindowSet, excludeID *uuid.UUID) (OverlapCheck, error) {
	siblings, err := s.repo.EntriesForOwnerAndDay(ctx, owner, dayOfWeek, excludeID)
	if err != nil {
		return OverlapCheck{}, err
	}
	if conflict := windowConflictType(windows, siblings); conflict != "" {
		return OverlapCheck{Overlapping: true, Type: conflict}, nil
	}
	return OverlapCheck{}, nil
}

func windowConflictType(candidate WindowSet, siblings []models.ScheduleEntry) string {
	candStart := timeline.AbsoluteMinutes(candidate.OrderStartTime, candidate.OrderStartDayOffset)
	candEnd := timeline.AbsoluteMinutes(candidate.OrderEndTime, candidate.OrderEndDayOffset)
	for _, sib := range siblings {
		sibStart := timeline.AbsoluteMinutes(sib.OrderStartTime, sib.OrderStartDayOffset)
		sibEnd := timeline.AbsoluteMinutes(sib.OrderEndTime, sib.OrderEndDayOffset)
		if timeline.Overlaps(candStart, candEnd, sibStart, sibEnd) {
			return WindowOrder
		}
	}

	if candidate.DeliveryStartTime != "" && candidate.DeliveryEndTime != "" {
		for _, sib := range siblings {
			if !sib.DeliveryEnabled || sib.DeliveryStartTime == "" || sib.DeliveryEndTime == "" {
				continue
			}
			if sameDayOverlap(candidate.DeliveryStartTime, candidate.DeliveryEndTime, sib.DeliveryStartTime, sib.DeliveryEndTime) {
				return WindowDelivery
			}
		}
	}

	if candidate.PickupStartTime != "" && candidate.PickupEndTime != "" {
		for _, sib := range siblings {
			if !sib.PickupEnabled || sib.PickupStartTime == "" || sib.PickupEndTime == "" {
				continue
			}
			if sameDayOverlap(candidate.PickupStartTime, candidate.PickupEndTime, sib.PickupStartTime, sib.PickupEndTime) {
				return WindowPickup
			}
		}
	}

	return ""
}

func sameDayOverlap(aStart, aEnd, bStart, bEnd string) bool {
	return timeline.Overlaps(
		timeline.AbsoluteMinutes(aStart, 0), timeline.AbsoluteMinutes(aEnd, 0),
		timeline.AbsoluteMinutes(bStart, 0), timeline.AbsoluteMinutes(bEnd, 0),
	)
}

// ValidateOrderIntervalUpdate validates an edit to an entry's order window,
// aggregating every applicable field error rather than failing fast.
func (s *ScheduleValidationService) ValidateOrderIntervalUpdate(ctx context.Context, entry *models.ScheduleEntry, startTime string, startOffset int, endTime string, endOffset int) (ValidationResult, error) {
	result := newValidationResult()

	if !s.IsValidTimeFormat(startTime) {
		result.addError("order_start_time", "must be a valid 24-hour time (HH:MM)")
	}
	if !s.IsValidTimeFormat(endTime) {
		result.addError("order_end_time", "must be a valid 24-hour time (HH:MM)")
	}
	if !s.IsStartDayOffsetValid(startOffset) {
		result.addError("order_start_day_offset", fmt.Sprintf("must be between 0 and %d", models.MaxOrderStartDayOffset))
	}
	if !s.IsEndDayOffsetValid(endOffset) {
		result.addError("order_end_day_offset", fmt.Sprintf("must be between 0 and %d", models.MaxOrderEndDayOffset))
	}
	if !result.Valid {
		return result, nil
	}

	if !s.IsOrderIntervalValid(startTime, startOffset, endTime, endOffset) {
		result.addError("order_end_time", "order window must close after it opens")
	}

	windows := windowsOf(entry)
	windows.OrderStartTime = startTime
	windows.OrderStartDayOffset = startOffset
	windows.OrderEndTime = endTime
	windows.OrderEndDayOffset = endOffset
	// The fulfillment windows are unchanged by this edit; only the order
	// window is checked against siblings.
	windows.DeliveryStartTime, windows.DeliveryEndTime = "", ""
	windows.PickupStartTime, windows.PickupEndTime = "", ""

	overlap, err := s.CheckForOverlaps(ctx, entry.Owner(), entry.DayOfWeek, windows, &entry.ID)
	if err != nil {
		return ValidationResult{}, err
	}
	if overlap.Overlapping {
		result.addError("order_start_time", "order window overlaps another entry on this day")
	}

	if entry.DeliveryEnabled && entry.DeliveryStartTime != "" {
		if check := s.ValidateOrderEndBeforeDeliveryStart(endTime, endOffset, entry.DeliveryStartTime); !check.Valid {
			result.addError("order_end_time", check.Message)
		}
	}
	if entry.PickupEnabled && entry.PickupStartTime != "" {
		if check := s.ValidateOrderEndBeforePickupStart(endTime, endOffset, entry.PickupStartTime); !check.Valid {
			result.addError("order_end_time", check.Message)
		}
	}

	return result, nil
}

// ValidateDeliveryPickupUpdate validates an edit to an entry's fulfillment
// windows, aggregating every applicable field error.
func (s *ScheduleValidationService) ValidateDeliveryPickupUpdate(ctx context.Context, entry *models.ScheduleEntry, deliveryEnabled bool, deliveryStart, deliveryEnd string, pickupEnabled bool, pickupStart, pickupEnd string) (ValidationResult, error) {
	result := newValidationResult()

	if !s.HasDeliveryOrPickup(deliveryEnabled, pickupEnabled) {
		result.addError("delivery_enabled", "at least one of delivery or pickup must be enabled")
	}

	if deliveryEnabled {
		validateSameDayWindow(&result, "delivery", deliveryStart, deliveryEnd)
	}
	if pickupEnabled {
		validateSameDayWindow(&result, "pickup", pickupStart, pickupEnd)
	}
	if !result.Valid {
		return result, nil
	}

	if deliveryEnabled {
		if check := s.ValidateOrderEndBeforeDeliveryStart(entry.OrderEndTime, entry.OrderEndDayOffset, deliveryStart); !check.Valid {
			result.addError("delivery_start_time", check.Message)
		}
	}
	if pickupEnabled {
		if check := s.ValidateOrderEndBeforePickupStart(entry.OrderEndTime, entry.OrderEndDayOffset, pickupStart); !check.Valid {
			result.addError("pickup_start_time", check.Message)
		}
	}

	windows := WindowSet{
		OrderStartTime:      entry.OrderStartTime,
		OrderStartDayOffset: entry.OrderStartDayOffset,
		OrderEndTime:        entry.OrderEndTime,
		OrderEndDayOffset:   entry.OrderEndDayOffset,
	}
	if deliveryEnabled {
		windows.DeliveryStartTime, windows.DeliveryEndTime = deliveryStart, deliveryEnd
	}
	if pickupEnabled {
		windows.PickupStartTime, windows.PickupEndTime = pickupStart, pickupEnd
	}

	overlap, err := s.CheckForOverlaps(ctx, entry.Owner(), entry.DayOfWeek, windows, &entry.ID)
	if err != nil {
		return ValidationResult{}, err
	}
	switch overlap.Type {
	case WindowDelivery:
		result.addError("delivery_start_time", "delivery window overlaps another entry on this day")
	case WindowPickup:
		result.addError("pickup_start_time", "pickup window overlaps another entry on this day")
	case WindowOrder:
		// The order window was not edited here, so a conflict on it means
		// the stored entry is already in conflict; surface it anyway.
		result.addError("order_start_time", "order window overlaps another entry on this day")
	}

	return result, nil
}

func validateSameDayWindow(result *ValidationResult, kind, start, end string) {
	startField := kind + "_start_time"
	endField := kind + "_end_time"
	valid := true
	if !timeline.IsValidTime(start) {
		result.addError(startField, "must be a valid 24-hour time (HH:MM)")
		valid = false
	}
	if !timeline.IsValidTime(end) {
		result.addError(endField, "must be a valid 24-hour time (HH:MM)")
		valid = false
	}
	if valid && timeline.AbsoluteMinutes(start, 0) >= timeline.AbsoluteMinutes(end, 0) {
		result.addError(endField, kind+" window must close after it opens")
	}
}

// ValidateNewEntry runs the full acceptance check for a candidate entry:
// field formats, offset ranges, interval ordering, fulfillment presence,
// order-close-before-fulfillment, the per-day cap and sibling overlaps.
func (s *ScheduleValidationService) ValidateNewEntry(ctx context.Context, entry *models.ScheduleEntry) (ValidationResult, error) {
	result := newValidationResult()

	if !timeline.IsDayName(entry.DayOfWeek) {
		result.addError("day_of_week", "must be a lowercase day name (monday..sunday)")
	}
	if !s.IsValidTimeFormat(entry.OrderStartTime) {
		result.addError("order_start_time", "must be a valid 24-hour time (HH:MM)")
	}
	if !s.IsValidTimeFormat(entry.OrderEndTime) {
		result.addError("order_end_time", "must be a valid 24-hour time (HH:MM)")
	}
	if !s.IsStartDayOffsetValid(entry.OrderStartDayOffset) {
		result.addError("order_start_day_offset", fmt.Sprintf("must be between 0 and %d", models.MaxOrderStartDayOffset))
	}
	if !s.IsEndDayOffsetValid(entry.OrderEndDayOffset) {
		result.addError("order_end_day_offset", fmt.Sprintf("must be between 0 and %d", models.MaxOrderEndDayOffset))
	}
	if entry.IsAvailable && !s.HasDeliveryOrPickup(entry.DeliveryEnabled, entry.PickupEnabled) {
		result.addError("delivery_enabled", "at least one of delivery or pickup must be enabled")
	}
	if entry.DeliveryEnabled {
		validateSameDayWindow(&result, "delivery", entry.DeliveryStartTime, entry.DeliveryEndTime)
	}
	if entry.PickupEnabled {
		validateSameDayWindow(&result, "pickup", entry.PickupStartTime, entry.PickupEndTime)
	}
	if !result.Valid {
		return result, nil
	}

	if !s.IsOrderIntervalValid(entry.OrderStartTime, entry.OrderStartDayOffset, entry.OrderEndTime, entry.OrderEndDayOffset) {
		result.addError("order_end_time", "order window must close after it opens")
	}
	if entry.DeliveryEnabled {
		if check := s.ValidateOrderEndBeforeDeliveryStart(entry.OrderEndTime, entry.OrderEndDayOffset, entry.DeliveryStartTime); !check.Valid {
			result.addError("order_end_time", check.Message)
		}
	}
	if entry.PickupEnabled {
		if check := s.ValidateOrderEndBeforePickupStart(entry.OrderEndTime, entry.OrderEndDayOffset, entry.PickupStartTime); !check.Valid {
			result.addError("order_end_time", check.Message)
		}
	}

	count, err := s.repo.CountForOwnerAndDay(ctx, entry.Owner(), entry.DayOfWeek)
	if err != nil {
		return ValidationResult{}, err
	}
	if count >= models.MaxEntriesPerDay {
		result.addError("day_of_week", fmt.Sprintf("a day can have at most %d entries", models.MaxEntriesPerDay))
	}

	overlap, err := s.CheckForOverlaps(ctx, entry.Owner(), entry.DayOfWeek, windowsOf(entry), nil)
	if err != nil {
		return ValidationResult{}, err
	}
	if overlap.Overlapping {
		result.addError(overlap.Type+"_start_time", overlap.Type+" window overlaps another entry on this day")
	}

	return result, nil
}

// FormatTimeForDisplay renders a validated 24-hour time as a 12-hour
// AM/PM string for human-facing echoes.
func (s *ScheduleValidationService) FormatTimeForDisplay(t string) string {
	return timeline.FormatClock12(t)
}
