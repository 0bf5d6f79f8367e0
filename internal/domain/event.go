package domain

// ShipmentEvent represents one shipment leg row for an order.
// Corresponds to shipment_events table in PostgreSQL.
type ShipmentEvent struct {
	OrderID         string   // groups legs belonging to one logical shipment
	LegID           string   // unique identifier of the physical leg record
	IsPrimary       bool     // marks the order's main customer-facing leg
	Status          Status   // lifecycle state of the leg
	Category        Category // shipment category, drives the reconciliation strategy
	PickupLocation  string
	DropoffLocation string
	StartMarket     string // geographic lane start, empty when absent
	EndMarket       string // geographic lane end, empty when absent
	CustomerID      string
	CarrierID       string
	Revenue         float64 // null-coalesced to 0 at the store boundary
	Cost            float64 // null-coalesced to 0 at the store boundary
	AccessorialType string  // AccessorialTONU marks a no-show charge
	Distance        *float64

	ScheduledDropStart int64  // scheduled drop-window start, Unix ms
	ActualArrivalTime  *int64 // fine-grained actual arrival, Unix ms
	ActualArrivalDate  *int64 // coarse actual arrival date (midnight), Unix ms

	CreatedAt int64 // record creation timestamp (ms)
}

// Accessorial type constants
const (
	AccessorialTONU = "TONU"
)

// IsCrossdock reports whether the leg is intra-facility handling,
// identified by identical pickup and dropoff locations.
func (e *ShipmentEvent) IsCrossdock() bool {
	return e.PickupLocation != "" && e.PickupLocation == e.DropoffLocation
}

// IsTONU reports whether the leg carries a "truck ordered, not used" charge.
func (e *ShipmentEvent) IsTONU() bool {
	return e.AccessorialType == AccessorialTONU
}

// DeliveryTime resolves the event timestamp used for all date filtering.
// Cross-dock legs use their schedule; regular legs prefer actual arrival
// over schedule, and the fine-grained timestamp over the coarse date.
func (e *ShipmentEvent) DeliveryTime() int64 {
	if e.IsCrossdock() {
		return e.ScheduledDropStart
	}
	if e.ActualArrivalTime != nil {
		return *e.ActualArrivalTime
	}
	if e.ActualArrivalDate != nil {
		return *e.ActualArrivalDate
	}
	return e.ScheduledDropStart
}
