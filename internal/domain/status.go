package domain

// Status represents the lifecycle state of a shipment leg.
type Status string

const (
	StatusCompleted Status = "Complete"
	StatusCanceled  Status = "canceled"
	StatusRemoved   Status = "removed"
)

// String returns the string representation of Status.
func (s Status) String() string {
	return string(s)
}

// Category represents the shipment category of a leg.
type Category string

const (
	CategoryFullTruckload     Category = "Full Truckload"
	CategoryLessThanTruckload Category = "Less Than Truckload"
	CategoryParcel            Category = "Parcel"
)

// String returns the string representation of Category.
func (c Category) String() string {
	return string(c)
}
