package types

// AllocationMode describes whether inputs are entered site-wide or per meter
type AllocationMode string

const (
	AllocationAggregate AllocationMode = "aggregate"
	AllocationPerMeter  AllocationMode = "per_meter"
)

// IsValid checks if the allocation mode is valid
func (m AllocationMode) IsValid() bool {
	switch m {
	case AllocationAggregate, AllocationPerMeter:
		return true
	default:
		return false
	}
}

// Normalize returns the mode, treating empty as aggregate
func (m AllocationMode) Normalize() AllocationMode {
	if m == "" {
		return AllocationAggregate
	}
	return m
}

// String returns the string representation of the allocation mode
func (m AllocationMode) String() string {
	return string(m)
}
