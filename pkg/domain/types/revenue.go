package types

// RevenueClass buckets revenue streams for haircut policy purposes
type RevenueClass string

const (
	// RevenueSavings covers utility charge reductions (PLC/NSPL, tariff savings)
	RevenueSavings RevenueClass = "savings"
	// RevenueMerchant covers market-based revenue (regulation, energy, reserves)
	RevenueMerchant RevenueClass = "merchant"
	// RevenueIncentive covers rebate/incentive program payments
	RevenueIncentive RevenueClass = "incentive"
	// RevenueContracted covers fixed-price contracted revenue (DR capacity payments)
	RevenueContracted RevenueClass = "contracted"
)

// AllRevenueClasses returns all valid revenue classes
func AllRevenueClasses() []RevenueClass {
	return []RevenueClass{
		RevenueSavings,
		RevenueMerchant,
		RevenueIncentive,
		RevenueContracted,
	}
}

// IsValid checks if the revenue class is valid
func (c RevenueClass) IsValid() bool {
	switch c {
	case RevenueSavings, RevenueMerchant, RevenueIncentive, RevenueContracted:
		return true
	default:
		return false
	}
}

// String returns the string representation of the revenue class
func (c RevenueClass) String() string {
	return string(c)
}
