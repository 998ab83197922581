package domain

// Charge is what one captured period moves. The client pays the care
// rate, plus the placement fee on the first period. Commission comes
// out of the nanny's share.
type Charge struct {
	Rate         int64
	Commission   int64
	PlacementFee int64
}

func NewCharge(rate, commission, placementFee int64, first bool) Charge {
	c := Charge{Rate: rate, Commission: commission}
	if first {
		c.PlacementFee = placementFee
	}
	return c
}

// Total is the amount held and captured from the client.
func (c Charge) Total() int64 { return c.Rate + c.PlacementFee }

// NannyNet is what the nanny receives for the period.
func (c Charge) NannyNet() int64 { return c.Rate - c.Commission }
