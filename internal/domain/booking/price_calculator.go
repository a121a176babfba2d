package booking

import (
	"time"

	"roombook/internal/domain/room"
)

type NightlyPricer interface {
	Prices(start, end time.Time) []room.NightPrice
}

// Quote is the priced breakdown of a stay. Tax and service fee are computed
// once on the aggregated base, so they round a single time.
type Quote struct {
	Nights       []room.NightPrice
	NightlyTotal Money // one unit, all nights
	Base         Money // NightlyTotal x quantity
	Tax          Money
	ServiceFee   Money
	Total        Money
}

type PriceCalculator struct {
	TaxRate        float64
	ServiceFeeRate float64
}

func NewPriceCalculator(taxRate, serviceFeeRate float64) *PriceCalculator {
	return &PriceCalculator{TaxRate: taxRate, ServiceFeeRate: serviceFeeRate}
}

func (pc *PriceCalculator) Quote(pricer NightlyPricer, stay StayRange, quantity int) Quote {
	nights := pricer.Prices(stay.CheckIn(), stay.CheckOut())
	var nightly Money
	for _, n := range nights {
		nightly = nightly.Add(Money{cents: n.PriceCents})
	}
	base := nightly.Times(quantity)
	tax := base.ApplyRate(pc.TaxRate)
	fee := base.ApplyRate(pc.ServiceFeeRate)
	return Quote{
		Nights:       nights,
		NightlyTotal: nightly,
		Base:         base,
		Tax:          tax,
		ServiceFee:   fee,
		Total:        base.Add(tax).Add(fee),
	}
}
