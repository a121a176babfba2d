package room

import (
	"math"
	"time"

	"github.com/google/uuid"
)

const (
	ShortWindowDays = 30
	LongWindowDays  = 90
)

// PriceRange summarises a room's nightly prices over the coming windows. It
// is a search pre-filter only and never prices a booking.
type PriceRange struct {
	RoomID             uuid.UUID
	Min30              int64
	Max30              int64
	Avg30              int64
	Min90              int64
	Max90              int64
	Avg90              int64
	MonthlyMultipliers map[string]float64 // "2006-01" -> month avg / Avg90
	ComputedAt         time.Time
	ValidUntil         time.Time
}

// SummarizePrices builds the range from consecutive nightly prices starting
// today; prices beyond LongWindowDays are ignored.
func SummarizePrices(roomID uuid.UUID, prices []NightPrice, now time.Time, validity time.Duration) PriceRange {
	if len(prices) > LongWindowDays {
		prices = prices[:LongWindowDays]
	}
	short := prices
	if len(short) > ShortWindowDays {
		short = short[:ShortWindowDays]
	}

	pr := PriceRange{
		RoomID:     roomID,
		ComputedAt: now,
		ValidUntil: now.Add(validity),
	}
	pr.Min30, pr.Max30, pr.Avg30 = stats(short)
	pr.Min90, pr.Max90, pr.Avg90 = stats(prices)

	sums := map[string]int64{}
	counts := map[string]int64{}
	for _, p := range prices {
		month := p.Date.Format("2006-01")
		sums[month] += p.PriceCents
		counts[month]++
	}
	pr.MonthlyMultipliers = make(map[string]float64, len(sums))
	for month, sum := range sums {
		if pr.Avg90 == 0 {
			pr.MonthlyMultipliers[month] = 1
			continue
		}
		avg := float64(sum) / float64(counts[month])
		pr.MonthlyMultipliers[month] = math.Round(avg/float64(pr.Avg90)*1000) / 1000
	}
	return pr
}

func stats(prices []NightPrice) (min, max, avg int64) {
	if len(prices) == 0 {
		return 0, 0, 0
	}
	var sum int64
	min, max = prices[0].PriceCents, prices[0].PriceCents
	for _, p := range prices {
		if p.PriceCents < min {
			min = p.PriceCents
		}
		if p.PriceCents > max {
			max = p.PriceCents
		}
		sum += p.PriceCents
	}
	avg = int64(math.Round(float64(sum) / float64(len(prices))))
	return min, max, avg
}

func (pr PriceRange) IsFresh(now time.Time) bool {
	return !now.After(pr.ValidUntil)
}

// CannotMatch reports whether no night in the long window can fall inside
// [min, max]. A nil bound is open. Stale ranges never exclude.
func (pr PriceRange) CannotMatch(min, max *int64, now time.Time) bool {
	if !pr.IsFresh(now) {
		return false
	}
	if min != nil && pr.Max90 < *min {
		return true
	}
	if max != nil && pr.Min90 > *max {
		return true
	}
	return false
}
