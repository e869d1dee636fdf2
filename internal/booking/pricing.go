package booking

import "math"

// ServiceFeePercent is charged on top of the room subtotal
const ServiceFeePercent = 3

// Quote is the price breakdown of a stay. All amounts are in cents.
type Quote struct {
	Rate     int64
	Nights   int
	Subtotal int64
	Fee      int64
	Total    int64
}

// NewQuote prices a stay of nights at rate cents per night
func NewQuote(rate int64, nights int) Quote {
	q := Quote{Rate: rate, Nights: nights}
	if nights > 0 {
		q.Subtotal = rate * int64(nights)
	}
	q.Fee = percentOf(q.Subtotal, ServiceFeePercent)
	q.Total = q.Subtotal + q.Fee
	return q
}

// percentOf rounds half away from zero to the nearest cent
func percentOf(cents int64, pct int64) int64 {
	v := cents * pct
	if v >= 0 {
		return (v + 50) / 100
	}
	return (v - 50) / 100
}

// Cents converts a decimal amount to cents
func Cents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// Nights counts whole days between two ISO dates. Missing, invalid or
// reversed dates give zero.
func Nights(start, end string) int {
	a, ok1 := ParseDate(start)
	b, ok2 := ParseDate(end)
	if !ok1 || !ok2 {
		return 0
	}
	days := int(math.Round(b.Sub(a).Hours() / 24))
	if days < 0 {
		return 0
	}
	return days
}

// QuoteFor prices a reservation using the room's nightly price
func QuoteFor(resv *Reservation, room *Room) Quote {
	var rate int64
	if room != nil {
		rate = Cents(room.Price)
	}
	var nights int
	if resv != nil {
		nights = Nights(resv.StartDate, resv.EndDate)
	}
	return NewQuote(rate, nights)
}

