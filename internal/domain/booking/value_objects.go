package booking

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"roombook/internal/pkg/dates"
)

var (
	ErrInvalidStayRange  = errors.New("check-out must be after check-in")
	ErrCheckInInPast     = errors.New("check-in cannot be in the past")
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
	ErrInvalidGuests     = errors.New("guests must be at least 1")
	ErrInvalidReference  = errors.New("invalid booking reference")
	ErrInvalidExternalID = errors.New("invalid payment external id")
	ErrNegativeMoney     = errors.New("money cannot be negative")
)

// StayRange is the half-open night range [checkIn, checkOut).
type StayRange struct {
	checkIn  time.Time
	checkOut time.Time
}

func NewStayRange(checkIn, checkOut time.Time) (StayRange, error) {
	checkIn, checkOut = dates.Truncate(checkIn), dates.Truncate(checkOut)
	if !checkOut.After(checkIn) {
		return StayRange{}, ErrInvalidStayRange
	}
	return StayRange{checkIn: checkIn, checkOut: checkOut}, nil
}

func (r StayRange) ValidateAt(now time.Time) error {
	if r.checkIn.Before(dates.Truncate(now)) {
		return ErrCheckInInPast
	}
	return nil
}

func (r StayRange) CheckIn() time.Time  { return r.checkIn }
func (r StayRange) CheckOut() time.Time { return r.checkOut }

func (r StayRange) Nights() int {
	return dates.Nights(r.checkIn, r.checkOut)
}

func (r StayRange) Dates() []time.Time {
	return dates.Range(r.checkIn, r.checkOut)
}

func (r StayRange) Keys() []string {
	return dates.Keys(r.checkIn, r.checkOut)
}

func (r StayRange) String() string {
	return fmt.Sprintf("[%s,%s)", dates.Key(r.checkIn), dates.Key(r.checkOut))
}

type Money struct {
	cents int64
}

func NewMoney(cents int64) (Money, error) {
	if cents < 0 {
		return Money{}, ErrNegativeMoney
	}
	return Money{cents: cents}, nil
}

func (m Money) Cents() int64 {
	return m.cents
}

func (m Money) Add(other Money) Money {
	return Money{cents: m.cents + other.cents}
}

func (m Money) Times(n int) Money {
	return Money{cents: m.cents * int64(n)}
}

// ApplyRate rounds half away from zero to the nearest cent.
func (m Money) ApplyRate(rate float64) Money {
	return Money{cents: int64(math.Round(float64(m.cents) * rate))}
}

type Reference string

const (
	referencePrefix   = "BK"
	referenceLength   = 8
	referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

func NewReference() (Reference, error) {
	var b strings.Builder
	b.WriteString(referencePrefix)
	size := big.NewInt(int64(len(referenceAlphabet)))
	for i := 0; i < referenceLength; i++ {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("generate booking reference: %w", err)
		}
		b.WriteByte(referenceAlphabet[n.Int64()])
	}
	return Reference(b.String()), nil
}

func ParseReference(s string) (Reference, error) {
	if len(s) != len(referencePrefix)+referenceLength || !strings.HasPrefix(s, referencePrefix) {
		return "", ErrInvalidReference
	}
	for _, c := range s[len(referencePrefix):] {
		if !strings.ContainsRune(referenceAlphabet, c) {
			return "", ErrInvalidReference
		}
	}
	return Reference(s), nil
}

func (r Reference) String() string {
	return string(r)
}

const externalIDPrefix = "booking-"

// ExternalID formats the id sent to the payment gateway: booking-{reference}-{unix}.
func ExternalID(ref Reference, at time.Time) string {
	return fmt.Sprintf("%s%s-%d", externalIDPrefix, ref, at.Unix())
}

func ParseExternalID(externalID string) (Reference, error) {
	rest, ok := strings.CutPrefix(externalID, externalIDPrefix)
	if !ok {
		return "", ErrInvalidExternalID
	}
	i := strings.LastIndexByte(rest, '-')
	if i <= 0 {
		return "", ErrInvalidExternalID
	}
	if _, err := strconv.ParseInt(rest[i+1:], 10, 64); err != nil {
		return "", ErrInvalidExternalID
	}
	ref, err := ParseReference(rest[:i])
	if err != nil {
		return "", ErrInvalidExternalID
	}
	return ref, nil
}
