//go:build unit || integration

// Package fake holds in-memory stand-ins for the relational store, the cache
// and the payment gateway, for use-case tests.
package fake

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"roombook/internal/domain/availability"
	"roombook/internal/domain/booking"
	"roombook/internal/domain/payment"
	"roombook/internal/domain/room"
	"roombook/internal/infra"
	"roombook/internal/pkg/dates"
	"roombook/internal/usecase/shared"

	"github.com/google/uuid"
)

// paymentKey mirrors the partial unique index: paid rows share a key per
// transaction, every other row is keyed by its own id.
type paymentKey struct {
	externalID    string
	transactionID string
	row           uuid.UUID
}

type tables struct {
	rooms         map[uuid.UUID]*room.Room
	overrides     []room.Override
	rules         []room.PricingRule
	bookings      map[uuid.UUID]booking.Booking
	reservations  map[uuid.UUID]booking.Reservation
	locks         map[uuid.UUID]booking.AvailabilityLock
	payments      map[paymentKey]*payment.Payment
	notifications []Notification
}

func (t tables) clone() tables {
	return tables{
		rooms:         maps.Clone(t.rooms),
		overrides:     append([]room.Override(nil), t.overrides...),
		rules:         append([]room.PricingRule(nil), t.rules...),
		bookings:      maps.Clone(t.bookings),
		reservations:  maps.Clone(t.reservations),
		locks:         maps.Clone(t.locks),
		payments:      maps.Clone(t.payments),
		notifications: append([]Notification(nil), t.notifications...),
	}
}

type Notification struct {
	Kind    string
	Topic   string
	Payload []byte
	RunAt   time.Time
}

// Store is a UnitOfWork over in-memory tables. Transactions run one at a
// time and roll back on error. Entities are stored by value, so callers
// must Update to persist a change.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	t    tables

	failMu sync.Mutex
	fail   map[string]error

	Commits int
}

func NewStore() *Store {
	return &Store{
		t: tables{
			rooms:        map[uuid.UUID]*room.Room{},
			bookings:     map[uuid.UUID]booking.Booking{},
			reservations: map[uuid.UUID]booking.Reservation{},
			locks:        map[uuid.UUID]booking.AvailabilityLock{},
			payments:     map[paymentKey]*payment.Payment{},
		},
		fail: map[string]error{},
	}
}

// FailOn makes the named operation (e.g. "Bookings.Create") return err until
// cleared with a nil err.
func (s *Store) FailOn(op string, err error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	if err == nil {
		delete(s.fail, op)
		return
	}
	s.fail[op] = err
}

func (s *Store) failure(op string) error {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	return s.fail[op]
}

// Seeding and inspection.

func (s *Store) AddRoom(r *room.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.t.rooms[r.ID()] = r
}

func (s *Store) AddOverride(o room.Override) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.t.overrides = append(s.t.overrides, o)
}

func (s *Store) AddRule(r room.PricingRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.t.rules = append(s.t.rules, r)
}

func (s *Store) PutBooking(b *booking.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.t.bookings[b.ID()] = *b
}

func (s *Store) PutReservation(r *booking.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.t.reservations[r.ID()] = *r
}

func (s *Store) PutLocks(locks []booking.AvailabilityLock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range locks {
		s.t.locks[l.ID] = l
	}
}

func (s *Store) Booking(id uuid.UUID) (*booking.Booking, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.t.bookings[id]
	return &b, ok
}

func (s *Store) Bookings() []*booking.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*booking.Booking, 0, len(s.t.bookings))
	for _, b := range s.t.bookings {
		b := b
		out = append(out, &b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt().Before(out[j].CreatedAt()) })
	return out
}

func (s *Store) ReservationFor(bookingID uuid.UUID) (*booking.Reservation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.t.reservations {
		if r.BookingID() == bookingID {
			r := r
			return &r, true
		}
	}
	return nil, false
}

func (s *Store) LocksFor(reservationID uuid.UUID) []booking.AvailabilityLock {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []booking.AvailabilityLock
	for _, l := range s.t.locks {
		if l.ReservationID == reservationID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func (s *Store) Payments() []*payment.Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*payment.Payment, 0, len(s.t.payments))
	for _, p := range s.t.payments {
		out = append(out, p)
	}
	return out
}

func (s *Store) Notifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Notification(nil), s.t.notifications...)
}

// UnitOfWork.

func (s *Store) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.t.clone()
	s.mu.RUnlock()

	if err := fn(ctx, &tx{s: s}); err != nil {
		s.mu.Lock()
		s.t = snapshot
		s.mu.Unlock()
		return err
	}
	if err := s.failure("Commit"); err != nil {
		s.mu.Lock()
		s.t = snapshot
		s.mu.Unlock()
		return err
	}
	s.Commits++
	return nil
}

func (s *Store) Reads() shared.Reads {
	return &reads{s: s}
}

type tx struct {
	s *Store
}

func (t *tx) Bookings() shared.BookingRepository           { return &bookingRepo{s: t.s} }
func (t *tx) Reservations() shared.ReservationRepository   { return &reservationRepo{s: t.s} }
func (t *tx) Locks() shared.LockRepository                 { return &lockRepo{s: t.s} }
func (t *tx) Payments() shared.PaymentRepository           { return &paymentRepo{s: t.s} }
func (t *tx) Notifications() shared.NotificationRepository { return &notificationRepo{s: t.s} }
func (t *tx) Reads() shared.Reads                          { return &reads{s: t.s} }

func notFound(msg string) error {
	return infra.WrapRepoErr(msg, nil, infra.KindNotFound)
}

type bookingRepo struct{ s *Store }

func (r *bookingRepo) Create(ctx context.Context, b *booking.Booking) error {
	if err := r.s.failure("Bookings.Create"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.t.bookings {
		if existing.Reference() == b.Reference() {
			return infra.WrapRepoErr("duplicate reference", nil, infra.KindDuplicateKey)
		}
	}
	r.s.t.bookings[b.ID()] = *b
	return nil
}

func (r *bookingRepo) Update(ctx context.Context, b *booking.Booking) error {
	if err := r.s.failure("Bookings.Update"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.bookings[b.ID()]; !ok {
		return notFound("booking not found")
	}
	r.s.t.bookings[b.ID()] = *b
	return nil
}

func (r *bookingRepo) FindByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.t.bookings[id]
	if !ok {
		return nil, notFound("booking not found")
	}
	return &b, nil
}

func (r *bookingRepo) FindByReference(ctx context.Context, ref booking.Reference) (*booking.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, b := range r.s.t.bookings {
		if b.Reference() == ref {
			return &b, nil
		}
	}
	return nil, notFound("booking not found")
}

type reservationRepo struct{ s *Store }

func (r *reservationRepo) Create(ctx context.Context, res *booking.Reservation) error {
	if err := r.s.failure("Reservations.Create"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.t.reservations[res.ID()] = *res
	return nil
}

func (r *reservationRepo) Update(ctx context.Context, res *booking.Reservation, expected booking.ReservationStatus) error {
	if err := r.s.failure("Reservations.Update"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.t.reservations[res.ID()]
	if !ok || stored.Status() != expected {
		return infra.WrapRepoErr("reservation changed concurrently", nil, infra.KindStaleWrite)
	}
	r.s.t.reservations[res.ID()] = *res
	return nil
}

func (r *reservationRepo) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*booking.Reservation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, res := range r.s.t.reservations {
		if res.BookingID() == bookingID {
			return &res, nil
		}
	}
	return nil, notFound("reservation not found")
}

func (r *reservationRepo) FindDue(ctx context.Context, now time.Time, limit int) ([]*booking.Reservation, error) {
	if err := r.s.failure("Reservations.FindDue"); err != nil {
		return nil, err
	}
	return r.list(limit, func(res booking.Reservation) bool { return res.IsDue(now) }), nil
}

func (r *reservationRepo) FindAwaitingPayment(ctx context.Context, now time.Time, limit int) ([]*booking.Reservation, error) {
	return r.list(limit, func(res booking.Reservation) bool {
		return res.IsActiveAt(now) && res.PaymentRef() != nil
	}), nil
}

func (r *reservationRepo) list(limit int, keep func(booking.Reservation) bool) []*booking.Reservation {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*booking.Reservation
	for _, res := range r.s.t.reservations {
		if keep(res) {
			res := res
			out = append(out, &res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt().Before(out[j].ExpiresAt()) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

type lockRepo struct{ s *Store }

func (r *lockRepo) CreateMany(ctx context.Context, locks []booking.AvailabilityLock) error {
	if err := r.s.failure("Locks.CreateMany"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, l := range locks {
		r.s.t.locks[l.ID] = l
	}
	return nil
}

func (r *lockRepo) ExtendForReservation(ctx context.Context, reservationID uuid.UUID, expiresAt time.Time) (int64, error) {
	if err := r.s.failure("Locks.ExtendForReservation"); err != nil {
		return 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, l := range r.s.t.locks {
		if l.ReservationID == reservationID && l.IsActive {
			l.ExpiresAt = expiresAt
			r.s.t.locks[id] = l
			n++
		}
	}
	return n, nil
}

func (r *lockRepo) ReleaseForReservation(ctx context.Context, reservationID uuid.UUID, reason booking.ReleaseReason, at time.Time) (int64, error) {
	if err := r.s.failure("Locks.ReleaseForReservation"); err != nil {
		return 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, l := range r.s.t.locks {
		if l.ReservationID == reservationID && l.IsActive {
			l.IsActive = false
			l.ReleasedAt = &at
			l.ReleaseReason = &reason
			r.s.t.locks[id] = l
			n++
		}
	}
	return n, nil
}

type paymentRepo struct{ s *Store }

func (r *paymentRepo) Insert(ctx context.Context, p *payment.Payment) (bool, error) {
	if err := r.s.failure("Payments.Insert"); err != nil {
		return false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := paymentKey{externalID: p.ExternalID(), transactionID: p.ProviderTransactionID()}
	if p.Status() != payment.StatusPaid {
		key.row = p.ID()
	}
	if _, ok := r.s.t.payments[key]; ok {
		return false, nil
	}
	r.s.t.payments[key] = p
	return true, nil
}

func (r *paymentRepo) FindPaidByBooking(ctx context.Context, bookingID uuid.UUID) (*payment.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.t.payments {
		if p.BookingID() == bookingID && p.Status() == payment.StatusPaid {
			return p, nil
		}
	}
	return nil, notFound("payment not found")
}

type notificationRepo struct{ s *Store }

func (r *notificationRepo) CreateJob(ctx context.Context, kind, topic string, payload []byte, runAt time.Time) error {
	if err := r.s.failure("Notifications.CreateJob"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.t.notifications = append(r.s.t.notifications, Notification{Kind: kind, Topic: topic, Payload: payload, RunAt: runAt})
	return nil
}

type reads struct{ s *Store }

func (r *reads) RoomByID(ctx context.Context, id uuid.UUID) (*room.Room, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rm, ok := r.s.t.rooms[id]
	if !ok {
		return nil, notFound("room not found")
	}
	return rm, nil
}

func (r *reads) RoomsByIDs(ctx context.Context, ids []uuid.UUID) ([]*room.Room, error) {
	if err := r.s.failure("Reads.RoomsByIDs"); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*room.Room
	for _, id := range ids {
		if rm, ok := r.s.t.rooms[id]; ok {
			out = append(out, rm)
		}
	}
	return out, nil
}

func (r *reads) ActiveRoomIDs(ctx context.Context) ([]uuid.UUID, error) {
	return r.roomIDs(true), nil
}

func (r *reads) InactiveRoomIDs(ctx context.Context) ([]uuid.UUID, error) {
	return r.roomIDs(false), nil
}

func (r *reads) roomIDs(active bool) []uuid.UUID {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []uuid.UUID
	for id, rm := range r.s.t.rooms {
		if rm.IsActive() == active {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func (r *reads) Overrides(ctx context.Context, roomIDs []uuid.UUID, start, end time.Time) ([]room.Override, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	want := idSet(roomIDs)
	var out []room.Override
	for _, o := range r.s.t.overrides {
		if _, ok := want[o.RoomID]; ok && !o.Date.Before(start) && o.Date.Before(end) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *reads) PricingRules(ctx context.Context, roomIDs []uuid.UUID) ([]room.PricingRule, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	want := idSet(roomIDs)
	var out []room.PricingRule
	for _, rule := range r.s.t.rules {
		if _, ok := want[rule.RoomID]; ok && rule.IsActive {
			out = append(out, rule)
		}
	}
	return out, nil
}

// Holds mirrors the count-once rules of the SQL read store.
func (r *reads) Holds(ctx context.Context, roomIDs []uuid.UUID, start, end, now time.Time) ([]availability.Hold, error) {
	if err := r.s.failure("Reads.Holds"); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	want := idSet(roomIDs)
	var out []availability.Hold

	for _, b := range r.s.t.bookings {
		if _, ok := want[b.RoomID()]; !ok || !b.Status().ConsumesInventory() {
			continue
		}
		if dates.Overlaps(b.Stay().CheckIn(), b.Stay().CheckOut(), start, end) {
			out = append(out, availability.Hold{RoomID: b.RoomID(), Start: b.Stay().CheckIn(), End: b.Stay().CheckOut(), Quantity: b.Quantity(), Source: availability.SourceBooking})
		}
	}

	live := map[uuid.UUID]struct{}{}
	for _, res := range r.s.t.reservations {
		if !res.IsActiveAt(now) {
			continue
		}
		live[res.ID()] = struct{}{}
		b, ok := r.s.t.bookings[res.BookingID()]
		if _, wanted := want[res.RoomID()]; !ok || !wanted {
			continue
		}
		if dates.Overlaps(b.Stay().CheckIn(), b.Stay().CheckOut(), start, end) {
			out = append(out, availability.Hold{RoomID: res.RoomID(), Start: b.Stay().CheckIn(), End: b.Stay().CheckOut(), Quantity: b.Quantity(), Source: availability.SourceReservation})
		}
	}

	for _, l := range r.s.t.locks {
		if _, ok := want[l.RoomID]; !ok || !l.IsActive || !l.ExpiresAt.After(now) {
			continue
		}
		if _, backed := live[l.ReservationID]; backed {
			continue
		}
		if !l.Date.Before(start) && l.Date.Before(end) {
			out = append(out, availability.Hold{RoomID: l.RoomID, Start: l.Date, End: l.Date.AddDate(0, 0, 1), Quantity: l.Quantity, Source: availability.SourceLock})
		}
	}
	return out, nil
}

func idSet(ids []uuid.UUID) map[uuid.UUID]struct{} {
	out := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}
