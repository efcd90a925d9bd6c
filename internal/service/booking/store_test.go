package booking

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/repository"
)

// memStore is an in-memory stand-in for the Postgres repositories. A transaction holds
// the store lock for the whole unit of work, like the flight row lock, and snapshots
// the tables to restore them when the unit of work fails. Sequences are not rolled
// back, matching nextval. Locking reads and writes fail outside a transaction.
type memStore struct {
	mu sync.Mutex
	tables
	seq map[string]int64

	failTicketAt int
	ticketWrites int
}

type tables struct {
	flights    map[string]domain.Flight
	bookings   map[string]domain.Booking
	passengers map[string]domain.Passenger
	tickets    map[string]domain.Ticket
}

func newMemStore(flights ...domain.Flight) *memStore {
	m := &memStore{
		tables: tables{
			flights:    make(map[string]domain.Flight),
			bookings:   make(map[string]domain.Booking),
			passengers: make(map[string]domain.Passenger),
			tickets:    make(map[string]domain.Ticket),
		},
		seq: make(map[string]int64),
	}
	for _, f := range flights {
		m.flights[f.ID] = f
	}
	return m
}

func (m *memStore) snapshot() tables {
	cp := tables{
		flights:    make(map[string]domain.Flight, len(m.flights)),
		bookings:   make(map[string]domain.Booking, len(m.bookings)),
		passengers: make(map[string]domain.Passenger, len(m.passengers)),
		tickets:    make(map[string]domain.Ticket, len(m.tickets)),
	}
	for k, v := range m.flights {
		cp.flights[k] = v
	}
	for k, v := range m.bookings {
		cp.bookings[k] = v
	}
	for k, v := range m.passengers {
		cp.passengers[k] = v
	}
	for k, v := range m.tickets {
		cp.tickets[k] = v
	}
	return cp
}

func (m *memStore) repos() (*memBookings, *memFlights, *memSequences, *memTx) {
	return &memBookings{m}, &memFlights{m}, &memSequences{m}, &memTx{m}
}

func (m *memStore) bookedSeats(flightID string) int {
	n := 0
	for _, t := range m.tickets {
		b := m.bookings[t.BookingID]
		if b.FlightID == flightID && b.Status.IsActive() {
			n++
		}
	}
	return n
}

func (m *memStore) ticketsOf(bookingID string) []domain.Ticket {
	tickets := make([]domain.Ticket, 0)
	for _, t := range m.tickets {
		if t.BookingID != bookingID {
			continue
		}
		p := m.passengers[t.PassengerID]
		t.Passenger = &p
		tickets = append(tickets, t)
	}
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].SeatNumber < tickets[j].SeatNumber })
	return tickets
}

type txMarker struct{}

var errNoTx = errors.New("called outside a transaction")

func requireTx(ctx context.Context) error {
	if ctx.Value(txMarker{}) == nil {
		return errNoTx
	}
	return nil
}

type memTx struct{ *memStore }

func (m *memTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if requireTx(ctx) == nil {
		return fn(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(context.WithValue(ctx, txMarker{}, true)); err != nil {
		m.tables = snap
		return err
	}
	return nil
}

type memSequences struct{ *memStore }

func (m *memSequences) Next(ctx context.Context, seq repository.Sequence) (string, error) {
	if err := requireTx(ctx); err != nil {
		return "", err
	}
	m.seq[seq.Name]++
	return seq.Format(m.seq[seq.Name]), nil
}

type memBookings struct{ *memStore }

func (m *memBookings) Create(ctx context.Context, b *domain.Booking) error {
	if err := requireTx(ctx); err != nil {
		return err
	}
	if _, ok := m.bookings[b.ID]; ok {
		return domain.ConflictError{Resource: "booking", Msg: "duplicate booking id"}
	}
	b.CreatedAt, b.UpdatedAt = b.BookedAt, b.BookedAt
	stored := *b
	stored.Flight, stored.Tickets = nil, nil
	m.bookings[b.ID] = stored
	return nil
}

func (m *memBookings) CreatePassenger(ctx context.Context, p *domain.Passenger) error {
	if err := requireTx(ctx); err != nil {
		return err
	}
	m.passengers[p.ID] = *p
	return nil
}

var errTicketWrite = errors.New("ticket write failed")

func (m *memBookings) CreateTicket(ctx context.Context, t *domain.Ticket) error {
	if err := requireTx(ctx); err != nil {
		return err
	}
	m.ticketWrites++
	if m.failTicketAt > 0 && m.ticketWrites == m.failTicketAt {
		return errTicketWrite
	}
	for _, existing := range m.tickets {
		if existing.BookingID == t.BookingID && existing.SeatNumber == t.SeatNumber {
			return domain.ConflictError{Resource: "ticket", Msg: "seat or ticket id already taken"}
		}
	}
	stored := *t
	stored.Passenger = nil
	m.tickets[t.ID] = stored
	return nil
}

func (m *memBookings) SeatNumbers(ctx context.Context, bookingID string) ([]int, error) {
	if err := requireTx(ctx); err != nil {
		return nil, err
	}
	seats := make([]int, 0)
	for _, t := range m.tickets {
		if t.BookingID == bookingID {
			seats = append(seats, t.SeatNumber)
		}
	}
	return seats, nil
}

func (m *memBookings) GetByID(_ context.Context, id string) (*domain.Booking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return nil, domain.NotFoundError{Resource: "booking"}
	}
	f := m.flights[b.FlightID]
	b.Flight = &f
	b.Tickets = m.ticketsOf(id)
	return &b, nil
}

func (m *memBookings) GetForUpdate(ctx context.Context, id string) (*domain.Booking, error) {
	if err := requireTx(ctx); err != nil {
		return nil, err
	}
	b, ok := m.bookings[id]
	if !ok {
		return nil, domain.NotFoundError{Resource: "booking"}
	}
	return &b, nil
}

func (m *memBookings) Tickets(_ context.Context, bookingID string) ([]domain.Ticket, error) {
	return m.ticketsOf(bookingID), nil
}

func (m *memBookings) UpdateStatus(ctx context.Context, id string, status domain.BookingStatus, remark *string) error {
	if err := requireTx(ctx); err != nil {
		return err
	}
	b, ok := m.bookings[id]
	if !ok {
		return domain.NotFoundError{Resource: "booking"}
	}
	b.Status = status
	if remark != nil {
		b.Remark = *remark
	}
	m.bookings[id] = b
	for k, t := range m.tickets {
		if t.BookingID == id {
			t.Status = status
			m.tickets[k] = t
		}
	}
	return nil
}

func (m *memBookings) List(_ context.Context, filter domain.BookingFilter) ([]domain.Booking, int, error) {
	matched := make([]domain.Booking, 0)
	for _, b := range m.bookings {
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		if filter.FlightID != "" && b.FlightID != filter.FlightID {
			continue
		}
		if filter.UserID != "" && b.UserID != filter.UserID {
			continue
		}
		matched = append(matched, b)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	total := len(matched)
	start := filter.Page.Offset()
	if start > total {
		start = total
	}
	end := start + filter.Page.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (m *memBookings) HasBooking(_ context.Context, userID, flightID string, statuses []domain.BookingStatus) (bool, error) {
	for _, b := range m.bookings {
		if b.UserID != userID || b.FlightID != flightID {
			continue
		}
		for _, s := range statuses {
			if b.Status == s {
				return true, nil
			}
		}
	}
	return false, nil
}

func (m *memBookings) CompleteDeparted(ctx context.Context, before time.Time) ([]domain.Booking, error) {
	if err := requireTx(ctx); err != nil {
		return nil, err
	}
	completed := make([]domain.Booking, 0)
	for id, b := range m.bookings {
		if (b.Status == domain.BookingStatusUpcoming || b.Status == domain.BookingStatusConfirmed) && b.DepartureDate.Before(before) {
			_ = m.UpdateStatus(ctx, id, domain.BookingStatusCompleted, nil)
			completed = append(completed, m.bookings[id])
		}
	}
	return completed, nil
}

func (m *memBookings) FlightHistory(_ context.Context, userID string) ([]domain.FlightHistoryEntry, error) {
	history := make([]domain.FlightHistoryEntry, 0)
	for _, b := range m.bookings {
		if b.UserID == userID && (b.Status == domain.BookingStatusConfirmed || b.Status == domain.BookingStatusCompleted) {
			history = append(history, domain.FlightHistoryEntry{Booking: b})
		}
	}
	return history, nil
}

func (m *memBookings) Stats(_ context.Context) (*domain.BookingStats, error) {
	stats := &domain.BookingStats{ByStatus: make(map[string]int), RevenueByFlight: make([]domain.FlightRevenue, 0)}
	for _, b := range m.bookings {
		stats.Total++
		stats.ByStatus[string(b.Status)]++
	}
	return stats, nil
}

type memFlights struct{ *memStore }

func (m *memFlights) Search(_ context.Context, q domain.FlightSearch) ([]domain.Flight, error) {
	flights := make([]domain.Flight, 0)
	for _, f := range m.flights {
		if f.Origin == q.Origin && f.Destination == q.Destination && f.Status == domain.FlightStatusActive {
			f.SetBooked(m.bookedSeats(f.ID))
			flights = append(flights, f)
		}
	}
	return flights, nil
}

func (m *memFlights) GetByID(_ context.Context, id string) (*domain.Flight, error) {
	f, ok := m.flights[id]
	if !ok {
		return nil, domain.NotFoundError{Resource: "flight"}
	}
	f.SetBooked(m.bookedSeats(id))
	return &f, nil
}

func (m *memFlights) GetForUpdate(ctx context.Context, id string) (*domain.Flight, error) {
	if err := requireTx(ctx); err != nil {
		return nil, err
	}
	f, ok := m.flights[id]
	if !ok {
		return nil, domain.NotFoundError{Resource: "flight"}
	}
	return &f, nil
}

func (m *memFlights) BookedSeats(ctx context.Context, flightID string) (int, error) {
	if err := requireTx(ctx); err != nil {
		return 0, err
	}
	return m.bookedSeats(flightID), nil
}

func (m *memFlights) List(_ context.Context, _ domain.FlightFilter) ([]domain.Flight, int, error) {
	flights := make([]domain.Flight, 0, len(m.flights))
	for _, f := range m.flights {
		f.SetBooked(m.bookedSeats(f.ID))
		flights = append(flights, f)
	}
	return flights, len(flights), nil
}

func (m *memFlights) Create(_ context.Context, f *domain.Flight) error {
	m.flights[f.ID] = *f
	return nil
}

func (m *memFlights) Update(_ context.Context, f *domain.Flight) error {
	m.flights[f.ID] = *f
	return nil
}

// Delete mirrors the Postgres repository: inactive bookings go with the flight, and
// bookings still holding seats block the delete.
func (m *memFlights) Delete(ctx context.Context, id string) error {
	if err := requireTx(ctx); err != nil {
		return err
	}
	if _, ok := m.flights[id]; !ok {
		return domain.NotFoundError{Resource: "flight"}
	}
	for bookingID, b := range m.bookings {
		if b.FlightID != id {
			continue
		}
		if b.Status.IsActive() {
			return domain.ConflictError{Resource: "flight", Msg: "flight has active bookings"}
		}
		for ticketID, t := range m.tickets {
			if t.BookingID == bookingID {
				delete(m.passengers, t.PassengerID)
				delete(m.tickets, ticketID)
			}
		}
		delete(m.bookings, bookingID)
	}
	delete(m.flights, id)
	return nil
}

func (m *memFlights) Stats(_ context.Context) (*domain.FlightStats, error) {
	return &domain.FlightStats{Total: len(m.flights)}, nil
}

var (
	_ repository.BookingRepository  = (*memBookings)(nil)
	_ repository.FlightRepository   = (*memFlights)(nil)
	_ repository.SequenceRepository = (*memSequences)(nil)
	_ repository.Transactor         = (*memTx)(nil)
)
