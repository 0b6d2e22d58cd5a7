package reschedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slotkeeper/internal/clock"
	"slotkeeper/internal/database"
	"slotkeeper/internal/domain"
	"slotkeeper/internal/notify"
	"slotkeeper/internal/pkg/logging"
	"slotkeeper/internal/repository"
	"slotkeeper/internal/scheduling"
)

const cutoff = 72 * time.Hour

var slotStart = time.Date(2025, 11, 17, 10, 0, 0, 0, time.UTC)

type spyScheduler struct {
	updates []scheduling.UpdateBookingRequest
	cancels []string
	err     error
}

func (s *spyScheduler) UpdateBooking(_ context.Context, id string, req scheduling.UpdateBookingRequest) (*scheduling.Booking, error) {
	s.updates = append(s.updates, req)
	if s.err != nil {
		return nil, s.err
	}
	return &scheduling.Booking{ID: id, StartsAt: req.StartsAt, EndsAt: req.EndsAt}, nil
}

func (s *spyScheduler) CancelBooking(_ context.Context, id string) error {
	s.cancels = append(s.cancels, id)
	return s.err
}

type recordingNotifier struct {
	notify.Nop
	reschedules   int
	cancellations []notify.BookingMessage
	mirrors       int
}

func (r *recordingNotifier) SendRescheduleNotice(context.Context, notify.BookingMessage) error {
	r.reschedules++
	return nil
}

func (r *recordingNotifier) SendCancellationNotice(_ context.Context, m notify.BookingMessage) error {
	r.cancellations = append(r.cancellations, m)
	return nil
}

func (r *recordingNotifier) MirrorEventUpdate(context.Context, notify.BookingMessage) error {
	r.mirrors++
	return nil
}

type fixture struct {
	sched     *spyScheduler
	notifier  *recordingNotifier
	bookings  *repository.BookingRepository
	customers *repository.CustomerRepository
	events    *repository.EventRepository
	tx        *repository.TxManager
	booking   *domain.Booking
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(context.Background(), db))

	f := &fixture{
		sched:     &spyScheduler{},
		notifier:  &recordingNotifier{},
		bookings:  repository.NewBookingRepository(db),
		customers: repository.NewCustomerRepository(db),
		events:    repository.NewEventRepository(db),
		tx:        repository.NewTxManager(db),
	}
	f.booking, err = f.bookings.UpsertHold(context.Background(), &domain.Booking{
		RemoteBookingID: "rb-1",
		ServiceID:       "svc-x",
		StartAt:         slotStart,
		EndAt:           slotStart.Add(time.Hour),
		ClientName:      "Ada Lovelace",
		ClientEmail:     "ada@example.com",
		State:           domain.StateHolding,
	})
	require.NoError(t, err)
	require.NoError(t, f.bookings.Transition(context.Background(), f.booking.ID, domain.StateConfirmed, nil))
	return f
}

func (f *fixture) service(now time.Time) *Service {
	return NewService(f.bookings, f.customers, f.events, f.sched, f.tx, nil, f.notifier, clock.NewFixed(now),
		Config{Cutoff: cutoff, Timezone: "America/New_York"}, logging.Discard())
}

func (f *fixture) reload(t *testing.T) *domain.Booking {
	t.Helper()
	b, err := f.bookings.GetByID(context.Background(), f.booking.ID)
	require.NoError(t, err)
	return b
}

func TestReschedule_CutoffBoundary(t *testing.T) {
	newStart := slotStart.Add(7 * 24 * time.Hour)

	tests := []struct {
		name    string
		now     time.Time
		allowed bool
	}{
		{"well before cutoff", slotStart.Add(-100 * time.Hour), true},
		{"one minute outside cutoff", slotStart.Add(-cutoff - time.Minute), true},
		{"exactly at cutoff", slotStart.Add(-cutoff), false},
		{"inside cutoff", slotStart.Add(-24 * time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.service(tt.now).Reschedule(context.Background(), "rb-1", RescheduleRequest{Start: newStart})

			if tt.allowed {
				require.NoError(t, err)
				assert.Len(t, f.sched.updates, 1)
				return
			}
			var cv *domain.CutoffViolation
			require.ErrorAs(t, err, &cv)
			assert.Equal(t, cutoff, cv.Cutoff)
			assert.Empty(t, f.sched.updates)
			assert.True(t, slotStart.Equal(f.reload(t).StartAt))
		})
	}
}

func TestReschedule_ReportsHoursRemaining(t *testing.T) {
	f := newFixture(t)
	_, err := f.service(slotStart.Add(-30*time.Hour)).Reschedule(context.Background(), "rb-1",
		RescheduleRequest{Start: slotStart.Add(96 * time.Hour)})

	var cv *domain.CutoffViolation
	require.ErrorAs(t, err, &cv)
	assert.InDelta(t, 30.0, cv.HoursRemaining, 0.001)
}

func TestReschedule_CommitsOnRemoteSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	newStart := slotStart.Add(7 * 24 * time.Hour)

	b, err := f.service(slotStart.Add(-100*time.Hour)).Reschedule(ctx, "rb-1", RescheduleRequest{Start: newStart})
	require.NoError(t, err)
	assert.True(t, newStart.Equal(b.StartAt))
	assert.True(t, newStart.Add(time.Hour).Equal(b.EndAt))

	require.Len(t, f.sched.updates, 1)
	assert.True(t, f.sched.updates[0].IgnoreSchedule)

	stored := f.reload(t)
	assert.True(t, newStart.Equal(stored.StartAt))
	assert.Equal(t, domain.StateConfirmed, stored.State)
	assert.Contains(t, stored.Metadata, "rescheduled_at")

	n, err := f.events.CountByType(ctx, f.booking.ID, domain.EventRescheduled)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, 1, f.notifier.reschedules)
	assert.Equal(t, 1, f.notifier.mirrors)
}

func TestReschedule_RemoteRefusalRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.sched.err = &domain.RemoteError{Authority: domain.AuthorityScheduling, Status: 422, Message: "No open schedule for this time"}

	_, err := f.service(slotStart.Add(-100*time.Hour)).Reschedule(ctx, "rb-1",
		RescheduleRequest{Start: slotStart.Add(7 * 24 * time.Hour)})

	var re *domain.RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 422, re.Status)
	assert.Equal(t, scheduling.MessagePickAnotherSlot, re.Message)

	stored := f.reload(t)
	assert.True(t, slotStart.Equal(stored.StartAt))
	assert.NotContains(t, stored.Metadata, "rescheduled_at")

	n, err := f.events.CountByType(ctx, f.booking.ID, domain.EventRescheduled)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, f.notifier.reschedules)

	customers, err := f.customers.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, customers)
	assert.Nil(t, stored.CustomerID)
}

func TestReschedule_LinksExistingCustomer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seeded, err := f.customers.Upsert(ctx, &domain.Customer{
		Email:     "ada@example.com",
		FirstName: "Ada",
		LastName:  "King",
		Phone:     "+44 20 7946 0000",
	})
	require.NoError(t, err)

	got, err := f.service(slotStart.Add(-100*time.Hour)).Reschedule(ctx, "rb-1",
		RescheduleRequest{Start: slotStart.Add(7 * 24 * time.Hour)})
	require.NoError(t, err)

	n, err := f.customers.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	c, err := f.customers.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, seeded.ID, c.ID)
	assert.Equal(t, "Ada", c.FirstName)
	assert.Equal(t, "Lovelace", c.LastName)
	assert.Equal(t, "+44 20 7946 0000", c.Phone)

	stored := f.reload(t)
	require.NotNil(t, stored.CustomerID)
	assert.Equal(t, c.ID, *stored.CustomerID)
	require.NotNil(t, got.CustomerID)
	assert.Equal(t, c.ID, *got.CustomerID)
}

func TestReschedule_CreatesMissingCustomer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.service(slotStart.Add(-100 * time.Hour))

	_, err := svc.Reschedule(ctx, "rb-1", RescheduleRequest{Start: slotStart.Add(7 * 24 * time.Hour)})
	require.NoError(t, err)
	_, err = svc.Reschedule(ctx, "rb-1", RescheduleRequest{Start: slotStart.Add(8 * 24 * time.Hour)})
	require.NoError(t, err)

	n, err := f.customers.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	c, err := f.customers.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "Ada", c.FirstName)
	assert.Equal(t, "Lovelace", c.LastName)
	assert.Equal(t, c.ID, *f.reload(t).CustomerID)
}

func TestReschedule_RejectsPastAndInvertedTimes(t *testing.T) {
	f := newFixture(t)
	now := slotStart.Add(-100 * time.Hour)
	svc := f.service(now)

	_, err := svc.Reschedule(context.Background(), "rb-1", RescheduleRequest{Start: now.Add(-time.Hour)})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = svc.Reschedule(context.Background(), "rb-1", RescheduleRequest{
		Start: slotStart.Add(200 * time.Hour),
		End:   slotStart.Add(199 * time.Hour),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.Empty(t, f.sched.updates)
}

func TestCancel_TransitionsAndNotifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.service(slotStart.Add(-100*time.Hour)).Cancel(ctx, "rb-1", CancelRequest{Reason: "sick"})
	require.NoError(t, err)
	assert.Equal(t, domain.StateCancelled, b.State)
	assert.Equal(t, []string{"rb-1"}, f.sched.cancels)

	stored := f.reload(t)
	assert.Equal(t, domain.StateCancelled, stored.State)
	assert.Equal(t, "sick", stored.Metadata["cancel_reason"])

	require.Len(t, f.notifier.cancellations, 1)
	assert.Equal(t, "sick", f.notifier.cancellations[0].Reason)

	_, err = f.service(slotStart.Add(-100*time.Hour)).Cancel(ctx, "rb-1", CancelRequest{})
	assert.ErrorIs(t, err, domain.ErrBookingCancelled)
	assert.Len(t, f.sched.cancels, 1)
}

func TestCancel_RemoteFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.sched.err = &domain.RemoteError{Authority: domain.AuthorityScheduling, Status: 500, Message: "boom"}

	_, err := f.service(slotStart.Add(-100*time.Hour)).Cancel(context.Background(), "rb-1", CancelRequest{})
	assert.ErrorIs(t, err, domain.ErrRemoteAuthority)
	assert.Equal(t, domain.StateConfirmed, f.reload(t).State)
	assert.Empty(t, f.notifier.cancellations)
}

func TestReschedule_CancelledBookingIsRejected(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.bookings.Transition(context.Background(), f.booking.ID, domain.StateCancelled, nil))

	_, err := f.service(slotStart.Add(-100*time.Hour)).Reschedule(context.Background(), "rb-1",
		RescheduleRequest{Start: slotStart.Add(200 * time.Hour)})
	assert.ErrorIs(t, err, domain.ErrBookingCancelled)
	assert.Empty(t, f.sched.updates)
}
