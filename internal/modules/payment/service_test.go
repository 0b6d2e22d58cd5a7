package payment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"slotkeeper/internal/catalog"
	"slotkeeper/internal/database"
	"slotkeeper/internal/domain"
	"slotkeeper/internal/paymentgw"
	"slotkeeper/internal/pkg/logging"
	"slotkeeper/internal/repository"
)

type MockAuthority struct {
	mock.Mock
}

func (m *MockAuthority) CreatePaymentIntent(ctx context.Context, req paymentgw.CreateIntentRequest) (*paymentgw.Intent, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentgw.Intent), args.Error(1)
}

func (m *MockAuthority) Refund(ctx context.Context, id string, amount *int64) (*paymentgw.RefundResult, error) {
	args := m.Called(ctx, id, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentgw.RefundResult), args.Error(1)
}

func (m *MockAuthority) Void(ctx context.Context, id string) (*paymentgw.RefundResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentgw.RefundResult), args.Error(1)
}

type deps struct {
	svc      *Service
	auth     *MockAuthority
	bookings *repository.BookingRepository
	payments *repository.PaymentRepository
	events   *repository.EventRepository
}

var slotStart = time.Date(2025, 11, 17, 10, 0, 0, 0, time.UTC)

func setupTestService(t *testing.T) deps {
	t.Helper()
	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(context.Background(), db))

	cat, err := catalog.New([]catalog.Service{{
		ID: "svc-x", Slug: "x", PriceDollars: 120, DurationMinutes: 60,
		RemoteServiceID: "rs-x", RemoteLocationID: "loc-1",
	}, {
		ID: "svc-cheap", Slug: "cheap", PriceDollars: 0.25,
		RemoteServiceID: "rs-c", RemoteLocationID: "loc-1",
	}}, "")
	require.NoError(t, err)

	d := deps{
		auth:     &MockAuthority{},
		bookings: repository.NewBookingRepository(db),
		payments: repository.NewPaymentRepository(db),
		events:   repository.NewEventRepository(db),
	}
	d.svc = NewService(cat, d.auth, d.bookings, d.payments, d.events, repository.NewTxManager(db),
		Config{Currency: "usd", MinCents: 50, Timezone: "America/New_York"}, logging.Discard())
	return d
}

func int64p(v int64) *int64 { return &v }

func TestCreateIntent_AmountTooLowNeverCallsAuthority(t *testing.T) {
	d := setupTestService(t)

	for _, amount := range []int64{0, 1, 49} {
		_, err := d.svc.CreateIntent(context.Background(), CreateIntentRequest{
			ServiceID: "x", SlotStart: slotStart, SlotEnd: slotStart.Add(time.Hour), AmountCents: int64p(amount),
		})
		assert.ErrorIs(t, err, domain.ErrAmountTooLow, amount)
	}

	_, err := d.svc.CreateIntent(context.Background(), CreateIntentRequest{
		ServiceID: "cheap", SlotStart: slotStart, SlotEnd: slotStart.Add(time.Hour),
	})
	assert.ErrorIs(t, err, domain.ErrAmountTooLow)

	d.auth.AssertNotCalled(t, "CreatePaymentIntent", mock.Anything, mock.Anything)
}

func TestCreateIntent_UsesCatalogPriceAndEmbedsMetadata(t *testing.T) {
	d := setupTestService(t)
	ctx := context.Background()

	_, err := d.bookings.UpsertHold(ctx, &domain.Booking{
		RemoteBookingID: "hb-1", ServiceID: "svc-x", StartAt: slotStart, EndAt: slotStart.Add(time.Hour),
	})
	require.NoError(t, err)

	d.auth.On("CreatePaymentIntent", mock.Anything, mock.MatchedBy(func(req paymentgw.CreateIntentRequest) bool {
		return req.AmountCents == 12000 &&
			req.Currency == "usd" &&
			req.Metadata[MetaRemoteBookingID] == "hb-1" &&
			req.Metadata[MetaServiceID] == "svc-x" &&
			req.Metadata[MetaServiceSlug] == "x" &&
			req.Metadata[MetaRemoteServiceID] == "rs-x" &&
			req.Metadata[MetaSlotStart] == "2025-11-17T10:00:00Z" &&
			req.Metadata[MetaSlotEnd] == "2025-11-17T11:00:00Z" &&
			req.Metadata[MetaTimezone] == "America/New_York" &&
			req.Metadata[MetaCustomerEmail] == "ada@example.com"
	})).Return(&paymentgw.Intent{ID: "pi_1", ClientSecret: "pi_1_secret", Status: "requires_payment_method", AmountCents: 12000}, nil).Once()

	resp, err := d.svc.CreateIntent(ctx, CreateIntentRequest{
		ServiceID: "x", RemoteBookingID: "hb-1", SlotStart: slotStart, SlotEnd: slotStart.Add(time.Hour), Email: " Ada@Example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, "pi_1_secret", resp.ClientSecret)
	assert.Equal(t, 120.0, resp.AmountDollars)
	d.auth.AssertExpectations(t)

	b, err := d.bookings.GetByRemoteID(ctx, "hb-1")
	require.NoError(t, err)
	require.NotNil(t, b.PaymentIntentID)
	assert.Equal(t, "pi_1", *b.PaymentIntentID)
}

func TestCreateIntent_ExplicitAmountWins(t *testing.T) {
	d := setupTestService(t)
	d.auth.On("CreatePaymentIntent", mock.Anything, mock.MatchedBy(func(req paymentgw.CreateIntentRequest) bool {
		return req.AmountCents == 5000
	})).Return(&paymentgw.Intent{ID: "pi_2", ClientSecret: "s"}, nil).Once()

	resp, err := d.svc.CreateIntent(context.Background(), CreateIntentRequest{
		ServiceID: "x", SlotStart: slotStart, SlotEnd: slotStart.Add(time.Hour), AmountCents: int64p(5000),
	})
	require.NoError(t, err)
	assert.Equal(t, 50.0, resp.AmountDollars)
}

func TestRefund_RecordsStatusAndEvent(t *testing.T) {
	d := setupTestService(t)
	ctx := context.Background()

	_, err := d.payments.InsertIfAbsent(ctx, &domain.Payment{
		BookingID: "b-1", ExternalTransactionID: "pi_1", AmountCents: 12000, Currency: "usd", Status: domain.PaymentRecordSucceeded,
	})
	require.NoError(t, err)

	d.auth.On("Refund", mock.Anything, "pi_1", int64p(2000)).
		Return(&paymentgw.RefundResult{Success: true, TransactionID: "re_1", AmountCents: 2000, Status: "succeeded"}, nil).Once()

	res, err := d.svc.Refund(ctx, "pi_1", RefundRequest{AmountCents: int64p(2000), Reason: "goodwill"})
	require.NoError(t, err)
	assert.Equal(t, string(domain.PaymentRecordPartialRefund), res.Status)

	p, err := d.payments.GetByExternalID(ctx, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentRecordPartialRefund, p.Status)

	n, err := d.events.CountByType(ctx, "b-1", domain.EventRefunded)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestVoid_UnknownPayment(t *testing.T) {
	d := setupTestService(t)

	_, err := d.svc.Void(context.Background(), "pi_missing")
	assert.ErrorIs(t, err, ErrPaymentNotFound)
	d.auth.AssertNotCalled(t, "Void", mock.Anything, mock.Anything)
}

func TestVoid_RecordsEvent(t *testing.T) {
	d := setupTestService(t)
	ctx := context.Background()

	_, err := d.payments.InsertIfAbsent(ctx, &domain.Payment{
		BookingID: "b-1", ExternalTransactionID: "pi_1", AmountCents: 12000, Currency: "usd", Status: domain.PaymentRecordRequiresCapture,
	})
	require.NoError(t, err)
	d.auth.On("Void", mock.Anything, "pi_1").
		Return(&paymentgw.RefundResult{Success: true, TransactionID: "pi_1", AmountCents: 12000, Status: "canceled"}, nil).Once()

	_, err = d.svc.Void(ctx, "pi_1")
	require.NoError(t, err)

	n, err := d.events.CountByType(ctx, "b-1", domain.EventVoided)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
