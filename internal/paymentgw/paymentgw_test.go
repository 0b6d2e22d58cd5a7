package paymentgw

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v78"

	"slotkeeper/internal/domain"
)

func TestIsChargeable(t *testing.T) {
	for _, s := range []string{"succeeded", "processing", "requires_capture", "SUCCEEDED"} {
		assert.True(t, IsChargeable(s), s)
	}
	for _, s := range []string{"requires_payment_method", "requires_confirmation", "requires_action", "canceled", ""} {
		assert.False(t, IsChargeable(s), s)
	}
}

func TestMapStripeError(t *testing.T) {
	err := mapStripeError(&stripe.Error{HTTPStatusCode: http.StatusBadRequest, Msg: "Amount must be at least $0.50 usd", Code: stripe.ErrorCodeAmountTooSmall})

	var re *domain.RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, domain.AuthorityPayment, re.Authority)
	assert.Equal(t, http.StatusBadRequest, re.Status)
	assert.Equal(t, "amount_too_small", re.Body)

	err = mapStripeError(errors.New("dial tcp: refused"))
	require.True(t, errors.As(err, &re))
	assert.Equal(t, http.StatusBadGateway, re.Status)
}

func TestToIntent_NilMetadataAndCharge(t *testing.T) {
	in := toIntent(&stripe.PaymentIntent{ID: "pi_1", Status: stripe.PaymentIntentStatusSucceeded, Amount: 12000, Currency: stripe.CurrencyUSD})
	assert.Equal(t, "succeeded", in.Status)
	assert.Equal(t, "", in.LatestChargeID)
	assert.NotNil(t, in.Metadata)

	in = toIntent(&stripe.PaymentIntent{ID: "pi_2", LatestCharge: &stripe.Charge{ID: "ch_1"}})
	assert.Equal(t, "ch_1", in.LatestChargeID)
}
