package payment_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zhima-Mochi/artisanmart/internal/domain/payment"
)

type stubGateway struct {
	name      string
	methods   []string
	synthetic bool
}

func (g stubGateway) Name() string      { return g.name }
func (g stubGateway) Methods() []string { return g.methods }
func (g stubGateway) Synthetic() bool   { return g.synthetic }

func (stubGateway) CreateIntent(context.Context, payment.IntentRequest) (*payment.Intent, error) {
	return nil, nil
}

func (stubGateway) Verify(context.Context, payment.VerifyRequest) (*payment.Verification, error) {
	return nil, nil
}

func (stubGateway) Refund(context.Context, payment.RefundRequest) (*payment.RefundConfirmation, error) {
	return nil, nil
}

func (stubGateway) MapStatus(string) (payment.Status, bool) { return "", false }

func (stubGateway) ParseWebhook(context.Context, payment.WebhookRequest) (*payment.WebhookEvent, error) {
	return nil, nil
}

func TestRegistry_Resolve(t *testing.T) {
	razorpay := stubGateway{name: "razorpay", methods: []string{"razorpay-card", "razorpay-upi"}}
	cod := stubGateway{name: "cod", methods: []string{"cod"}}
	reg := payment.NewRegistry(razorpay, cod)

	tests := []struct {
		method  string
		want    string
		wantErr bool
	}{
		{method: "razorpay-card", want: "razorpay"},
		{method: "  RAZORPAY-UPI ", want: "razorpay"},
		{method: "razorpay-netbanking", want: "razorpay"},
		{method: "cod", want: "cod"},
		{method: "paytm-wallet", wantErr: true},
		{method: "razorpay", wantErr: true},
		{method: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			g, err := reg.Resolve(tt.method)
			if tt.wantErr {
				require.ErrorIs(t, err, payment.ErrUnsupportedMethod)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, g.Name())
		})
	}
}

func TestRegistry_LookupNamesMethods(t *testing.T) {
	reg := payment.NewRegistry(
		stubGateway{name: "razorpay", methods: []string{"razorpay-upi", "razorpay-card"}, synthetic: true},
		stubGateway{name: "cod", methods: []string{"cod"}},
		nil,
	)

	g, ok := reg.Lookup("Razorpay")
	require.True(t, ok)
	assert.Equal(t, "razorpay", g.Name())

	_, ok = reg.Lookup("paytm")
	assert.False(t, ok)

	assert.Equal(t, []string{"cod", "razorpay"}, reg.Names())
	assert.Equal(t, []payment.Method{
		{Method: "cod", Gateway: "cod"},
		{Method: "razorpay-card", Gateway: "razorpay", Synthetic: true},
		{Method: "razorpay-upi", Gateway: "razorpay", Synthetic: true},
	}, reg.Methods())
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	reg := payment.NewRegistry(stubGateway{name: "paytm", methods: []string{"paytm-upi"}, synthetic: true})
	reg.Register(stubGateway{name: "paytm", methods: []string{"paytm-upi"}})

	g, err := reg.Resolve("paytm-upi")
	require.NoError(t, err)
	assert.False(t, g.Synthetic())
}
