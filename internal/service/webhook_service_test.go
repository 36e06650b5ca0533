package service

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"storefront-wallet/config"
	"storefront-wallet/internal/adapter/storage/memory"
	"storefront-wallet/internal/core/domain"
	"storefront-wallet/internal/core/ports/mocks"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testWebhookSecret = "whsec_test"

type webhookDeps struct {
	svc        *WebhookServiceImpl
	reconciler *mocks.MockReconcileService
	signer     *HMACSignatureService
	now        time.Time
}

func setupWebhook(t *testing.T, secret string) *webhookDeps {
	ctrl := gomock.NewController(t)
	d := &webhookDeps{
		reconciler: mocks.NewMockReconcileService(ctrl),
		signer:     NewHMACSignatureService(),
		now:        time.Unix(1700000000, 0),
	}
	d.svc = NewWebhookService(config.StripeConfig{WebhookSecret: secret, WebhookTolerance: 5 * time.Minute},
		d.signer, memory.NewNonceStore(), d.reconciler, zerolog.Nop())
	d.svc.now = func() time.Time { return d.now }
	return d
}

func (d *webhookDeps) header(body string) string {
	ts := strconv.FormatInt(d.now.Unix(), 10)
	return "t=" + ts + ",v1=" + d.signer.Sign(testWebhookSecret, ts+"."+body)
}

const completedEvent = `{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_1","payment_status":"paid","metadata":{"clientId":"c1","originalAmount":"1500"}}}}`

func TestWebhook_CompletedSessionReconciles(t *testing.T) {
	d := setupWebhook(t, testWebhookSecret)

	d.reconciler.EXPECT().Reconcile(gomock.Any(), "c1", domain.CallbackParams{SessionID: "cs_1", Provider: "stripe"}).
		Return(&domain.ReconcileOutcome{State: domain.ReconcileDone, Amount: 1500})

	res, err := d.svc.HandleStripeEvent(context.Background(), []byte(completedEvent), d.header(completedEvent))
	require.NoError(t, err)
	assert.True(t, res.Received)
	assert.True(t, res.Handled)
	assert.Equal(t, int64(1500), res.Outcome.Amount)
}

func TestWebhook_DuplicateDeliveryIgnored(t *testing.T) {
	d := setupWebhook(t, testWebhookSecret)

	d.reconciler.EXPECT().Reconcile(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&domain.ReconcileOutcome{State: domain.ReconcileDone}).Times(1)

	for i := 0; i < 2; i++ {
		res, err := d.svc.HandleStripeEvent(context.Background(), []byte(completedEvent), d.header(completedEvent))
		require.NoError(t, err)
		assert.True(t, res.Received)
	}
}

func TestWebhook_RejectedDeliveryCanBeRetried(t *testing.T) {
	d := setupWebhook(t, testWebhookSecret)
	ctx := context.Background()

	broken := `{"id":"evt_1","type":"checkout.session.completed","data":{"object":{}}}`
	_, err := d.svc.HandleStripeEvent(ctx, []byte(broken), d.header(broken))
	requireAppError(t, err, "PAY_002")

	d.reconciler.EXPECT().Reconcile(gomock.Any(), "c1", domain.CallbackParams{SessionID: "cs_1", Provider: "stripe"}).
		Return(&domain.ReconcileOutcome{State: domain.ReconcileDone, Amount: 1500})

	res, err := d.svc.HandleStripeEvent(ctx, []byte(completedEvent), d.header(completedEvent))
	require.NoError(t, err)
	assert.True(t, res.Handled)
}

func TestWebhook_BadSignature(t *testing.T) {
	d := setupWebhook(t, testWebhookSecret)

	_, err := d.svc.HandleStripeEvent(context.Background(), []byte(completedEvent), "t=1700000000,v1=00")
	requireAppError(t, err, "SEC_002")

	_, err = d.svc.HandleStripeEvent(context.Background(), []byte(completedEvent), "")
	requireAppError(t, err, "SEC_002")

	stale := d.header(completedEvent)
	d.now = d.now.Add(time.Hour)
	_, err = d.svc.HandleStripeEvent(context.Background(), []byte(completedEvent), stale)
	requireAppError(t, err, "SEC_002")
}

func TestWebhook_UnsignedWhenNoSecret(t *testing.T) {
	d := setupWebhook(t, "")

	res, err := d.svc.HandleStripeEvent(context.Background(), []byte(`{"id":"evt_2","type":"customer.created"}`), "")
	require.NoError(t, err)
	assert.True(t, res.Received)
	assert.False(t, res.Handled)
}

func TestWebhook_MalformedPayload(t *testing.T) {
	d := setupWebhook(t, "")

	_, err := d.svc.HandleStripeEvent(context.Background(), []byte(`{not json`), "")
	requireAppError(t, err, "PAY_002")

	_, err = d.svc.HandleStripeEvent(context.Background(), []byte(`{"id":"evt_3"}`), "")
	requireAppError(t, err, "PAY_002")
}

func TestWebhook_SessionWithoutClientIsAcknowledged(t *testing.T) {
	d := setupWebhook(t, "")
	body := `{"id":"evt_4","type":"checkout.session.completed","data":{"object":{"id":"cs_anon","metadata":{}}}}`

	res, err := d.svc.HandleStripeEvent(context.Background(), []byte(body), "")
	require.NoError(t, err)
	assert.True(t, res.Received)
	assert.False(t, res.Handled)
}

func TestWebhook_NonceStoreFailureStillReconciles(t *testing.T) {
	ctrl := gomock.NewController(t)
	nonces := mocks.NewMockNonceStore(ctrl)
	reconciler := mocks.NewMockReconcileService(ctrl)
	svc := NewWebhookService(config.StripeConfig{}, NewHMACSignatureService(), nonces, reconciler, zerolog.Nop())

	nonces.EXPECT().CheckAndSet(gomock.Any(), "stripe-webhook", "evt_1", 72*time.Hour).Return(false, errors.New("redis down"))
	reconciler.EXPECT().Reconcile(gomock.Any(), "c1", gomock.Any()).Return(&domain.ReconcileOutcome{State: domain.ReconcileDone})

	res, err := svc.HandleStripeEvent(context.Background(), []byte(completedEvent), "")
	require.NoError(t, err)
	assert.True(t, res.Handled)
}
