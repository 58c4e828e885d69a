package notify_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/yourorg/payment-gateways/internal/notify"
	"github.com/yourorg/payment-gateways/internal/notify/mocks"
	"github.com/yourorg/payment-gateways/pkg/logger"
)

func TestMulti_FansOutInOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	first := mocks.NewMockDispatcher(ctrl)
	second := mocks.NewMockDispatcher(ctrl)
	payload := map[string]any{"recipient_email": "buyer@example.com"}

	gomock.InOrder(
		first.EXPECT().Notify(gomock.Any(), notify.EventInvoiceReady, payload),
		second.EXPECT().Notify(gomock.Any(), notify.EventInvoiceReady, payload),
	)

	notify.Multi{first, nil, second}.Notify(context.Background(), notify.EventInvoiceReady, payload)
}

func TestLogDispatcher_WritesEvent(t *testing.T) {
	var buf bytes.Buffer
	logger.Init("info", true)
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.Init("info", false) })

	notify.LogDispatcher{}.Notify(context.Background(), notify.EventPaymentFailed, map[string]any{"token": "chk_1"})

	assert.Contains(t, buf.String(), `"event":"payment_failed"`)
	assert.Contains(t, buf.String(), `"token":"chk_1"`)
}
