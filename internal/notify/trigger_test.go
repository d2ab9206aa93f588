package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"billflow/internal/amqp"
	"billflow/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu    sync.Mutex
	calls []core.NotificationType
	errs  []error
	block bool
	err   error
}

func (f *fakeSender) Notify(ctx context.Context, _ int64, t core.NotificationType, _ ...core.ChannelType) ([]Delivery, error) {
	if f.block {
		<-ctx.Done()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, t)
	f.errs = append(f.errs, ctx.Err())
	return nil, f.err
}

func TestTrigger_FireOutlivesCallerContext(t *testing.T) {
	sender := &fakeSender{}
	trigger := NewTrigger(sender, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	trigger.Fire(ctx, 1, core.NotifyRenewalSuccess)
	trigger.Fire(ctx, 2, core.NotifyExpirationWarning)
	trigger.Wait()

	assert.ElementsMatch(t, []core.NotificationType{core.NotifyRenewalSuccess, core.NotifyExpirationWarning}, sender.calls)
	for _, err := range sender.errs {
		assert.NoError(t, err)
	}
}

func TestTrigger_FireIsBoundedByTimeout(t *testing.T) {
	sender := &fakeSender{block: true}
	trigger := NewTrigger(sender, 10*time.Millisecond)

	trigger.Fire(context.Background(), 1, core.NotifyRenewalFailure)
	trigger.Wait()

	require.Len(t, sender.errs, 1)
	assert.ErrorIs(t, sender.errs[0], context.DeadlineExceeded)
}

func TestTrigger_FireSwallowsErrors(t *testing.T) {
	sender := &fakeSender{err: errors.New("boom")}
	trigger := NewTrigger(sender, 0)
	assert.Equal(t, DefaultTimeout, trigger.timeout)

	trigger.Fire(context.Background(), 1, core.NotifySubscriptionChange)
	trigger.Wait()
	assert.Len(t, sender.calls, 1)
}

type fakePublisher struct {
	got *amqp.NotificationMessage
	err error
}

func (f *fakePublisher) PublishNotification(_ context.Context, msg *amqp.NotificationMessage) error {
	f.got = msg
	return f.err
}

func TestAMQPSink_Send(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewAMQPSink(pub)

	require.NoError(t, sink.Send(context.Background(), "billing-team", "<b>hi</b>"))
	require.NotNil(t, pub.got)
	assert.Equal(t, "billing-team", pub.got.Recipient)
	assert.Equal(t, "<b>hi</b>", pub.got.Content)
	assert.NotEmpty(t, pub.got.ID)

	pub.err = amqp.ErrCircuitOpen
	assert.ErrorIs(t, sink.Send(context.Background(), "billing-team", "hi"), amqp.ErrCircuitOpen)
}
