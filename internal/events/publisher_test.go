package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/domain"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
	deadline bool
}

type fakeChannel struct {
	declared   []string
	published  []published
	declareErr error
	publishErr error
}

func (c *fakeChannel) ExchangeDeclare(name, kind string, durable, _, _, _ bool, _ amqp.Table) error {
	if c.declareErr != nil {
		return c.declareErr
	}
	c.declared = append(c.declared, name+"/"+kind)
	return nil
}

func (c *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if c.publishErr != nil {
		return c.publishErr
	}
	_, ok := ctx.Deadline()
	c.published = append(c.published, published{exchange: exchange, key: key, msg: msg, deadline: ok})
	return nil
}

func TestPublisher(t *testing.T) {
	ch := &fakeChannel{}
	p, err := NewPublisher(ch, "booking_events", time.Second)
	require.NoError(t, err)
	assert.Equal(t, []string{"booking_events/topic"}, ch.declared)

	occurredAt := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	event := domain.BookingEvent{
		Type:       domain.BookingEventConfirmed,
		OccurredAt: occurredAt,
		Booking:    &domain.Booking{ID: 7, ResourceID: "W1", Status: domain.BookingStatusConfirmed},
	}
	require.NoError(t, p.Publish(context.Background(), event))

	require.Len(t, ch.published, 1)
	got := ch.published[0]
	assert.Equal(t, "booking_events", got.exchange)
	assert.Equal(t, "booking.confirmed", got.key)
	assert.True(t, got.deadline)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
	assert.Equal(t, occurredAt, got.msg.Timestamp)
	_, err = uuid.Parse(got.msg.MessageId)
	assert.NoError(t, err)

	var decoded domain.BookingEvent
	require.NoError(t, json.Unmarshal(got.msg.Body, &decoded))
	assert.Equal(t, domain.BookingEventConfirmed, decoded.Type)
	assert.Equal(t, int64(7), decoded.Booking.ID)
}

func TestPublisherErrors(t *testing.T) {
	_, err := NewPublisher(&fakeChannel{declareErr: errors.New("access refused")}, "booking_events", 0)
	assert.ErrorContains(t, err, "access refused")

	ch := &fakeChannel{}
	p, err := NewPublisher(ch, "booking_events", 0)
	require.NoError(t, err)

	ch.publishErr = amqp.ErrClosed
	err = p.Publish(context.Background(), domain.BookingEvent{Type: domain.BookingEventExpired})
	assert.ErrorIs(t, err, amqp.ErrClosed)
}
