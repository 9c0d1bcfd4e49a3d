package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaNotifier_Publish(t *testing.T) {
	w := &fakeWriter{}
	n := newKafkaNotifier(w)
	issued := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	n.now = func() time.Time { return issued }

	require.NoError(t, n.SendEmailOTP(context.Background(), "a@b.com", "123456"))
	require.NoError(t, n.SendSMSOTP(context.Background(), "+15551234567", "654321"))
	require.Len(t, w.msgs, 2)

	assert.Equal(t, "a@b.com", string(w.msgs[0].Key))
	var msg OTPMessage
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &msg))
	assert.Equal(t, OTPMessage{Channel: ChannelEmail, Destination: "a@b.com", Code: "123456", IssuedAt: issued}, msg)

	require.NoError(t, json.Unmarshal(w.msgs[1].Value, &msg))
	assert.Equal(t, ChannelSMS, msg.Channel)
	assert.Equal(t, "sms", string(w.msgs[1].Headers[0].Value))

	require.NoError(t, n.Close())
	assert.True(t, w.closed)
}

func TestKafkaNotifier_WriteError(t *testing.T) {
	n := newKafkaNotifier(&fakeWriter{err: errors.New("broker down")})
	err := n.SendEmailOTP(context.Background(), "a@b.com", "123456")
	assert.ErrorContains(t, err, "broker down")
}

func TestLogNotifier(t *testing.T) {
	n := NewLogNotifier()
	assert.NoError(t, n.SendEmailOTP(context.Background(), "a@b.com", "123456"))
	assert.NoError(t, n.SendSMSOTP(context.Background(), "+15551234567", "123456"))
}
