package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/servicehub-backend/internal/logger"
)

// Каналы доставки одноразового кода.
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// Notifier доставляет одноразовые коды пользователю.
type Notifier interface {
	SendEmailOTP(ctx context.Context, email, code string) error
	SendSMSOTP(ctx context.Context, phone, code string) error
}

// LogNotifier пишет коды в лог. Используется, пока не подключён реальный шлюз.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) SendEmailOTP(ctx context.Context, email, code string) error {
	logger.WithFields(logrus.Fields{
		"channel":     ChannelEmail,
		"destination": email,
		"code":        code,
	}).Info("otp: отправка кода")
	return nil
}

func (n *LogNotifier) SendSMSOTP(ctx context.Context, phone, code string) error {
	logger.WithFields(logrus.Fields{
		"channel":     ChannelSMS,
		"destination": phone,
		"code":        code,
	}).Info("otp: отправка кода")
	return nil
}

// OTPMessage событие, которое читает сервис рассылок.
type OTPMessage struct {
	Channel     string    `json:"channel"`
	Destination string    `json:"destination"`
	Code        string    `json:"code"`
	IssuedAt    time.Time `json:"issued_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier публикует коды в топик, доставку выполняет внешний сервис.
type KafkaNotifier struct {
	writer messageWriter
	now    func() time.Time
}

// NewKafkaNotifier создаёт синхронного продюсера для топика.
func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		MaxAttempts:  3,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return newKafkaNotifier(writer)
}

func newKafkaNotifier(writer messageWriter) *KafkaNotifier {
	return &KafkaNotifier{writer: writer, now: time.Now}
}

func (n *KafkaNotifier) SendEmailOTP(ctx context.Context, email, code string) error {
	return n.publish(ctx, ChannelEmail, email, code)
}

func (n *KafkaNotifier) SendSMSOTP(ctx context.Context, phone, code string) error {
	return n.publish(ctx, ChannelSMS, phone, code)
}

// Close сбрасывает буфер продюсера.
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

func (n *KafkaNotifier) publish(ctx context.Context, channel, destination, code string) error {
	payload, err := json.Marshal(OTPMessage{
		Channel:     channel,
		Destination: destination,
		Code:        code,
		IssuedAt:    n.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("kafka notifier: marshal %w", err)
	}

	// ключ по адресату: коды одного получателя идут в одну партицию по порядку
	msg := kafka.Message{
		Key:   []byte(destination),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "channel", Value: []byte(channel)},
		},
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka notifier: write %w", err)
	}
	return nil
}
