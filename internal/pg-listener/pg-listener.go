package pg_listener

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// OrderPaidChannel is notified by the orders table trigger when an order
// becomes paid.
const OrderPaidChannel = "clmte_order_paid"

// PaymentHandler is called once per paid-order notification.
type PaymentHandler func(ctx context.Context, orderID string) error

type ListenerConfig struct {
	PgConnStr    string
	MinReconnect time.Duration
	MaxReconnect time.Duration
	PingInterval time.Duration
}

type DBListener struct {
	config  ListenerConfig
	handler PaymentHandler
}

type NotificationPayload struct {
	OrderID string `json:"order_id"`
}

func NewDBListener(config ListenerConfig, handler PaymentHandler) *DBListener {
	if config.MinReconnect <= 0 {
		config.MinReconnect = 10 * time.Second
	}
	if config.MaxReconnect <= 0 {
		config.MaxReconnect = time.Minute
	}
	if config.PingInterval <= 0 {
		config.PingInterval = 90 * time.Second
	}
	return &DBListener{
		config:  config,
		handler: handler,
	}
}

// Start listens on OrderPaidChannel until ctx is done.
func (d *DBListener) Start(ctx context.Context) error {
	listener := pq.NewListener(d.config.PgConnStr, d.config.MinReconnect, d.config.MaxReconnect, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logrus.WithError(err).Warn("postgres listener event")
		}
	})
	defer listener.Close()

	if err := listener.Listen(OrderPaidChannel); err != nil {
		return err
	}
	logrus.WithField("channel", OrderPaidChannel).Info("listening for paid orders")

	return d.Run(ctx, listener.Notify, listener.Ping)
}

// Run dispatches notifications until ctx is done. A nil notification means
// the connection was re-established; orders paid while it was down are not
// replayed.
func (d *DBListener) Run(ctx context.Context, notifications <-chan *pq.Notification, ping func() error) error {
	ticker := time.NewTicker(d.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-notifications:
			if !ok {
				return nil
			}
			if n == nil {
				logrus.Warn("postgres listener reconnected")
				continue
			}
			d.handleNotification(ctx, n)
		case <-ticker.C:
			if err := ping(); err != nil {
				logrus.WithError(err).Warn("postgres listener ping failed")
			}
		}
	}
}

func (d *DBListener) handleNotification(ctx context.Context, n *pq.Notification) {
	var payload NotificationPayload
	if err := json.Unmarshal([]byte(n.Extra), &payload); err != nil {
		logrus.WithError(err).WithField("payload", n.Extra).Error("invalid order notification")
		return
	}
	if payload.OrderID == "" {
		return
	}
	if err := d.handler(ctx, payload.OrderID); err != nil {
		logrus.WithError(err).WithField("order_id", payload.OrderID).Error("paid order handling failed")
	}
}
