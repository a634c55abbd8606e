package repository

import (
	"context"
	"fmt"
	"math"
	"time"

	"FinPanel/internal/domain/models"
	"FinPanel/pkg/kafka"
	applogger "FinPanel/pkg/logger"
)

// batchPublisher is the slice of pkg/kafka.Producer the publisher needs.
type batchPublisher interface {
	PublishBatch(ctx context.Context, topic string, messages []kafka.Message) error
	Close() error
}

// PanelMessage is the JSON value of one published panel row. Missing numeric values are omitted.
type PanelMessage struct {
	Split    string             `json:"split"`
	Symbol   string             `json:"symbol"`
	Date     string             `json:"date"`
	Features map[string]float64 `json:"features"`
	Labels   map[string]string  `json:"labels,omitempty"`
}

// KafkaPanelPublisher publishes train/test rows keyed by symbol.
type KafkaPanelPublisher struct {
	producer  batchPublisher
	topic     string
	batchSize int
	l         *applogger.Logger
}

// NewKafkaPanelPublisher creates a publisher writing to topic in batches of batchSize rows.
func NewKafkaPanelPublisher(p *kafka.Producer, topic string, batchSize int) *KafkaPanelPublisher {
	return newKafkaPanelPublisher(p, topic, batchSize)
}

func newKafkaPanelPublisher(p batchPublisher, topic string, batchSize int) *KafkaPanelPublisher {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &KafkaPanelPublisher{producer: p, topic: topic, batchSize: batchSize}
}

// SetLogger injects a structured logger.
func (k *KafkaPanelPublisher) SetLogger(l *applogger.Logger) { k.l = l }

// PublishPanel sends every row of p and returns the number of rows written.
func (k *KafkaPanelPublisher) PublishPanel(ctx context.Context, split string, p *models.Panel) (int, error) {
	if p == nil || p.Len() == 0 {
		return 0, nil
	}
	sent := 0
	batch := make([]kafka.Message, 0, k.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := k.producer.PublishBatch(ctx, k.topic, batch); err != nil {
			return fmt.Errorf("publish %s rows: %w", split, err)
		}
		sent += len(batch)
		batch = batch[:0]
		return nil
	}

	for i := 0; i < p.Len(); i++ {
		msg := panelMessage(split, p.Row(i))
		batch = append(batch, kafka.Message{Key: []byte(msg.Symbol), Value: msg})
		if len(batch) == k.batchSize {
			if err := flush(); err != nil {
				return sent, err
			}
		}
	}
	if err := flush(); err != nil {
		return sent, err
	}

	if k.l != nil {
		k.l.Info("panel published",
			applogger.String("topic", k.topic),
			applogger.String("split", split),
			applogger.Int("rows", sent),
		)
	}
	return sent, nil
}

// Close closes the producer.
func (k *KafkaPanelPublisher) Close() error { return k.producer.Close() }

func panelMessage(split string, r models.Row) PanelMessage {
	msg := PanelMessage{
		Split:    split,
		Symbol:   r.Labels[models.ColSymbol],
		Date:     r.Date.Format(time.DateOnly),
		Features: make(map[string]float64, len(r.Values)),
	}
	for name, v := range r.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		msg.Features[name] = v
	}
	for name, v := range r.Labels {
		if name == models.ColSymbol {
			continue
		}
		if msg.Labels == nil {
			msg.Labels = make(map[string]string)
		}
		msg.Labels[name] = v
	}
	return msg
}
