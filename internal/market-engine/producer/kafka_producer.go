package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/radieske/prediction-market-engine/pkg/contracts/events"
)

// KafkaPublisher publica os eventos do engine (apostas e liquidações)
type KafkaPublisher struct {
	BetWriter      *kafka.Writer
	ResolvedWriter *kafka.Writer
}

func NewKafkaPublisher(bets, resolved *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{BetWriter: bets, ResolvedWriter: resolved}
}

func (p *KafkaPublisher) PublishBetPlaced(ctx context.Context, e events.BetPlaced) error {
	e.TsUnixMs = time.Now().UnixMilli()
	b, _ := json.Marshal(e)
	return p.BetWriter.WriteMessages(ctx, kafka.Message{Key: []byte(e.WagerID), Value: b})
}

func (p *KafkaPublisher) PublishMarketResolved(ctx context.Context, e events.MarketResolved) error {
	e.TsUnixMs = time.Now().UnixMilli()
	b, _ := json.Marshal(e)
	return p.ResolvedWriter.WriteMessages(ctx, kafka.Message{Key: []byte(e.MarketID), Value: b})
}
