// Package events publishes issued challenge codes as messages on a
// watermill publisher, so a separate mailer process can deliver them.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/MrEthical07/credgate/account"
)

// DefaultTopic is the topic used when none is configured.
const DefaultTopic = "credgate.challenge_issued"

// ChallengeIssued is the JSON payload of every published message.
type ChallengeIssued struct {
	Email    string    `json:"email"`
	Code     string    `json:"code"`
	Purpose  string    `json:"purpose"`
	IssuedAt time.Time `json:"issued_at"`
}

// Publisher implements credgate.Notifier over a watermill message.Publisher.
type Publisher struct {
	publisher message.Publisher
	topic     string
	now       func() time.Time
}

// NewPublisher returns a Publisher writing to topic, or DefaultTopic when
// topic is empty.
func NewPublisher(publisher message.Publisher, topic string) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{publisher: publisher, topic: topic, now: time.Now}
}

// Topic reports where messages go.
func (p *Publisher) Topic() string { return p.topic }

func (p *Publisher) SendChallengeCode(ctx context.Context, email, code string, purpose account.Kind) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(ChallengeIssued{
		Email:    email,
		Code:     code,
		Purpose:  purpose.String(),
		IssuedAt: p.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("purpose", purpose.String())
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Close closes the underlying publisher.
func (p *Publisher) Close() error {
	return p.publisher.Close()
}
