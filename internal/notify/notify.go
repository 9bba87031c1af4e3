// Package notify composes simulated loyalty messages and hands them to a
// Sender. Nothing leaves the process: the bundled senders log or record.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/retailkit/internal/config"
	"github.com/roach88/retailkit/internal/loyalty"
	"github.com/roach88/retailkit/internal/model"
	"github.com/roach88/retailkit/internal/segment"
)

// Template names.
const (
	TemplateVIP          = "vip_earned"
	TemplateReactivation = "reactivation_nudge"
	TemplateStandard     = "standard_earned"
)

// Namespace scopes message IDs. IDs are UUIDv5 over "run-<seed>/<customer>",
// so the same run always produces the same IDs.
var Namespace = uuid.NewSHA1(uuid.NameSpaceDNS, []byte("notify.retailkit"))

// Message is one rendered notification.
type Message struct {
	ID           string `json:"message_id"`
	CustomerID   string `json:"customer_id"`
	Email        string `json:"email"`
	Segment      string `json:"segment"`
	Template     string `json:"template_used"`
	Subject      string `json:"subject"`
	Body         string `json:"body"`
	CallToAction string `json:"call_to_action"`
	PointsEarned int64  `json:"points_earned"`
	TotalPoints  int64  `json:"total_points"`
}

// Text is the full message as a recipient would read it.
func (m Message) Text() string {
	return m.Body + " " + m.CallToAction
}

// TemplateFor picks the template for a segment.
//
// Compose only sees customers whose balance moved this run, and at-risk
// customers have no purchase in the window, so pipeline runs never select
// TemplateReactivation. It serves callers that message a segment directly.
func TemplateFor(seg string) string {
	switch seg {
	case segment.HighSpender:
		return TemplateVIP
	case segment.AtRisk:
		return TemplateReactivation
	default:
		return TemplateStandard
	}
}

// Compose renders one message per balance change, in the order given
// (the ledger reports changes by customer ID). Changes for unknown
// customers are skipped.
func Compose(changes []loyalty.Change, customers []model.Customer, segments map[string]string, cfg config.Notify, seed uint64) []Message {
	byID := make(map[string]model.Customer, len(customers))
	for _, c := range customers {
		byID[c.ID] = c
	}

	out := make([]Message, 0, len(changes))
	for _, ch := range changes {
		c, ok := byID[ch.CustomerID]
		if !ok {
			continue
		}
		seg := segments[c.ID]
		out = append(out, Message{
			ID:           uuid.NewSHA1(Namespace, []byte(fmt.Sprintf("run-%d/%s", seed, c.ID))).String(),
			CustomerID:   c.ID,
			Email:        c.Email,
			Segment:      seg,
			Template:     TemplateFor(seg),
			Subject:      cfg.Subject,
			Body:         fmt.Sprintf("Hi %s, you earned %d points. Your total balance is %d.", c.FirstName, ch.Earned, ch.Balance),
			CallToAction: fmt.Sprintf("Earn %d more points for your next reward!", ToNextReward(ch.Balance, cfg.RewardStep)),
			PointsEarned: ch.Earned,
			TotalPoints:  ch.Balance,
		})
	}
	return out
}

// ToNextReward is the distance from total to the next multiple of step.
// A total sitting exactly on a multiple is a full step away.
func ToNextReward(total, step int64) int64 {
	if step <= 0 {
		return 0
	}
	r := total % step
	if r < 0 {
		r += step
	}
	return step - r
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// LogSender "sends" by logging the message at info level.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(ctx context.Context, m Message) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "notification sent",
		"message_id", m.ID,
		"customer", m.CustomerID,
		"template", m.Template,
		"text", m.Text(),
	)
	return nil
}

// Outbox records sent messages in memory. It is safe for concurrent use.
type Outbox struct {
	mu   sync.Mutex
	sent []Message
}

func (o *Outbox) Send(_ context.Context, m Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, m)
	return nil
}

// Messages returns a copy of everything sent so far.
func (o *Outbox) Messages() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Message, len(o.sent))
	copy(out, o.sent)
	return out
}

// Delivery counts the outcome of a dispatch.
type Delivery struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Dispatch sends every message. Send failures are logged and counted;
// only context cancellation stops the loop early.
func Dispatch(ctx context.Context, s Sender, msgs []Message, logger *slog.Logger) (Delivery, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	var d Delivery
	for _, m := range msgs {
		if err := ctx.Err(); err != nil {
			return d, err
		}
		if err := s.Send(ctx, m); err != nil {
			d.Failed++
			logger.Warn("notification failed", "message_id", m.ID, "customer", m.CustomerID, "error", err)
			continue
		}
		d.Sent++
	}
	return d, nil
}
