package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/retailkit/internal/config"
	"github.com/roach88/retailkit/internal/loyalty"
	"github.com/roach88/retailkit/internal/model"
	"github.com/roach88/retailkit/internal/segment"
)

var notifyCfg = config.Notify{RewardStep: 100, Subject: "Your loyalty points update"}

func customers() []model.Customer {
	return []model.Customer{
		{ID: "C1", FirstName: "Ana", Email: "c1@example.com"},
		{ID: "C2", FirstName: "Ben", Email: "c2@example.com"},
		{ID: "C3", FirstName: "Cy", Email: "c3@example.com"},
	}
}

func TestCompose(t *testing.T) {
	changes := []loyalty.Change{
		{CustomerID: "C1", Opening: 10, Earned: 45, Balance: 55},
		{CustomerID: "C2", Opening: 0, Earned: 200, Balance: 200},
		{CustomerID: "C3", Opening: 70, Earned: 12, Balance: 82},
		{CustomerID: "C404", Earned: 1, Balance: 1},
	}
	segments := map[string]string{"C1": segment.HighSpender, "C2": segment.Core, "C3": segment.AtRisk}

	msgs := Compose(changes, customers(), segments, notifyCfg, 42)
	require.Len(t, msgs, 3)

	assert.Equal(t, TemplateVIP, msgs[0].Template)
	assert.Equal(t, "Hi Ana, you earned 45 points. Your total balance is 55.", msgs[0].Body)
	assert.Equal(t, "Earn 45 more points for your next reward!", msgs[0].CallToAction)
	assert.Equal(t, "c1@example.com", msgs[0].Email)
	assert.Equal(t, notifyCfg.Subject, msgs[0].Subject)

	assert.Equal(t, TemplateStandard, msgs[1].Template)
	assert.Equal(t, "Earn 100 more points for your next reward!", msgs[1].CallToAction)

	assert.Equal(t, TemplateReactivation, msgs[2].Template)
	assert.Equal(t, "Hi Cy, you earned 12 points. Your total balance is 82. Earn 18 more points for your next reward!", msgs[2].Text())
}

func TestComposeIDsAreDeterministic(t *testing.T) {
	changes := []loyalty.Change{{CustomerID: "C1", Earned: 5, Balance: 5}}

	a := Compose(changes, customers(), nil, notifyCfg, 42)
	b := Compose(changes, customers(), nil, notifyCfg, 42)
	c := Compose(changes, customers(), nil, notifyCfg, 43)

	require.Len(t, a, 1)
	assert.Equal(t, a[0].ID, b[0].ID)
	assert.NotEqual(t, a[0].ID, c[0].ID)

	id, err := uuid.Parse(a[0].ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), id.Version())
	assert.Equal(t, TemplateStandard, a[0].Template, "unknown segment falls back")
}

func TestTemplateFor(t *testing.T) {
	tests := []struct {
		segment string
		want    string
	}{
		{segment.HighSpender, TemplateVIP},
		{segment.AtRisk, TemplateReactivation},
		{segment.Core, TemplateStandard},
		{segment.Unclassified, TemplateStandard},
		{"", TemplateStandard},
	}

	for _, tt := range tests {
		t.Run(tt.segment, func(t *testing.T) {
			assert.Equal(t, tt.want, TemplateFor(tt.segment))
		})
	}
}

func TestToNextReward(t *testing.T) {
	assert.Equal(t, int64(45), ToNextReward(55, 100))
	assert.Equal(t, int64(100), ToNextReward(0, 100))
	assert.Equal(t, int64(100), ToNextReward(300, 100))
	assert.Equal(t, int64(1), ToNextReward(199, 100))
	assert.Equal(t, int64(0), ToNextReward(5, 0))
}

type failingSender struct {
	fail map[string]bool
	Outbox
}

func (f *failingSender) Send(ctx context.Context, m Message) error {
	if f.fail[m.CustomerID] {
		return errors.New("mailbox full")
	}
	return f.Outbox.Send(ctx, m)
}

func TestDispatchCountsFailures(t *testing.T) {
	msgs := Compose([]loyalty.Change{
		{CustomerID: "C1", Earned: 1, Balance: 1},
		{CustomerID: "C2", Earned: 1, Balance: 1},
		{CustomerID: "C3", Earned: 1, Balance: 1},
	}, customers(), nil, notifyCfg, 1)

	s := &failingSender{fail: map[string]bool{"C2": true}}
	d, err := Dispatch(context.Background(), s, msgs, nil)
	require.NoError(t, err)
	assert.Equal(t, Delivery{Sent: 2, Failed: 1}, d)

	sent := s.Messages()
	require.Len(t, sent, 2)
	assert.Equal(t, "C1", sent[0].CustomerID)
	assert.Equal(t, "C3", sent[1].CustomerID)
}

func TestDispatchStopsOnCancel(t *testing.T) {
	msgs := Compose([]loyalty.Change{{CustomerID: "C1", Earned: 1, Balance: 1}}, customers(), nil, notifyCfg, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out Outbox
	d, err := Dispatch(ctx, &out, msgs, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, d.Sent)
	assert.Empty(t, out.Messages())
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	s := LogSender{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	msgs := Compose([]loyalty.Change{{CustomerID: "C1", Earned: 7, Balance: 7}}, customers(), nil, notifyCfg, 1)
	require.NoError(t, s.Send(context.Background(), msgs[0]))

	out := buf.String()
	assert.Contains(t, out, "notification sent")
	assert.Contains(t, out, "template="+TemplateStandard)
	assert.Contains(t, out, msgs[0].ID)
}
