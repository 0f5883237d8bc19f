package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/akozlov/cashfolio/internal/jobs"
)

type capturingPublisher struct {
	mu        sync.Mutex
	published []*jobs.MaterializeJob
}

func (p *capturingPublisher) PublishMaterialize(ctx context.Context, job *jobs.MaterializeJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, job)
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

func (p *capturingPublisher) jobs() []*jobs.MaterializeJob {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*jobs.MaterializeJob(nil), p.published...)
}

func TestTriggerNow(t *testing.T) {
	publisher := &capturingPublisher{}
	s := New(publisher, zerolog.Nop())

	asOf := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	if err := s.TriggerNow(context.Background(), &asOf, "manual"); err != nil {
		t.Fatalf("TriggerNow: %v", err)
	}
	if err := s.TriggerNow(context.Background(), nil, "schedule"); err != nil {
		t.Fatalf("TriggerNow: %v", err)
	}

	published := publisher.jobs()
	if len(published) != 2 {
		t.Fatalf("published = %d, want 2", len(published))
	}
	if published[0].Reason != "manual" || published[0].AsOf == nil || !published[0].AsOf.Equal(asOf) {
		t.Errorf("first job = %+v, want manual with asOf %s", published[0], asOf)
	}
	if published[1].Reason != "schedule" || published[1].AsOf != nil {
		t.Errorf("second job = %+v, want schedule with nil asOf", published[1])
	}
}

func TestNextMidnightUTC(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "mid day",
			now:  time.Date(2024, 3, 15, 13, 45, 0, 0, time.UTC),
			want: time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "exactly midnight rolls to next day",
			now:  time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			want: time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "non-UTC input",
			now:  time.Date(2024, 3, 15, 23, 30, 0, 0, time.FixedZone("plus2", 2*3600)),
			want: time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "month boundary",
			now:  time.Date(2024, 2, 29, 10, 0, 0, 0, time.UTC),
			want: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextMidnightUTC(tt.now); !got.Equal(tt.want) {
				t.Errorf("nextMidnightUTC = %s, want %s", got, tt.want)
			}
		})
	}
}
