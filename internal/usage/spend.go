package usage

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// SpendCounter keeps a per-project daily spend total in Redis, in micro-USD.
// It only records; enforcement belongs to the billing layer that reads it.
type SpendCounter struct {
	rdb *redis.Client
	now func() time.Time
}

// NewSpendCounter creates a spend counter. If rdb is nil, Add is a no-op and Get returns 0.
func NewSpendCounter(rdb *redis.Client) *SpendCounter {
	return &SpendCounter{rdb: rdb, now: time.Now}
}

// DefaultProject is the spend bucket for requests without a project.
const DefaultProject = "default"

func dailySpendKey(project string, day time.Time) string {
	if project == "" {
		project = DefaultProject
	}
	return fmt.Sprintf("genroute:spend:daily:%s:%s", project, day.UTC().Format("2006-01-02"))
}

// ToMicroUSD converts a USD amount to whole micro-dollars, rounding to nearest.
func ToMicroUSD(usd float64) int64 {
	return int64(math.Round(usd * 1_000_000))
}

// Add records a cost against the project's counter for today.
func (s *SpendCounter) Add(ctx context.Context, project string, costUSD float64) error {
	micros := ToMicroUSD(costUSD)
	if s.rdb == nil || micros <= 0 {
		return nil
	}

	now := s.now().UTC()
	key := dailySpendKey(project, now)
	pipe := s.rdb.Pipeline()
	pipe.IncrBy(ctx, key, micros)
	// keep the key until an hour past the end of the UTC day
	endOfDay := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	pipe.Expire(ctx, key, endOfDay.Sub(now)+time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record spend for %s: %w", project, err)
	}
	return nil
}

// Get returns today's spend for the project in micro-USD.
func (s *SpendCounter) Get(ctx context.Context, project string) (int64, error) {
	if s.rdb == nil {
		return 0, nil
	}
	spent, err := s.rdb.Get(ctx, dailySpendKey(project, s.now())).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read spend for %s: %w", project, err)
	}
	return spent, nil
}
