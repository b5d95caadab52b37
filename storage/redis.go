package storage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSpotStore keeps per-symbol spot series in Redis sorted sets scored
// by unix timestamp, so the nearest-preceding lookup is a single
// ZREVRANGEBYSCORE. It serves live enrichment runs where the spot feed is
// published continuously while historical batches use SpotIndex.
type RedisSpotStore struct {
	client *redis.Client
}

func NewRedisSpotStore(addr string) *RedisSpotStore {
	return &RedisSpotStore{
		client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

func spotKey(symbol string) string {
	return "spot:" + symbol
}

// Store records one spot bar. Members are "unixts:price" so identical
// prices at different instants stay distinct.
func (s *RedisSpotStore) Store(ctx context.Context, symbol string, ts time.Time, price float64) error {
	member := fmt.Sprintf("%d:%s", ts.Unix(), strconv.FormatFloat(price, 'f', -1, 64))
	err := s.client.ZAdd(ctx, spotKey(symbol), redis.Z{
		Score:  float64(ts.Unix()),
		Member: member,
	}).Err()
	if err != nil {
		return fmt.Errorf("storing spot %s@%s: %w", symbol, ts, err)
	}
	return nil
}

// Price returns the spot at the nearest timestamp at or before `at`.
// ok=false with a nil error means no bar that early exists.
func (s *RedisSpotStore) Price(ctx context.Context, symbol string, at time.Time) (float64, bool, error) {
	members, err := s.client.ZRevRangeByScore(ctx, spotKey(symbol), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(at.Unix(), 10),
		Count: 1,
	}).Result()
	if err != nil {
		return 0, false, fmt.Errorf("looking up spot %s@%s: %w", symbol, at, err)
	}
	if len(members) == 0 {
		return 0, false, nil
	}

	parts := strings.SplitN(members[0], ":", 2)
	if len(parts) != 2 {
		return 0, false, fmt.Errorf("malformed spot member %q for %s", members[0], symbol)
	}
	price, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, false, fmt.Errorf("malformed spot price in %q: %w", members[0], err)
	}
	return price, true, nil
}

func (s *RedisSpotStore) Close() error {
	return s.client.Close()
}
