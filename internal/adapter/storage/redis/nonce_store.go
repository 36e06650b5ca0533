package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// NonceStore implements ports.NonceStore for webhook replay protection.
// Each delivered event id is kept until the provider's retry window closes,
// so a redelivery is acknowledged without being reconciled again.
type NonceStore struct {
	client *goredis.Client
	prefix string
	now    func() time.Time
}

// NewNonceStore keys events as "webhook-event:<scope>:<event id>".
func NewNonceStore(client *goredis.Client) *NonceStore {
	return &NonceStore{client: client, prefix: "webhook-event:", now: time.Now}
}

// CheckAndSet records eventID under scope and reports whether it was unseen.
// The stored value is the unix time of the first delivery.
func (s *NonceStore) CheckAndSet(ctx context.Context, scope, eventID string, ttl time.Duration) (bool, error) {
	if eventID == "" {
		return false, errors.New("redis nonce: empty event id")
	}
	seenAt := strconv.FormatInt(s.now().Unix(), 10)
	err := s.client.SetArgs(ctx, s.prefix+scope+":"+eventID, seenAt, goredis.SetArgs{Mode: "NX", TTL: ttl}).Err()
	switch {
	case errors.Is(err, goredis.Nil):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("redis nonce record %s: %w", scope, err)
	}
	return true, nil
}
