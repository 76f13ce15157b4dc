package favorites

import (
	"context"
	"fmt"
	"sort"

	"github.com/ariefcatur/b2b-orders.git/internal/redisx"
	"github.com/redis/go-redis/v9"
)

// Store: favorit product per client di Redis set. Best-effort feature,
// tidak pernah menyentuh ledger/order.
type Store struct{ Redis *redis.Client }

func key(clientID string) string { return fmt.Sprintf(redisx.KeyFavorites, clientID) }

func (s *Store) Add(ctx context.Context, clientID, productID string) error {
	return s.Redis.SAdd(ctx, key(clientID), productID).Err()
}

func (s *Store) Remove(ctx context.Context, clientID, productID string) error {
	return s.Redis.SRem(ctx, key(clientID), productID).Err()
}

func (s *Store) List(ctx context.Context, clientID string) ([]string, error) {
	ids, err := s.Redis.SMembers(ctx, key(clientID)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) Contains(ctx context.Context, clientID, productID string) (bool, error) {
	return s.Redis.SIsMember(ctx, key(clientID), productID).Result()
}
