// Package cache keeps user profiles in Redis so repeated lookups of the same
// user do not spend users/show quota.
//
// Batch collectors resolve the same ids over and over (retweeters, friends,
// followers of overlapping accounts). Profiles change slowly, so a cached
// copy is served until its TTL elapses.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient)
//
//	key := cache.Key{
//		Resource: "/users/show",
//		Params:   url.Values{"user_id": []string{"783214"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the API, then
//		err = manager.Set(ctx, key, cache.NewEntry(body, time.Hour))
//	}
//
// The reader wires a Manager in through client.Config.Cache; callers never
// need to touch it directly.
//
// # Metrics
//
//   - twitter_reader_cache_hits_total
//   - twitter_reader_cache_misses_total
//   - twitter_reader_cache_errors_total{operation}
package cache
