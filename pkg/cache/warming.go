package cache

import (
	"context"
	"fmt"
)

// StrategyKind names a built-in source of keys to warm.
type StrategyKind uint8

const (
	KindPopular StrategyKind = iota
	KindUserBased
	KindTrending
	KindCustom
)

func (k StrategyKind) String() string {
	switch k {
	case KindPopular:
		return "popular"
	case KindUserBased:
		return "user_based"
	case KindTrending:
		return "trending"
	case KindCustom:
		return "custom"
	default:
		return fmt.Sprintf("strategy(%d)", uint8(k))
	}
}

// KeysFunc produces the keys a warming run should refresh.
type KeysFunc func(ctx context.Context) []string

// Strategy selects which keys WarmCache refreshes.
type Strategy struct {
	Kind StrategyKind
	keys KeysFunc
}

var (
	// Popular warms the popular listings.
	Popular = Strategy{Kind: KindPopular}
	// UserBased warms keys derived from user preferences.
	UserBased = Strategy{Kind: KindUserBased}
	// Trending warms the trending listings.
	Trending = Strategy{Kind: KindTrending}
)

// Custom warms the keys returned by fn.
func Custom(fn KeysFunc) Strategy {
	return Strategy{Kind: KindCustom, keys: fn}
}

func (s Strategy) String() string { return s.Kind.String() }

// Warmer re-fetches the value behind a key from its owner and stores it in
// the cache. The cache itself cannot produce values.
type Warmer interface {
	Warm(ctx context.Context, key string) error
}

// WarmerFunc adapts a function to the Warmer interface.
type WarmerFunc func(ctx context.Context, key string) error

func (f WarmerFunc) Warm(ctx context.Context, key string) error { return f(ctx, key) }

// defaultKeySources are the built-in key sets. User based warming has no
// default source; plug one in with WithKeySource.
func defaultKeySources() map[StrategyKind]KeysFunc {
	return map[StrategyKind]KeysFunc{
		KindPopular: func(context.Context) []string {
			return []string{
				TMDBPopular("movie", 1),
				TMDBPopular("tv", 1),
				TMDBTrending("all", "day"),
			}
		},
		KindUserBased: func(context.Context) []string {
			return nil
		},
		KindTrending: func(context.Context) []string {
			return []string{
				TMDBTrending("movie", "day"),
				TMDBTrending("tv", "day"),
			}
		},
	}
}
