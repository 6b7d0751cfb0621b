package cache

import (
	"github.com/zooarc/menagerie/cache/redis"
	"go.uber.org/fx"
)

/* ========================================================================
 * Cache module
 * ======================================================================== */

// Module provides the Redis client.
var Module = fx.Module("cache",
	fx.Provide(redis.NewClient),
)
