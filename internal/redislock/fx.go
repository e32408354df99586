package redislock

import "go.uber.org/fx"

var Module = fx.Module("redis.lock",
	fx.Provide(NewClient),
	fx.Provide(NewLocker),
)
