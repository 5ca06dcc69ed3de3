package database

import (
	"fmt"

	"github.com/redis/go-redis/v9"
)

// OpenRedis はRedis接続クライアントを生成する。
// redisURLは接続URLを指定する（例: "redis://:pass@host:6379/0"）。
// エンタイトルメントレコード（SubscriptionRecord）の耐久KVストアとして使用する。
func OpenRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return redis.NewClient(opts), nil
}
