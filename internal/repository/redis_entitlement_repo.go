package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/doodleprompt/internal/model"
)

// entitlementKeyPrefix はプレミアム購入記録のRedisキープレフィックス。
const entitlementKeyPrefix = "entitlement:"

// RedisEntitlementRepo はRedisを耐久KVストアとして使用する
// プレミアム購入記録リポジトリ。レコードにTTLは設定しない。
type RedisEntitlementRepo struct {
	client *redis.Client
}

// NewRedisEntitlementRepo はRedisEntitlementRepoを生成する。
func NewRedisEntitlementRepo(client *redis.Client) *RedisEntitlementRepo {
	return &RedisEntitlementRepo{client: client}
}

// PutIfAbsent はユーザーIDをキーにレコードを1回だけ書き込む。
// 既にレコードが存在する場合は書き込まずfalseを返す（プロバイダ再送に対して冪等）。
func (r *RedisEntitlementRepo) PutIfAbsent(ctx context.Context, record *model.SubscriptionRecord) (bool, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return false, fmt.Errorf("failed to marshal subscription record: %w", err)
	}

	ok, err := r.client.SetNX(ctx, entitlementKeyPrefix+record.UserID, data, 0).Result()
	if err != nil {
		return false, fmt.Errorf("failed to store subscription record: %w", err)
	}
	return ok, nil
}

// Get は指定ユーザーのレコードを取得する。見つからない場合はnilを返す。
func (r *RedisEntitlementRepo) Get(ctx context.Context, userID string) (*model.SubscriptionRecord, error) {
	data, err := r.client.Get(ctx, entitlementKeyPrefix+userID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription record: %w", err)
	}

	record := &model.SubscriptionRecord{}
	if err := json.Unmarshal(data, record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal subscription record: %w", err)
	}
	return record, nil
}

// compile-time interface check
var _ EntitlementRepository = (*RedisEntitlementRepo)(nil)
