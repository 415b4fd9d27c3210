package cache

import (
	"context"
	"fmt"
	"time"

	"autodj/logger"

	"github.com/go-redis/redis/v8"
)

// Redis键定义
const (
	activeSessionKey = "session:active" // 当前活跃会话的token，TTL即剩余时间
	requestKeyPrefix = "session:requests:"
	countKeyPrefix   = "session:count:"
)

// 会话键的保底过期时间，避免孤儿键堆积
const sessionKeyTTL = 30 * time.Minute

func requestKey(token string) string {
	return requestKeyPrefix + token
}

func countKey(token string) string {
	return countKeyPrefix + token
}

// SetActiveSession 设置当前活跃会话，TTL为输入窗口时长
func SetActiveSession(ctx context.Context, token string, window time.Duration) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	err := RedisClient.Set(ctx, activeSessionKey, token, window).Err()
	if err != nil {
		return fmt.Errorf("failed to set active session: %w", err)
	}
	return nil
}

// ActiveSession 返回当前活跃会话token及剩余时间
// 没有活跃会话时返回空token，不返回错误
func ActiveSession(ctx context.Context) (string, time.Duration, error) {
	if RedisClient == nil {
		return "", 0, fmt.Errorf("Redis client not initialized")
	}

	token, err := RedisClient.Get(ctx, activeSessionKey).Result()
	if err != nil {
		if err == redis.Nil {
			return "", 0, nil
		}
		return "", 0, fmt.Errorf("failed to get active session: %w", err)
	}

	ttl, err := RedisClient.TTL(ctx, activeSessionKey).Result()
	if err != nil {
		return "", 0, fmt.Errorf("failed to get session TTL: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}

	return token, ttl, nil
}

// IsTokenValid 检查token是否为当前活跃会话
func IsTokenValid(ctx context.Context, token string) (bool, time.Duration, error) {
	active, remaining, err := ActiveSession(ctx)
	if err != nil {
		return false, 0, err
	}
	return token != "" && token == active, remaining, nil
}

// AddRequest 记录一次点歌请求，按查询文本计票
// 返回该查询的累计票数
func AddRequest(ctx context.Context, token, query string) (int64, error) {
	if RedisClient == nil {
		return 0, fmt.Errorf("Redis client not initialized")
	}

	// 使用有序集合计票，分数为该查询被提交的次数
	score, err := RedisClient.ZIncrBy(ctx, requestKey(token), 1, query).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to tally request: %w", err)
	}

	if err := RedisClient.Incr(ctx, countKey(token)).Err(); err != nil {
		return 0, fmt.Errorf("failed to count request: %w", err)
	}

	// 设置保底过期时间
	RedisClient.Expire(ctx, requestKey(token), sessionKeyTTL)
	RedisClient.Expire(ctx, countKey(token), sessionKeyTTL)

	logger.Debug("request tallied",
		logger.String("token", token),
		logger.String("query", query),
		logger.Float64("votes", score))

	return int64(score), nil
}

// TopRequests 返回票数最高的前n个查询，按票数降序
func TopRequests(ctx context.Context, token string, n int) ([]string, error) {
	if RedisClient == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	result, err := RedisClient.ZRevRangeWithScores(ctx, requestKey(token), 0, int64(n-1)).Result()
	if err != nil {
		if err == redis.Nil {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to get top requests: %w", err)
	}

	queries := make([]string, 0, len(result))
	for _, z := range result {
		if q, ok := z.Member.(string); ok {
			queries = append(queries, q)
		}
	}

	return queries, nil
}

// RequestCount 返回会话收到的提交总数（含重复提交）
func RequestCount(ctx context.Context, token string) (int64, error) {
	if RedisClient == nil {
		return 0, fmt.Errorf("Redis client not initialized")
	}

	count, err := RedisClient.Get(ctx, countKey(token)).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get request count: %w", err)
	}
	return count, nil
}

// 混音状态键，短暂保留供状态接口查询
const mixStatusKeyPrefix = "session:mix:"

func mixStatusKey(token string) string {
	return mixStatusKeyPrefix + token
}

// SetMixStatus 记录某会话的混音状态（mixing/ready/failed）
func SetMixStatus(ctx context.Context, token, status string) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	err := RedisClient.Set(ctx, mixStatusKey(token), status, sessionKeyTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to set mix status: %w", err)
	}
	return nil
}

// MixStatus 返回某会话的混音状态，没有记录时返回空串
func MixStatus(ctx context.Context, token string) (string, error) {
	if RedisClient == nil {
		return "", fmt.Errorf("Redis client not initialized")
	}

	status, err := RedisClient.Get(ctx, mixStatusKey(token)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("failed to get mix status: %w", err)
	}
	return status, nil
}

// ClearSession 清理会话相关的所有键
func ClearSession(ctx context.Context, token string) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	// 混音状态键不在这里删，留给状态接口查询，靠TTL过期
	err := RedisClient.Del(ctx, requestKey(token), countKey(token)).Err()
	if err != nil {
		return fmt.Errorf("failed to clear session keys: %w", err)
	}
	return nil
}
