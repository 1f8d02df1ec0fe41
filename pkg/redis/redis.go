package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Aliwaris512/Apploye/config"
)

// Nil 导出 go-redis 的空值哨兵，调用方无需直接依赖 go-redis
var Nil = goredis.Nil

// Client Redis 客户端封装
// 覆盖三类场景：Token 黑名单、接口限流、活动采样队列
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// ── Token 黑名单 ──

const blacklistPrefix = "token:blacklist:"

// BlacklistToken 将 JWT ID 加入黑名单，TTL 与 Token 剩余有效期一致
func (c *Client) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // Token 已过期，无需加入黑名单
	}
	return c.rdb.Set(ctx, blacklistPrefix+jti, "1", ttl).Err()
}

// IsBlacklisted 检查 JWT ID 是否在黑名单中
func (c *Client) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := c.rdb.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ── 接口限流 ──

// CheckRateLimit 固定窗口计数限流
// 返回 true 表示放行；窗口内第一次请求设置过期时间
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	n, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		if err := c.rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return n <= int64(limit), nil
}

// ── 活动采样队列 ──
//
// 以设备为粒度的 FIFO 缓冲：客户端高频/离线上报先入队，
// sync 时批量落库，避免每条采样都打一次事务写。

const (
	usageQueuePrefix = "usage:queue:"
	syncLockPrefix   = "usage:synclock:"
)

// EnqueueSample 将序列化后的采样追加到设备队列尾部
func (c *Client) EnqueueSample(ctx context.Context, deviceID string, payload []byte) error {
	return c.rdb.RPush(ctx, usageQueuePrefix+deviceID, payload).Err()
}

// DequeueSample 弹出设备队列头部的一条采样
// 队列为空时返回 (nil, Nil)
func (c *Client) DequeueSample(ctx context.Context, deviceID string) ([]byte, error) {
	return c.rdb.LPop(ctx, usageQueuePrefix+deviceID).Bytes()
}

// QueueLength 返回设备队列当前长度
func (c *Client) QueueLength(ctx context.Context, deviceID string) (int64, error) {
	return c.rdb.LLen(ctx, usageQueuePrefix+deviceID).Result()
}

// AcquireSyncLock 获取设备级 sync 单飞锁
// 返回 false 表示已有 sync 在执行；锁带 TTL，持有方崩溃后自动释放
func (c *Client) AcquireSyncLock(ctx context.Context, deviceID string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, syncLockPrefix+deviceID, "1", ttl).Result()
}

// ReleaseSyncLock 释放设备级 sync 锁
func (c *Client) ReleaseSyncLock(ctx context.Context, deviceID string) error {
	return c.rdb.Del(ctx, syncLockPrefix+deviceID).Err()
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
