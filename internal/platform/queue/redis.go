package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"contest_registry/internal/platform/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var RDB *redis.Client

func ConnectRedis() {
	RDB = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := RDB.Ping(ctx).Result()
	if err != nil {
		log.Fatalf("Could not connect to Redis: %v", err)
	}
	fmt.Println("Successfully connected to Redis!")
}

func CloseRedis() {
	if RDB != nil {
		RDB.Close()
		fmt.Println("Redis connection closed.")
	}
}

// Compare-and-delete so a worker never releases a lock another worker now holds.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// ImportQueue is a Redis list of import job ids plus the single-runner lock guarding it.
type ImportQueue struct {
	rdb     *redis.Client
	name    string
	lockKey string
	lockTTL time.Duration
}

func NewImportQueue(rdb *redis.Client, name, lockKey string, lockTTL time.Duration) *ImportQueue {
	return &ImportQueue{rdb: rdb, name: name, lockKey: lockKey, lockTTL: lockTTL}
}

// Enqueue pushes a job id onto the head of the list; workers pop from the tail.
func (q *ImportQueue) Enqueue(ctx context.Context, jobID string) error {
	if err := q.rdb.LPush(ctx, q.name, jobID).Err(); err != nil {
		return fmt.Errorf("push job %s to queue %s: %w", jobID, q.name, err)
	}
	return nil
}

// Pop blocks up to timeout for the next job id. It returns "" with a nil error on timeout.
func (q *ImportQueue) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	// res is [queueName, value]
	if len(res) < 2 {
		return "", nil
	}
	return res[1], nil
}

func (q *ImportQueue) Requeue(ctx context.Context, jobID string) error {
	return q.rdb.RPush(ctx, q.name, jobID).Err()
}

// AcquireLock tries SET NX PX once and returns the token needed to release it.
func (q *ImportQueue) AcquireLock(ctx context.Context) (string, bool, error) {
	token := uuid.NewString()
	ok, err := q.rdb.SetNX(ctx, q.lockKey, token, q.lockTTL).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// ReleaseLock deletes the lock only if token still owns it.
func (q *ImportQueue) ReleaseLock(ctx context.Context, token string) (bool, error) {
	deleted, err := releaseScript.Run(ctx, q.rdb, []string{q.lockKey}, token).Int64()
	if err != nil {
		return false, err
	}
	return deleted == 1, nil
}
