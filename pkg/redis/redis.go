package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"nuyolo/pkg/yolo"
)

var ErrCacheMiss = errors.New("cache miss")

const keyPrefix = "nuyolo:boxes:"

type IRedis interface {
	SetBoxes(ctx context.Context, tag string, boxes []yolo.Box, expiration time.Duration) error
	GetBoxes(ctx context.Context, tag string) ([]yolo.Box, error)
	DeleteBoxes(ctx context.Context, tag string) error
}

type redisClient struct {
	client *redis.Client
}

// New connects using REDIS_ADDRESS, REDIS_PASSWORD and REDIS_DB. A failed ping
// is only logged: the cache is optional and every read falls back to disk.
func New() IRedis {
	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	redisAddr := os.Getenv("REDIS_ADDRESS")

	logrus.Info(fmt.Sprintf("Connecting to Redis at %s...", redisAddr))

	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		logrus.Error(fmt.Sprintf("Failed to connect to Redis: %v", err))
	} else {
		logrus.Info("Successfully connected to Redis")
	}

	return NewFromClient(client)
}

func NewFromClient(client *redis.Client) IRedis {
	return &redisClient{client: client}
}

func boxesKey(tag string) string {
	return keyPrefix + tag
}

func (r *redisClient) SetBoxes(ctx context.Context, tag string, boxes []yolo.Box, expiration time.Duration) error {
	data, err := jsoniter.Marshal(boxes)
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, boxesKey(tag), data, expiration).Err(); err != nil {
		logrus.Error(fmt.Sprintf("Error caching boxes for tag %s: %v", tag, err))
		return err
	}
	logrus.Debug(fmt.Sprintf("Cached %d boxes for tag %s", len(boxes), tag))
	return nil
}

func (r *redisClient) GetBoxes(ctx context.Context, tag string) ([]yolo.Box, error) {
	val, err := r.client.Get(ctx, boxesKey(tag)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	} else if err != nil {
		logrus.Error(fmt.Sprintf("Error getting boxes for tag %s: %v", tag, err))
		return nil, err
	}

	return decodeBoxes(val)
}

func (r *redisClient) DeleteBoxes(ctx context.Context, tag string) error {
	return r.client.Del(ctx, boxesKey(tag)).Err()
}

func decodeBoxes(data []byte) ([]yolo.Box, error) {
	boxes := []yolo.Box{}
	if err := jsoniter.Unmarshal(data, &boxes); err != nil {
		return nil, fmt.Errorf("decode cached boxes: %w", err)
	}
	return boxes, nil
}
