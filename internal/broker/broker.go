// Package broker is the Redis-backed job broker: the FIFO queue the front
// end pushes intent onto, the results hash workers publish into, and the
// sessions hash the auth collaborator reads.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"boxcars/internal/config"
	"boxcars/internal/jobs"
)

// PopTimeout bounds each blocking pop; an empty return within the window is
// normal, not an error.
const PopTimeout = 3 * time.Second

// MaxReconnect bounds how many times a command is retried across broken
// connections before the error surfaces to the caller.
const MaxReconnect = 10

// Service is the broker surface the server and worker share.
type Service interface {
	// Push enqueues a job and returns its id without waiting for processing.
	Push(ctx context.Context, job jobs.Job) (string, error)
	// Pop blocks up to PopTimeout for the next job. A nil job with a nil
	// error means the queue stayed empty for the window.
	Pop(ctx context.Context) (*jobs.Job, error)
	// PublishResult writes a completed job's result under its id.
	PublishResult(ctx context.Context, result jobs.Result) error
	// LookupResult fetches a result by job id; ok is false when the job has
	// not completed yet.
	LookupResult(ctx context.Context, id string) (jobs.Result, bool, error)
	// Session resolves a bearer token to a player id; ok is false when the
	// token is unknown.
	Session(ctx context.Context, token string) (string, bool, error)
	Health() map[string]string
	Close() error
}

type service struct {
	client  *redis.Client
	queue   string
	results string
	session string
}

// New connects to Redis and verifies the connection with a ping. Reconnects
// and bounded retries on broken connections are handled by the client's
// retry policy (MaxRetries below), so callers see at most one error per
// command rather than a torn connection.
func New(cfg config.Config) (Service, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		PoolSize:     100,
		MinIdleConns: 10,
		MaxRetries:   MaxReconnect,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  PopTimeout + 2*time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("broker connection failed: %w", err)
	}

	log.Println("[BROKER] Redis connected successfully")

	return &service{
		client:  client,
		queue:   cfg.JobQueue,
		results: cfg.JobResults,
		session: cfg.SessionStore,
	}, nil
}

func (s *service) Push(ctx context.Context, job jobs.Job) (string, error) {
	serialized, err := job.Encode()
	if err != nil {
		return "", err
	}
	if err := s.client.RPush(ctx, s.queue, serialized).Err(); err != nil {
		return "", fmt.Errorf("pushing job %s: %w", job.ID, err)
	}
	return job.ID.String(), nil
}

func (s *service) Pop(ctx context.Context) (*jobs.Job, error) {
	values, err := s.client.BLPop(ctx, PopTimeout, s.queue).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("popping from %s: %w", s.queue, err)
	}
	if len(values) < 2 {
		log.Printf("[BROKER] strange response from queue pop - %v", values)
		return nil, nil
	}

	job, err := jobs.Decode(values[1])
	if err != nil {
		// a malformed entry must not halt the worker; drop it with a warning.
		log.Printf("[BROKER] discarding unparseable queue entry - %v", err)
		return nil, nil
	}
	return &job, nil
}

func (s *service) PublishResult(ctx context.Context, result jobs.Result) error {
	serialized, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding result for %s: %w", result.ID, err)
	}
	if err := s.client.HSet(ctx, s.results, result.ID.String(), string(serialized)).Err(); err != nil {
		return fmt.Errorf("publishing result for %s: %w", result.ID, err)
	}
	return nil
}

func (s *service) LookupResult(ctx context.Context, id string) (jobs.Result, bool, error) {
	raw, err := s.client.HGet(ctx, s.results, id).Result()
	if errors.Is(err, redis.Nil) {
		return jobs.Result{}, false, nil
	}
	if err != nil {
		return jobs.Result{}, false, fmt.Errorf("looking up result %s: %w", id, err)
	}

	var result jobs.Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return jobs.Result{}, false, fmt.Errorf("decoding result %s: %w", id, err)
	}
	return result, true, nil
}

func (s *service) Session(ctx context.Context, token string) (string, bool, error) {
	value, err := s.client.HGet(ctx, s.session, token).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("session lookup: %w", err)
	}
	return value, true, nil
}

func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	if _, err := s.client.Ping(ctx).Result(); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("redis down: %v", err)
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "Redis is healthy"

	poolStats := s.client.PoolStats()
	stats["hits"] = strconv.FormatUint(uint64(poolStats.Hits), 10)
	stats["misses"] = strconv.FormatUint(uint64(poolStats.Misses), 10)
	stats["timeouts"] = strconv.FormatUint(uint64(poolStats.Timeouts), 10)
	stats["total_conns"] = strconv.FormatUint(uint64(poolStats.TotalConns), 10)
	stats["idle_conns"] = strconv.FormatUint(uint64(poolStats.IdleConns), 10)

	return stats
}

func (s *service) Close() error {
	log.Println("[BROKER] Disconnecting from Redis")
	return s.client.Close()
}
