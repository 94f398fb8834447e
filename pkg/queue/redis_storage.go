package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStorage implements Repository on top of Redis for multi-process
// deployments. Pending jobs live in a per-queue sorted set whose score
// encodes priority first and arrival order second, so ZPOPMIN yields
// the same priority-first FIFO ordering MemoryStorage computes in
// memory. Delayed jobs and claim locks are sorted sets scored by their
// due time; a Lua script promotes due jobs, releases expired locks, and
// pops the best candidate in one atomic step.
type RedisStorage struct {
	client redis.UniversalClient
	prefix string

	completedMaxCount int64
	completedMaxAge   time.Duration
	failedMaxCount    int64
}

// RedisStorageOption configures a RedisStorage.
type RedisStorageOption func(*RedisStorage)

// WithRedisKeyPrefix overrides the key namespace.
func WithRedisKeyPrefix(prefix string) RedisStorageOption {
	return func(rs *RedisStorage) {
		if prefix != "" {
			rs.prefix = prefix
		}
	}
}

// WithRedisCompletedRetention bounds how many completed jobs are kept
// and for how long.
func WithRedisCompletedRetention(maxCount int, maxAge time.Duration) RedisStorageOption {
	return func(rs *RedisStorage) {
		if maxCount > 0 {
			rs.completedMaxCount = int64(maxCount)
		}
		if maxAge > 0 {
			rs.completedMaxAge = maxAge
		}
	}
}

// WithRedisFailedRetention bounds how many failed jobs are kept.
func WithRedisFailedRetention(maxCount int) RedisStorageOption {
	return func(rs *RedisStorage) {
		if maxCount > 0 {
			rs.failedMaxCount = int64(maxCount)
		}
	}
}

// NewRedisStorage creates a Redis-backed queue storage.
func NewRedisStorage(client redis.UniversalClient, opts ...RedisStorageOption) (*RedisStorage, error) {
	if client == nil {
		return nil, ErrRepositoryNil
	}

	rs := &RedisStorage{
		client:            client,
		prefix:            "notifykit",
		completedMaxCount: 1000,
		completedMaxAge:   time.Hour,
		failedMaxCount:    5000,
	}
	for _, opt := range opts {
		opt(rs)
	}
	return rs, nil
}

func (rs *RedisStorage) jobKey(id uuid.UUID) string {
	return rs.prefix + ":job:" + id.String()
}

func (rs *RedisStorage) setKey(queue string, set string) string {
	return rs.prefix + ":q:" + queue + ":" + set
}

func (rs *RedisStorage) scoresKey(queue string) string {
	return rs.prefix + ":q:" + queue + ":scores"
}

// pendingScore encodes priority-first, arrival-order-second ordering
// into a single ascending score for ZPOPMIN.
func pendingScore(priority int, seq int64) float64 {
	return float64(10-priority)*float64(1<<40) + float64(seq)
}

// claimScript promotes due delayed jobs, releases expired locks, and
// pops the best pending job, atomically.
//
// KEYS: 1=pending 2=delayed 3=active 4=scores
// ARGV: 1=now(ms) 2=lockUntil(ms)
var claimScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[2], '-inf', ARGV[1])
for _, id in ipairs(due) do
  redis.call('ZREM', KEYS[2], id)
  local score = redis.call('HGET', KEYS[4], id)
  if score then redis.call('ZADD', KEYS[1], score, id) end
end
local expired = redis.call('ZRANGEBYSCORE', KEYS[3], '-inf', ARGV[1])
for _, id in ipairs(expired) do
  redis.call('ZREM', KEYS[3], id)
  local score = redis.call('HGET', KEYS[4], id)
  if score then redis.call('ZADD', KEYS[1], score, id) end
end
local popped = redis.call('ZPOPMIN', KEYS[1])
if #popped == 0 then return false end
redis.call('ZADD', KEYS[3], ARGV[2], popped[1])
return popped[1]
`)

// CreateJob implements EnqueuerRepository.
func (rs *RedisStorage) CreateJob(ctx context.Context, job *Job) error {
	if job == nil {
		return ErrJobNotFound
	}

	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job %s: %w", job.ID, err)
	}

	seq, err := rs.client.Incr(ctx, rs.prefix+":seq").Result()
	if err != nil {
		return fmt.Errorf("failed to allocate job sequence: %w", err)
	}

	pipe := rs.client.TxPipeline()
	pipe.Set(ctx, rs.jobKey(job.ID), raw, 0)
	pipe.HSet(ctx, rs.scoresKey(job.Queue), job.ID.String(), pendingScore(int(job.Priority), seq))
	if job.ScheduledAt.After(time.Now()) {
		pipe.ZAdd(ctx, rs.setKey(job.Queue, "delayed"), redis.Z{
			Score:  float64(job.ScheduledAt.UnixMilli()),
			Member: job.ID.String(),
		})
	} else {
		pipe.ZAdd(ctx, rs.setKey(job.Queue, "pending"), redis.Z{
			Score:  pendingScore(int(job.Priority), seq),
			Member: job.ID.String(),
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store job %s: %w", job.ID, err)
	}
	return nil
}

// ClaimJob implements WorkerRepository.
func (rs *RedisStorage) ClaimJob(ctx context.Context, workerID uuid.UUID, queue string, lockDuration time.Duration) (*Job, error) {
	now := time.Now()
	res, err := claimScript.Run(ctx, rs.client,
		[]string{
			rs.setKey(queue, "pending"),
			rs.setKey(queue, "delayed"),
			rs.setKey(queue, "active"),
			rs.scoresKey(queue),
		},
		now.UnixMilli(),
		now.Add(lockDuration).UnixMilli(),
	).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoJobToClaim
		}
		return nil, fmt.Errorf("failed to claim job from queue %q: %w", queue, err)
	}

	idStr, ok := res.(string)
	if !ok {
		return nil, ErrNoJobToClaim
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid job id %q in queue %q: %w", idStr, queue, err)
	}

	job, err := rs.loadJob(ctx, id)
	if err != nil {
		return nil, err
	}

	lockUntil := now.Add(lockDuration)
	job.Status = JobStatusActive
	job.Attempts++
	job.LockedUntil = &lockUntil
	job.LockedBy = &workerID
	job.ProcessedAt = &now

	if err := rs.saveJob(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// CompleteJob implements WorkerRepository.
func (rs *RedisStorage) CompleteJob(ctx context.Context, jobID uuid.UUID) error {
	job, err := rs.loadJob(ctx, jobID)
	if err != nil {
		return err
	}

	now := time.Now()
	job.Status = JobStatusCompleted
	job.CompletedAt = &now
	job.LockedUntil = nil
	job.LockedBy = nil

	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job %s: %w", job.ID, err)
	}

	completedKey := rs.setKey(job.Queue, "completed")
	pipe := rs.client.TxPipeline()
	// Completed payloads expire with the retention age; the sorted set
	// entry is trimmed below.
	pipe.Set(ctx, rs.jobKey(job.ID), raw, rs.completedMaxAge)
	pipe.ZRem(ctx, rs.setKey(job.Queue, "active"), job.ID.String())
	pipe.ZAdd(ctx, completedKey, redis.Z{Score: float64(now.UnixMilli()), Member: job.ID.String()})
	pipe.ZRemRangeByScore(ctx, completedKey, "-inf", strconv.FormatInt(now.Add(-rs.completedMaxAge).UnixMilli(), 10))
	pipe.ZRemRangeByRank(ctx, completedKey, 0, -rs.completedMaxCount-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to complete job %s: %w", job.ID, err)
	}
	return nil
}

// FailJob implements WorkerRepository.
func (rs *RedisStorage) FailJob(ctx context.Context, jobID uuid.UUID, errorMsg string, retryDelay time.Duration) error {
	job, err := rs.loadJob(ctx, jobID)
	if err != nil {
		return err
	}

	now := time.Now()
	job.Error = &errorMsg
	job.LockedUntil = nil
	job.LockedBy = nil

	if job.Attempts >= job.MaxAttempts {
		job.Status = JobStatusFailed
		job.FailedAt = &now
		return rs.moveToFailed(ctx, job)
	}

	job.Status = JobStatusDelayed
	job.ScheduledAt = now.Add(retryDelay)

	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job %s: %w", job.ID, err)
	}

	pipe := rs.client.TxPipeline()
	pipe.Set(ctx, rs.jobKey(job.ID), raw, 0)
	pipe.ZRem(ctx, rs.setKey(job.Queue, "active"), job.ID.String())
	pipe.ZAdd(ctx, rs.setKey(job.Queue, "delayed"), redis.Z{
		Score:  float64(job.ScheduledAt.UnixMilli()),
		Member: job.ID.String(),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delay job %s: %w", job.ID, err)
	}
	return nil
}

// DiscardJob implements WorkerRepository.
func (rs *RedisStorage) DiscardJob(ctx context.Context, jobID uuid.UUID, errorMsg string) error {
	job, err := rs.loadJob(ctx, jobID)
	if err != nil {
		return err
	}

	now := time.Now()
	job.Status = JobStatusFailed
	job.Error = &errorMsg
	job.FailedAt = &now
	job.LockedUntil = nil
	job.LockedBy = nil
	return rs.moveToFailed(ctx, job)
}

func (rs *RedisStorage) moveToFailed(ctx context.Context, job *Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job %s: %w", job.ID, err)
	}

	failedKey := rs.setKey(job.Queue, "failed")
	pipe := rs.client.TxPipeline()
	pipe.Set(ctx, rs.jobKey(job.ID), raw, 0)
	pipe.ZRem(ctx, rs.setKey(job.Queue, "active"), job.ID.String())
	pipe.ZAdd(ctx, failedKey, redis.Z{Score: float64(job.FailedAt.UnixMilli()), Member: job.ID.String()})
	// Failed jobs are kept for inspection, bounded by count only.
	pipe.ZRemRangeByRank(ctx, failedKey, 0, -rs.failedMaxCount-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to mark job %s failed: %w", job.ID, err)
	}
	return nil
}

// GetJob implements InspectorRepository.
func (rs *RedisStorage) GetJob(ctx context.Context, jobID uuid.UUID) (*Job, error) {
	return rs.loadJob(ctx, jobID)
}

// ListJobs implements InspectorRepository.
func (rs *RedisStorage) ListJobs(ctx context.Context, f Filter) ([]Job, int, error) {
	sets := []string{"pending", "delayed", "active", "completed", "failed"}
	if f.Status != "" {
		sets = []string{statusSet(f.Status)}
	}

	var ids []string
	for _, set := range sets {
		members, err := rs.client.ZRange(ctx, rs.setKey(f.Queue, set), 0, -1).Result()
		if err != nil {
			return nil, 0, fmt.Errorf("failed to list %s jobs in queue %q: %w", set, f.Queue, err)
		}
		ids = append(ids, members...)
	}

	if len(ids) == 0 {
		return nil, 0, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, rs.prefix+":job:"+id)
	}
	raws, err := rs.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load jobs in queue %q: %w", f.Queue, err)
	}

	var jobs []Job
	for _, raw := range raws {
		s, ok := raw.(string)
		if !ok {
			continue // payload expired, set entry not yet trimmed
		}
		var job Job
		if err := json.Unmarshal([]byte(s), &job); err != nil {
			continue
		}
		jobs = append(jobs, job)
	}

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})

	total := len(jobs)
	if f.Offset > 0 {
		if f.Offset >= total {
			return nil, total, nil
		}
		jobs = jobs[f.Offset:]
	}
	if f.Limit > 0 && len(jobs) > f.Limit {
		jobs = jobs[:f.Limit]
	}
	return jobs, total, nil
}

// Stats implements InspectorRepository.
func (rs *RedisStorage) Stats(ctx context.Context, queue string) (Stats, error) {
	pipe := rs.client.Pipeline()
	pending := pipe.ZCard(ctx, rs.setKey(queue, "pending"))
	delayed := pipe.ZCard(ctx, rs.setKey(queue, "delayed"))
	active := pipe.ZCard(ctx, rs.setKey(queue, "active"))
	completed := pipe.ZCard(ctx, rs.setKey(queue, "completed"))
	failed := pipe.ZCard(ctx, rs.setKey(queue, "failed"))
	if _, err := pipe.Exec(ctx); err != nil {
		return Stats{}, fmt.Errorf("failed to read stats for queue %q: %w", queue, err)
	}

	s := Stats{
		Waiting:   int(pending.Val()),
		Delayed:   int(delayed.Val()),
		Active:    int(active.Val()),
		Completed: int(completed.Val()),
		Failed:    int(failed.Val()),
	}
	s.Total = s.Waiting + s.Delayed + s.Active + s.Completed + s.Failed
	return s, nil
}

// RetryJob implements InspectorRepository.
func (rs *RedisStorage) RetryJob(ctx context.Context, jobID uuid.UUID) error {
	job, err := rs.loadJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != JobStatusFailed {
		return ErrJobNotFailed
	}

	job.Status = JobStatusPending
	job.Attempts = 0
	job.Error = nil
	job.FailedAt = nil
	job.ScheduledAt = time.Now()

	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job %s: %w", job.ID, err)
	}

	score, err := rs.client.HGet(ctx, rs.scoresKey(job.Queue), job.ID.String()).Float64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			return fmt.Errorf("failed to load score for job %s: %w", job.ID, err)
		}
		seq, seqErr := rs.client.Incr(ctx, rs.prefix+":seq").Result()
		if seqErr != nil {
			return fmt.Errorf("failed to allocate job sequence: %w", seqErr)
		}
		score = pendingScore(int(job.Priority), seq)
	}

	pipe := rs.client.TxPipeline()
	pipe.Set(ctx, rs.jobKey(job.ID), raw, 0)
	pipe.ZRem(ctx, rs.setKey(job.Queue, "failed"), job.ID.String())
	pipe.ZAdd(ctx, rs.setKey(job.Queue, "pending"), redis.Z{Score: score, Member: job.ID.String()})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to retry job %s: %w", job.ID, err)
	}
	return nil
}

// DeleteJob implements InspectorRepository.
func (rs *RedisStorage) DeleteJob(ctx context.Context, jobID uuid.UUID) error {
	job, err := rs.loadJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status == JobStatusActive {
		return ErrJobActive
	}

	pipe := rs.client.TxPipeline()
	for _, set := range []string{"pending", "delayed", "completed", "failed"} {
		pipe.ZRem(ctx, rs.setKey(job.Queue, set), job.ID.String())
	}
	pipe.HDel(ctx, rs.scoresKey(job.Queue), job.ID.String())
	pipe.Del(ctx, rs.jobKey(job.ID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete job %s: %w", job.ID, err)
	}
	return nil
}

func (rs *RedisStorage) loadJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	raw, err := rs.client.Get(ctx, rs.jobKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to load job %s: %w", id, err)
	}

	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job %s: %w", id, err)
	}
	return &job, nil
}

func (rs *RedisStorage) saveJob(ctx context.Context, job *Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job %s: %w", job.ID, err)
	}
	if err := rs.client.Set(ctx, rs.jobKey(job.ID), raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to store job %s: %w", job.ID, err)
	}
	return nil
}

func statusSet(status JobStatus) string {
	switch status {
	case JobStatusPending:
		return "pending"
	case JobStatusDelayed:
		return "delayed"
	case JobStatusActive:
		return "active"
	case JobStatusCompleted:
		return "completed"
	case JobStatusFailed:
		return "failed"
	}
	return "pending"
}
