package draft

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/DanixMP/Azmooneh/internal/config"
	"github.com/DanixMP/Azmooneh/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Redis stores drafts in three hashes per session (answers, persisted
// digests, metadata) that expire together.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
	log zerolog.Logger
}

// NewRedis creates a Redis-backed store. Every write refreshes the TTL.
func NewRedis(rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *Redis {
	return &Redis{
		rdb: rdb,
		ttl: ttl,
		log: log.With().Str("component", "draft_store").Logger(),
	}
}

type keys struct{ answers, persisted, meta string }

func keysFor(k Key) keys {
	return keys{
		answers:   config.CacheKey.DraftAnswersKey(k.StudentID, k.SessionID),
		persisted: config.CacheKey.DraftPersistedKey(k.StudentID, k.SessionID),
		meta:      config.CacheKey.DraftMetaKey(k.StudentID, k.SessionID),
	}
}

// Load reads a draft.
func (s *Redis) Load(ctx context.Context, key Key) (*Draft, error) {
	k := keysFor(key)

	pipe := s.rdb.Pipeline()
	answersCmd := pipe.HGetAll(ctx, k.answers)
	persistedCmd := pipe.HGetAll(ctx, k.persisted)
	metaCmd := pipe.HGetAll(ctx, k.meta)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}

	answers, persisted, meta := answersCmd.Val(), persistedCmd.Val(), metaCmd.Val()
	if len(answers) == 0 && len(persisted) == 0 && len(meta) == 0 {
		return nil, ErrNotFound
	}

	d := New(key)
	d.ExamFingerprint = meta["fingerprint"]
	d.Current, _ = strconv.Atoi(meta["current"])
	if ts, err := strconv.ParseInt(meta["saved_at"], 10, 64); err == nil {
		d.SavedAt = time.Unix(ts, 0)
	}

	for field, raw := range answers {
		qid, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			s.log.Warn().Str("field", field).Msg("Skipping malformed draft answer key")
			continue
		}
		var a model.SubmitAnswerRequest
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			s.log.Warn().Err(err).Int64("question_id", qid).Msg("Skipping malformed draft answer")
			continue
		}
		d.Answers[qid] = a
	}
	for field, digest := range persisted {
		qid, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			continue
		}
		d.Persisted[qid] = digest
	}
	return d, nil
}

// Save replaces the stored draft with d.
func (s *Redis) Save(ctx context.Context, d *Draft) error {
	k := keysFor(d.Key)

	answers := make(map[string]interface{}, len(d.Answers))
	for qid, a := range d.Answers {
		data, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("encode draft answer %d: %w", qid, err)
		}
		answers[strconv.FormatInt(qid, 10)] = data
	}
	persisted := make(map[string]interface{}, len(d.Persisted))
	for qid, digest := range d.Persisted {
		persisted[strconv.FormatInt(qid, 10)] = digest
	}
	savedAt := d.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k.answers, k.persisted)
		if len(answers) > 0 {
			pipe.HSet(ctx, k.answers, answers)
			pipe.Expire(ctx, k.answers, s.ttl)
		}
		if len(persisted) > 0 {
			pipe.HSet(ctx, k.persisted, persisted)
			pipe.Expire(ctx, k.persisted, s.ttl)
		}
		pipe.HSet(ctx, k.meta,
			"fingerprint", d.ExamFingerprint,
			"current", d.Current,
			"saved_at", savedAt.Unix(),
		)
		pipe.Expire(ctx, k.meta, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// MarkPersisted records that the server holds the answer with digest.
func (s *Redis) MarkPersisted(ctx context.Context, key Key, questionID int64, digest string) error {
	k := keysFor(key)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, k.persisted, strconv.FormatInt(questionID, 10), digest)
		pipe.Expire(ctx, k.persisted, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("mark persisted: %w", err)
	}
	return nil
}

// Clear removes the draft.
func (s *Redis) Clear(ctx context.Context, key Key) error {
	k := keysFor(key)
	if err := s.rdb.Del(ctx, k.answers, k.persisted, k.meta).Err(); err != nil {
		return fmt.Errorf("clear draft: %w", err)
	}
	return nil
}
