package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"islandflow/pkg/apperror"
	"islandflow/pkg/domain"
)

const solveKeyPrefix = "solve:"

// HashProblem returns a hex digest of the problem. Bridge order is part of
// the digest: bridge numbers appear in the answer, so two problems listing
// the same bridges in a different order have different answers.
func HashProblem(p *domain.Problem) string {
	if p == nil {
		return ""
	}

	h := sha256.New()
	var buf [8]byte
	write := func(v int) {
		binary.BigEndian.PutUint64(buf[:], uint64(v))
		h.Write(buf[:])
	}

	write(p.Islands)
	write(p.Soldiers)
	write(len(p.Bridges))
	for _, b := range p.Bridges {
		write(b.From)
		write(b.To)
		write(b.Cost)
	}

	return hex.EncodeToString(h.Sum(nil))
}

// SolveKey is the cache key of a problem digest.
func SolveKey(hash string) string {
	return solveKeyPrefix + hash
}

// AnswerCache stores answers as JSON keyed by problem digest.
type AnswerCache struct {
	cache Cache
	ttl   time.Duration
}

// CachedAnswer is the stored form of an answer.
type CachedAnswer struct {
	Answer     *domain.Answer `json:"answer"`
	ComputedAt time.Time      `json:"computed_at"`
}

func NewAnswerCache(c Cache, ttl time.Duration) *AnswerCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &AnswerCache{cache: c, ttl: ttl}
}

// Get returns the cached answer for p. A miss is (nil, false, nil).
func (ac *AnswerCache) Get(ctx context.Context, p *domain.Problem) (*CachedAnswer, bool, error) {
	data, err := ac.cache.Get(ctx, SolveKey(HashProblem(p)))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperror.Wrap(err, apperror.CodeCache, "cache read failed")
	}

	var cached CachedAnswer
	if err := json.Unmarshal(data, &cached); err != nil || cached.Answer == nil {
		// a corrupt entry is a miss; the next Set overwrites it
		return nil, false, nil
	}

	return &cached, true, nil
}

// Set stores a for p.
func (ac *AnswerCache) Set(ctx context.Context, p *domain.Problem, a *domain.Answer) error {
	if a == nil {
		return apperror.New(apperror.CodeNilInput, "answer is nil")
	}

	data, err := json.Marshal(CachedAnswer{Answer: a, ComputedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal answer: %w", err)
	}

	if err := ac.cache.Set(ctx, SolveKey(HashProblem(p)), data, ac.ttl); err != nil {
		return apperror.Wrap(err, apperror.CodeCache, "cache write failed")
	}
	return nil
}

// Invalidate drops the answer for p.
func (ac *AnswerCache) Invalidate(ctx context.Context, p *domain.Problem) error {
	return ac.cache.Delete(ctx, SolveKey(HashProblem(p)))
}

// InvalidateAll drops every cached answer.
func (ac *AnswerCache) InvalidateAll(ctx context.Context) (int64, error) {
	return ac.cache.DeleteByPattern(ctx, solveKeyPrefix+"*")
}

// Stats passes through to the backend.
func (ac *AnswerCache) Stats(ctx context.Context) (*Stats, error) {
	return ac.cache.Stats(ctx)
}
