package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-parts-market/internal/repo"
)

// ClaimState is the outcome of IdempotencyService.Claim.
type ClaimState int

const (
	// ClaimAcquired means the caller owns the key and must run the work,
	// then Remember or Release.
	ClaimAcquired ClaimState = iota
	// ClaimCompleted means the key already produced a resource.
	ClaimCompleted
	// ClaimInFlight means another request holds the key right now.
	ClaimInFlight
)

// claimLease bounds how long an unfinished claim blocks the key, so a
// request that died mid-work does not lock its key until the TTL.
const claimLease = time.Minute

// IdempotencyService stores the outcome of create-style POSTs keyed by
// (user, scope, Idempotency-Key) so retries can be answered with the
// originally created resource. Keys are claimed with a pending row before
// the work runs, so concurrent duplicates never both execute.
type IdempotencyService struct {
	DB  *gorm.DB
	TTL time.Duration
}

// NewIdempotencyService constructs an IdempotencyService. A non-positive ttl
// defaults to 24h.
func NewIdempotencyService(db *gorm.DB, ttl time.Duration) *IdempotencyService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyService{DB: db, TTL: ttl}
}

// Lookup returns the resource id recorded for the key, if any. Pending
// claims are not results and report false.
func (s *IdempotencyService) Lookup(ctx context.Context, userID, scope, key string) (string, bool, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, userID, scope, key, time.Now().UTC())
	if errors.Is(err, repo.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if rec.ResourceID == "" {
		return "", false, nil
	}
	return rec.ResourceID, true, nil
}

// Claim reserves the key for the caller by inserting a pending record. When
// the key is taken it reports ClaimCompleted with the recorded resource id,
// or ClaimInFlight while the holder is still working. An expired record is
// replaced.
func (s *IdempotencyService) Claim(ctx context.Context, userID, scope, key string) (ClaimState, string, error) {
	for attempt := 0; attempt < 2; attempt++ {
		_, err := repo.CreateIdempotency(ctx, s.DB, userID, scope, key, "", 0, claimLease)
		if err == nil {
			return ClaimAcquired, "", nil
		}
		if !errors.Is(err, repo.ErrDuplicate) {
			return 0, "", err
		}

		rec, err := repo.FindIdempotency(ctx, s.DB, userID, scope, key)
		if errors.Is(err, repo.ErrNotFound) {
			// Released or swept between the insert and the read.
			continue
		}
		if err != nil {
			return 0, "", err
		}
		now := time.Now().UTC()
		if rec.ExpiresAt.After(now) {
			if rec.ResourceID != "" {
				return ClaimCompleted, rec.ResourceID, nil
			}
			return ClaimInFlight, "", nil
		}
		if _, err := repo.DeleteIdempotencyIfExpired(ctx, s.DB, rec.ID, now); err != nil {
			return 0, "", err
		}
	}
	return ClaimInFlight, "", nil
}

// Release drops an unfinished claim so the key can be retried after the work
// failed. Completed records are kept.
func (s *IdempotencyService) Release(ctx context.Context, userID, scope, key string) error {
	return repo.DeletePendingIdempotency(ctx, s.DB, userID, scope, key)
}

// Exists reports whether a live record exists for the key. It matches
// middleware.IdempotencyLookup.
func (s *IdempotencyService) Exists(ctx context.Context, userID, scope, key string, _ time.Time) (bool, error) {
	_, found, err := s.Lookup(ctx, userID, scope, key)
	return found, err
}

// Remember records resourceID for the key, completing the caller's claim
// and extending it to the full TTL. Without a pending claim a new record is
// inserted; a concurrent request that already recorded the key wins and
// this call is a no-op.
func (s *IdempotencyService) Remember(ctx context.Context, userID, scope, key, resourceID string, status int) error {
	done, err := repo.CompleteIdempotency(ctx, s.DB, userID, scope, key, resourceID, status, time.Now().UTC().Add(s.TTL))
	if err != nil || done {
		return err
	}
	_, err = repo.CreateIdempotency(ctx, s.DB, userID, scope, key, resourceID, status, s.TTL)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}

// Sweep deletes expired records and returns how many were removed.
func (s *IdempotencyService) Sweep(ctx context.Context) (int64, error) {
	return repo.DeleteExpiredIdempotency(ctx, s.DB, time.Now().UTC())
}
