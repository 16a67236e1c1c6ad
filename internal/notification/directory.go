package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/clinic-appointment-booking/internal/db"
)

var ErrDoctorNotFound = errors.New("doctor not found")

// Directory resolves the user account that owns a doctor profile.
type Directory interface {
	OwningUserID(ctx context.Context, doctorID uuid.UUID) (string, error)
}

type PgDirectory struct {
	q db.Querier
}

func NewPgDirectory(q db.Querier) *PgDirectory {
	return &PgDirectory{q: q}
}

func (d *PgDirectory) OwningUserID(ctx context.Context, doctorID uuid.UUID) (string, error) {
	var userID string
	err := d.q.QueryRow(ctx, `SELECT user_id FROM doctors WHERE id = $1`, doctorID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrDoctorNotFound
		}
		return "", fmt.Errorf("lookup doctor user: %w", err)
	}
	return userID, nil
}

// CachedDirectory keeps recent lookups; the doctor to user mapping does not
// change once a profile exists.
type CachedDirectory struct {
	next  Directory
	cache *lru.Cache[uuid.UUID, string]
}

func NewCachedDirectory(next Directory, size int) (*CachedDirectory, error) {
	if size <= 0 {
		size = 1
	}
	cache, err := lru.New[uuid.UUID, string](size)
	if err != nil {
		return nil, fmt.Errorf("create directory cache: %w", err)
	}
	return &CachedDirectory{next: next, cache: cache}, nil
}

func (d *CachedDirectory) OwningUserID(ctx context.Context, doctorID uuid.UUID) (string, error) {
	if userID, ok := d.cache.Get(doctorID); ok {
		return userID, nil
	}

	userID, err := d.next.OwningUserID(ctx, doctorID)
	if err != nil {
		return "", err
	}

	d.cache.Add(doctorID, userID)
	return userID, nil
}

// IdentityDirectory addresses doctors by their own id, for deployments
// without a doctors table.
type IdentityDirectory struct{}

func (IdentityDirectory) OwningUserID(_ context.Context, doctorID uuid.UUID) (string, error) {
	return doctorID.String(), nil
}
