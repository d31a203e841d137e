// Package testutil provides in-memory collaborators for service and handler tests.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"student-portal/internal/adapters/persistence/models"
	"student-portal/internal/adapters/persistence/repositories"
	"student-portal/internal/core/domain"
)

// UserRepo is an in-memory repositories.UserRepository
type UserRepo struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]*models.User
	Err    error
}

func NewUserRepo() *UserRepo {
	return &UserRepo{users: make(map[uint]*models.User)}
}

func (r *UserRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	user.Email = domain.NormalizeEmail(user.Email)
	user.MatricNumber = domain.NormalizeMatric(user.MatricNumber)
	for _, u := range r.users {
		if u.Email == user.Email || u.MatricNumber == user.MatricNumber {
			return repositories.ErrDuplicate
		}
	}
	r.nextID++
	user.ID = r.nextID
	if user.Role == "" {
		user.Role = domain.RoleStudent
	}
	if user.MembershipStatus == "" {
		user.MembershipStatus = domain.MembershipNonMember
	}
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	cp := *user
	r.users[cp.ID] = &cp
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id uint) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	email = domain.NormalizeEmail(email)
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *UserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	if err == repositories.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (r *UserRepo) ExistsByMatricNumber(_ context.Context, matric string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return false, r.Err
	}
	matric = domain.NormalizeMatric(matric)
	for _, u := range r.users {
		if u.MatricNumber == matric {
			return true, nil
		}
	}
	return false, nil
}

func (r *UserRepo) UpdateFields(_ context.Context, id uint, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	u, ok := r.users[id]
	if !ok {
		return nil
	}
	for k, v := range fields {
		switch k {
		case "role":
			u.Role = v.(domain.Role)
		case "is_active":
			u.IsActive = v.(bool)
		case "membership_status":
			u.MembershipStatus = v.(domain.MembershipStatus)
		}
	}
	u.UpdatedAt = time.Now()
	return nil
}

func (r *UserRepo) List(_ context.Context, role domain.Role, offset, limit int) ([]*models.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, 0, r.Err
	}
	var all []*models.User
	for _, u := range r.users {
		if role == "" || u.Role == role {
			cp := *u
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := int64(len(all))
	if offset >= len(all) {
		return []*models.User{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (r *UserRepo) CountByRole(_ context.Context, role domain.Role) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return 0, r.Err
	}
	var n int64
	for _, u := range r.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

// RosterRepo is an in-memory repositories.RosterRepository keyed by email
type RosterRepo struct {
	mu      sync.Mutex
	nextID  uint
	entries map[string]*models.StudentRosterEntry
	Err     error
}

func NewRosterRepo(entries ...models.StudentRosterEntry) *RosterRepo {
	r := &RosterRepo{entries: make(map[string]*models.StudentRosterEntry)}
	for i := range entries {
		_ = r.Upsert(context.Background(), &entries[i])
	}
	return r
}

func (r *RosterRepo) FindByEmailAndMatric(_ context.Context, email, matric string) (*models.StudentRosterEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	e, ok := r.entries[domain.NormalizeEmail(email)]
	if !ok || e.MatricNumber != domain.NormalizeMatric(matric) {
		return nil, repositories.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *RosterRepo) Upsert(_ context.Context, entry *models.StudentRosterEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	entry.Email = domain.NormalizeEmail(entry.Email)
	entry.MatricNumber = domain.NormalizeMatric(entry.MatricNumber)
	if existing, ok := r.entries[entry.Email]; ok {
		entry.ID = existing.ID
	} else {
		r.nextID++
		entry.ID = r.nextID
	}
	cp := *entry
	r.entries[cp.Email] = &cp
	return nil
}

// Len returns the number of roster entries
func (r *RosterRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// OTPRepo is an in-memory repositories.OTPRepository.
// ConsumeAttempt holds the lock across compare-and-write, matching the
// conditional UPDATE semantics of the SQL implementation.
type OTPRepo struct {
	mu      sync.Mutex
	nextID  uint
	records []*models.OTPRecord
	Err     error
}

func NewOTPRepo() *OTPRepo {
	return &OTPRepo{}
}

func (r *OTPRepo) Create(_ context.Context, record *models.OTPRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.nextID++
	record.ID = r.nextID
	record.Email = domain.NormalizeEmail(record.Email)
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	cp := *record
	r.records = append(r.records, &cp)
	return nil
}

func (r *OTPRepo) GetLatestByEmail(_ context.Context, email string) (*models.OTPRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	if rec := r.latest(domain.NormalizeEmail(email)); rec != nil {
		cp := *rec
		return &cp, nil
	}
	return nil, repositories.ErrNotFound
}

func (r *OTPRepo) latest(email string) *models.OTPRecord {
	var found *models.OTPRecord
	for _, rec := range r.records {
		if rec.Email == email && (found == nil || rec.ID > found.ID) {
			found = rec
		}
	}
	return found
}

func (r *OTPRepo) byID(id uint) *models.OTPRecord {
	for _, rec := range r.records {
		if rec.ID == id {
			return rec
		}
	}
	return nil
}

func (r *OTPRepo) ConsumeAttempt(_ context.Context, record *models.OTPRecord, code string, maxAttempts int, now time.Time) (repositories.AttemptOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return repositories.AttemptMissing, r.Err
	}
	rec := r.byID(record.ID)
	switch {
	case rec == nil:
		return repositories.AttemptMissing, nil
	case rec.IsExpired(now):
		return repositories.AttemptExpired, nil
	case rec.Verified:
		return repositories.AttemptAlreadyVerified, nil
	case rec.Attempts >= maxAttempts:
		return repositories.AttemptLocked, nil
	case rec.Code == code:
		rec.Verified = true
		t := now
		rec.VerifiedAt = &t
		return repositories.AttemptVerified, nil
	}
	rec.Attempts++
	return repositories.AttemptMismatch, nil
}

func (r *OTPRepo) Discard(_ context.Context, record *models.OTPRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	kept := r.records[:0]
	for _, rec := range r.records {
		if rec.ID != record.ID {
			kept = append(kept, rec)
		}
	}
	r.records = kept
	return nil
}

func (r *OTPRepo) ExpireOthers(_ context.Context, email string, keepID uint, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	email = domain.NormalizeEmail(email)
	for _, rec := range r.records {
		if rec.Email == email && rec.ID != keepID && !rec.Verified && rec.ExpiresAt.After(now) {
			rec.ExpiresAt = now
		}
	}
	return nil
}

func (r *OTPRepo) DeleteByEmail(_ context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	email = domain.NormalizeEmail(email)
	kept := r.records[:0]
	for _, rec := range r.records {
		if rec.Email != email {
			kept = append(kept, rec)
		}
	}
	r.records = kept
	return nil
}

func (r *OTPRepo) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return 0, r.Err
	}
	var n int64
	kept := r.records[:0]
	for _, rec := range r.records {
		if rec.ExpiresAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, rec)
	}
	r.records = kept
	return n, nil
}

// Records returns copies of every stored record for an email, oldest first
func (r *OTPRepo) Records(email string) []models.OTPRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	email = domain.NormalizeEmail(email)
	var out []models.OTPRecord
	for _, rec := range r.records {
		if rec.Email == email {
			out = append(out, *rec)
		}
	}
	return out
}
