package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/commercekit/authsvc/domain"
)

// UserRepositoryImpl implements domain.UserRepository using GORM. Bounded
// collections (refresh tokens, audit trail) live in child tables; push and
// trim happen inside one transaction so concurrent sessions for the same
// user cannot lose updates.
type UserRepositoryImpl struct {
	db *gorm.DB
}

// DBUser is the database model for a user row.
type DBUser struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email     string    `gorm:"size:255;index"`
	FirstName string    `gorm:"size:128"`
	LastName  string    `gorm:"size:128"`
	Role      string    `gorm:"size:32;index"`

	PasswordHash         string `gorm:"column:password"`
	PasswordResetToken   string `gorm:"size:64;index"`
	PasswordResetExpires *time.Time
	EmailVerifyToken     string `gorm:"size:64;index"`
	EmailVerifyExpires   *time.Time

	FailedLoginAttempts int
	LockUntil           *time.Time

	IsActive      bool `gorm:"index"`
	EmailVerified bool
	DeletedBy     *uuid.UUID `gorm:"type:uuid"`

	LastLoginAt *time.Time
	LastLoginIP string `gorm:"size:64"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (DBUser) TableName() string { return "users" }

// DBRefreshToken is one stored refresh token. Capped per user by
// PushRefreshToken.
type DBRefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;index"`
	Token     string    `gorm:"size:1024;index:idx_refresh_user_token"`
	CreatedAt time.Time `gorm:"index"`
}

func (DBRefreshToken) TableName() string { return "refresh_tokens" }

// DBAuditEntry is one row of a user's bounded security trail.
type DBAuditEntry struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	UserID    uuid.UUID `gorm:"type:uuid;index"`
	Action    string    `gorm:"size:64"`
	Origin    string    `gorm:"size:128"`
	CreatedAt time.Time `gorm:"index"`
}

func (DBAuditEntry) TableName() string { return "audit_entries" }

// NewUserRepository creates a new user repository.
func NewUserRepository(db *gorm.DB) domain.UserRepository {
	return &UserRepositoryImpl{db: db}
}

// Create implements domain.UserRepository. The partial unique index on email
// makes the existence check and the insert one atomic operation: under a
// concurrent duplicate registration exactly one insert wins and the loser
// gets ErrEmailTaken.
func (r *UserRepositoryImpl) Create(ctx context.Context, user *domain.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = domain.NormalizeEmail(user.Email)

	dbUser := domainToDB(user)
	if err := r.db.WithContext(ctx).Create(dbUser).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	user.CreatedAt = dbUser.CreatedAt
	user.UpdatedAt = dbUser.UpdatedAt
	return nil
}

// FindByEmail implements domain.UserRepository. Lookup is case-insensitive
// via normalization; soft-deleted rows are invisible.
func (r *UserRepositoryImpl) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var dbUser DBUser
	err := r.db.WithContext(ctx).Where("email = ?", domain.NormalizeEmail(email)).First(&dbUser).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return dbToDomain(&dbUser), nil
}

// FindByID implements domain.UserRepository.
func (r *UserRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var dbUser DBUser
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&dbUser).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return dbToDomain(&dbUser), nil
}

// UpdateFields implements domain.UserRepository.
func (r *UserRepositoryImpl) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&DBUser{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update user fields: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// UpdateCredentials implements domain.UserRepository: credential patch plus
// revocation of the whole session set, atomically. A password change must
// force re-login on all devices even if the process dies mid-way.
func (r *UserRepositoryImpl) UpdateCredentials(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&DBUser{}).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			return fmt.Errorf("update credentials: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrUserNotFound
		}
		if err := tx.Where("user_id = ?", id).Delete(&DBRefreshToken{}).Error; err != nil {
			return fmt.Errorf("revoke refresh tokens: %w", err)
		}
		return nil
	})
}

// PushRefreshToken implements domain.UserRepository.
func (r *UserRepositoryImpl) PushRefreshToken(ctx context.Context, userID uuid.UUID, token string, maxTokens int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := &DBRefreshToken{ID: uuid.New(), UserID: userID, Token: token}
		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("push refresh token: %w", err)
		}

		var count int64
		if err := tx.Model(&DBRefreshToken{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
			return fmt.Errorf("count refresh tokens: %w", err)
		}
		if excess := count - int64(maxTokens); excess > 0 {
			oldest := tx.Model(&DBRefreshToken{}).
				Select("id").
				Where("user_id = ?", userID).
				Order("created_at ASC, id ASC").
				Limit(int(excess))
			if err := tx.Where("id IN (?)", oldest).Delete(&DBRefreshToken{}).Error; err != nil {
				return fmt.Errorf("trim refresh tokens: %w", err)
			}
		}
		return nil
	})
}

// PullRefreshToken implements domain.UserRepository. The rows-affected count
// is what makes refresh rotation single-use: a replayed token finds nothing
// to delete.
func (r *UserRepositoryImpl) PullRefreshToken(ctx context.Context, userID uuid.UUID, token string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND token = ?", userID, token).
		Delete(&DBRefreshToken{})
	if res.Error != nil {
		return false, fmt.Errorf("pull refresh token: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ClearRefreshTokens implements domain.UserRepository.
func (r *UserRepositoryImpl) ClearRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&DBRefreshToken{}).Error; err != nil {
		return fmt.Errorf("clear refresh tokens: %w", err)
	}
	return nil
}

// IncrementFailedLogins implements domain.UserRepository. The increment is a
// single UPDATE expression so concurrent failed attempts cannot under-count;
// the transaction's row lock then makes the threshold check consistent.
func (r *UserRepositoryImpl) IncrementFailedLogins(ctx context.Context, userID uuid.UUID, threshold int, lockFor time.Duration) (int, error) {
	var attempts int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&DBUser{}).
			Where("id = ?", userID).
			UpdateColumn("failed_login_attempts", gorm.Expr("failed_login_attempts + 1"))
		if res.Error != nil {
			return fmt.Errorf("increment failed logins: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrUserNotFound
		}

		if err := tx.Model(&DBUser{}).
			Select("failed_login_attempts").
			Where("id = ?", userID).
			Scan(&attempts).Error; err != nil {
			return fmt.Errorf("read failed logins: %w", err)
		}

		if attempts >= threshold {
			lockUntil := time.Now().Add(lockFor)
			if err := tx.Model(&DBUser{}).
				Where("id = ?", userID).
				UpdateColumn("lock_until", lockUntil).Error; err != nil {
				return fmt.Errorf("set lockout: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return attempts, nil
}

// ResetLockout implements domain.UserRepository.
func (r *UserRepositoryImpl) ResetLockout(ctx context.Context, userID uuid.UUID) error {
	err := r.db.WithContext(ctx).Model(&DBUser{}).
		Where("id = ?", userID).
		Updates(map[string]any{"failed_login_attempts": 0, "lock_until": nil}).Error
	if err != nil {
		return fmt.Errorf("reset lockout: %w", err)
	}
	return nil
}

// RecordLogin implements domain.UserRepository.
func (r *UserRepositoryImpl) RecordLogin(ctx context.Context, userID uuid.UUID, at time.Time, origin string) error {
	err := r.db.WithContext(ctx).Model(&DBUser{}).
		Where("id = ?", userID).
		Updates(map[string]any{"last_login_at": at, "last_login_ip": origin}).Error
	if err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	return nil
}

// AppendAuditEntry implements domain.UserRepository. FIFO trim beyond
// maxEntries happens in the same transaction as the append.
func (r *UserRepositoryImpl) AppendAuditEntry(ctx context.Context, userID uuid.UUID, action domain.AuditAction, origin string, maxEntries int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := &DBAuditEntry{UserID: userID, Action: string(action), Origin: origin}
		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("append audit entry: %w", err)
		}

		var count int64
		if err := tx.Model(&DBAuditEntry{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
			return fmt.Errorf("count audit entries: %w", err)
		}
		if excess := count - int64(maxEntries); excess > 0 {
			oldest := tx.Model(&DBAuditEntry{}).
				Select("id").
				Where("user_id = ?", userID).
				Order("id ASC").
				Limit(int(excess))
			if err := tx.Where("id IN (?)", oldest).Delete(&DBAuditEntry{}).Error; err != nil {
				return fmt.Errorf("trim audit entries: %w", err)
			}
		}
		return nil
	})
}

// ListAuditEntries implements domain.UserRepository, most recent first.
func (r *UserRepositoryImpl) ListAuditEntries(ctx context.Context, userID uuid.UUID) ([]domain.AuditEntry, error) {
	var rows []DBAuditEntry
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}

	entries := make([]domain.AuditEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, domain.AuditEntry{
			ID:        row.ID,
			UserID:    row.UserID,
			Action:    domain.AuditAction(row.Action),
			Origin:    row.Origin,
			CreatedAt: row.CreatedAt,
		})
	}
	return entries, nil
}

// SoftDelete implements domain.UserRepository: mark deleted, deactivate, and
// purge the session set in one transaction.
func (r *UserRepositoryImpl) SoftDelete(ctx context.Context, userID, deletedBy uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&DBUser{}).
			Where("id = ?", userID).
			Updates(map[string]any{"is_active": false, "deleted_by": deletedBy})
		if res.Error != nil {
			return fmt.Errorf("deactivate user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrUserNotFound
		}

		if err := tx.Where("id = ?", userID).Delete(&DBUser{}).Error; err != nil {
			return fmt.Errorf("soft delete user: %w", err)
		}
		if err := tx.Where("user_id = ?", userID).Delete(&DBRefreshToken{}).Error; err != nil {
			return fmt.Errorf("purge refresh tokens: %w", err)
		}
		return nil
	})
}

// SetPasswordResetToken implements domain.UserRepository.
func (r *UserRepositoryImpl) SetPasswordResetToken(ctx context.Context, userID uuid.UUID, token string, expires time.Time) error {
	return r.UpdateFields(ctx, userID, map[string]any{
		"password_reset_token":   token,
		"password_reset_expires": expires,
	})
}

// FindByPasswordResetToken implements domain.UserRepository. Expiry is
// checked here so an expired token behaves exactly like an unknown one.
func (r *UserRepositoryImpl) FindByPasswordResetToken(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrUserNotFound
	}
	var dbUser DBUser
	err := r.db.WithContext(ctx).
		Where("password_reset_token = ? AND password_reset_expires > ?", token, time.Now()).
		First(&dbUser).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by reset token: %w", err)
	}
	return dbToDomain(&dbUser), nil
}

// SetEmailVerifyToken implements domain.UserRepository.
func (r *UserRepositoryImpl) SetEmailVerifyToken(ctx context.Context, userID uuid.UUID, token string, expires time.Time) error {
	return r.UpdateFields(ctx, userID, map[string]any{
		"email_verify_token":   token,
		"email_verify_expires": expires,
	})
}

// FindByEmailVerifyToken implements domain.UserRepository.
func (r *UserRepositoryImpl) FindByEmailVerifyToken(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrUserNotFound
	}
	var dbUser DBUser
	err := r.db.WithContext(ctx).
		Where("email_verify_token = ? AND email_verify_expires > ?", token, time.Now()).
		First(&dbUser).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by verify token: %w", err)
	}
	return dbToDomain(&dbUser), nil
}

func domainToDB(user *domain.User) *DBUser {
	return &DBUser{
		ID:                   user.ID,
		Email:                user.Email,
		FirstName:            user.FirstName,
		LastName:             user.LastName,
		Role:                 string(user.Role),
		PasswordHash:         user.PasswordHash,
		PasswordResetToken:   user.PasswordResetToken,
		PasswordResetExpires: user.PasswordResetExpires,
		EmailVerifyToken:     user.EmailVerifyToken,
		EmailVerifyExpires:   user.EmailVerifyExpires,
		FailedLoginAttempts:  user.FailedLoginAttempts,
		LockUntil:            user.LockUntil,
		IsActive:             user.IsActive,
		EmailVerified:        user.EmailVerified,
		DeletedBy:            user.DeletedBy,
		LastLoginAt:          user.LastLoginAt,
		LastLoginIP:          user.LastLoginIP,
	}
}

func dbToDomain(dbUser *DBUser) *domain.User {
	user := &domain.User{
		ID:                   dbUser.ID,
		Email:                dbUser.Email,
		FirstName:            dbUser.FirstName,
		LastName:             dbUser.LastName,
		Role:                 domain.Role(dbUser.Role),
		PasswordHash:         dbUser.PasswordHash,
		PasswordResetToken:   dbUser.PasswordResetToken,
		PasswordResetExpires: dbUser.PasswordResetExpires,
		EmailVerifyToken:     dbUser.EmailVerifyToken,
		EmailVerifyExpires:   dbUser.EmailVerifyExpires,
		FailedLoginAttempts:  dbUser.FailedLoginAttempts,
		LockUntil:            dbUser.LockUntil,
		IsActive:             dbUser.IsActive,
		EmailVerified:        dbUser.EmailVerified,
		DeletedBy:            dbUser.DeletedBy,
		LastLoginAt:          dbUser.LastLoginAt,
		LastLoginIP:          dbUser.LastLoginIP,
		CreatedAt:            dbUser.CreatedAt,
		UpdatedAt:            dbUser.UpdatedAt,
	}
	if dbUser.DeletedAt.Valid {
		deletedAt := dbUser.DeletedAt.Time
		user.DeletedAt = &deletedAt
	}
	return user
}
