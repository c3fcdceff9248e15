package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"visitor-system-backend/internal/apperr"
	"visitor-system-backend/internal/model"
)

// VisitorStore persists visitors.
type VisitorStore interface {
	CreateVisitor(ctx context.Context, v *model.Visitor) error
	VisitorExists(ctx context.Context, nik string) (bool, error)
	GetVisitor(ctx context.Context, nik string) (*model.Visitor, error)
	UpdateVisitor(ctx context.Context, nik string, upd VisitorUpdate) (*model.Visitor, error)
	// DeleteVisitor removes the visitor, its visits and task letters, and
	// returns every blob name that was referenced by the deleted rows.
	DeleteVisitor(ctx context.Context, nik string) ([]string, error)
	ListVisitors(ctx context.Context, search string, limit, offset int) ([]model.Visitor, int64, error)
}

// VisitStore persists visits and enforces the open-visit invariant.
type VisitStore interface {
	FindOpenVisit(ctx context.Context, nik string) (*model.Visit, error)
	// OpenVisit inserts v unless the visitor already has an open visit, in
	// which case the existing one is returned with created == false.
	OpenVisit(ctx context.Context, v *model.Visit) (open *model.Visit, created bool, err error)
	CloseOpenVisit(ctx context.Context, nik string, at time.Time) (*model.Visit, error)
	CloseVisit(ctx context.Context, id int64, at time.Time) (*model.Visit, error)
	GetVisit(ctx context.Context, id int64) (*model.Visit, error)
	DeleteVisit(ctx context.Context, id int64) ([]string, error)
	ListVisits(ctx context.Context, filter VisitFilter) ([]model.Visit, error)
	CountOpenVisits(ctx context.Context) (int64, error)
}

// TaskLetterStore persists task letter metadata.
type TaskLetterStore interface {
	CountTaskLetters(ctx context.Context, visitID int64) (int64, error)
	// AddTaskLetter inserts l if its visit exists and has fewer than max letters.
	AddTaskLetter(ctx context.Context, l *model.TaskLetter, max int) error
	GetTaskLetter(ctx context.Context, id int64) (*model.TaskLetter, error)
	ListTaskLetters(ctx context.Context, visitID int64) ([]model.TaskLetter, error)
	DeleteTaskLetter(ctx context.Context, id int64) (*model.TaskLetter, error)
}

// MasterDataStore persists rooms and companions.
type MasterDataStore interface {
	CreateRoom(ctx context.Context, r *model.Room) error
	GetRoom(ctx context.Context, id int64) (*model.Room, error)
	SaveRoom(ctx context.Context, r *model.Room) error
	ListRooms(ctx context.Context, activeOnly bool) ([]model.Room, error)
	CreateCompanion(ctx context.Context, c *model.Companion) error
	GetCompanion(ctx context.Context, id int64) (*model.Companion, error)
	SaveCompanion(ctx context.Context, c *model.Companion) error
	ListCompanions(ctx context.Context, activeOnly bool) ([]model.Companion, error)
}

// AdminStore persists admin accounts.
type AdminStore interface {
	CountAdmins(ctx context.Context) (int64, error)
	CreateAdmin(ctx context.Context, a *model.Admin) error
	GetAdminByUsername(ctx context.Context, username string) (*model.Admin, error)
}

// SubscriptionStore persists web push subscriptions.
type SubscriptionStore interface {
	UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	ListSubscriptions(ctx context.Context) ([]model.PushSubscription, error)
}

// Store defines the interface for all database operations.
type Store interface {
	VisitorStore
	VisitStore
	TaskLetterStore
	MasterDataStore
	AdminStore
	SubscriptionStore
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// DB exposes the handle for health checks and tests.
func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// translate maps GORM errors onto the apperr taxonomy.
func translate(err error, entity string, key any) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound(entity, key)
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %s %v", apperr.ErrAlreadyExists, entity, key)
	default:
		return fmt.Errorf("%s %v: %w", entity, key, err)
	}
}

// isUniqueViolation recognizes unique constraint failures. TranslateError
// covers current drivers; the message checks cover handles opened without it.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
