package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"visitor-system-backend/internal/apperr"
	"visitor-system-backend/internal/model"
)

const openVisitCond = "visitor_nik = ? AND check_out_time IS NULL"

func (s *gormStore) FindOpenVisit(ctx context.Context, nik string) (*model.Visit, error) {
	var v model.Visit
	err := s.db.WithContext(ctx).
		Where(openVisitCond, nik).
		Order("check_in_time DESC").
		First(&v).Error
	if err != nil {
		return nil, translate(err, "open visit for visitor", nik)
	}
	return &v, nil
}

// OpenVisit runs the query-then-insert sequence in one transaction. The
// partial unique index on open visits decides concurrent races: the loser
// gets a unique violation and reports the winner's visit instead.
func (s *gormStore) OpenVisit(ctx context.Context, v *model.Visit) (*model.Visit, bool, error) {
	var existing model.Visit
	created := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where(openVisitCond, v.VisitorNIK).Order("check_in_time DESC").First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := tx.Create(v).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			open, ferr := s.FindOpenVisit(ctx, v.VisitorNIK)
			if ferr != nil {
				return nil, false, ferr
			}
			return open, false, nil
		}
		return nil, false, fmt.Errorf("open visit for visitor %s: %w", v.VisitorNIK, err)
	}
	if created {
		return v, true, nil
	}
	return &existing, false, nil
}

// CloseOpenVisit closes the visitor's open visit, whatever its visit date.
func (s *gormStore) CloseOpenVisit(ctx context.Context, nik string, at time.Time) (*model.Visit, error) {
	var v model.Visit
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(openVisitCond, nik).Order("check_in_time DESC").First(&v).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrNotCheckedIn
			}
			return err
		}
		return closeVisit(tx, &v, at, apperr.ErrNotCheckedIn)
	})
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidState) {
			return nil, fmt.Errorf("visitor %s: %w", nik, err)
		}
		return nil, fmt.Errorf("close visit for visitor %s: %w", nik, err)
	}
	return &v, nil
}

// CloseVisit closes a specific visit. Closed visits fail with ErrAlreadyClosed.
func (s *gormStore) CloseVisit(ctx context.Context, id int64, at time.Time) (*model.Visit, error) {
	var v model.Visit
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&v, id).Error; err != nil {
			return err
		}
		if !v.IsOpen() {
			return apperr.ErrAlreadyClosed
		}
		return closeVisit(tx, &v, at, apperr.ErrAlreadyClosed)
	})
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidState) {
			return nil, fmt.Errorf("visit %d: %w", id, err)
		}
		return nil, translate(err, "visit", id)
	}
	return &v, nil
}

// closeVisit sets the check-out only if the row is still open; losing a race
// against another close returns raced.
func closeVisit(tx *gorm.DB, v *model.Visit, at time.Time, raced error) error {
	at = at.UTC()
	res := tx.Model(&model.Visit{}).
		Where("id = ? AND check_out_time IS NULL", v.ID).
		Update("check_out_time", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return raced
	}
	v.CheckOutTime = &at
	return nil
}

func (s *gormStore) GetVisit(ctx context.Context, id int64) (*model.Visit, error) {
	var v model.Visit
	err := s.db.WithContext(ctx).
		Preload("Visitor").Preload("Room").Preload("Companion").
		Preload("TaskLetters", func(db *gorm.DB) *gorm.DB { return db.Order("uploaded_at ASC, id ASC") }).
		First(&v, id).Error
	if err != nil {
		return nil, translate(err, "visit", id)
	}
	return &v, nil
}

// DeleteVisit removes the visit and its task letters and returns the blob
// names of the deleted letters.
func (s *gormStore) DeleteVisit(ctx context.Context, id int64) ([]string, error) {
	var files []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var v model.Visit
		if err := tx.First(&v, id).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.TaskLetter{}).Where("visit_id = ?", id).Pluck("file_name", &files).Error; err != nil {
			return err
		}
		if err := tx.Where("visit_id = ?", id).Delete(&model.TaskLetter{}).Error; err != nil {
			return err
		}
		return tx.Delete(&v).Error
	})
	if err != nil {
		return nil, translate(err, "visit", id)
	}
	return files, nil
}

func (s *gormStore) ListVisits(ctx context.Context, filter VisitFilter) ([]model.Visit, error) {
	q := s.db.WithContext(ctx).Model(&model.Visit{})
	if filter.VisitorNIK != "" {
		q = q.Where("visitor_nik = ?", filter.VisitorNIK)
	}
	if !filter.From.IsZero() {
		q = q.Where("check_in_time >= ?", filter.From.UTC())
	}
	if !filter.To.IsZero() {
		q = q.Where("check_in_time < ?", filter.To.UTC())
	}
	if filter.OpenOnly {
		q = q.Where("check_out_time IS NULL")
	}
	if filter.WithDetails {
		q = q.Preload("Visitor").Preload("Room").Preload("Companion").
			Preload("TaskLetters", func(db *gorm.DB) *gorm.DB { return db.Order("uploaded_at ASC, id ASC") })
	} else {
		q = q.Preload("Visitor")
	}
	q = q.Order("check_in_time DESC").Order("id DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset(filter.Offset)
	}

	var visits []model.Visit
	if err := q.Find(&visits).Error; err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}
	return visits, nil
}

func (s *gormStore) CountOpenVisits(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Visit{}).Where("check_out_time IS NULL").Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count open visits: %w", err)
	}
	return count, nil
}
