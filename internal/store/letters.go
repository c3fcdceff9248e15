package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"visitor-system-backend/internal/apperr"
	"visitor-system-backend/internal/model"
)

func (s *gormStore) CountTaskLetters(ctx context.Context, visitID int64) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.TaskLetter{}).Where("visit_id = ?", visitID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count task letters for visit %d: %w", visitID, err)
	}
	return count, nil
}

// AddTaskLetter locks the visit row (PostgreSQL; SQLite serializes writers
// anyway) so concurrent attaches cannot both pass the count check.
func (s *gormStore) AddTaskLetter(ctx context.Context, l *model.TaskLetter, max int) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var v model.Visit
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&v, l.VisitID).Error; err != nil {
			return translate(err, "visit", l.VisitID)
		}

		var count int64
		if err := tx.Model(&model.TaskLetter{}).Where("visit_id = ?", l.VisitID).Count(&count).Error; err != nil {
			return err
		}
		if count >= int64(max) {
			return fmt.Errorf("%w: visit %d already has %d of %d task letters",
				apperr.ErrAttachmentLimitExceeded, l.VisitID, count, max)
		}
		return tx.Create(l).Error
	})
	if err != nil {
		return translate(err, "task letter", l.FileName)
	}
	return nil
}

func (s *gormStore) GetTaskLetter(ctx context.Context, id int64) (*model.TaskLetter, error) {
	var l model.TaskLetter
	if err := s.db.WithContext(ctx).First(&l, id).Error; err != nil {
		return nil, translate(err, "task letter", id)
	}
	return &l, nil
}

func (s *gormStore) ListTaskLetters(ctx context.Context, visitID int64) ([]model.TaskLetter, error) {
	var letters []model.TaskLetter
	err := s.db.WithContext(ctx).
		Where("visit_id = ?", visitID).
		Order("uploaded_at ASC, id ASC").
		Find(&letters).Error
	if err != nil {
		return nil, fmt.Errorf("list task letters for visit %d: %w", visitID, err)
	}
	return letters, nil
}

func (s *gormStore) DeleteTaskLetter(ctx context.Context, id int64) (*model.TaskLetter, error) {
	var l model.TaskLetter
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&l, id).Error; err != nil {
			return err
		}
		return tx.Delete(&l).Error
	})
	if err != nil {
		return nil, translate(err, "task letter", id)
	}
	return &l, nil
}
