package store

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"visitor-system-backend/internal/model"
)

func (s *gormStore) CreateVisitor(ctx context.Context, v *model.Visitor) error {
	return translate(s.db.WithContext(ctx).Create(v).Error, "visitor", v.NIK)
}

func (s *gormStore) VisitorExists(ctx context.Context, nik string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Visitor{}).Where("nik = ?", nik).Count(&count).Error; err != nil {
		return false, fmt.Errorf("count visitor %s: %w", nik, err)
	}
	return count > 0, nil
}

func (s *gormStore) GetVisitor(ctx context.Context, nik string) (*model.Visitor, error) {
	var v model.Visitor
	if err := s.db.WithContext(ctx).First(&v, "nik = ?", nik).Error; err != nil {
		return nil, translate(err, "visitor", nik)
	}
	return &v, nil
}

func (s *gormStore) UpdateVisitor(ctx context.Context, nik string, upd VisitorUpdate) (*model.Visitor, error) {
	updates := map[string]any{}
	if upd.FullName != nil {
		updates["full_name"] = *upd.FullName
	}
	if upd.Institution != nil {
		updates["institution"] = *upd.Institution
	}
	if upd.Phone != nil {
		if *upd.Phone == "" {
			updates["phone"] = nil
		} else {
			updates["phone"] = *upd.Phone
		}
	}
	if upd.PhotoFile != nil {
		updates["photo_file"] = *upd.PhotoFile
	}
	if upd.KTPFile != nil {
		updates["ktp_file"] = *upd.KTPFile
	}
	if upd.TaskLetterFile != nil {
		updates["task_letter_file"] = *upd.TaskLetterFile
	}

	var v model.Visitor
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&v, "nik = ?", nik).Error; err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&v).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&v, "nik = ?", nik).Error
	})
	if err != nil {
		return nil, translate(err, "visitor", nik)
	}
	return &v, nil
}

// DeleteVisitor deletes children before the parent: task letters, visits,
// then the visitor row.
func (s *gormStore) DeleteVisitor(ctx context.Context, nik string) ([]string, error) {
	var files []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var v model.Visitor
		if err := tx.First(&v, "nik = ?", nik).Error; err != nil {
			return err
		}

		var visitIDs []int64
		if err := tx.Model(&model.Visit{}).Where("visitor_nik = ?", nik).Pluck("id", &visitIDs).Error; err != nil {
			return err
		}

		var letterFiles []string
		if len(visitIDs) > 0 {
			if err := tx.Model(&model.TaskLetter{}).Where("visit_id IN ?", visitIDs).Pluck("file_name", &letterFiles).Error; err != nil {
				return err
			}
			if err := tx.Where("visit_id IN ?", visitIDs).Delete(&model.TaskLetter{}).Error; err != nil {
				return err
			}
			if err := tx.Where("visitor_nik = ?", nik).Delete(&model.Visit{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Delete(&v).Error; err != nil {
			return err
		}

		files = append(letterFiles, v.Files()...)
		return nil
	})
	if err != nil {
		return nil, translate(err, "visitor", nik)
	}
	return files, nil
}

func (s *gormStore) ListVisitors(ctx context.Context, search string, limit, offset int) ([]model.Visitor, int64, error) {
	base := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&model.Visitor{})
		if term := strings.TrimSpace(search); term != "" {
			like := "%" + strings.ToLower(term) + "%"
			q = q.Where("nik LIKE ? OR LOWER(full_name) LIKE ? OR LOWER(institution) LIKE ?", like, like, like)
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count visitors: %w", err)
	}

	var visitors []model.Visitor
	q := base().Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&visitors).Error; err != nil {
		return nil, 0, fmt.Errorf("list visitors: %w", err)
	}
	return visitors, total, nil
}
