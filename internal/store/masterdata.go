package store

import (
	"context"
	"fmt"

	"visitor-system-backend/internal/model"
)

func (s *gormStore) CreateRoom(ctx context.Context, r *model.Room) error {
	return translate(s.db.WithContext(ctx).Create(r).Error, "room", r.Name)
}

func (s *gormStore) GetRoom(ctx context.Context, id int64) (*model.Room, error) {
	var r model.Room
	if err := s.db.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, translate(err, "room", id)
	}
	return &r, nil
}

func (s *gormStore) SaveRoom(ctx context.Context, r *model.Room) error {
	return translate(s.db.WithContext(ctx).Save(r).Error, "room", r.ID)
}

func (s *gormStore) ListRooms(ctx context.Context, activeOnly bool) ([]model.Room, error) {
	var rooms []model.Room
	q := s.db.WithContext(ctx).Order("name ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

func (s *gormStore) CreateCompanion(ctx context.Context, c *model.Companion) error {
	return translate(s.db.WithContext(ctx).Create(c).Error, "companion", c.Name)
}

func (s *gormStore) GetCompanion(ctx context.Context, id int64) (*model.Companion, error) {
	var c model.Companion
	if err := s.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, translate(err, "companion", id)
	}
	return &c, nil
}

func (s *gormStore) SaveCompanion(ctx context.Context, c *model.Companion) error {
	return translate(s.db.WithContext(ctx).Save(c).Error, "companion", c.ID)
}

func (s *gormStore) ListCompanions(ctx context.Context, activeOnly bool) ([]model.Companion, error) {
	var companions []model.Companion
	q := s.db.WithContext(ctx).Order("name ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Find(&companions).Error; err != nil {
		return nil, fmt.Errorf("list companions: %w", err)
	}
	return companions, nil
}
