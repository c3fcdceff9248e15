// Package masterdata manages rooms and companions. Deactivation is a soft
// delete: visits keep their references, but inactive entries cannot be
// assigned to new visits.
package masterdata

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"visitor-system-backend/internal/apperr"
	"visitor-system-backend/internal/ctxutil"
	"visitor-system-backend/internal/logger"
	"visitor-system-backend/internal/model"
	"visitor-system-backend/internal/parse"
	"visitor-system-backend/internal/store"
)

const (
	maxNameLen   = 128
	maxDetailLen = 512
)

// RoomInput carries room fields from a create or update request.
// Nil fields are left unchanged on update.
type RoomInput struct {
	Name        *string
	Description *string
	IsActive    *bool
}

// CompanionInput carries companion fields from a create or update request.
type CompanionInput struct {
	Name     *string
	Position *string
	IsActive *bool
}

// Service implements room and companion management.
type Service struct {
	store    store.MasterDataStore
	log      *zap.Logger
	onChange func()
}

// NewService creates a master data service. onChange, if set, runs after
// every successful mutation (the API uses it to flush cached lists).
func NewService(s store.MasterDataStore, log *zap.Logger, onChange func()) *Service {
	return &Service{store: s, log: logger.OrNop(log).Named("masterdata"), onChange: onChange}
}

func (s *Service) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

func optionalText(field string, v *string, maxLen int) (*string, error) {
	if v == nil {
		return nil, nil
	}
	clean, err := parse.DisplayText(field, *v, false, maxLen)
	if err != nil {
		return nil, err
	}
	if clean == "" {
		return nil, nil
	}
	return &clean, nil
}

// ListRooms returns all rooms, or only active ones.
func (s *Service) ListRooms(ctx context.Context, activeOnly bool) ([]model.Room, error) {
	return s.store.ListRooms(ctx, activeOnly)
}

// CreateRoom adds a room. New rooms are active unless IsActive says otherwise.
func (s *Service) CreateRoom(ctx context.Context, in RoomInput) (*model.Room, error) {
	admin, err := ctxutil.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if in.Name == nil {
		return nil, apperr.NewValidationError("name", "is required")
	}
	name, err := parse.DisplayText("name", *in.Name, true, maxNameLen)
	if err != nil {
		return nil, err
	}
	desc, err := optionalText("description", in.Description, maxDetailLen)
	if err != nil {
		return nil, err
	}

	r := &model.Room{Name: name, Description: desc, IsActive: in.IsActive == nil || *in.IsActive}
	if err := s.store.CreateRoom(ctx, r); err != nil {
		return nil, err
	}
	s.log.Info("room created", zap.Int64("room_id", r.ID), zap.String("admin", admin.Username))
	s.changed()
	return r, nil
}

// UpdateRoom applies the non-nil fields of in. An empty description clears it.
func (s *Service) UpdateRoom(ctx context.Context, id int64, in RoomInput) (*model.Room, error) {
	admin, err := ctxutil.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	r, err := s.store.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		if r.Name, err = parse.DisplayText("name", *in.Name, true, maxNameLen); err != nil {
			return nil, err
		}
	}
	if in.Description != nil {
		if r.Description, err = optionalText("description", in.Description, maxDetailLen); err != nil {
			return nil, err
		}
	}
	if in.IsActive != nil {
		r.IsActive = *in.IsActive
	}
	if err := s.store.SaveRoom(ctx, r); err != nil {
		return nil, err
	}
	s.log.Info("room updated", zap.Int64("room_id", id), zap.Bool("is_active", r.IsActive), zap.String("admin", admin.Username))
	s.changed()
	return r, nil
}

// ToggleRoom flips the room's active flag.
func (s *Service) ToggleRoom(ctx context.Context, id int64) (*model.Room, error) {
	r, err := s.store.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	active := !r.IsActive
	return s.UpdateRoom(ctx, id, RoomInput{IsActive: &active})
}

// DeactivateRoom soft-deletes the room.
func (s *Service) DeactivateRoom(ctx context.Context, id int64) (*model.Room, error) {
	inactive := false
	return s.UpdateRoom(ctx, id, RoomInput{IsActive: &inactive})
}

// ListCompanions returns all companions, or only active ones.
func (s *Service) ListCompanions(ctx context.Context, activeOnly bool) ([]model.Companion, error) {
	return s.store.ListCompanions(ctx, activeOnly)
}

// CreateCompanion adds a companion, active by default.
func (s *Service) CreateCompanion(ctx context.Context, in CompanionInput) (*model.Companion, error) {
	admin, err := ctxutil.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if in.Name == nil {
		return nil, apperr.NewValidationError("name", "is required")
	}
	name, err := parse.DisplayText("name", *in.Name, true, maxNameLen)
	if err != nil {
		return nil, err
	}
	pos, err := optionalText("position", in.Position, maxNameLen)
	if err != nil {
		return nil, err
	}

	c := &model.Companion{Name: name, Position: pos, IsActive: in.IsActive == nil || *in.IsActive}
	if err := s.store.CreateCompanion(ctx, c); err != nil {
		return nil, err
	}
	s.log.Info("companion created", zap.Int64("companion_id", c.ID), zap.String("admin", admin.Username))
	s.changed()
	return c, nil
}

// UpdateCompanion applies the non-nil fields of in.
func (s *Service) UpdateCompanion(ctx context.Context, id int64, in CompanionInput) (*model.Companion, error) {
	admin, err := ctxutil.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.store.GetCompanion(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		if c.Name, err = parse.DisplayText("name", *in.Name, true, maxNameLen); err != nil {
			return nil, err
		}
	}
	if in.Position != nil {
		if c.Position, err = optionalText("position", in.Position, maxNameLen); err != nil {
			return nil, err
		}
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	if err := s.store.SaveCompanion(ctx, c); err != nil {
		return nil, err
	}
	s.log.Info("companion updated", zap.Int64("companion_id", id), zap.Bool("is_active", c.IsActive), zap.String("admin", admin.Username))
	s.changed()
	return c, nil
}

// ToggleCompanion flips the companion's active flag.
func (s *Service) ToggleCompanion(ctx context.Context, id int64) (*model.Companion, error) {
	c, err := s.store.GetCompanion(ctx, id)
	if err != nil {
		return nil, err
	}
	active := !c.IsActive
	return s.UpdateCompanion(ctx, id, CompanionInput{IsActive: &active})
}

// DeactivateCompanion soft-deletes the companion.
func (s *Service) DeactivateCompanion(ctx context.Context, id int64) (*model.Companion, error) {
	inactive := false
	return s.UpdateCompanion(ctx, id, CompanionInput{IsActive: &inactive})
}

// RequireActiveRoom fails unless the room exists and is active now. A nil id
// means no room was requested.
func (s *Service) RequireActiveRoom(ctx context.Context, id *int64) error {
	if id == nil {
		return nil
	}
	r, err := s.store.GetRoom(ctx, *id)
	if err != nil {
		return err
	}
	if !r.IsActive {
		return apperr.NewValidationError("room_id", fmt.Sprintf("room %d is not active", *id))
	}
	return nil
}

// RequireActiveCompanion fails unless the companion exists and is active now.
func (s *Service) RequireActiveCompanion(ctx context.Context, id *int64) error {
	if id == nil {
		return nil
	}
	c, err := s.store.GetCompanion(ctx, *id)
	if err != nil {
		return err
	}
	if !c.IsActive {
		return apperr.NewValidationError("companion_id", fmt.Sprintf("companion %d is not active", *id))
	}
	return nil
}
