// Package registry manages visitor identities and their documents.
package registry

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"visitor-system-backend/internal/apperr"
	"visitor-system-backend/internal/ctxutil"
	"visitor-system-backend/internal/document"
	"visitor-system-backend/internal/logger"
	"visitor-system-backend/internal/model"
	"visitor-system-backend/internal/parse"
	"visitor-system-backend/internal/store"
)

const (
	maxNameLen  = 256
	maxPhoneLen = 32
)

var phoneRe = regexp.MustCompile(`^\+?[0-9][0-9 \-]*$`)

// Repository is the persistence the registry needs.
type Repository interface {
	store.VisitorStore
	FindOpenVisit(ctx context.Context, nik string) (*model.Visit, error)
}

// Documents stores identity files.
type Documents interface {
	CheckIdentity(u document.Upload) error
	SaveIdentity(ctx context.Context, u document.Upload) (string, error)
	Discard(ctx context.Context, names ...string)
}

// RegisterRequest is the visitor registration form. Photo is required.
type RegisterRequest struct {
	NIK         string
	FullName    string
	Institution string
	Phone       string
	Photo       *document.Upload
	KTP         *document.Upload
	TaskLetter  *document.Upload
}

// UpdateRequest changes display fields and optionally replaces documents.
// Nil fields are left unchanged; an empty Phone clears it.
type UpdateRequest struct {
	FullName    *string
	Institution *string
	Phone       *string
	Photo       *document.Upload
	KTP         *document.Upload
	TaskLetter  *document.Upload
}

// Profile is the public view of a visitor.
type Profile struct {
	Visitor     *model.Visitor
	OpenVisit   *model.Visit
	IsCheckedIn bool
}

// Registry implements visitor registration and maintenance.
type Registry struct {
	repo Repository
	docs Documents
	log  *zap.Logger
}

// New creates a registry.
func New(repo Repository, docs Documents, log *zap.Logger) *Registry {
	return &Registry{repo: repo, docs: docs, log: logger.OrNop(log).Named("registry")}
}

func cleanPhone(raw string) (*string, error) {
	p, err := parse.DisplayText("phone", raw, false, maxPhoneLen)
	if err != nil {
		return nil, err
	}
	if p == "" {
		return nil, nil
	}
	if !phoneRe.MatchString(p) {
		return nil, apperr.NewValidationError("phone", "must contain digits only")
	}
	return &p, nil
}

// Register creates a visitor. The identifier is checked before any file is
// written, and stored files are removed again if the insert fails.
func (r *Registry) Register(ctx context.Context, req RegisterRequest) (*model.Visitor, error) {
	admin, err := ctxutil.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	nik, err := parse.NIK(req.NIK)
	if err != nil {
		return nil, err
	}
	fullName, err := parse.DisplayText("full_name", req.FullName, true, maxNameLen)
	if err != nil {
		return nil, err
	}
	institution, err := parse.DisplayText("institution", req.Institution, true, maxNameLen)
	if err != nil {
		return nil, err
	}
	phone, err := cleanPhone(req.Phone)
	if err != nil {
		return nil, err
	}
	if req.Photo == nil {
		return nil, apperr.NewValidationError("photo", "is required")
	}

	exists, err := r.repo.VisitorExists(ctx, nik)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: visitor %s is already registered", apperr.ErrAlreadyExists, nik)
	}

	uploads := []*document.Upload{req.Photo, req.KTP, req.TaskLetter}
	for _, u := range uploads {
		if u == nil {
			continue
		}
		if err := r.docs.CheckIdentity(*u); err != nil {
			return nil, err
		}
	}

	names, err := r.saveAll(ctx, uploads)
	if err != nil {
		return nil, err
	}

	v := &model.Visitor{
		NIK:            nik,
		FullName:       fullName,
		Institution:    institution,
		Phone:          phone,
		PhotoFile:      names[0],
		KTPFile:        names[1],
		TaskLetterFile: names[2],
	}
	if err := r.repo.CreateVisitor(ctx, v); err != nil {
		r.docs.Discard(ctx, v.Files()...)
		return nil, err
	}

	r.log.Info("visitor registered", zap.String("nik", nik), zap.String("admin", admin.Username))
	return v, nil
}

// saveAll stores the non-nil uploads. The result is index-aligned with
// uploads. On failure every file written so far is removed.
func (r *Registry) saveAll(ctx context.Context, uploads []*document.Upload) ([]*string, error) {
	names := make([]*string, len(uploads))
	for i, u := range uploads {
		if u == nil {
			continue
		}
		name, err := r.docs.SaveIdentity(ctx, *u)
		if err != nil {
			r.docs.Discard(ctx, derefAll(names)...)
			return nil, err
		}
		names[i] = &name
	}
	return names, nil
}

func derefAll(ptrs []*string) []string {
	var out []string
	for _, p := range ptrs {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out
}

// Get returns the visitor with its check-in state.
func (r *Registry) Get(ctx context.Context, rawNIK string) (*Profile, error) {
	nik, err := parse.NIK(rawNIK)
	if err != nil {
		return nil, err
	}
	v, err := r.repo.GetVisitor(ctx, nik)
	if err != nil {
		return nil, err
	}
	open, err := r.repo.FindOpenVisit(ctx, nik)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	return &Profile{Visitor: v, OpenVisit: open, IsCheckedIn: open != nil}, nil
}

// Update applies req. Replaced documents are removed after the row is saved.
func (r *Registry) Update(ctx context.Context, rawNIK string, req UpdateRequest) (*model.Visitor, error) {
	admin, err := ctxutil.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	nik, err := parse.NIK(rawNIK)
	if err != nil {
		return nil, err
	}

	var upd store.VisitorUpdate
	if req.FullName != nil {
		s, err := parse.DisplayText("full_name", *req.FullName, true, maxNameLen)
		if err != nil {
			return nil, err
		}
		upd.FullName = &s
	}
	if req.Institution != nil {
		s, err := parse.DisplayText("institution", *req.Institution, true, maxNameLen)
		if err != nil {
			return nil, err
		}
		upd.Institution = &s
	}
	if req.Phone != nil {
		p, err := cleanPhone(*req.Phone)
		if err != nil {
			return nil, err
		}
		empty := ""
		if p == nil {
			p = &empty
		}
		upd.Phone = p
	}

	current, err := r.repo.GetVisitor(ctx, nik)
	if err != nil {
		return nil, err
	}

	uploads := []*document.Upload{req.Photo, req.KTP, req.TaskLetter}
	for _, u := range uploads {
		if u == nil {
			continue
		}
		if err := r.docs.CheckIdentity(*u); err != nil {
			return nil, err
		}
	}
	names, err := r.saveAll(ctx, uploads)
	if err != nil {
		return nil, err
	}
	upd.PhotoFile, upd.KTPFile, upd.TaskLetterFile = names[0], names[1], names[2]

	if upd.IsEmpty() {
		return current, nil
	}
	updated, err := r.repo.UpdateVisitor(ctx, nik, upd)
	if err != nil {
		r.docs.Discard(ctx, derefAll(names)...)
		return nil, err
	}

	var replaced []string
	for i, old := range []*string{current.PhotoFile, current.KTPFile, current.TaskLetterFile} {
		if names[i] != nil && old != nil {
			replaced = append(replaced, *old)
		}
	}
	r.docs.Discard(ctx, replaced...)

	r.log.Info("visitor updated",
		zap.String("nik", nik),
		zap.Int("replaced_files", len(replaced)),
		zap.String("admin", admin.Username))
	return updated, nil
}

// Delete removes the visitor, its visits, task letters and every file they
// reference. File removal is best effort.
func (r *Registry) Delete(ctx context.Context, rawNIK string) error {
	admin, err := ctxutil.RequireAdmin(ctx)
	if err != nil {
		return err
	}
	nik, err := parse.NIK(rawNIK)
	if err != nil {
		return err
	}
	files, err := r.repo.DeleteVisitor(ctx, nik)
	if err != nil {
		return err
	}
	r.docs.Discard(ctx, files...)
	r.log.Info("visitor deleted",
		zap.String("nik", nik),
		zap.Int("files", len(files)),
		zap.String("admin", admin.Username))
	return nil
}

// List returns a page of visitors matching search, and the total count.
func (r *Registry) List(ctx context.Context, search string, limit, offset int) ([]model.Visitor, int64, error) {
	if _, err := ctxutil.RequireAdmin(ctx); err != nil {
		return nil, 0, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return r.repo.ListVisitors(ctx, search, limit, offset)
}
