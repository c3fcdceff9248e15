// Package attendance tracks visit check-ins and check-outs.
//
// A visitor has at most one open visit at any time, whatever its visit date:
// a visit left open past local midnight still blocks a new check-in. The
// store's partial unique index decides concurrent check-ins.
package attendance

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"visitor-system-backend/internal/apperr"
	"visitor-system-backend/internal/clock"
	"visitor-system-backend/internal/ctxutil"
	"visitor-system-backend/internal/document"
	"visitor-system-backend/internal/logger"
	"visitor-system-backend/internal/model"
	"visitor-system-backend/internal/notification"
	"visitor-system-backend/internal/parse"
	"visitor-system-backend/internal/store"
)

const maxPurposeLen = 1000

// Repository is the persistence the tracker needs.
type Repository interface {
	store.VisitStore
	GetVisitor(ctx context.Context, nik string) (*model.Visitor, error)
}

// Validator checks master data references at assignment time.
type Validator interface {
	RequireActiveRoom(ctx context.Context, id *int64) error
	RequireActiveCompanion(ctx context.Context, id *int64) error
}

// Documents attaches and removes task letter files.
type Documents interface {
	Precheck(uploads []document.Upload) error
	Attach(ctx context.Context, visitID int64, u document.Upload) (*model.TaskLetter, error)
	Discard(ctx context.Context, names ...string)
}

// Notifier receives attendance events. Notify must not block.
type Notifier interface {
	Notify(ev notification.Event)
}

// CheckInRequest holds the visitor's check-in form.
type CheckInRequest struct {
	NIK         string
	Purpose     string
	RoomID      *int64
	CompanionID *int64
	TaskLetters []document.Upload
}

// CheckInResult reports the open visit. AlreadyCheckedIn means no visit was
// created and the existing open visit is returned.
type CheckInResult struct {
	Visit            *model.Visit
	Visitor          *model.Visitor
	AlreadyCheckedIn bool
}

// Tracker implements the visit state machine.
type Tracker struct {
	repo     Repository
	valid    Validator
	docs     Documents
	notifier Notifier
	clock    clock.Clock
	zone     clock.Zone
	log      *zap.Logger
}

// NewTracker creates a tracker. notifier may be nil.
func NewTracker(repo Repository, valid Validator, docs Documents, notifier Notifier,
	clk clock.Clock, zone clock.Zone, log *zap.Logger) *Tracker {
	return &Tracker{
		repo:     repo,
		valid:    valid,
		docs:     docs,
		notifier: notifier,
		clock:    clk,
		zone:     zone,
		log:      logger.OrNop(log).Named("attendance"),
	}
}

// Zone returns the operational time zone.
func (t *Tracker) Zone() clock.Zone { return t.zone }

// CheckIn opens a visit for the visitor. If a visit is already open the call
// is informational: the existing visit is returned and nothing is written.
func (t *Tracker) CheckIn(ctx context.Context, req CheckInRequest) (*CheckInResult, error) {
	nik, err := parse.NIK(req.NIK)
	if err != nil {
		return nil, err
	}
	visitor, err := t.repo.GetVisitor(ctx, nik)
	if err != nil {
		return nil, err
	}

	open, err := t.repo.FindOpenVisit(ctx, nik)
	switch {
	case err == nil:
		return &CheckInResult{Visit: open, Visitor: visitor, AlreadyCheckedIn: true}, nil
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, err
	}

	purpose, err := parse.DisplayText("visit_purpose", req.Purpose, false, maxPurposeLen)
	if err != nil {
		return nil, err
	}
	if err := t.valid.RequireActiveRoom(ctx, req.RoomID); err != nil {
		return nil, err
	}
	if err := t.valid.RequireActiveCompanion(ctx, req.CompanionID); err != nil {
		return nil, err
	}
	if err := t.docs.Precheck(req.TaskLetters); err != nil {
		return nil, err
	}

	now := t.clock.Now()
	visit := &model.Visit{
		VisitorNIK:  nik,
		VisitDate:   t.zone.Date(now),
		CheckInTime: now,
		RoomID:      req.RoomID,
		CompanionID: req.CompanionID,
	}
	if purpose != "" {
		visit.VisitPurpose = &purpose
	}

	open, created, err := t.repo.OpenVisit(ctx, visit)
	if err != nil {
		return nil, err
	}
	if !created {
		// Lost a race against a concurrent check-in.
		return &CheckInResult{Visit: open, Visitor: visitor, AlreadyCheckedIn: true}, nil
	}

	if err := t.attachAll(ctx, open, req.TaskLetters); err != nil {
		return nil, err
	}

	t.log.Info("visitor checked in",
		zap.String("nik", nik),
		zap.Int64("visit_id", open.ID),
		zap.Time("visit_date", open.VisitDate),
		zap.Int("task_letters", len(open.TaskLetters)))
	t.notify(notification.EventCheckIn, visitor, now)
	return &CheckInResult{Visit: open, Visitor: visitor}, nil
}

// attachAll stores the check-in's task letters. On failure the new visit and
// the letters already written are removed again.
func (t *Tracker) attachAll(ctx context.Context, visit *model.Visit, uploads []document.Upload) error {
	for _, u := range uploads {
		letter, err := t.docs.Attach(ctx, visit.ID, u)
		if err != nil {
			files, derr := t.repo.DeleteVisit(ctx, visit.ID)
			if derr != nil {
				t.log.Error("failed to roll back visit", zap.Int64("visit_id", visit.ID), zap.Error(derr))
			}
			t.docs.Discard(ctx, files...)
			return err
		}
		visit.TaskLetters = append(visit.TaskLetters, *letter)
	}
	return nil
}

// CheckOut closes the visitor's open visit, regardless of its visit date.
func (t *Tracker) CheckOut(ctx context.Context, rawNIK string) (*model.Visit, error) {
	nik, err := parse.NIK(rawNIK)
	if err != nil {
		return nil, err
	}
	visitor, err := t.repo.GetVisitor(ctx, nik)
	if err != nil {
		return nil, err
	}

	now := t.clock.Now()
	visit, err := t.repo.CloseOpenVisit(ctx, nik, now)
	if err != nil {
		return nil, err
	}

	t.log.Info("visitor checked out", zap.String("nik", nik), zap.Int64("visit_id", visit.ID))
	t.notify(notification.EventCheckOut, visitor, now)
	return visit, nil
}

// ForceCheckOut closes a visit on an admin's behalf. Closed visits fail with
// apperr.ErrAlreadyClosed.
func (t *Tracker) ForceCheckOut(ctx context.Context, visitID int64) (*model.Visit, error) {
	admin, err := ctxutil.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	visit, err := t.repo.CloseVisit(ctx, visitID, t.clock.Now())
	if err != nil {
		return nil, err
	}
	t.log.Info("visit force closed",
		zap.Int64("visit_id", visitID),
		zap.String("nik", visit.VisitorNIK),
		zap.String("admin", admin.Username))
	return visit, nil
}

// DeleteVisit removes a visit with its task letters and their files.
func (t *Tracker) DeleteVisit(ctx context.Context, visitID int64) error {
	admin, err := ctxutil.RequireAdmin(ctx)
	if err != nil {
		return err
	}
	files, err := t.repo.DeleteVisit(ctx, visitID)
	if err != nil {
		return err
	}
	t.docs.Discard(ctx, files...)
	t.log.Info("visit deleted",
		zap.Int64("visit_id", visitID),
		zap.Int("files", len(files)),
		zap.String("admin", admin.Username))
	return nil
}

// OpenVisit returns the visitor's open visit, or nil if none is open.
func (t *Tracker) OpenVisit(ctx context.Context, nik string) (*model.Visit, error) {
	v, err := t.repo.FindOpenVisit(ctx, nik)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	return v, err
}

// GetVisit returns a visit with its visitor, room, companion and letters.
func (t *Tracker) GetVisit(ctx context.Context, visitID int64) (*model.Visit, error) {
	return t.repo.GetVisit(ctx, visitID)
}

func (t *Tracker) notify(kind notification.EventKind, v *model.Visitor, at time.Time) {
	if t.notifier == nil {
		return
	}
	t.notifier.Notify(notification.Event{
		Kind:        kind,
		NIK:         v.NIK,
		VisitorName: v.FullName,
		Institution: v.Institution,
		At:          t.zone.Local(at),
	})
}
