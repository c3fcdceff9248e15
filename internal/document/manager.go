package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"

	"visitor-system-backend/internal/apperr"
	"visitor-system-backend/internal/blob"
	"visitor-system-backend/internal/clock"
	"visitor-system-backend/internal/ctxutil"
	"visitor-system-backend/internal/logger"
	"visitor-system-backend/internal/model"
	"visitor-system-backend/internal/parse"
	"visitor-system-backend/internal/store"
)

// Repository is the persistence the manager needs.
type Repository interface {
	store.TaskLetterStore
	GetVisit(ctx context.Context, id int64) (*model.Visit, error)
}

// Config bounds uploads.
type Config struct {
	MaxFileSize int64
	MaxPerVisit int
}

// Manager binds task letters to visits and stores identity documents.
type Manager struct {
	repo  Repository
	blobs blob.Store
	clock clock.Clock
	cfg   Config
	log   *zap.Logger
}

// NewManager creates a document manager.
func NewManager(repo Repository, blobs blob.Store, clk clock.Clock, cfg Config, log *zap.Logger) *Manager {
	return &Manager{
		repo:  repo,
		blobs: blobs,
		clock: clk,
		cfg:   cfg,
		log:   logger.OrNop(log).Named("document"),
	}
}

// MaxPerVisit returns the task letter cap.
func (m *Manager) MaxPerVisit() int { return m.cfg.MaxPerVisit }

// Precheck validates a batch of task letters before anything is written, so
// a check-in carrying letters fails as a whole.
func (m *Manager) Precheck(uploads []Upload) error {
	if len(uploads) > m.cfg.MaxPerVisit {
		return fmt.Errorf("%w: %d task letters given, at most %d allowed",
			apperr.ErrAttachmentLimitExceeded, len(uploads), m.cfg.MaxPerVisit)
	}
	for _, u := range uploads {
		if _, err := Validate(TaskLetter, u, m.cfg.MaxFileSize); err != nil {
			return err
		}
	}
	return nil
}

// Attach stores u as a task letter of the visit. The row and the blob are
// written as a unit: if the insert fails the blob is removed again.
func (m *Manager) Attach(ctx context.Context, visitID int64, u Upload) (*model.TaskLetter, error) {
	if _, err := m.repo.GetVisit(ctx, visitID); err != nil {
		return nil, err
	}
	count, err := m.repo.CountTaskLetters(ctx, visitID)
	if err != nil {
		return nil, err
	}
	if count >= int64(m.cfg.MaxPerVisit) {
		return nil, fmt.Errorf("%w: visit %d already has %d task letters",
			apperr.ErrAttachmentLimitExceeded, visitID, count)
	}

	ext, err := Validate(TaskLetter, u, m.cfg.MaxFileSize)
	if err != nil {
		return nil, err
	}

	name := uuid.NewString() + ext
	size, err := m.blobs.Put(ctx, name, bytes.NewReader(u.Data))
	if err != nil {
		return nil, err
	}

	letter := &model.TaskLetter{
		VisitID:          visitID,
		FileName:         name,
		OriginalFilename: parse.OriginalFilename(u.Filename),
		FileSize:         size,
		UploadedAt:       m.clock.Now(),
	}
	if err := m.repo.AddTaskLetter(ctx, letter, m.cfg.MaxPerVisit); err != nil {
		m.Discard(ctx, name)
		return nil, err
	}

	m.log.Info("task letter attached",
		zap.Int64("visit_id", visitID),
		zap.Int64("letter_id", letter.ID),
		zap.String("file", name),
		zap.Int64("size", size))
	return letter, nil
}

// AttachBatch attaches uploads to the visit as a unit. The batch is validated
// and counted against the cap before anything is written, and letters already
// stored are removed again if a later one fails.
func (m *Manager) AttachBatch(ctx context.Context, visitID int64, uploads []Upload) ([]model.TaskLetter, error) {
	if _, err := m.repo.GetVisit(ctx, visitID); err != nil {
		return nil, err
	}
	count, err := m.repo.CountTaskLetters(ctx, visitID)
	if err != nil {
		return nil, err
	}
	if count+int64(len(uploads)) > int64(m.cfg.MaxPerVisit) {
		return nil, fmt.Errorf("%w: visit %d has %d task letters, %d more would exceed %d",
			apperr.ErrAttachmentLimitExceeded, visitID, count, len(uploads), m.cfg.MaxPerVisit)
	}
	if err := m.Precheck(uploads); err != nil {
		return nil, err
	}

	attached := make([]model.TaskLetter, 0, len(uploads))
	for _, u := range uploads {
		letter, err := m.Attach(ctx, visitID, u)
		if err != nil {
			m.rollback(ctx, attached)
			return nil, err
		}
		attached = append(attached, *letter)
	}
	return attached, nil
}

func (m *Manager) rollback(ctx context.Context, letters []model.TaskLetter) {
	for _, l := range letters {
		if _, err := m.repo.DeleteTaskLetter(ctx, l.ID); err != nil {
			m.log.Error("failed to roll back task letter",
				zap.Int64("visit_id", l.VisitID),
				zap.Int64("letter_id", l.ID),
				zap.Error(err))
			continue
		}
		m.Discard(ctx, l.FileName)
	}
}

// List returns the visit's task letters in upload order.
func (m *Manager) List(ctx context.Context, visitID int64) ([]model.TaskLetter, error) {
	if _, err := m.repo.GetVisit(ctx, visitID); err != nil {
		return nil, err
	}
	return m.repo.ListTaskLetters(ctx, visitID)
}

// Open returns a task letter and a reader for its content.
func (m *Manager) Open(ctx context.Context, letterID int64) (*model.TaskLetter, io.ReadCloser, error) {
	letter, err := m.repo.GetTaskLetter(ctx, letterID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := m.blobs.Open(ctx, letter.FileName)
	if err != nil {
		return nil, nil, err
	}
	return letter, rc, nil
}

// Detach deletes a task letter. Removing the backing file is best effort.
func (m *Manager) Detach(ctx context.Context, letterID int64) error {
	admin, err := ctxutil.RequireAdmin(ctx)
	if err != nil {
		return err
	}
	letter, err := m.repo.DeleteTaskLetter(ctx, letterID)
	if err != nil {
		return err
	}
	m.Discard(ctx, letter.FileName)
	m.log.Info("task letter detached",
		zap.Int64("visit_id", letter.VisitID),
		zap.Int64("letter_id", letterID),
		zap.String("admin", admin.Username))
	return nil
}

// Archive writes every task letter of the visit into a zip on w and returns
// the number of entries. Letters whose file is missing are skipped.
func (m *Manager) Archive(ctx context.Context, visitID int64, w io.Writer) (int, error) {
	letters, err := m.List(ctx, visitID)
	if err != nil {
		return 0, err
	}
	if len(letters) == 0 {
		return 0, apperr.NotFound("task letters for visit", visitID)
	}

	zw := zip.NewWriter(w)
	names := make(map[string]int, len(letters))
	written := 0
	for _, l := range letters {
		rc, err := m.blobs.Open(ctx, l.FileName)
		if errors.Is(err, apperr.ErrNotFound) {
			m.log.Warn("task letter file missing, skipped from archive",
				zap.Int64("visit_id", visitID),
				zap.Int64("letter_id", l.ID),
				zap.String("file", l.FileName))
			continue
		}
		if err != nil {
			return written, err
		}

		hdr := &zip.FileHeader{
			Name:     entryName(names, l.OriginalFilename),
			Method:   zip.Deflate,
			Modified: l.UploadedAt,
		}
		fw, err := zw.CreateHeader(hdr)
		if err == nil {
			_, err = io.Copy(fw, rc)
		}
		rc.Close()
		if err != nil {
			return written, apperr.Storage("archive "+l.FileName, err)
		}
		written++
	}
	if err := zw.Close(); err != nil {
		return written, apperr.Storage("finish archive", err)
	}
	return written, nil
}

// entryName keeps zip entry names unique: "a.pdf", "a (2).pdf", ...
func entryName(seen map[string]int, original string) string {
	name := parse.OriginalFilename(original)
	seen[name]++
	n := seen[name]
	if n == 1 {
		return name
	}
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s (%d)%s", strings.TrimSuffix(name, ext), n, ext)
}

// CheckIdentity validates an identity document without storing it.
func (m *Manager) CheckIdentity(u Upload) error {
	_, err := Validate(Identity, u, m.cfg.MaxFileSize)
	return err
}

// SaveIdentity validates and stores an identity document, returning its
// blob name.
func (m *Manager) SaveIdentity(ctx context.Context, u Upload) (string, error) {
	ext, err := Validate(Identity, u, m.cfg.MaxFileSize)
	if err != nil {
		return "", err
	}
	name := uuid.NewString() + ext
	if _, err := m.blobs.Put(ctx, name, bytes.NewReader(u.Data)); err != nil {
		return "", err
	}
	return name, nil
}

// Discard removes blobs, logging failures instead of returning them.
func (m *Manager) Discard(ctx context.Context, names ...string) {
	for _, name := range names {
		if name == "" {
			continue
		}
		if err := m.blobs.Remove(ctx, name); err != nil {
			m.log.Warn("failed to remove file", zap.String("file", name), zap.Error(err))
		}
	}
}
