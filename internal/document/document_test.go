package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visitor-system-backend/internal/apperr"
	"visitor-system-backend/internal/blob"
	"visitor-system-backend/internal/clock"
	"visitor-system-backend/internal/ctxutil"
	"visitor-system-backend/internal/model"
	"visitor-system-backend/internal/store"
	"visitor-system-backend/internal/store/storetest"
)

var (
	pdfBytes  = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n%%EOF\n")
	jpegBytes = append([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}, make([]byte, 32)...)
	pngBytes  = append([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D, 'I', 'H', 'D', 'R'}, make([]byte, 32)...)
)

func TestValidate(t *testing.T) {
	testCases := []struct {
		name        string
		kind        Kind
		upload      Upload
		expectedExt string
		wantErr     bool
	}{
		{"pdf task letter", TaskLetter, Upload{Filename: "surat.pdf", ContentType: "application/pdf", Data: pdfBytes}, ".pdf", false},
		{"uppercase extension", TaskLetter, Upload{Filename: "SURAT.PDF", Data: pdfBytes}, ".pdf", false},
		{"octet-stream declared", TaskLetter, Upload{Filename: "surat.pdf", ContentType: "application/octet-stream", Data: pdfBytes}, ".pdf", false},
		{"jpeg bytes named pdf", TaskLetter, Upload{Filename: "surat.pdf", ContentType: "application/pdf", Data: jpegBytes}, "", true},
		{"image as task letter", TaskLetter, Upload{Filename: "foto.jpg", Data: jpegBytes}, "", true},
		{"wrong declared type", TaskLetter, Upload{Filename: "surat.pdf", ContentType: "image/png", Data: pdfBytes}, "", true},
		{"empty file", TaskLetter, Upload{Filename: "surat.pdf"}, "", true},
		{"jpeg identity", Identity, Upload{Filename: "foto.jpeg", ContentType: "image/jpeg", Data: jpegBytes}, ".jpg", false},
		{"png identity", Identity, Upload{Filename: "ktp.png", Data: pngBytes}, ".png", false},
		{"pdf identity", Identity, Upload{Filename: "ktp.pdf", Data: pdfBytes}, ".pdf", false},
		{"png bytes named jpg", Identity, Upload{Filename: "foto.jpg", Data: pngBytes}, "", true},
		{"executable", Identity, Upload{Filename: "foto.exe", Data: jpegBytes}, "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ext, err := Validate(tc.kind, tc.upload, 1024)
			if tc.wantErr {
				assert.ErrorIs(t, err, apperr.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedExt, ext)
		})
	}
}

func TestValidate_Oversized(t *testing.T) {
	data := append(append([]byte{}, pdfBytes...), make([]byte, 2048)...)
	_, err := Validate(TaskLetter, Upload{Filename: "big.pdf", Data: data}, 1024)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

type fixture struct {
	store   store.Store
	blobs   *blob.LocalStore
	manager *Manager
	visit   *model.Visit
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := storetest.NewStore(t)
	blobs, err := blob.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	storetest.SeedVisitor(t, s, "3171000001", "Ani", "BKN")
	now := time.Date(2026, 10, 19, 2, 0, 0, 0, time.UTC)
	visit, _, err := s.OpenVisit(context.Background(), &model.Visit{
		VisitorNIK:  "3171000001",
		VisitDate:   clock.NewZone("WIB", 7).Date(now),
		CheckInTime: now,
	})
	require.NoError(t, err)

	m := NewManager(s, blobs, &clock.Fixed{At: now}, Config{MaxFileSize: 1 << 20, MaxPerVisit: 5}, nil)
	return &fixture{store: s, blobs: blobs, manager: m, visit: visit}
}

func letter(i int) Upload {
	return Upload{Filename: fmt.Sprintf("surat-%d.pdf", i), ContentType: "application/pdf", Data: pdfBytes}
}

func TestManager_AttachLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		l, err := f.manager.Attach(ctx, f.visit.ID, letter(i))
		require.NoError(t, err, "attach %d", i)
		assert.Regexp(t, `^[0-9a-f-]{36}\.pdf$`, l.FileName)
		assert.Equal(t, fmt.Sprintf("surat-%d.pdf", i), l.OriginalFilename)

		ok, err := f.blobs.Exists(ctx, l.FileName)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	_, err := f.manager.Attach(ctx, f.visit.ID, letter(6))
	assert.ErrorIs(t, err, apperr.ErrAttachmentLimitExceeded)

	letters, err := f.manager.List(ctx, f.visit.ID)
	require.NoError(t, err)
	assert.Len(t, letters, 5)
}

func TestManager_AttachRejectsSpoofedPDF(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.manager.Attach(ctx, f.visit.ID, Upload{Filename: "surat.pdf", ContentType: "application/pdf", Data: jpegBytes})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	count, err := f.store.CountTaskLetters(ctx, f.visit.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestManager_AttachUnknownVisit(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.Attach(context.Background(), 9999, letter(1))
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

// flakyBlobs fails every Put after the first ok ones.
type flakyBlobs struct {
	*blob.LocalStore
	ok int
}

func (b *flakyBlobs) Put(ctx context.Context, name string, r io.Reader) (int64, error) {
	if b.ok == 0 {
		return 0, apperr.Storage("write "+name, io.ErrShortWrite)
	}
	b.ok--
	return b.LocalStore.Put(ctx, name, r)
}

func TestManager_AttachBatch(t *testing.T) {
	testCases := []struct {
		name     string
		existing int
		batch    []Upload
		wantErr  error
	}{
		{name: "whole batch stored", existing: 1, batch: []Upload{letter(1), letter(2)}},
		{name: "spoofed letter rejects the batch", batch: []Upload{letter(1), {Filename: "palsu.pdf", Data: jpegBytes}}, wantErr: apperr.ErrValidation},
		{name: "batch over the cap", existing: 3, batch: []Upload{letter(1), letter(2), letter(3)}, wantErr: apperr.ErrAttachmentLimitExceeded},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			for i := 0; i < tc.existing; i++ {
				_, err := f.manager.Attach(ctx, f.visit.ID, letter(i))
				require.NoError(t, err)
			}

			attached, err := f.manager.AttachBatch(ctx, f.visit.ID, tc.batch)
			count, cerr := f.store.CountTaskLetters(ctx, f.visit.ID)
			require.NoError(t, cerr)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Equal(t, int64(tc.existing), count)
				return
			}
			require.NoError(t, err)
			assert.Len(t, attached, len(tc.batch))
			assert.Equal(t, int64(tc.existing+len(tc.batch)), count)
		})
	}
}

func TestManager_AttachBatchRollsBack(t *testing.T) {
	s := storetest.NewStore(t)
	dir := t.TempDir()
	local, err := blob.NewLocalStore(dir)
	require.NoError(t, err)

	storetest.SeedVisitor(t, s, "3171000001", "Ani", "BKN")
	now := time.Date(2026, 10, 19, 2, 0, 0, 0, time.UTC)
	visit, _, err := s.OpenVisit(context.Background(), &model.Visit{
		VisitorNIK:  "3171000001",
		VisitDate:   clock.NewZone("WIB", 7).Date(now),
		CheckInTime: now,
	})
	require.NoError(t, err)

	m := NewManager(s, &flakyBlobs{LocalStore: local, ok: 2}, &clock.Fixed{At: now}, Config{MaxFileSize: 1 << 20, MaxPerVisit: 5}, nil)
	_, err = m.AttachBatch(context.Background(), visit.ID, []Upload{letter(1), letter(2), letter(3)})
	assert.ErrorIs(t, err, apperr.ErrStorage)

	count, err := s.CountTaskLetters(context.Background(), visit.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "stored files are removed with their rows")
}

func TestManager_Precheck(t *testing.T) {
	f := newFixture(t)

	assert.NoError(t, f.manager.Precheck([]Upload{letter(1), letter(2)}))

	six := make([]Upload, 6)
	for i := range six {
		six[i] = letter(i)
	}
	assert.ErrorIs(t, f.manager.Precheck(six), apperr.ErrAttachmentLimitExceeded)
	assert.ErrorIs(t, f.manager.Precheck([]Upload{letter(1), {Filename: "x.pdf", Data: pngBytes}}), apperr.ErrValidation)
}

func TestManager_Detach(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	l, err := f.manager.Attach(ctx, f.visit.ID, letter(1))
	require.NoError(t, err)

	assert.ErrorIs(t, f.manager.Detach(ctx, l.ID), apperr.ErrUnauthorized)

	adminCtx := ctxutil.WithPrincipal(ctx, ctxutil.Principal{AdminID: 1, Username: "admin"})
	require.NoError(t, f.manager.Detach(adminCtx, l.ID))

	ok, err := f.blobs.Exists(ctx, l.FileName)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, f.manager.Detach(adminCtx, l.ID), apperr.ErrNotFound)
}

func TestManager_DetachMissingFileIsNotAnError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	l, err := f.manager.Attach(ctx, f.visit.ID, letter(1))
	require.NoError(t, err)
	require.NoError(t, f.blobs.Remove(ctx, l.FileName))

	adminCtx := ctxutil.WithPrincipal(ctx, ctxutil.Principal{AdminID: 1, Username: "admin"})
	assert.NoError(t, f.manager.Detach(adminCtx, l.ID))
}

func TestManager_ArchiveSkipsMissingFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var names []string
	for i := 0; i < 3; i++ {
		l, err := f.manager.Attach(ctx, f.visit.ID, Upload{Filename: "surat.pdf", Data: pdfBytes})
		require.NoError(t, err)
		names = append(names, l.FileName)
	}
	require.NoError(t, f.blobs.Remove(ctx, names[1]))

	var buf bytes.Buffer
	n, err := f.manager.Archive(ctx, f.visit.ID, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, "surat.pdf", zr.File[0].Name)
	assert.Equal(t, "surat (2).pdf", zr.File[1].Name)

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, pdfBytes, content)
}

func TestManager_ArchiveEmpty(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.Archive(context.Background(), f.visit.ID, io.Discard)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestManager_SaveIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	name, err := f.manager.SaveIdentity(ctx, Upload{Field: "photo", Filename: "foto.png", Data: pngBytes})
	require.NoError(t, err)
	assert.Regexp(t, `\.png$`, name)

	_, err = f.manager.SaveIdentity(ctx, Upload{Field: "photo", Filename: "foto.png", Data: []byte("hello")})
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "photo", verr.Field)
}
