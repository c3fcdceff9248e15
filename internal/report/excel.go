// Package report renders visit data as Excel workbooks and dashboard figures.
package report

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"visitor-system-backend/internal/attendance"
	"visitor-system-backend/internal/clock"
	"visitor-system-backend/internal/ctxutil"
	"visitor-system-backend/internal/logger"
	"visitor-system-backend/internal/model"
	"visitor-system-backend/internal/store"
)

// XLSXContentType is the media type of generated workbooks.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const stampLayout = "2006-01-02 15:04"

// VisitHeader is the header row of the visit report.
var VisitHeader = []string{
	"No", "NIK", "Nama Lengkap", "Instansi", "Tanggal", "Check-in", "Check-out",
	"Status", "Keperluan", "Ruangan", "Pendamping", "Surat Tugas",
}

var visitWidths = []float64{5, 18, 25, 30, 12, 18, 18, 18, 30, 20, 20, 12}

var (
	roomHeader      = []string{"No", "Nama Ruangan", "Deskripsi", "Status"}
	roomWidths      = []float64{5, 30, 40, 12}
	companionHeader = []string{"No", "Nama", "Jabatan", "Status"}
	companionWidths = []float64{5, 30, 30, 12}
)

// Repository is the data a report reads.
type Repository interface {
	ListVisits(ctx context.Context, filter store.VisitFilter) ([]model.Visit, error)
	CountOpenVisits(ctx context.Context) (int64, error)
	ListRooms(ctx context.Context, activeOnly bool) ([]model.Room, error)
	ListCompanions(ctx context.Context, activeOnly bool) ([]model.Companion, error)
}

// Export is a generated workbook ready to be sent.
type Export struct {
	Filename string
	Data     []byte
}

// Service builds reports.
type Service struct {
	repo Repository
	clk  clock.Clock
	zone clock.Zone
	log  *zap.Logger
}

// NewService creates a report service.
func NewService(repo Repository, clk clock.Clock, zone clock.Zone, log *zap.Logger) *Service {
	return &Service{repo: repo, clk: clk, zone: zone, log: logger.OrNop(log).Named("report")}
}

// ExportVisits renders the visits matching filter, newest first.
func (s *Service) ExportVisits(ctx context.Context, filter store.VisitFilter) (*Export, error) {
	admin, err := ctxutil.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	filter.WithDetails = true
	visits, err := s.repo.ListVisits(ctx, filter)
	if err != nil {
		return nil, err
	}

	rows := make([][]any, 0, len(visits))
	for i := range visits {
		rows = append(rows, s.visitRow(i+1, &visits[i]))
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := writeSheet(f, "Data Tamu", VisitHeader, visitWidths, rows); err != nil {
		return nil, err
	}
	data, err := finish(f)
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("Laporan_Tamu_%s.xlsx", s.zone.Format(s.clk.Now(), "2006-01-02"))
	s.log.Info("visit report exported",
		zap.String("file", name),
		zap.Int("rows", len(rows)),
		zap.String("admin", admin.Username))
	return &Export{Filename: name, Data: data}, nil
}

func (s *Service) visitRow(no int, v *model.Visit) []any {
	row := []any{no, v.VisitorNIK, "", "", v.VisitDate.Format(attendance.DateLayout),
		s.zone.Format(v.CheckInTime, stampLayout), "-", attendance.StatusOf(v), "-", "-", "-", len(v.TaskLetters)}
	if v.Visitor != nil {
		row[2] = v.Visitor.FullName
		row[3] = v.Visitor.Institution
	}
	if v.CheckOutTime != nil {
		row[6] = s.zone.Format(*v.CheckOutTime, stampLayout)
	}
	if v.VisitPurpose != nil && *v.VisitPurpose != "" {
		row[8] = *v.VisitPurpose
	}
	if v.Room != nil {
		row[9] = v.Room.Name
	}
	if v.Companion != nil {
		row[10] = v.Companion.Name
	}
	return row
}

// ExportMasterData renders all rooms and companions, one sheet each.
func (s *Service) ExportMasterData(ctx context.Context) (*Export, error) {
	admin, err := ctxutil.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	rooms, err := s.repo.ListRooms(ctx, false)
	if err != nil {
		return nil, err
	}
	companions, err := s.repo.ListCompanions(ctx, false)
	if err != nil {
		return nil, err
	}

	roomRows := make([][]any, 0, len(rooms))
	for i, r := range rooms {
		roomRows = append(roomRows, []any{i + 1, r.Name, deref(r.Description), activeLabel(r.IsActive)})
	}
	companionRows := make([][]any, 0, len(companions))
	for i, c := range companions {
		companionRows = append(companionRows, []any{i + 1, c.Name, deref(c.Position), activeLabel(c.IsActive)})
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := writeSheet(f, "Ruangan", roomHeader, roomWidths, roomRows); err != nil {
		return nil, err
	}
	if err := writeSheet(f, "Pendamping", companionHeader, companionWidths, companionRows); err != nil {
		return nil, err
	}
	data, err := finish(f)
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("Master_Data_%s.xlsx", s.zone.Format(s.clk.Now(), "2006-01-02"))
	s.log.Info("master data exported",
		zap.String("file", name),
		zap.Int("rooms", len(rooms)),
		zap.Int("companions", len(companions)),
		zap.String("admin", admin.Username))
	return &Export{Filename: name, Data: data}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func activeLabel(active bool) string {
	if active {
		return "Aktif"
	}
	return "Nonaktif"
}

// writeSheet adds a sheet with a styled, frozen header row.
func writeSheet(f *excelize.File, sheet string, header []string, widths []float64, rows [][]any) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}

	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"366092"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("set header style: %w", err)
	}

	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return fmt.Errorf("set width %s: %w", col, err)
		}
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// finish drops the default sheet and serializes the workbook.
func finish(f *excelize.File) ([]byte, error) {
	for _, name := range f.GetSheetList() {
		if strings.EqualFold(name, "Sheet1") {
			if err := f.DeleteSheet(name); err != nil {
				return nil, fmt.Errorf("delete default sheet: %w", err)
			}
		}
	}
	f.SetActiveSheet(0)

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
