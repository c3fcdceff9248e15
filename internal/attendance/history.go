package attendance

import (
	"context"
	"time"

	"visitor-system-backend/internal/ctxutil"
	"visitor-system-backend/internal/model"
	"visitor-system-backend/internal/parse"
	"visitor-system-backend/internal/store"
)

// Visit status labels shown to visitors and admins.
const (
	StatusDone     = "Selesai"
	StatusVisiting = "Sedang Berkunjung"
)

const (
	DateLayout = "02/01/2006"
	TimeLayout = "15:04:05"
)

// StatusOf labels a visit as finished or ongoing.
func StatusOf(v *model.Visit) string {
	if v.IsOpen() {
		return StatusVisiting
	}
	return StatusDone
}

// HistoryEntry is one visit rendered in local time.
type HistoryEntry struct {
	VisitID         int64   `json:"visit_id"`
	Date            string  `json:"date"`
	CheckIn         string  `json:"check_in"`
	CheckOut        *string `json:"check_out"`
	Status          string  `json:"status"`
	VisitPurpose    *string `json:"visit_purpose"`
	Room            *string `json:"room"`
	Companion       *string `json:"companion"`
	TaskLetterCount int     `json:"task_letter_count"`
}

// History lists the visitor's visits, newest first.
func (t *Tracker) History(ctx context.Context, rawNIK string) ([]HistoryEntry, error) {
	nik, err := parse.NIK(rawNIK)
	if err != nil {
		return nil, err
	}
	if _, err := t.repo.GetVisitor(ctx, nik); err != nil {
		return nil, err
	}
	visits, err := t.repo.ListVisits(ctx, store.VisitFilter{VisitorNIK: nik, WithDetails: true})
	if err != nil {
		return nil, err
	}

	history := make([]HistoryEntry, 0, len(visits))
	for i := range visits {
		v := &visits[i]
		entry := HistoryEntry{
			VisitID:         v.ID,
			Date:            v.VisitDate.Format(DateLayout),
			CheckIn:         t.zone.Format(v.CheckInTime, TimeLayout),
			Status:          StatusOf(v),
			VisitPurpose:    v.VisitPurpose,
			TaskLetterCount: len(v.TaskLetters),
		}
		if v.CheckOutTime != nil {
			out := t.zone.Format(*v.CheckOutTime, TimeLayout)
			entry.CheckOut = &out
		}
		if v.Room != nil {
			entry.Room = &v.Room.Name
		}
		if v.Companion != nil {
			entry.Companion = &v.Companion.Name
		}
		history = append(history, entry)
	}
	return history, nil
}

// LogQuery narrows the admin visit log. From and To are local calendar
// dates; To is inclusive.
type LogQuery struct {
	NIK    string
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

// LogEntry is a visit row of the admin log with times in local time.
type LogEntry struct {
	ID           int64              `json:"id"`
	NIK          string             `json:"nik"`
	FullName     string             `json:"full_name"`
	Institution  string             `json:"institution"`
	VisitDate    string             `json:"visit_date"`
	CheckInTime  time.Time          `json:"check_in_time"`
	CheckOutTime *time.Time         `json:"check_out_time"`
	Status       string             `json:"status"`
	VisitPurpose *string            `json:"visit_purpose"`
	Room         *model.Room        `json:"room"`
	Companion    *model.Companion   `json:"companion"`
	PhotoFile    *string            `json:"photo_file"`
	TaskLetters  []model.TaskLetter `json:"task_letters"`
}

// Filter converts q to a store filter over absolute instants.
func (t *Tracker) Filter(q LogQuery) store.VisitFilter {
	f := store.VisitFilter{VisitorNIK: q.NIK, Limit: q.Limit, Offset: q.Offset, WithDetails: true}
	if !q.From.IsZero() {
		f.From = t.zone.StartOfDay(q.From)
	}
	if !q.To.IsZero() {
		f.To = t.zone.StartOfDay(q.To).AddDate(0, 0, 1)
	}
	return f
}

// Logs returns the admin visit log, newest check-in first.
func (t *Tracker) Logs(ctx context.Context, q LogQuery) ([]LogEntry, error) {
	if _, err := ctxutil.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	visits, err := t.repo.ListVisits(ctx, t.Filter(q))
	if err != nil {
		return nil, err
	}

	logs := make([]LogEntry, 0, len(visits))
	for i := range visits {
		v := &visits[i]
		entry := LogEntry{
			ID:           v.ID,
			NIK:          v.VisitorNIK,
			VisitDate:    v.VisitDate.Format(DateLayout),
			CheckInTime:  t.zone.Local(v.CheckInTime),
			Status:       StatusOf(v),
			VisitPurpose: v.VisitPurpose,
			Room:         v.Room,
			Companion:    v.Companion,
			TaskLetters:  v.TaskLetters,
		}
		if v.CheckOutTime != nil {
			out := t.zone.Local(*v.CheckOutTime)
			entry.CheckOutTime = &out
		}
		if v.Visitor != nil {
			entry.FullName = v.Visitor.FullName
			entry.Institution = v.Visitor.Institution
			entry.PhotoFile = v.Visitor.PhotoFile
		}
		if entry.TaskLetters == nil {
			entry.TaskLetters = []model.TaskLetter{}
		}
		logs = append(logs, entry)
	}
	return logs, nil
}
