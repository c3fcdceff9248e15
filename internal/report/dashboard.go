package report

import (
	"context"
	"sort"
	"time"

	"visitor-system-backend/internal/apperr"
	"visitor-system-backend/internal/ctxutil"
	"visitor-system-backend/internal/store"
)

const topInstitutions = 5

// Summary holds the headline figures of the dashboard.
type Summary struct {
	TotalVisits    int   `json:"total_visits"`
	VisitsToday    int   `json:"visits_today"`
	ActiveNow      int64 `json:"active_now"`
	UniqueVisitors int   `json:"unique_visitors"`
}

// DayCount is the number of check-ins on a local date (YYYY-MM-DD).
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// InstitutionCount is the number of visits from one institution.
type InstitutionCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// HourCount is the number of check-ins in a local hour of the day.
type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// Dashboard is the analytics view over the last Days local days.
type Dashboard struct {
	Days         int                `json:"days"`
	Summary      Summary            `json:"summary"`
	Trend        []DayCount         `json:"trend"`
	Institutions []InstitutionCount `json:"institutions"`
	Heatmap      []HourCount        `json:"heatmap"`
}

// ValidDays reports whether days is a supported dashboard window.
func ValidDays(days int) bool {
	return days == 7 || days == 30 || days == 90
}

// Dashboard aggregates the check-ins of the last days local days, today
// included. Buckets are local dates and local hours.
func (s *Service) Dashboard(ctx context.Context, days int) (*Dashboard, error) {
	if _, err := ctxutil.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	if !ValidDays(days) {
		return nil, apperr.NewValidationError("days", "must be 7, 30 or 90")
	}

	now := s.clk.Now()
	today := s.zone.Date(now)
	first := today.AddDate(0, 0, -(days - 1))
	from := s.zone.StartOfDay(s.zone.Local(now).AddDate(0, 0, -(days - 1)))

	visits, err := s.repo.ListVisits(ctx, store.VisitFilter{From: from})
	if err != nil {
		return nil, err
	}
	active, err := s.repo.CountOpenVisits(ctx)
	if err != nil {
		return nil, err
	}

	perDay := make(map[time.Time]int, days)
	perInstitution := make(map[string]int)
	visitors := make(map[string]struct{})
	heatmap := make([]HourCount, 24)
	for h := range heatmap {
		heatmap[h].Hour = h
	}

	d := &Dashboard{Days: days, Summary: Summary{ActiveNow: active}}
	for i := range visits {
		v := &visits[i]
		date := s.zone.Date(v.CheckInTime)
		if date.Before(first) || date.After(today) {
			continue
		}
		d.Summary.TotalVisits++
		if date.Equal(today) {
			d.Summary.VisitsToday++
		}
		perDay[date]++
		heatmap[s.zone.Local(v.CheckInTime).Hour()].Count++
		visitors[v.VisitorNIK] = struct{}{}
		if v.Visitor != nil && v.Visitor.Institution != "" {
			perInstitution[v.Visitor.Institution]++
		}
	}
	d.Summary.UniqueVisitors = len(visitors)

	d.Trend = make([]DayCount, 0, days)
	for day := first; !day.After(today); day = day.AddDate(0, 0, 1) {
		d.Trend = append(d.Trend, DayCount{Date: day.Format("2006-01-02"), Count: perDay[day]})
	}

	d.Institutions = make([]InstitutionCount, 0, len(perInstitution))
	for name, n := range perInstitution {
		d.Institutions = append(d.Institutions, InstitutionCount{Name: name, Count: n})
	}
	sort.Slice(d.Institutions, func(i, j int) bool {
		a, b := d.Institutions[i], d.Institutions[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Name < b.Name
	})
	if len(d.Institutions) > topInstitutions {
		d.Institutions = d.Institutions[:topInstitutions]
	}

	d.Heatmap = heatmap
	return d, nil
}
