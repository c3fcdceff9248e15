package store

import "time"

// VisitorUpdate lists the mutable visitor fields. Nil means unchanged; an
// empty Phone clears it.
type VisitorUpdate struct {
	FullName       *string
	Institution    *string
	Phone          *string
	PhotoFile      *string
	KTPFile        *string
	TaskLetterFile *string
}

// IsEmpty reports whether no field is set.
func (u VisitorUpdate) IsEmpty() bool {
	return u.FullName == nil && u.Institution == nil && u.Phone == nil &&
		u.PhotoFile == nil && u.KTPFile == nil && u.TaskLetterFile == nil
}

// VisitFilter narrows ListVisits. Zero values disable a condition.
type VisitFilter struct {
	VisitorNIK string
	From       time.Time // check-in at or after
	To         time.Time // check-in before
	OpenOnly   bool
	Limit      int
	Offset     int
	// WithDetails preloads visitor, room, companion and task letters.
	WithDetails bool
}
