package model

import "time"

// Visit is one attendance episode. A nil CheckOutTime means the visit is open.
// VisitDate is the local calendar date of CheckInTime, fixed at creation.
type Visit struct {
	ID           int64      `gorm:"primaryKey" json:"id"`
	VisitorNIK   string     `gorm:"size:20;not null;index" json:"visitor_nik"`
	VisitDate    time.Time  `gorm:"type:date;not null;index" json:"visit_date"`
	CheckInTime  time.Time  `gorm:"not null;index" json:"check_in_time"`
	CheckOutTime *time.Time `json:"check_out_time"`
	VisitPurpose *string    `gorm:"type:text" json:"visit_purpose"`
	RoomID       *int64     `gorm:"index" json:"room_id"`
	CompanionID  *int64     `gorm:"index" json:"companion_id"`

	// Associations, read-only. Deletes are explicit, see store.DeleteVisit.
	Visitor     *Visitor     `gorm:"foreignKey:VisitorNIK;references:NIK" json:"visitor,omitempty"`
	Room        *Room        `json:"room,omitempty"`
	Companion   *Companion   `json:"companion,omitempty"`
	TaskLetters []TaskLetter `gorm:"foreignKey:VisitID" json:"task_letters,omitempty"`
}

// IsOpen reports whether the visit has not been checked out.
func (v *Visit) IsOpen() bool {
	return v.CheckOutTime == nil
}
