package model

import "time"

// PushSubscription holds the information for an admin's browser push subscription.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	AdminID   int64     `gorm:"not null;index"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}
