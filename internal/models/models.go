package models

import "time"

type User struct {
	ID       uint     `gorm:"primaryKey"`
	Username string   `gorm:"uniqueIndex;size:80;not null"`
	Token    string   `gorm:"uniqueIndex;size:36;not null"`
	Lat      *float64 // 首次上报位置前为 NULL
	Lon      *float64
	LastSeen time.Time
}

type Message struct {
	ID         uint   `gorm:"primaryKey"`
	SenderID   uint   `gorm:"index;not null"`
	ReceiverID uint   `gorm:"index;not null"`
	Content    string `gorm:"type:text;not null"`
	CreatedAt  time.Time
}
