package database

import "time"

type User struct {
	ID        uint      `gorm:"primaryKey"`
	Username  string    `gorm:"size:60;uniqueIndex;not null"`
	FirstName string    `gorm:"size:50"`
	LastName  string    `gorm:"size:50"`
	Email     string    `gorm:"size:255;uniqueIndex;not null"`
	Password  string    `gorm:"not null"`
	IsActive  bool      `gorm:"not null;default:true"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
}

func (User) TableName() string { return "users" }

type ChatGroup struct {
	ID          uint      `gorm:"primaryKey"`
	Name        string    `gorm:"size:100;uniqueIndex;not null"`
	OwnerID     uint      `gorm:"index;not null"`
	CreatedDate time.Time `gorm:"not null;autoCreateTime"`
}

func (ChatGroup) TableName() string { return "chat_group" }

type GroupPerson struct {
	ID         uint      `gorm:"primaryKey"`
	GroupID    uint      `gorm:"not null;uniqueIndex:uq_group_people_group_user"`
	UserID     uint      `gorm:"not null;uniqueIndex:uq_group_people_group_user"`
	JoinedDate time.Time `gorm:"not null;autoCreateTime"`
}

func (GroupPerson) TableName() string { return "group_people" }

type ChatMessage struct {
	ID          uint      `gorm:"primaryKey"`
	GroupID     uint      `gorm:"index;not null"`
	SenderID    uint      `gorm:"index;not null"`
	Text        string    `gorm:"type:text;not null"`
	CreatedDate time.Time `gorm:"not null;autoCreateTime"`
	IsRead      bool      `gorm:"not null;default:false"`
}

func (ChatMessage) TableName() string { return "message" }

type RefreshToken struct {
	ID          uint      `gorm:"primaryKey"`
	UserID      uint      `gorm:"index;not null"`
	Token       string    `gorm:"not null"`
	CreatedDate time.Time `gorm:"not null;autoCreateTime"`
}

func (RefreshToken) TableName() string { return "refresh_token" }
