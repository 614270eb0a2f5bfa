package chat

import "time"

type Group struct {
	ID          uint
	Name        string
	OwnerID     uint
	CreatedDate time.Time
}

// Membership is one (group, user) pair. The pair is unique; the row id
// doubles as join order, which ownership transfer relies on.
type Membership struct {
	ID         uint
	GroupID    uint
	UserID     uint
	JoinedDate time.Time
}

type Message struct {
	ID          uint
	GroupID     uint
	SenderID    uint
	Text        string
	CreatedDate time.Time
	IsRead      bool
}
