package chat

import "time"

// Action is one inbound protocol request. Only the fields named by the
// requested action are consulted; the rest stay zero.
type Action struct {
	Action    string `json:"action"`
	GroupID   uint   `json:"group_id"`
	Name      string `json:"name"`
	UserIDs   []uint `json:"user_ids"`
	Text      string `json:"text"`
	Limit     int    `json:"limit"`
	BeforeID  uint   `json:"before_id"`
	MessageID uint   `json:"message_id"`
}

const (
	ActionCreateGroup   = "create_group"
	ActionListGroups    = "list_groups"
	ActionRenameGroup   = "rename_group"
	ActionAddMembers    = "add_members"
	ActionSendMessage   = "send_message"
	ActionFetchMessages = "fetch_messages"
	ActionMarkRead      = "mark_read"
	ActionLeaveGroup    = "leave_group"
	ActionDeleteGroup   = "delete_group"
)

type GroupPayload struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	OwnerID     uint      `json:"owner_id"`
	CreatedDate time.Time `json:"created_date"`
}

type MessagePayload struct {
	ID          uint      `json:"id"`
	GroupID     uint      `json:"group_id"`
	SenderID    uint      `json:"sender_id"`
	Text        string    `json:"text"`
	CreatedDate time.Time `json:"created_date"`
	IsRead      bool      `json:"is_read"`
}

func newGroupPayload(g *Group) GroupPayload {
	return GroupPayload{ID: g.ID, Name: g.Name, OwnerID: g.OwnerID, CreatedDate: g.CreatedDate}
}

func newMessagePayload(m *Message) MessagePayload {
	return MessagePayload{
		ID:          m.ID,
		GroupID:     m.GroupID,
		SenderID:    m.SenderID,
		Text:        m.Text,
		CreatedDate: m.CreatedDate,
		IsRead:      m.IsRead,
	}
}

type ConnectedEvent struct {
	Event    string `json:"event"`
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
}

type ErrorEvent struct {
	Event  string `json:"event"`
	Action string `json:"action,omitempty"`
	Detail string `json:"detail"`
}

type GroupEvent struct {
	Event string       `json:"event"`
	Group GroupPayload `json:"group"`
}

type GroupDeletedEvent struct {
	Event   string `json:"event"`
	GroupID uint   `json:"group_id"`
}

type GroupListEvent struct {
	Event  string         `json:"event"`
	Groups []GroupPayload `json:"groups"`
}

type MembersAddedEvent struct {
	Event        string `json:"event"`
	GroupID      uint   `json:"group_id"`
	AddedUserIDs []uint `json:"added_user_ids"`
}

type MessageEvent struct {
	Event   string         `json:"event"`
	Message MessagePayload `json:"message"`
}

type MessagePageEvent struct {
	Event   string           `json:"event"`
	GroupID uint             `json:"group_id"`
	Items   []MessagePayload `json:"items"`
}

type OwnerChangedEvent struct {
	Event    string `json:"event"`
	GroupID  uint   `json:"group_id"`
	NewOwner uint   `json:"new_owner"`
}

type LeftGroupEvent struct {
	Event   string `json:"event"`
	GroupID uint   `json:"group_id"`
}

type MessageReadEvent struct {
	Event     string `json:"event"`
	GroupID   uint   `json:"group_id"`
	MessageID uint   `json:"message_id"`
}
