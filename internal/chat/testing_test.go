package chat

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"lingua/infrastructure"
)

// fakeWire stands in for a websocket connection and records every
// event written to it.
type fakeWire struct {
	mu     sync.Mutex
	events []any
	closed bool
	broken bool
}

var errWireBroken = errors.New("wire broken")

func (w *fakeWire) WriteJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.broken {
		return errWireBroken
	}
	w.events = append(w.events, v)
	return nil
}

func (w *fakeWire) WriteControl(int, []byte, time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.broken {
		return errWireBroken
	}
	return nil
}

func (w *fakeWire) SetWriteDeadline(time.Time) error { return nil }

func (w *fakeWire) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *fakeWire) recorded() []any {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]any, len(w.events))
	copy(out, w.events)
	return out
}

// memStore is an in-memory Store with the same invariants as the
// Postgres implementation: unique group names, unique (group, user)
// pairs, monotonically increasing ids.
type memStore struct {
	mu          sync.Mutex
	groups      map[uint]*Group
	memberships map[uint]*Membership
	messages    map[uint]*Message
	users       map[uint]bool
	nextGroup   uint
	nextMember  uint
	nextMessage uint
}

func newMemStore(userIDs ...uint) *memStore {
	s := &memStore{
		groups:      make(map[uint]*Group),
		memberships: make(map[uint]*Membership),
		messages:    make(map[uint]*Message),
		users:       make(map[uint]bool),
	}
	for _, id := range userIDs {
		s.users[id] = true
	}
	return s
}

func (s *memStore) CreateGroup(_ context.Context, name string, ownerID uint) (*Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.groups {
		if g.Name == name {
			return nil, infrastructure.ErrGroupNameTaken
		}
	}
	s.nextGroup++
	group := &Group{ID: s.nextGroup, Name: name, OwnerID: ownerID, CreatedDate: time.Now()}
	s.groups[group.ID] = group
	s.nextMember++
	s.memberships[s.nextMember] = &Membership{ID: s.nextMember, GroupID: group.ID, UserID: ownerID, JoinedDate: time.Now()}
	copied := *group
	return &copied, nil
}

func (s *memStore) GroupByID(_ context.Context, groupID uint) (*Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	group, ok := s.groups[groupID]
	if !ok {
		return nil, infrastructure.ErrGroupNotFound
	}
	copied := *group
	return &copied, nil
}

func (s *memStore) GroupsForUser(_ context.Context, userID uint) ([]*Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var groups []*Group
	for _, m := range s.memberships {
		if m.UserID != userID {
			continue
		}
		if g, ok := s.groups[m.GroupID]; ok {
			copied := *g
			groups = append(groups, &copied)
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID > groups[j].ID })
	return groups, nil
}

func (s *memStore) RenameGroup(_ context.Context, groupID uint, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.groups {
		if g.Name == name && g.ID != groupID {
			return infrastructure.ErrGroupNameTaken
		}
	}
	if g, ok := s.groups[groupID]; ok {
		g.Name = name
	}
	return nil
}

func (s *memStore) TransferOwnership(_ context.Context, groupID, newOwnerID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.groups[groupID]; ok {
		g.OwnerID = newOwnerID
	}
	return nil
}

func (s *memStore) DeleteGroup(_ context.Context, groupID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.groups, groupID)
	for id, m := range s.memberships {
		if m.GroupID == groupID {
			delete(s.memberships, id)
		}
	}
	for id, m := range s.messages {
		if m.GroupID == groupID {
			delete(s.messages, id)
		}
	}
	return nil
}

func (s *memStore) AddMember(_ context.Context, groupID, userID uint) (*Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.memberships {
		if m.GroupID == groupID && m.UserID == userID {
			return nil, infrastructure.ErrAlreadyMember
		}
	}
	s.nextMember++
	membership := &Membership{ID: s.nextMember, GroupID: groupID, UserID: userID, JoinedDate: time.Now()}
	s.memberships[membership.ID] = membership
	copied := *membership
	return &copied, nil
}

func (s *memStore) RemoveMember(_ context.Context, groupID, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, m := range s.memberships {
		if m.GroupID == groupID && m.UserID == userID {
			delete(s.memberships, id)
		}
	}
	return nil
}

func (s *memStore) IsMember(_ context.Context, groupID, userID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.memberships {
		if m.GroupID == groupID && m.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) MemberIDs(_ context.Context, groupID uint) ([]uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var members []*Membership
	for _, m := range s.memberships {
		if m.GroupID == groupID {
			members = append(members, m)
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	ids := make([]uint, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	return ids, nil
}

func (s *memStore) OldestMemberExcept(_ context.Context, groupID, excludeUserID uint) (*Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var oldest *Membership
	for _, m := range s.memberships {
		if m.GroupID != groupID || m.UserID == excludeUserID {
			continue
		}
		if oldest == nil || m.ID < oldest.ID {
			oldest = m
		}
	}
	if oldest == nil {
		return nil, infrastructure.ErrNotMember
	}
	copied := *oldest
	return &copied, nil
}

func (s *memStore) CreateMessage(_ context.Context, groupID, senderID uint, text string) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextMessage++
	message := &Message{ID: s.nextMessage, GroupID: groupID, SenderID: senderID, Text: text, CreatedDate: time.Now()}
	s.messages[message.ID] = message
	copied := *message
	return &copied, nil
}

func (s *memStore) MessagesBefore(_ context.Context, groupID, beforeID uint, limit int) ([]*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > MaxMessagePageSize {
		limit = MaxMessagePageSize
	}
	var messages []*Message
	for _, m := range s.messages {
		if m.GroupID != groupID {
			continue
		}
		if beforeID > 0 && m.ID >= beforeID {
			continue
		}
		copied := *m
		messages = append(messages, &copied)
	}
	sort.Slice(messages, func(i, j int) bool { return messages[i].ID > messages[j].ID })
	if len(messages) > limit {
		messages = messages[:limit]
	}
	return messages, nil
}

func (s *memStore) MarkMessageRead(_ context.Context, groupID, messageID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[messageID]
	if !ok || m.GroupID != groupID {
		return infrastructure.ErrMessageNotFound
	}
	m.IsRead = true
	return nil
}

func (s *memStore) UserExists(_ context.Context, userID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[userID], nil
}

func (s *memStore) membershipCount(groupID uint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, m := range s.memberships {
		if m.GroupID == groupID {
			count++
		}
	}
	return count
}

func (s *memStore) messageCount(groupID uint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, m := range s.messages {
		if m.GroupID == groupID {
			count++
		}
	}
	return count
}
