package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/lo"

	"lingua/infrastructure"
	"lingua/internal/auth"
)

// ProtocolError is an action-local failure. It is reported to the
// caller only, never broadcast, and never closes the connection.
type ProtocolError struct {
	Detail string
}

func (e *ProtocolError) Error() string { return e.Detail }

func protocolErr(format string, args ...any) *ProtocolError {
	return &ProtocolError{Detail: fmt.Sprintf(format, args...)}
}

// Service is the group protocol state machine. Each session calls
// HandleAction sequentially for its own connection; concurrency only
// exists across sessions. Membership and ownership are re-read from the
// store on every action, and every mutation commits before the
// broadcast it triggers is built.
type Service struct {
	store       Store
	broadcaster *Broadcaster
	log         *slog.Logger
}

func NewService(store Store, broadcaster *Broadcaster, log *slog.Logger) *Service {
	return &Service{store: store, broadcaster: broadcaster, log: log}
}

// HandleAction interprets one inbound action message and writes the
// direct reply, if any, back on conn.
func (s *Service) HandleAction(ctx context.Context, user *auth.Identity, conn *Conn, raw []byte) {
	var act Action
	if err := json.Unmarshal(raw, &act); err != nil {
		s.reply(user, conn, ErrorEvent{Event: "error", Detail: "malformed action message"})
		return
	}

	reply, err := s.dispatch(ctx, user, &act)
	if err != nil {
		s.reply(user, conn, ErrorEvent{Event: "error", Action: act.Action, Detail: s.detail(act.Action, err)})
		return
	}
	if reply != nil {
		s.reply(user, conn, reply)
	}
}

func (s *Service) dispatch(ctx context.Context, user *auth.Identity, act *Action) (any, error) {
	switch act.Action {
	case ActionCreateGroup:
		return s.createGroup(ctx, user, act)
	case ActionListGroups:
		return s.listGroups(ctx, user)
	case ActionRenameGroup:
		return s.renameGroup(ctx, user, act)
	case ActionAddMembers:
		return s.addMembers(ctx, user, act)
	case ActionSendMessage:
		return s.sendMessage(ctx, user, act)
	case ActionFetchMessages:
		return s.fetchMessages(ctx, user, act)
	case ActionMarkRead:
		return s.markRead(ctx, user, act)
	case ActionLeaveGroup:
		return s.leaveGroup(ctx, user, act)
	case ActionDeleteGroup:
		return s.deleteGroup(ctx, user, act)
	default:
		return nil, protocolErr("unknown action %q", act.Action)
	}
}

func (s *Service) createGroup(ctx context.Context, user *auth.Identity, act *Action) (any, error) {
	name := strings.TrimSpace(act.Name)
	if name == "" {
		return nil, protocolErr("name is required")
	}

	group, err := s.store.CreateGroup(ctx, name, user.ID)
	if err != nil {
		if errors.Is(err, infrastructure.ErrGroupNameTaken) {
			return nil, protocolErr("group name %q is already taken", name)
		}
		return nil, err
	}

	return GroupEvent{Event: "group_created", Group: newGroupPayload(group)}, nil
}

func (s *Service) listGroups(ctx context.Context, user *auth.Identity) (any, error) {
	groups, err := s.store.GroupsForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return GroupListEvent{Event: "groups", Groups: lo.Map(groups, func(g *Group, _ int) GroupPayload {
		return newGroupPayload(g)
	})}, nil
}

func (s *Service) renameGroup(ctx context.Context, user *auth.Identity, act *Action) (any, error) {
	group, err := s.ownedGroup(ctx, user, act.GroupID)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(act.Name)
	if name == "" {
		return nil, protocolErr("name is required")
	}

	if err := s.store.RenameGroup(ctx, group.ID, name); err != nil {
		if errors.Is(err, infrastructure.ErrGroupNameTaken) {
			return nil, protocolErr("group name %q is already taken", name)
		}
		return nil, err
	}
	group.Name = name

	members, err := s.store.MemberIDs(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	s.broadcaster.Deliver(members, GroupEvent{Event: "group_renamed", Group: newGroupPayload(group)})
	return nil, nil
}

// addMembers processes the whole batch first and emits a single
// broadcast listing the ids that were actually added. Unknown users and
// existing members are skipped, not errors.
func (s *Service) addMembers(ctx context.Context, user *auth.Identity, act *Action) (any, error) {
	group, err := s.ownedGroup(ctx, user, act.GroupID)
	if err != nil {
		return nil, err
	}
	if len(act.UserIDs) == 0 {
		return nil, protocolErr("user_ids is required")
	}

	var added []uint
	for _, candidate := range lo.Uniq(act.UserIDs) {
		exists, err := s.store.UserExists(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if !exists {
			continue
		}

		if _, err := s.store.AddMember(ctx, group.ID, candidate); err != nil {
			if errors.Is(err, infrastructure.ErrAlreadyMember) {
				continue
			}
			return nil, err
		}
		added = append(added, candidate)
	}

	if len(added) == 0 {
		return MembersAddedEvent{Event: "members_added", GroupID: group.ID, AddedUserIDs: []uint{}}, nil
	}

	members, err := s.store.MemberIDs(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	s.broadcaster.Deliver(members, MembersAddedEvent{Event: "members_added", GroupID: group.ID, AddedUserIDs: added})
	return nil, nil
}

func (s *Service) sendMessage(ctx context.Context, user *auth.Identity, act *Action) (any, error) {
	group, err := s.memberGroup(ctx, user, act.GroupID)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(act.Text)
	if text == "" {
		return nil, protocolErr("text is required")
	}

	message, err := s.store.CreateMessage(ctx, group.ID, user.ID, text)
	if err != nil {
		return nil, err
	}

	members, err := s.store.MemberIDs(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	s.broadcaster.Deliver(members, MessageEvent{Event: "message", Message: newMessagePayload(message)})
	return nil, nil
}

func (s *Service) fetchMessages(ctx context.Context, user *auth.Identity, act *Action) (any, error) {
	group, err := s.memberGroup(ctx, user, act.GroupID)
	if err != nil {
		return nil, err
	}

	messages, err := s.store.MessagesBefore(ctx, group.ID, act.BeforeID, act.Limit)
	if err != nil {
		return nil, err
	}

	// The store returns newest first; the page is delivered in
	// chronological order.
	items := lo.Map(lo.Reverse(messages), func(m *Message, _ int) MessagePayload {
		return newMessagePayload(m)
	})
	return MessagePageEvent{Event: "messages", GroupID: group.ID, Items: items}, nil
}

func (s *Service) markRead(ctx context.Context, user *auth.Identity, act *Action) (any, error) {
	group, err := s.memberGroup(ctx, user, act.GroupID)
	if err != nil {
		return nil, err
	}
	if act.MessageID == 0 {
		return nil, protocolErr("message_id is required")
	}

	if err := s.store.MarkMessageRead(ctx, group.ID, act.MessageID); err != nil {
		if errors.Is(err, infrastructure.ErrMessageNotFound) {
			return nil, protocolErr("message %d not found in group %d", act.MessageID, group.ID)
		}
		return nil, err
	}

	return MessageReadEvent{Event: "message_read", GroupID: group.ID, MessageID: act.MessageID}, nil
}

// leaveGroup removes the caller. A leaving owner first hands the group
// to the remaining member with the lowest membership id; a sole owner
// takes the group down with them.
func (s *Service) leaveGroup(ctx context.Context, user *auth.Identity, act *Action) (any, error) {
	group, err := s.memberGroup(ctx, user, act.GroupID)
	if err != nil {
		return nil, err
	}

	if group.OwnerID == user.ID {
		successor, err := s.store.OldestMemberExcept(ctx, group.ID, user.ID)
		if err != nil {
			if errors.Is(err, infrastructure.ErrNotMember) {
				// Sole member: the group goes with the owner.
				if err := s.store.DeleteGroup(ctx, group.ID); err != nil {
					return nil, err
				}
				return GroupDeletedEvent{Event: "group_deleted", GroupID: group.ID}, nil
			}
			return nil, err
		}

		if err := s.store.TransferOwnership(ctx, group.ID, successor.UserID); err != nil {
			return nil, err
		}

		members, err := s.store.MemberIDs(ctx, group.ID)
		if err != nil {
			return nil, err
		}
		s.broadcaster.Deliver(members, OwnerChangedEvent{
			Event:    "owner_changed",
			GroupID:  group.ID,
			NewOwner: successor.UserID,
		})
	}

	if err := s.store.RemoveMember(ctx, group.ID, user.ID); err != nil {
		return nil, err
	}
	return LeftGroupEvent{Event: "left_group", GroupID: group.ID}, nil
}

func (s *Service) deleteGroup(ctx context.Context, user *auth.Identity, act *Action) (any, error) {
	group, err := s.ownedGroup(ctx, user, act.GroupID)
	if err != nil {
		return nil, err
	}

	// Snapshot the recipients before the cascade wipes the memberships.
	members, err := s.store.MemberIDs(ctx, group.ID)
	if err != nil {
		return nil, err
	}

	if err := s.store.DeleteGroup(ctx, group.ID); err != nil {
		return nil, err
	}

	s.broadcaster.Deliver(members, GroupDeletedEvent{Event: "group_deleted", GroupID: group.ID})
	return nil, nil
}

// ownedGroup loads a group and requires the caller to be its owner.
func (s *Service) ownedGroup(ctx context.Context, user *auth.Identity, groupID uint) (*Group, error) {
	if groupID == 0 {
		return nil, protocolErr("group_id is required")
	}
	group, err := s.store.GroupByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, infrastructure.ErrGroupNotFound) {
			return nil, protocolErr("group %d not found", groupID)
		}
		return nil, err
	}
	if group.OwnerID != user.ID {
		return nil, protocolErr("only the group owner can do this")
	}
	return group, nil
}

// memberGroup loads a group and requires the caller to be a member.
// Membership is checked against the store at action time, never cached.
func (s *Service) memberGroup(ctx context.Context, user *auth.Identity, groupID uint) (*Group, error) {
	if groupID == 0 {
		return nil, protocolErr("group_id is required")
	}
	group, err := s.store.GroupByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, infrastructure.ErrGroupNotFound) {
			return nil, protocolErr("group %d not found", groupID)
		}
		return nil, err
	}
	member, err := s.store.IsMember(ctx, group.ID, user.ID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, protocolErr("you are not a member of this group")
	}
	return group, nil
}

// detail converts an action failure into the error reply detail. Store
// failures surface once as a generic error and are never retried.
func (s *Service) detail(action string, err error) string {
	var perr *ProtocolError
	if errors.As(err, &perr) {
		return perr.Detail
	}
	s.log.Error("action failed", "action", action, "error", err)
	return "internal error"
}

func (s *Service) reply(user *auth.Identity, conn *Conn, event any) {
	if err := conn.Send(event); err != nil {
		// The read loop will observe the dead connection and tear the
		// session down; nothing to do here but record it.
		s.log.Warn("failed to reply", "user_id", user.ID, "conn_id", conn.ID(), "error", err)
	}
}
