package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"lingua/infrastructure"
)

// MaxMessagePageSize caps one fetch_messages page.
const MaxMessagePageSize = 200

type Store interface {
	// Group operations
	CreateGroup(ctx context.Context, name string, ownerID uint) (*Group, error)
	GroupByID(ctx context.Context, groupID uint) (*Group, error)
	GroupsForUser(ctx context.Context, userID uint) ([]*Group, error)
	RenameGroup(ctx context.Context, groupID uint, name string) error
	TransferOwnership(ctx context.Context, groupID, newOwnerID uint) error
	DeleteGroup(ctx context.Context, groupID uint) error

	// Membership operations
	AddMember(ctx context.Context, groupID, userID uint) (*Membership, error)
	RemoveMember(ctx context.Context, groupID, userID uint) error
	IsMember(ctx context.Context, groupID, userID uint) (bool, error)
	MemberIDs(ctx context.Context, groupID uint) ([]uint, error)
	OldestMemberExcept(ctx context.Context, groupID, excludeUserID uint) (*Membership, error)

	// Message operations
	CreateMessage(ctx context.Context, groupID, senderID uint, text string) (*Message, error)
	MessagesBefore(ctx context.Context, groupID, beforeID uint, limit int) ([]*Message, error)
	MarkMessageRead(ctx context.Context, groupID, messageID uint) error

	// User operations
	UserExists(ctx context.Context, userID uint) (bool, error)
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateGroup inserts the group and its owner membership in one
// transaction, so a group never exists without its owner as a member.
func (s *PostgresStore) CreateGroup(ctx context.Context, name string, ownerID uint) (*Group, error) {
	var group Group
	err := infrastructure.WithTransaction(s.db, ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO chat_group (name, owner_id, created_date)
			VALUES ($1, $2, NOW())
			RETURNING id, name, owner_id, created_date
		`, name, ownerID).Scan(&group.ID, &group.Name, &group.OwnerID, &group.CreatedDate)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO group_people (group_id, user_id, joined_date)
			VALUES ($1, $2, NOW())
		`, group.ID, ownerID)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, infrastructure.ErrGroupNameTaken
		}
		return nil, fmt.Errorf("failed to create group: %w", err)
	}
	return &group, nil
}

func (s *PostgresStore) GroupByID(ctx context.Context, groupID uint) (*Group, error) {
	var group Group
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, owner_id, created_date FROM chat_group WHERE id = $1
	`, groupID).Scan(&group.ID, &group.Name, &group.OwnerID, &group.CreatedDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, infrastructure.ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to query group: %w", err)
	}
	return &group, nil
}

func (s *PostgresStore) GroupsForUser(ctx context.Context, userID uint) ([]*Group, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.id, g.name, g.owner_id, g.created_date
		FROM chat_group g
		JOIN group_people p ON p.group_id = g.id
		WHERE p.user_id = $1
		ORDER BY g.id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	var groups []*Group
	for rows.Next() {
		var group Group
		if err := rows.Scan(&group.ID, &group.Name, &group.OwnerID, &group.CreatedDate); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, &group)
	}
	return groups, rows.Err()
}

func (s *PostgresStore) RenameGroup(ctx context.Context, groupID uint, name string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE chat_group SET name = $1 WHERE id = $2
	`, name, groupID)
	if err != nil {
		if isUniqueViolation(err) {
			return infrastructure.ErrGroupNameTaken
		}
		return fmt.Errorf("failed to rename group: %w", err)
	}
	return nil
}

func (s *PostgresStore) TransferOwnership(ctx context.Context, groupID, newOwnerID uint) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE chat_group SET owner_id = $1 WHERE id = $2
	`, newOwnerID, groupID)
	if err != nil {
		return fmt.Errorf("failed to transfer ownership: %w", err)
	}
	return nil
}

// DeleteGroup cascade-deletes messages, memberships and the group row.
func (s *PostgresStore) DeleteGroup(ctx context.Context, groupID uint) error {
	err := infrastructure.WithTransaction(s.db, ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM message WHERE group_id = $1`, groupID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM group_people WHERE group_id = $1`, groupID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM chat_group WHERE id = $1`, groupID)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	return nil
}

func (s *PostgresStore) AddMember(ctx context.Context, groupID, userID uint) (*Membership, error) {
	var membership Membership
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO group_people (group_id, user_id, joined_date)
		VALUES ($1, $2, NOW())
		RETURNING id, group_id, user_id, joined_date
	`, groupID, userID).Scan(&membership.ID, &membership.GroupID, &membership.UserID, &membership.JoinedDate)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, infrastructure.ErrAlreadyMember
		}
		return nil, fmt.Errorf("failed to add member: %w", err)
	}
	return &membership, nil
}

func (s *PostgresStore) RemoveMember(ctx context.Context, groupID, userID uint) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM group_people WHERE group_id = $1 AND user_id = $2
	`, groupID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsMember(ctx context.Context, groupID, userID uint) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM group_people WHERE group_id = $1 AND user_id = $2)
	`, groupID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) MemberIDs(ctx context.Context, groupID uint) ([]uint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM group_people WHERE group_id = $1 ORDER BY id
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	var ids []uint
	for rows.Next() {
		var id uint
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan member id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// OldestMemberExcept returns the remaining membership with the lowest
// id, the deterministic successor when an owner leaves.
func (s *PostgresStore) OldestMemberExcept(ctx context.Context, groupID, excludeUserID uint) (*Membership, error) {
	var membership Membership
	err := s.db.QueryRowContext(ctx, `
		SELECT id, group_id, user_id, joined_date
		FROM group_people
		WHERE group_id = $1 AND user_id <> $2
		ORDER BY id
		LIMIT 1
	`, groupID, excludeUserID).Scan(&membership.ID, &membership.GroupID, &membership.UserID, &membership.JoinedDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, infrastructure.ErrNotMember
		}
		return nil, fmt.Errorf("failed to query successor: %w", err)
	}
	return &membership, nil
}

func (s *PostgresStore) CreateMessage(ctx context.Context, groupID, senderID uint, text string) (*Message, error) {
	var message Message
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO message (group_id, sender_id, text, created_date, is_read)
		VALUES ($1, $2, $3, NOW(), FALSE)
		RETURNING id, group_id, sender_id, text, created_date, is_read
	`, groupID, senderID, text).Scan(
		&message.ID, &message.GroupID, &message.SenderID,
		&message.Text, &message.CreatedDate, &message.IsRead,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	return &message, nil
}

// MessagesBefore returns up to limit messages newest first, optionally
// strictly before beforeID (0 means no lower bound on recency).
func (s *PostgresStore) MessagesBefore(ctx context.Context, groupID, beforeID uint, limit int) ([]*Message, error) {
	if limit <= 0 || limit > MaxMessagePageSize {
		limit = MaxMessagePageSize
	}

	query := `
		SELECT id, group_id, sender_id, text, created_date, is_read
		FROM message
		WHERE group_id = $1
		ORDER BY id DESC
		LIMIT $2
	`
	args := []any{groupID, limit}
	if beforeID > 0 {
		query = `
			SELECT id, group_id, sender_id, text, created_date, is_read
			FROM message
			WHERE group_id = $1 AND id < $3
			ORDER BY id DESC
			LIMIT $2
		`
		args = append(args, beforeID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var message Message
		err := rows.Scan(
			&message.ID, &message.GroupID, &message.SenderID,
			&message.Text, &message.CreatedDate, &message.IsRead,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, &message)
	}
	return messages, rows.Err()
}

func (s *PostgresStore) MarkMessageRead(ctx context.Context, groupID, messageID uint) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE message SET is_read = TRUE WHERE id = $1 AND group_id = $2
	`, messageID, groupID)
	if err != nil {
		return fmt.Errorf("failed to mark message read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark message read: %w", err)
	}
	if affected == 0 {
		return infrastructure.ErrMessageNotFound
	}
	return nil
}

func (s *PostgresStore) UserExists(ctx context.Context, userID uint) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM users WHERE id = $1 AND is_active)
	`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	return exists, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
