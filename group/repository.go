package group

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/billbatista/acasinha-ledger/ledger"
	"github.com/billbatista/acasinha-ledger/storage"
)

type repository struct {
	db *storage.DB
}

func NewRepository(db *storage.DB) *repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, g *Group) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	insertGroup := r.db.Dialect.Rebind(`INSERT INTO groups (id, name, currency, created_at) VALUES ($1, $2, $3, $4)`)
	_, err = tx.ExecContext(ctx, insertGroup, g.ID, g.Name, g.Currency, g.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting group: %w", err)
	}

	insertMember := r.db.Dialect.Rebind(`INSERT INTO group_members (group_id, member_id, name, position) VALUES ($1, $2, $3, $4)`)
	for i, m := range g.Members {
		_, err = tx.ExecContext(ctx, insertMember, g.ID, m.ID, m.Name, i)
		if err != nil {
			return fmt.Errorf("inserting member %s: %w", m.Name, err)
		}
	}

	return tx.Commit()
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Group, error) {
	query := r.db.Dialect.Rebind(`SELECT id, name, currency, created_at FROM groups WHERE id = $1`)

	var g Group
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&g.ID,
		&g.Name,
		&g.Currency,
		&g.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group %s: %w", id, ledger.ErrGroupNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying group: %w", err)
	}

	g.Members, err = r.members(ctx, id)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *repository) Roster(ctx context.Context, id uuid.UUID) (ledger.Roster, error) {
	g, err := r.GetByID(ctx, id)
	if err != nil {
		return ledger.Roster{}, err
	}
	return g.Roster(), nil
}

func (r *repository) members(ctx context.Context, groupID uuid.UUID) ([]ledger.Member, error) {
	query := r.db.Dialect.Rebind(`SELECT member_id, name FROM group_members WHERE group_id = $1 ORDER BY position`)

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("querying members: %w", err)
	}
	defer rows.Close()

	var members []ledger.Member
	for rows.Next() {
		var m ledger.Member
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return members, nil
}
