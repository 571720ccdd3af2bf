package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/dealroom/internal/db"
	"github.com/alexanderramin/dealroom/internal/domain"
)

// SQLiteProjectRepo is the reference project catalog on SQLite.
type SQLiteProjectRepo struct {
	db db.DBTX
}

// NewSQLiteProjectRepo creates a new SQLiteProjectRepo.
func NewSQLiteProjectRepo(conn db.DBTX) *SQLiteProjectRepo {
	return &SQLiteProjectRepo{db: conn}
}

func (r *SQLiteProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	query := `INSERT INTO projects (id, owner_id, title, funding_goal, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, p.ID, p.OwnerID, p.Title, p.FundingGoal, formatTime(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting project: %w", err)
	}
	return nil
}

func (r *SQLiteProjectRepo) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	query := `SELECT id, owner_id, title, funding_goal, created_at FROM projects WHERE id = ?`
	var p domain.Project
	var createdAtStr string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.OwnerID, &p.Title, &p.FundingGoal, &createdAtStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("scanning project: %w", err)
	}
	if p.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &p, nil
}

func (r *SQLiteProjectRepo) List(ctx context.Context) ([]*domain.Project, error) {
	query := `SELECT id, owner_id, title, funding_goal, created_at FROM projects ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var projects []*domain.Project
	for rows.Next() {
		var p domain.Project
		var createdAtStr string
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Title, &p.FundingGoal, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning project row: %w", err)
		}
		if p.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		projects = append(projects, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating projects: %w", err)
	}
	return projects, nil
}

func (r *SQLiteProjectRepo) UpsertField(ctx context.Context, f *domain.ProjectField) error {
	query := `INSERT INTO project_fields (project_id, name, value, confidential) VALUES (?, ?, ?, ?)
		ON CONFLICT(project_id, name) DO UPDATE SET value = excluded.value, confidential = excluded.confidential`
	_, err := r.db.ExecContext(ctx, query, f.ProjectID, f.Name, f.Value, boolToInt(f.Confidential))
	if err != nil {
		return fmt.Errorf("upserting project field: %w", err)
	}
	return nil
}

func (r *SQLiteProjectRepo) GetField(ctx context.Context, projectID, name string) (*domain.ProjectField, error) {
	query := `SELECT project_id, name, value, confidential FROM project_fields WHERE project_id = ? AND name = ?`
	var f domain.ProjectField
	var confidential int
	err := r.db.QueryRowContext(ctx, query, projectID, name).Scan(&f.ProjectID, &f.Name, &f.Value, &confidential)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("project field %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("scanning project field: %w", err)
	}
	f.Confidential = intToBool(confidential)
	return &f, nil
}

func (r *SQLiteProjectRepo) ListFields(ctx context.Context, projectID string) ([]*domain.ProjectField, error) {
	query := `SELECT project_id, name, value, confidential FROM project_fields WHERE project_id = ? ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing project fields: %w", err)
	}
	defer rows.Close()

	var fields []*domain.ProjectField
	for rows.Next() {
		var f domain.ProjectField
		var confidential int
		if err := rows.Scan(&f.ProjectID, &f.Name, &f.Value, &confidential); err != nil {
			return nil, fmt.Errorf("scanning project field row: %w", err)
		}
		f.Confidential = intToBool(confidential)
		fields = append(fields, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating project fields: %w", err)
	}
	return fields, nil
}
