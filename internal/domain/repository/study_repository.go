package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/safeinsights/management-app-sub003/internal/common"
	"github.com/safeinsights/management-app-sub003/internal/domain/model"
)

type StudyRepository interface {
	CreateStudy(ctx context.Context, study *model.Study) error
	GetStudyByID(ctx context.Context, id string) (*model.Study, error)
	GetStudyStatus(ctx context.Context, id string) (model.StudyStatus, error)
}

type OrgRepository interface {
	CreateOrg(ctx context.Context, org *model.Org) error
	GetOrgByID(ctx context.Context, id string) (*model.Org, error)
	AddMember(ctx context.Context, member *model.OrgUser) error
	GetMember(ctx context.Context, orgID, userID string) (*model.OrgUser, error)
	ListOrgIDsForUser(ctx context.Context, userID string) ([]string, error)
}

type pgStudyRepository struct {
	db *sql.DB
}

func NewPgStudyRepository(db *sql.DB) StudyRepository {
	return &pgStudyRepository{db: db}
}

func (r *pgStudyRepository) CreateStudy(ctx context.Context, s *model.Study) error {
	query := `INSERT INTO studies (id, org_id, researcher_id, title, status)
	          VALUES ($1, $2, $3, $4, $5) RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query, s.ID, s.OrgID, s.ResearcherID, s.Title, s.Status).Scan(&s.CreatedAt)
	if err != nil {
		return fmt.Errorf("pgStudyRepository.CreateStudy: %w", err)
	}
	return nil
}

func (r *pgStudyRepository) GetStudyByID(ctx context.Context, id string) (*model.Study, error) {
	query := `SELECT id, org_id, researcher_id, title, status, created_at FROM studies WHERE id = $1`

	s := &model.Study{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.OrgID, &s.ResearcherID, &s.Title, &s.Status, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgStudyRepository.GetStudyByID: %w", err)
	}
	return s, nil
}

func (r *pgStudyRepository) GetStudyStatus(ctx context.Context, id string) (model.StudyStatus, error) {
	var status model.StudyStatus
	err := r.db.QueryRowContext(ctx, `SELECT status FROM studies WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrNotFound
		}
		return "", fmt.Errorf("pgStudyRepository.GetStudyStatus: %w", err)
	}
	return status, nil
}

type pgOrgRepository struct {
	db *sql.DB
}

func NewPgOrgRepository(db *sql.DB) OrgRepository {
	return &pgOrgRepository{db: db}
}

func (r *pgOrgRepository) CreateOrg(ctx context.Context, org *model.Org) error {
	query := `INSERT INTO orgs (id, slug, name) VALUES ($1, $2, $3) RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query, org.ID, org.Slug, org.Name).Scan(&org.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("org with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgOrgRepository.CreateOrg: %w", err)
	}
	return nil
}

func (r *pgOrgRepository) GetOrgByID(ctx context.Context, id string) (*model.Org, error) {
	query := `SELECT id, slug, name, created_at FROM orgs WHERE id = $1`

	org := &model.Org{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&org.ID, &org.Slug, &org.Name, &org.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgOrgRepository.GetOrgByID: %w", err)
	}
	return org, nil
}

func (r *pgOrgRepository) AddMember(ctx context.Context, m *model.OrgUser) error {
	query := `INSERT INTO org_users (org_id, user_id, is_reviewer, is_researcher, is_admin)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (org_id, user_id)
	          DO UPDATE SET is_reviewer = $3, is_researcher = $4, is_admin = $5`
	if _, err := r.db.ExecContext(ctx, query, m.OrgID, m.UserID, m.IsReviewer, m.IsResearcher, m.IsAdmin); err != nil {
		return fmt.Errorf("pgOrgRepository.AddMember: %w", err)
	}
	return nil
}

func (r *pgOrgRepository) ListOrgIDsForUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT org_id FROM org_users WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("pgOrgRepository.ListOrgIDsForUser: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("pgOrgRepository.ListOrgIDsForUser: scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *pgOrgRepository) GetMember(ctx context.Context, orgID, userID string) (*model.OrgUser, error) {
	query := `SELECT org_id, user_id, is_reviewer, is_researcher, is_admin
	          FROM org_users WHERE org_id = $1 AND user_id = $2`

	m := &model.OrgUser{}
	err := r.db.QueryRowContext(ctx, query, orgID, userID).Scan(&m.OrgID, &m.UserID, &m.IsReviewer, &m.IsResearcher, &m.IsAdmin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgOrgRepository.GetMember: %w", err)
	}
	return m, nil
}
