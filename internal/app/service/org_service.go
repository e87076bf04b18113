package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/safeinsights/management-app-sub003/internal/common"
	"github.com/safeinsights/management-app-sub003/internal/domain/model"
	"github.com/safeinsights/management-app-sub003/internal/domain/repository"
)

type OrgService struct {
	orgRepo repository.OrgRepository
}

func NewOrgService(orgRepo repository.OrgRepository) *OrgService {
	return &OrgService{orgRepo: orgRepo}
}

type CreateOrgRequest struct {
	Name string `json:"name"`
}

func (s *OrgService) CreateOrg(ctx context.Context, req CreateOrgRequest) (*model.Org, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("name is required: %w", common.ErrValidation)
	}
	org := &model.Org{
		ID:   uuid.NewString(),
		Slug: slug.Make(req.Name),
		Name: req.Name,
	}
	if err := s.orgRepo.CreateOrg(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

type AddMemberRequest struct {
	UserID       string `json:"user_id"`
	IsReviewer   bool   `json:"is_reviewer"`
	IsResearcher bool   `json:"is_researcher"`
	IsAdmin      bool   `json:"is_admin"`
}

func (s *OrgService) AddMember(ctx context.Context, orgID string, req AddMemberRequest) (*model.OrgUser, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("user_id is required: %w", common.ErrValidation)
	}
	if _, err := s.orgRepo.GetOrgByID(ctx, orgID); err != nil {
		return nil, err
	}
	member := &model.OrgUser{
		OrgID:        orgID,
		UserID:       req.UserID,
		IsReviewer:   req.IsReviewer,
		IsResearcher: req.IsResearcher,
		IsAdmin:      req.IsAdmin,
	}
	if err := s.orgRepo.AddMember(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}
