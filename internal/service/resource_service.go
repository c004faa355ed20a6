package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/repository"
)

// ResourceService manages chapter resources.
type ResourceService interface {
	Create(ctx context.Context, payload dto.ResourceCreateRequest) (dto.ResourceResponse, error)
	Delete(ctx context.Context, id uint) error
}

type resourceService struct {
	content   repository.ContentRepository
	progress  repository.ProgressRepository
	recompute RecomputeOrchestrator
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewResourceService constructs the resource service.
func NewResourceService(content repository.ContentRepository, progress repository.ProgressRepository, recompute RecomputeOrchestrator, validate *validator.Validate, logger zerolog.Logger) ResourceService {
	return &resourceService{
		content:   content,
		progress:  progress,
		recompute: recompute,
		validator: validate,
		logger:    logger.With().Str("component", "resource_service").Logger(),
	}
}

func (s *resourceService) Create(ctx context.Context, payload dto.ResourceCreateRequest) (dto.ResourceResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ResourceResponse{}, err
	}

	chapter, err := s.content.GetChapter(ctx, payload.ChapterID)
	if err != nil {
		return dto.ResourceResponse{}, translateNotFound(err, ErrChapterNotFound)
	}
	if chapter.CourseID != payload.CourseID {
		return dto.ResourceResponse{}, ErrItemOutsideCourse
	}

	resource := models.Resource{
		CourseID:  payload.CourseID,
		ChapterID: payload.ChapterID,
		Name:      payload.Name,
		URL:       payload.URL,
		Type:      payload.Type,
	}
	if err := s.content.CreateResource(ctx, &resource); err != nil {
		return dto.ResourceResponse{}, err
	}

	s.logger.Info().Uint("resource_id", resource.ID).Uint("course_id", resource.CourseID).Msg("resource created")
	s.recompute.Schedule(ctx, resource.CourseID)

	return dto.NewResourceResponse(resource), nil
}

func (s *resourceService) Delete(ctx context.Context, id uint) error {
	resource, err := s.content.GetResource(ctx, id)
	if err != nil {
		return translateNotFound(err, ErrResourceNotFound)
	}

	pulled, err := s.progress.PullReference(ctx, resource.CourseID, models.ItemKindResource, id)
	if err != nil {
		return err
	}

	if err := s.content.DeleteResource(ctx, id); err != nil {
		return translateNotFound(err, ErrResourceNotFound)
	}

	s.logger.Info().
		Uint("resource_id", id).
		Uint("course_id", resource.CourseID).
		Int64("progress_refs_pulled", pulled).
		Msg("resource deleted")
	s.recompute.Schedule(ctx, resource.CourseID)

	return nil
}
