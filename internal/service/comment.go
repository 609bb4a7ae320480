package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/awesome-blog/internal/apperror"
	"github.com/sakif/awesome-blog/internal/auth"
	"github.com/sakif/awesome-blog/internal/model"
	"github.com/sakif/awesome-blog/internal/repository"
)

const maxCommentLength = 4096

type CommentService struct {
	comments repository.CommentRepository
	blogs    repository.BlogRepository
	users    repository.UserRepository
	logger   *slog.Logger
}

func NewCommentService(
	comments repository.CommentRepository,
	blogs repository.BlogRepository,
	users repository.UserRepository,
	logger *slog.Logger,
) *CommentService {
	return &CommentService{
		comments: comments,
		blogs:    blogs,
		users:    users,
		logger:   logger,
	}
}

// Create adds a comment to an existing blog.
func (s *CommentService) Create(ctx context.Context, caller auth.Identity, blogID, content string) (*model.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperror.ValidationFailed("content", "content is required")
	}
	if len(content) > maxCommentLength {
		return nil, apperror.ValidationFailed("content", fmt.Sprintf("content must be at most %d bytes", maxCommentLength))
	}
	if _, err := s.blogs.GetByID(ctx, blogID); err != nil {
		return nil, fmt.Errorf("getting blog: %w", err)
	}
	author, err := s.users.GetByID(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("loading author: %w", err)
	}

	comment := &model.Comment{
		BlogID:   blogID,
		UserID:   author.ID,
		UserName: author.Name,
		Content:  content,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		s.logger.Error("failed to create comment", slog.String("blogID", blogID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("creating comment: %w", err)
	}

	s.logger.Info("comment created", slog.String("id", comment.ID), slog.String("blogID", blogID))
	return comment, nil
}

// ListByBlog returns a blog's comments oldest first.
func (s *CommentService) ListByBlog(ctx context.Context, blogID string, opts repository.ListOptions) ([]model.Comment, error) {
	if _, err := s.blogs.GetByID(ctx, blogID); err != nil {
		return nil, fmt.Errorf("getting blog: %w", err)
	}
	comments, err := s.comments.ListByBlog(ctx, blogID, opts.Normalize())
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}
	if comments == nil {
		comments = []model.Comment{}
	}
	return comments, nil
}

// Delete removes a comment. Only its author or an admin may.
func (s *CommentService) Delete(ctx context.Context, caller auth.Identity, id string) error {
	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("getting comment: %w", err)
	}
	if !canModify(caller, comment.UserID) {
		return apperror.Forbidden("only the author or an admin can delete this comment")
	}
	if err := s.comments.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting comment: %w", err)
	}
	s.logger.Info("comment deleted", slog.String("id", id))
	return nil
}
