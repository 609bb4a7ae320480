package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/awesome-blog/internal/apperror"
	"github.com/sakif/awesome-blog/internal/auth"
	"github.com/sakif/awesome-blog/internal/model"
	"github.com/sakif/awesome-blog/internal/repository"
)

const (
	maxBlogNameLength    = 50
	maxBlogSummaryLength = 200
	maxBlogContentLength = 64 * 1024
)

// BlogInput is the editable part of a blog.
type BlogInput struct {
	Name    string `json:"name"`
	Summary string `json:"summary"`
	Content string `json:"content"`
}

func (in BlogInput) validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return apperror.ValidationFailed("name", "name is required")
	case utf8.RuneCountInString(in.Name) > maxBlogNameLength:
		return apperror.ValidationFailed("name", fmt.Sprintf("name must be at most %d characters", maxBlogNameLength))
	case strings.TrimSpace(in.Summary) == "":
		return apperror.ValidationFailed("summary", "summary is required")
	case utf8.RuneCountInString(in.Summary) > maxBlogSummaryLength:
		return apperror.ValidationFailed("summary", fmt.Sprintf("summary must be at most %d characters", maxBlogSummaryLength))
	case strings.TrimSpace(in.Content) == "":
		return apperror.ValidationFailed("content", "content is required")
	case len(in.Content) > maxBlogContentLength:
		return apperror.ValidationFailed("content", fmt.Sprintf("content must be at most %d bytes", maxBlogContentLength))
	}
	return nil
}

// BlogPage is one page of the blog list.
type BlogPage struct {
	Blogs  []model.Blog `json:"blogs"`
	Total  int64        `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

type BlogService struct {
	blogs    repository.BlogRepository
	comments repository.CommentRepository
	users    repository.UserRepository
	tx       repository.Transactor
	logger   *slog.Logger
}

func NewBlogService(
	blogs repository.BlogRepository,
	comments repository.CommentRepository,
	users repository.UserRepository,
	tx repository.Transactor,
	logger *slog.Logger,
) *BlogService {
	return &BlogService{
		blogs:    blogs,
		comments: comments,
		users:    users,
		tx:       tx,
		logger:   logger,
	}
}

// Create publishes a blog under the caller's name and avatar.
func (s *BlogService) Create(ctx context.Context, caller auth.Identity, in BlogInput) (*model.Blog, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	author, err := s.users.GetByID(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("loading author: %w", err)
	}

	blog := &model.Blog{
		UserID:    author.ID,
		UserName:  author.Name,
		UserImage: author.Image,
		Name:      strings.TrimSpace(in.Name),
		Summary:   strings.TrimSpace(in.Summary),
		Content:   in.Content,
	}
	if err := s.blogs.Create(ctx, blog); err != nil {
		s.logger.Error("failed to create blog", slog.String("error", err.Error()))
		return nil, fmt.Errorf("creating blog: %w", err)
	}

	s.logger.Info("blog created", slog.String("id", blog.ID), slog.String("userID", blog.UserID))
	return blog, nil
}

func (s *BlogService) Get(ctx context.Context, id string) (*model.Blog, error) {
	blog, err := s.blogs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting blog: %w", err)
	}
	return blog, nil
}

// List returns newest blogs first, with the total count for paging.
func (s *BlogService) List(ctx context.Context, opts repository.ListOptions) (*BlogPage, error) {
	opts = opts.Normalize()
	blogs, err := s.blogs.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing blogs: %w", err)
	}
	total, err := s.blogs.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting blogs: %w", err)
	}
	if blogs == nil {
		blogs = []model.Blog{}
	}
	return &BlogPage{Blogs: blogs, Total: total, Limit: opts.Limit, Offset: opts.Offset}, nil
}

// Update rewrites name, summary and content. Only the author or an admin may.
func (s *BlogService) Update(ctx context.Context, caller auth.Identity, id string, in BlogInput) (*model.Blog, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	blog, err := s.blogs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting blog: %w", err)
	}
	if !canModify(caller, blog.UserID) {
		return nil, apperror.Forbidden("only the author or an admin can edit this blog")
	}

	blog.Name = strings.TrimSpace(in.Name)
	blog.Summary = strings.TrimSpace(in.Summary)
	blog.Content = in.Content
	if err := s.blogs.Update(ctx, blog); err != nil {
		return nil, fmt.Errorf("updating blog: %w", err)
	}

	s.logger.Info("blog updated", slog.String("id", id))
	return blog, nil
}

// Delete removes a blog and its comments in one transaction.
func (s *BlogService) Delete(ctx context.Context, caller auth.Identity, id string) error {
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		blog, err := s.blogs.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !canModify(caller, blog.UserID) {
			return apperror.Forbidden("only the author or an admin can delete this blog")
		}
		n, err := s.comments.DeleteByBlog(ctx, id)
		if err != nil {
			return err
		}
		if err := s.blogs.Delete(ctx, id); err != nil {
			return err
		}
		s.logger.Info("blog deleted", slog.String("id", id), slog.Int64("comments", n))
		return nil
	})
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return err
		}
		s.logger.Error("failed to delete blog", slog.String("id", id), slog.String("error", err.Error()))
		return fmt.Errorf("deleting blog: %w", err)
	}
	return nil
}

func canModify(caller auth.Identity, ownerID string) bool {
	return caller.Admin || (caller.UserID != "" && caller.UserID == ownerID)
}
