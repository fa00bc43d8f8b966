package services

import (
	"context"
	"errors"
	"strings"

	"social-posts-backend/internal/models"
	"social-posts-backend/internal/repository"
	"social-posts-backend/internal/storage"
)

// PostStore is the persistence the post service needs
type PostStore interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	List(ctx context.Context) ([]*models.Post, error)
	Delete(ctx context.Context, id int64) error
}

// UserLookup resolves post authors
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// PostService handles post-related business logic
type PostService struct {
	posts PostStore
	users UserLookup
	files storage.FileStore
	feed  Publisher
}

// NewPostService creates a new post service; feed may be nil
func NewPostService(posts PostStore, users UserLookup, files storage.FileStore, feed Publisher) *PostService {
	return &PostService{
		posts: posts,
		users: users,
		files: files,
		feed:  feed,
	}
}

// CreatePostInput is the post creation form
type CreatePostInput struct {
	Content string
	City    string
	Country string
	Image   *storage.Upload
}

// CreatePost stores a post owned by userID, the authenticated user
func (s *PostService) CreatePost(ctx context.Context, userID int64, in CreatePostInput) (*models.Post, error) {
	if strings.TrimSpace(in.Content) == "" && in.Image == nil {
		return nil, newError(KindValidation, MsgEmptyPost)
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(KindNotFound, MsgUserNotFound)
		}
		return nil, internalError(err)
	}

	post := &models.Post{
		Content: optional(in.Content),
		City:    optional(in.City),
		Country: optional(in.Country),
		UserID:  userID,
	}

	var uploaded string
	if in.Image != nil {
		ref, err := saveImage(ctx, s.files, *in.Image)
		if err != nil {
			return nil, err
		}
		image := s.files.URL(ref)
		post.Image = &image
		uploaded = ref
	}

	if err := s.posts.Create(ctx, post); err != nil {
		discardImage(ctx, s.files, uploaded)
		return nil, internalError(err)
	}

	s.publish(FeedEvent{Type: EventPostCreated, Post: post})
	return post, nil
}

// ListPosts retrieves all posts, newest first
func (s *PostService) ListPosts(ctx context.Context) ([]*models.Post, error) {
	posts, err := s.posts.List(ctx)
	if err != nil {
		return nil, internalError(err)
	}
	return posts, nil
}

// DeletePost removes a post owned by callerID
func (s *PostService) DeletePost(ctx context.Context, callerID, id int64) error {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newError(KindNotFound, MsgPostNotFound)
		}
		return internalError(err)
	}
	if post.UserID != callerID {
		return newError(KindAuthorization, MsgForbidden)
	}

	if err := s.posts.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newError(KindNotFound, MsgPostNotFound)
		}
		return internalError(err)
	}

	s.publish(FeedEvent{Type: EventPostDeleted, PostID: id})
	return nil
}

func (s *PostService) publish(event FeedEvent) {
	if s.feed != nil {
		s.feed.Publish(event)
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
