package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"murmur_server/models"
	"murmur_server/repositories"

	"github.com/google/uuid"
)

const (
	MaxPostLength    = 1000
	DefaultPostLimit = 20
	MaxPostLimit     = 100
)

// PostService publishes anonymous thoughts and confessions.
type PostService struct {
	posts PostStore
	log   *slog.Logger
}

func NewPostService(posts PostStore, log *slog.Logger) *PostService {
	return &PostService{posts: posts, log: log}
}

func validContent(content string) (string, bool) {
	content = strings.TrimSpace(content)
	n := utf8.RuneCountInString(content)
	return content, n > 0 && n <= MaxPostLength
}

func (s *PostService) Create(ctx context.Context, authorID, kind, content string) (*models.Post, error) {
	if kind != models.PostKindThought && kind != models.PostKindConfession {
		return nil, newError(CodeValidation, "kind must be thought or confession")
	}
	content, ok := validContent(content)
	if !ok {
		return nil, newError(CodeValidation, "content must be between 1 and 1000 characters")
	}

	post := models.Post{
		PostID:    uuid.New().String(),
		Kind:      kind,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		s.log.Error("❌ Failed to create post", "kind", kind, "error", err)
		return nil, wrapError(CodeInternal, "failed to create post", err)
	}
	s.log.Info("✅ Post created", "postId", post.PostID, "kind", kind)
	return &post, nil
}

// List returns the newest posts, optionally of one kind.
func (s *PostService) List(ctx context.Context, kind string, limit int) ([]models.Post, error) {
	if kind != "" && kind != models.PostKindThought && kind != models.PostKindConfession {
		return nil, newError(CodeValidation, "kind must be thought or confession")
	}
	if limit <= 0 {
		limit = DefaultPostLimit
	}
	if limit > MaxPostLimit {
		limit = MaxPostLimit
	}
	posts, err := s.posts.ListPosts(ctx, kind, limit)
	if err != nil {
		s.log.Error("❌ Failed to fetch posts", "kind", kind, "error", err)
		return nil, wrapError(CodeInternal, "failed to fetch posts", err)
	}
	if posts == nil {
		posts = []models.Post{}
	}
	return posts, nil
}

func (s *PostService) Get(ctx context.Context, postID string) (*models.PostWithReplies, error) {
	post, err := s.posts.GetPost(ctx, postID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, newError(CodeNotFound, "Post not found")
	}
	if err != nil {
		return nil, wrapError(CodeInternal, "failed to fetch post", err)
	}
	replies, err := s.posts.ListReplies(ctx, postID)
	if err != nil {
		return nil, wrapError(CodeInternal, "failed to fetch replies", err)
	}
	if replies == nil {
		replies = []models.Reply{}
	}
	return &models.PostWithReplies{Post: *post, Replies: replies}, nil
}

func (s *PostService) Reply(ctx context.Context, postID, authorID, content string) (*models.Reply, error) {
	content, ok := validContent(content)
	if !ok {
		return nil, newError(CodeValidation, "content must be between 1 and 1000 characters")
	}
	reply := models.Reply{
		PostID:    postID,
		ReplyID:   uuid.New().String(),
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	err := s.posts.AddReply(ctx, reply)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, newError(CodeNotFound, "Post not found")
	}
	if err != nil {
		s.log.Error("❌ Failed to add reply", "postId", postID, "error", err)
		return nil, wrapError(CodeInternal, "failed to add reply", err)
	}
	return &reply, nil
}
