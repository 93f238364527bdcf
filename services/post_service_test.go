package services_test

import (
	"context"
	"strings"
	"testing"

	"murmur_server/models"
	"murmur_server/repositories"
	"murmur_server/services"

	"github.com/stretchr/testify/require"
)

func newPostService(t *testing.T) *services.PostService {
	db, err := repositories.OpenBadger("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return services.NewPostService(repositories.NewBadgerPostRepository(db, discardLogger), discardLogger)
}

func TestPostService_CreateAndRead(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	svc := newPostService(t)

	thought, err := svc.Create(ctx, "alice", models.PostKindThought, "  late night thoughts ")
	req.NoError(err)
	req.Equal("late night thoughts", thought.Content)

	_, err = svc.Create(ctx, "bob", models.PostKindConfession, "I ate the last slice")
	req.NoError(err)

	thoughts, err := svc.List(ctx, models.PostKindThought, 0)
	req.NoError(err)
	req.Len(thoughts, 1)

	feed, err := svc.List(ctx, "", 10)
	req.NoError(err)
	req.Len(feed, 2)

	reply, err := svc.Reply(ctx, thought.PostID, "bob", "same here")
	req.NoError(err)
	req.Equal(thought.PostID, reply.PostID)

	detail, err := svc.Get(ctx, thought.PostID)
	req.NoError(err)
	req.Equal(1, detail.ReplyCount)
	req.Len(detail.Replies, 1)
}

func TestPostService_Validation(t *testing.T) {
	ctx := context.Background()
	svc := newPostService(t)

	tests := []struct {
		name    string
		kind    string
		content string
	}{
		{name: "unknown kind", kind: "rant", content: "hello"},
		{name: "empty content", kind: models.PostKindThought, content: "   "},
		{name: "content too long", kind: models.PostKindConfession, content: strings.Repeat("x", services.MaxPostLength+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, "alice", tt.kind, tt.content)
			require.ErrorIs(t, err, services.ErrValidation)
		})
	}

	t.Run("missing post", func(t *testing.T) {
		req := require.New(t)
		_, err := svc.Get(ctx, "missing")
		req.ErrorIs(err, services.ErrNotFound)
		_, err = svc.Reply(ctx, "missing", "alice", "hello")
		req.ErrorIs(err, services.ErrNotFound)
	})

	t.Run("unknown feed kind", func(t *testing.T) {
		_, err := svc.List(ctx, "rant", 10)
		require.ErrorIs(t, err, services.ErrValidation)
	})
}
