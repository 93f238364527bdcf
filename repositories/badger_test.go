package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"murmur_server/models"
	"murmur_server/utils"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *badger.DB {
	db, err := OpenBadger(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newMatch(a, b string) models.Match {
	now := time.Now().UTC()
	return models.Match{
		MatchID:     uuid.New().String(),
		User1Handle: a,
		User2Handle: b,
		PairKey:     utils.PairKey(a, b),
		Status:      models.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func newRequest(sender, recipient, matchID string) models.MessageRequest {
	now := time.Now().UTC()
	return models.MessageRequest{
		RequestID:       uuid.New().String(),
		SenderHandle:    sender,
		RecipientHandle: recipient,
		Status:          models.StatusPending,
		MatchID:         matchID,
		PairKey:         utils.PairKey(sender, recipient),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestBadgerUserRepository_FindMany(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewBadgerUserRepository(setupTestDB(t), slog.Default())

	req.NoError(repo.Put(ctx, models.UserProfile{UserID: "u1", Gender: models.GenderFemale, Verified: true}))
	req.NoError(repo.Put(ctx, models.UserProfile{UserID: "u2", Gender: models.GenderFemale, Verified: false}))
	req.NoError(repo.Put(ctx, models.UserProfile{UserID: "u3", Gender: models.GenderMale, Verified: true}))

	found, err := repo.FindMany(ctx, models.IdentityFilter{Gender: models.GenderFemale, VerifiedOnly: true})
	req.NoError(err)
	req.Len(found, 1)
	req.Equal("u1", found[0].UserID)

	profile, err := repo.FindByID(ctx, "u3")
	req.NoError(err)
	req.Equal(models.GenderMale, profile.Gender)

	_, err = repo.FindByID(ctx, "missing")
	req.ErrorIs(err, ErrNotFound)
}

func TestBadgerMatchRepository_OneActiveMatchPerPair(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewBadgerMatchRepository(setupTestDB(t), slog.Default())

	first := newMatch("alice", "bob")
	req.NoError(repo.CreateMatch(ctx, first))

	// Same pair in the other order is still the same pair
	req.ErrorIs(repo.CreateMatch(ctx, newMatch("bob", "alice")), ErrDuplicate)

	active, err := repo.FindActiveMatch(ctx, "bob", "alice")
	req.NoError(err)
	req.NotNil(active)
	req.Equal(first.MatchID, active.MatchID)

	matches, err := repo.ListMatchesForUser(ctx, "bob")
	req.NoError(err)
	req.Len(matches, 1)
}

func TestBadgerMatchRepository_RejectReleasesPair(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewBadgerMatchRepository(setupTestDB(t), slog.Default())

	first := newMatch("alice", "bob")
	req.NoError(repo.CreateMatch(ctx, first))

	_, err := repo.UpdateMatchStatus(ctx, first.MatchID, models.StatusAccepted, models.StatusRejected)
	req.ErrorIs(err, ErrStatusConflict)

	updated, err := repo.UpdateMatchStatus(ctx, first.MatchID, models.StatusPending, models.StatusRejected)
	req.NoError(err)
	req.Equal(models.StatusRejected, updated.Status)

	active, err := repo.FindActiveMatch(ctx, "alice", "bob")
	req.NoError(err)
	req.Nil(active)

	// The rejected entry stays in history while a new attempt may start
	req.NoError(repo.CreateMatch(ctx, newMatch("bob", "alice")))
	matches, err := repo.ListMatchesForUser(ctx, "alice")
	req.NoError(err)
	req.Len(matches, 2)
}

func TestBadgerMatchRepository_DeleteIsIdempotent(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewBadgerMatchRepository(setupTestDB(t), slog.Default())

	match := newMatch("alice", "bob")
	req.NoError(repo.CreateMatch(ctx, match))
	req.NoError(repo.DeleteMatch(ctx, match.MatchID))
	req.NoError(repo.DeleteMatch(ctx, match.MatchID))

	_, err := repo.GetMatch(ctx, match.MatchID)
	req.ErrorIs(err, ErrNotFound)

	matches, err := repo.ListMatchesForUser(ctx, "alice")
	req.NoError(err)
	req.Empty(matches)

	req.NoError(repo.CreateMatch(ctx, newMatch("alice", "bob")))
}

func TestBadgerMatchRepository_ConcurrentCreate(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewBadgerMatchRepository(setupTestDB(t), slog.Default())

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				errs[i] = repo.CreateMatch(ctx, newMatch("alice", "bob"))
			} else {
				errs[i] = repo.CreateMatch(ctx, newMatch("bob", "alice"))
			}
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		req.ErrorIs(err, ErrDuplicate)
	}
	req.Equal(1, succeeded)

	matches, err := repo.ListMatchesForUser(ctx, "alice")
	req.NoError(err)
	req.Len(matches, 1)
}

func TestBadgerRequestRepository_Lifecycle(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewBadgerRequestRepository(setupTestDB(t), slog.Default())

	request := newRequest("alice", "bob", "m1")
	req.NoError(repo.CreateRequest(ctx, request))
	req.ErrorIs(repo.CreateRequest(ctx, newRequest("bob", "alice", "m2")), ErrDuplicate)

	accepted, err := repo.UpdateRequestStatus(ctx, request.RequestID, models.StatusPending, models.StatusAccepted)
	req.NoError(err)
	req.Equal(models.StatusAccepted, accepted.Status)

	// A second responder loses the conditional update
	_, err = repo.UpdateRequestStatus(ctx, request.RequestID, models.StatusPending, models.StatusAccepted)
	req.ErrorIs(err, ErrStatusConflict)

	// Accepted still holds the pair
	req.ErrorIs(repo.CreateRequest(ctx, newRequest("alice", "bob", "m3")), ErrDuplicate)

	sent, err := repo.ListRequestsForUser(ctx, "alice")
	req.NoError(err)
	req.Len(sent, 1)

	req.NoError(repo.DeleteRequest(ctx, request.RequestID))
	_, err = repo.GetRequest(ctx, request.RequestID)
	req.ErrorIs(err, ErrNotFound)

	active, err := repo.FindActiveRequest(ctx, "alice", "bob")
	req.NoError(err)
	req.Nil(active)
}

func TestBadgerRoomRepository_OneRoomPerPair(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewBadgerRoomRepository(setupTestDB(t), slog.Default())

	room := models.ChatRoom{
		RoomID:       uuid.New().String(),
		Participants: []string{"alice", "bob"},
		PairKey:      utils.PairKey("alice", "bob"),
		CreatedAt:    time.Now().UTC(),
	}
	req.NoError(repo.CreateRoom(ctx, room))

	duplicate := room
	duplicate.RoomID = uuid.New().String()
	req.ErrorIs(repo.CreateRoom(ctx, duplicate), ErrDuplicate)

	found, err := repo.FindRoomByPair(ctx, "bob", "alice")
	req.NoError(err)
	req.NotNil(found)
	req.Equal(room.RoomID, found.RoomID)

	none, err := repo.FindRoomByPair(ctx, "alice", "carol")
	req.NoError(err)
	req.Nil(none)

	rooms, err := repo.ListRoomsForUser(ctx, "bob")
	req.NoError(err)
	req.Len(rooms, 1)
}

func TestBadgerRequestRepository_ReopenRetakesPair(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewBadgerRequestRepository(setupTestDB(t), slog.Default())

	first := newRequest("alice", "bob", "m1")
	req.NoError(repo.CreateRequest(ctx, first))
	_, err := repo.UpdateRequestStatus(ctx, first.RequestID, models.StatusPending, models.StatusRejected)
	req.NoError(err)

	_, err = repo.UpdateRequestStatus(ctx, first.RequestID, models.StatusRejected, models.StatusPending)
	req.NoError(err)

	active, err := repo.FindActiveRequest(ctx, "bob", "alice")
	req.NoError(err)
	req.NotNil(active)
	req.Equal(first.RequestID, active.RequestID)
	req.ErrorIs(repo.CreateRequest(ctx, newRequest("bob", "alice", "m2")), ErrDuplicate)

	// Once another request owns the pair, the old one cannot come back
	_, err = repo.UpdateRequestStatus(ctx, first.RequestID, models.StatusPending, models.StatusRejected)
	req.NoError(err)
	second := newRequest("bob", "alice", "m2")
	req.NoError(repo.CreateRequest(ctx, second))

	_, err = repo.UpdateRequestStatus(ctx, first.RequestID, models.StatusRejected, models.StatusPending)
	req.ErrorIs(err, ErrDuplicate)

	stored, err := repo.GetRequest(ctx, first.RequestID)
	req.NoError(err)
	req.Equal(models.StatusRejected, stored.Status)

	active, err = repo.FindActiveRequest(ctx, "alice", "bob")
	req.NoError(err)
	req.Equal(second.RequestID, active.RequestID)
}

func TestBadgerMatchRepository_ReopenRetakesPair(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewBadgerMatchRepository(setupTestDB(t), slog.Default())

	match := newMatch("alice", "bob")
	req.NoError(repo.CreateMatch(ctx, match))
	_, err := repo.UpdateMatchStatus(ctx, match.MatchID, models.StatusPending, models.StatusRejected)
	req.NoError(err)

	reopened, err := repo.UpdateMatchStatus(ctx, match.MatchID, models.StatusRejected, models.StatusPending)
	req.NoError(err)
	req.Equal(models.StatusPending, reopened.Status)

	active, err := repo.FindActiveMatch(ctx, "alice", "bob")
	req.NoError(err)
	req.NotNil(active)
	req.Equal(match.MatchID, active.MatchID)
	req.ErrorIs(repo.CreateMatch(ctx, newMatch("alice", "bob")), ErrDuplicate)
}

func TestBadgerRepositories_SeparatorInIdsKeepsPairsApart(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := setupTestDB(t)
	matches := NewBadgerMatchRepository(db, slog.Default())
	rooms := NewBadgerRoomRepository(db, slog.Default())

	joined := newMatch("a#b", "c")
	split := newMatch("a", "b#c")
	req.NoError(matches.CreateMatch(ctx, joined))
	req.NoError(matches.CreateMatch(ctx, split))

	active, err := matches.FindActiveMatch(ctx, "b#c", "a")
	req.NoError(err)
	req.Equal(split.MatchID, active.MatchID)

	newRoom := func(a, b string) models.ChatRoom {
		low, high := utils.SortedPair(a, b)
		return models.ChatRoom{
			RoomID:       uuid.New().String(),
			Participants: []string{low, high},
			PairKey:      utils.PairKey(a, b),
			CreatedAt:    time.Now().UTC(),
		}
	}
	first := newRoom("a#b", "c")
	second := newRoom("a", "b#c")
	req.NoError(rooms.CreateRoom(ctx, first))
	req.NoError(rooms.CreateRoom(ctx, second))

	found, err := rooms.FindRoomByPair(ctx, "a", "b#c")
	req.NoError(err)
	req.Equal(second.RoomID, found.RoomID)

	// "a" must not pick up entries of "a:b"
	req.NoError(rooms.CreateRoom(ctx, newRoom("a:b", "z")))
	listed, err := rooms.ListRoomsForUser(ctx, "a")
	req.NoError(err)
	req.Len(listed, 1)
	req.Equal(second.RoomID, listed[0].RoomID)
}

func TestBadgerRoomRepository_MessagesAreChronological(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewBadgerRoomRepository(setupTestDB(t), slog.Default())

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		req.NoError(repo.AppendMessage(ctx, models.Message{
			RoomID:    "room-1",
			MessageID: fmt.Sprintf("m%d", i),
			SenderID:  "alice",
			Content:   fmt.Sprintf("hello %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}
	req.NoError(repo.AppendMessage(ctx, models.Message{RoomID: "room-2", MessageID: "other", CreatedAt: base}))

	latest, err := repo.ListMessages(ctx, "room-1", 3)
	req.NoError(err)
	req.Len(latest, 3)
	req.Equal("m2", latest[0].MessageID)
	req.Equal("m4", latest[2].MessageID)

	all, err := repo.ListMessages(ctx, "room-1", 0)
	req.NoError(err)
	req.Len(all, 5)
	req.Equal("m0", all[0].MessageID)
}

func TestBadgerPostRepository_FeedAndReplies(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewBadgerPostRepository(setupTestDB(t), slog.Default())

	base := time.Now().UTC()
	posts := []models.Post{
		{PostID: "p1", Kind: models.PostKindThought, AuthorID: "alice", Content: "first", CreatedAt: base},
		{PostID: "p2", Kind: models.PostKindConfession, AuthorID: "bob", Content: "second", CreatedAt: base.Add(time.Second)},
		{PostID: "p3", Kind: models.PostKindThought, AuthorID: "carol", Content: "third", CreatedAt: base.Add(2 * time.Second)},
	}
	for _, p := range posts {
		req.NoError(repo.CreatePost(ctx, p))
	}

	thoughts, err := repo.ListPosts(ctx, models.PostKindThought, 10)
	req.NoError(err)
	req.Len(thoughts, 2)
	req.Equal("p3", thoughts[0].PostID)

	feed, err := repo.ListPosts(ctx, "", 2)
	req.NoError(err)
	req.Len(feed, 2)
	req.Equal("p3", feed[0].PostID)
	req.Equal("p2", feed[1].PostID)

	req.NoError(repo.AddReply(ctx, models.Reply{PostID: "p1", ReplyID: "r1", AuthorID: "bob", Content: "same", CreatedAt: base}))
	req.NoError(repo.AddReply(ctx, models.Reply{PostID: "p1", ReplyID: "r2", AuthorID: "carol", Content: "me too", CreatedAt: base.Add(time.Second)}))
	req.ErrorIs(repo.AddReply(ctx, models.Reply{PostID: "missing", ReplyID: "r3", CreatedAt: base}), ErrNotFound)

	post, err := repo.GetPost(ctx, "p1")
	req.NoError(err)
	req.Equal(2, post.ReplyCount)
	req.Equal("alice", post.AuthorID)

	replies, err := repo.ListReplies(ctx, "p1")
	req.NoError(err)
	req.Len(replies, 2)
	req.Equal("r1", replies[0].ReplyID)
}
