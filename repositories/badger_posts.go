package repositories

import (
	"context"
	"errors"
	"log/slog"

	"murmur_server/models"
	"murmur_server/utils"

	"github.com/dgraph-io/badger/v4"
)

// allKinds is the feed index that holds every post regardless of kind
const allKinds = "all"

// BadgerPostRepository stores thoughts, confessions and their replies
type BadgerPostRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewBadgerPostRepository(db *badger.DB, log *slog.Logger) BadgerPostRepository {
	return BadgerPostRepository{db: db, log: log}
}

func postIndexKey(kind, sortKey string) []byte {
	return []byte(postIndexPrefix + kind + ":" + sortKey)
}

func (r BadgerPostRepository) CreatePost(_ context.Context, post models.Post) error {
	if post.SortKey == "" {
		post.SortKey = utils.TimeSortKey(post.CreatedAt, post.PostID)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		if err := putRecord(txn, postPrefix+post.PostID, post); err != nil {
			return err
		}
		if err := txn.Set(postIndexKey(post.Kind, post.SortKey), []byte(post.PostID)); err != nil {
			return err
		}
		return txn.Set(postIndexKey(allKinds, post.SortKey), []byte(post.PostID))
	})
}

func (r BadgerPostRepository) GetPost(_ context.Context, postID string) (*models.Post, error) {
	var post *models.Post
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		post, err = getRecord[models.Post](txn, postPrefix+postID)
		return err
	})
	return post, err
}

// ListPosts returns the newest posts of a kind; an empty kind lists every post.
func (r BadgerPostRepository) ListPosts(_ context.Context, kind string, limit int) ([]models.Post, error) {
	if kind == "" {
		kind = allKinds
	}
	var posts []models.Post
	err := r.db.View(func(txn *badger.Txn) error {
		ids, err := scanValues(txn, postIndexPrefix+kind+":", true, limit)
		if err != nil {
			return err
		}
		for _, id := range ids {
			post, err := getRecord[models.Post](txn, postPrefix+string(id))
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			posts = append(posts, *post)
		}
		return nil
	})
	return posts, err
}

// AddReply stores a reply and bumps the post's reply counter in one transaction.
func (r BadgerPostRepository) AddReply(_ context.Context, reply models.Reply) error {
	if reply.SortKey == "" {
		reply.SortKey = utils.TimeSortKey(reply.CreatedAt, reply.ReplyID)
	}
	return updateWithRetry(r.db, func(txn *badger.Txn) error {
		post, err := getRecord[models.Post](txn, postPrefix+reply.PostID)
		if err != nil {
			return err
		}
		post.ReplyCount++
		if err := putRecord(txn, postPrefix+post.PostID, post); err != nil {
			return err
		}
		return putRecord(txn, replyPrefix+reply.PostID+":"+reply.SortKey, reply)
	})
}

// ListReplies returns a post's replies, oldest first.
func (r BadgerPostRepository) ListReplies(_ context.Context, postID string) ([]models.Reply, error) {
	var replies []models.Reply
	err := r.db.View(func(txn *badger.Txn) error {
		values, err := scanValues(txn, replyPrefix+postID+":", false, 0)
		if err != nil {
			return err
		}
		replies, err = decodeAll[models.Reply](values)
		return err
	})
	return replies, err
}
