package mongostore

import (
	"context"
	"errors"
	"time"

	"arcade/internal/models"
	"arcade/internal/relation"
	"arcade/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PostRepository stores posts with likes and comments embedded.
type PostRepository struct {
	store *Store
	likes *likeCollection
}

var _ repository.PostRepository = (*PostRepository)(nil)

// NewPostRepository returns the MongoDB PostRepository.
func NewPostRepository(store *Store) *PostRepository {
	return &PostRepository{store: store, likes: &likeCollection{store: store}}
}

func (r *PostRepository) Likes() relation.Collection[models.ID] {
	return r.likes
}

func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	if post.ID.IsZero() {
		post.ID = models.NewID()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	if post.Likes == nil {
		post.Likes = []models.ID{}
	}
	if post.Comments == nil {
		post.Comments = []models.Comment{}
	}
	if _, err := r.store.posts().InsertOne(ctx, post); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *PostRepository) GetByID(ctx context.Context, id models.ID) (*models.Post, error) {
	var post models.Post
	if err := r.store.posts().FindOne(ctx, bson.M{"_id": id}).Decode(&post); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.NewNotFoundError(repository.MsgPostNotFound)
		}
		return nil, models.NewInternalError(err)
	}
	normalizePost(&post)
	return &post, nil
}

func (r *PostRepository) List(ctx context.Context, forum *models.Forum) ([]models.Post, error) {
	filter := bson.M{}
	if forum != nil {
		filter["forum"] = *forum
	}

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := r.store.posts().Find(ctx, filter, opts)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	posts := []models.Post{}
	if err := cur.All(ctx, &posts); err != nil {
		return nil, models.NewInternalError(err)
	}
	for i := range posts {
		normalizePost(&posts[i])
	}
	return posts, nil
}

func (r *PostRepository) Delete(ctx context.Context, id models.ID) error {
	res, err := r.store.posts().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return models.NewInternalError(err)
	}
	if res.DeletedCount == 0 {
		return models.NewNotFoundError(repository.MsgPostNotFound)
	}
	return nil
}

func normalizePost(post *models.Post) {
	if post.Likes == nil {
		post.Likes = []models.ID{}
	}
	if post.Comments == nil {
		post.Comments = []models.Comment{}
	}
	for i := range post.Comments {
		post.Comments[i].PostID = post.ID
	}
}

// likeCollection keeps likes as the post's embedded likes array.
type likeCollection struct {
	store *Store
}

func (l *likeCollection) List(ctx context.Context, postID models.ID) ([]models.ID, error) {
	var doc struct {
		Likes []models.ID `bson:"likes"`
	}
	opts := options.FindOne().SetProjection(bson.M{"likes": 1})
	if err := l.store.posts().FindOne(ctx, bson.M{"_id": postID}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.NewNotFoundError(repository.MsgPostNotFound)
		}
		return nil, models.NewInternalError(err)
	}
	if doc.Likes == nil {
		doc.Likes = []models.ID{}
	}
	return doc.Likes, nil
}

func (l *likeCollection) AddFront(ctx context.Context, postID models.ID, userID models.ID) (bool, error) {
	res, err := l.store.posts().UpdateOne(ctx,
		bson.M{"_id": postID, "likes": bson.M{"$ne": userID}},
		bson.M{"$push": bson.M{"likes": bson.M{"$each": []models.ID{userID}, "$position": 0}}},
	)
	if err != nil {
		return false, models.NewInternalError(err)
	}
	if res.ModifiedCount == 1 {
		return true, nil
	}
	return false, ensureExists(ctx, l.store.posts(), postID, repository.MsgPostNotFound)
}

func (l *likeCollection) Remove(ctx context.Context, postID models.ID, userID string) (bool, error) {
	res, err := l.store.posts().UpdateOne(ctx,
		bson.M{"_id": postID},
		bson.M{"$pull": bson.M{"likes": models.ID(userID)}},
	)
	if err != nil {
		return false, models.NewInternalError(err)
	}
	if res.MatchedCount == 0 {
		return false, models.NewNotFoundError(repository.MsgPostNotFound)
	}
	return res.ModifiedCount > 0, nil
}

// CommentRepository manages the comments array embedded in each post.
type CommentRepository struct {
	store *Store
}

var _ repository.CommentRepository = (*CommentRepository)(nil)

// NewCommentRepository returns the MongoDB CommentRepository.
func NewCommentRepository(store *Store) *CommentRepository {
	return &CommentRepository{store: store}
}

func (r *CommentRepository) Add(ctx context.Context, postID models.ID, comment *models.Comment) error {
	if comment.ID.IsZero() {
		comment.ID = models.NewID()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	comment.PostID = postID

	res, err := r.store.posts().UpdateOne(ctx,
		bson.M{"_id": postID},
		bson.M{"$push": bson.M{"comments": bson.M{"$each": []models.Comment{*comment}, "$position": 0}}},
	)
	if err != nil {
		return models.NewInternalError(err)
	}
	if res.MatchedCount == 0 {
		return models.NewNotFoundError(repository.MsgPostNotFound)
	}
	return nil
}

func (r *CommentRepository) Get(ctx context.Context, postID, commentID models.ID) (*models.Comment, error) {
	var doc struct {
		Comments []models.Comment `bson:"comments"`
	}
	opts := options.FindOne().SetProjection(bson.M{"comments.$": 1})
	err := r.store.posts().FindOne(ctx, bson.M{"_id": postID, "comments._id": commentID}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.NewNotFoundError(repository.MsgCommentNotFound)
		}
		return nil, models.NewInternalError(err)
	}
	if len(doc.Comments) == 0 {
		return nil, models.NewNotFoundError(repository.MsgCommentNotFound)
	}
	comment := doc.Comments[0]
	comment.PostID = postID
	return &comment, nil
}

func (r *CommentRepository) Remove(ctx context.Context, postID, commentID models.ID) (bool, error) {
	res, err := r.store.posts().UpdateOne(ctx,
		bson.M{"_id": postID},
		bson.M{"$pull": bson.M{"comments": bson.M{"_id": commentID}}},
	)
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return res.ModifiedCount > 0, nil
}

func (r *CommentRepository) List(ctx context.Context, postID models.ID) ([]models.Comment, error) {
	post, err := NewPostRepository(r.store).GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	return post.Comments, nil
}
