package mongostore

import (
	"context"
	"errors"
	"strings"
	"time"

	"arcade/internal/cache"
	"arcade/internal/models"
	"arcade/internal/relation"
	"arcade/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserRepository stores users with their favorites embedded.
type UserRepository struct {
	store     *Store
	favorites *favoriteCollection
}

var _ repository.UserRepository = (*UserRepository)(nil)

// NewUserRepository returns the MongoDB UserRepository.
func NewUserRepository(store *Store) *UserRepository {
	return &UserRepository{store: store, favorites: &favoriteCollection{store: store}}
}

func (r *UserRepository) Favorites() relation.Collection[models.FavoriteGame] {
	return r.favorites
}

func (r *UserRepository) GetByID(ctx context.Context, id models.ID) (*models.User, error) {
	user, err := r.findOne(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError(repository.MsgUserNotFound)
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": repository.NormalizeEmail(email)})
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := r.store.users().FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	if user.FavoriteGames == nil {
		user.FavoriteGames = []models.FavoriteGame{}
	}
	return &user, nil
}

func (r *UserRepository) GetSummaries(ctx context.Context, ids []models.ID) (map[models.ID]models.Author, error) {
	out := make(map[models.ID]models.Author, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	opts := options.Find().SetProjection(bson.M{"username": 1, "avatar": 1})
	cur, err := r.store.users().Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, models.NewInternalError(err)
	}
	for i := range users {
		out[users[i].ID] = users[i].Summary()
	}
	return out, nil
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	user.Email = repository.NormalizeEmail(user.Email)
	if user.ID.IsZero() {
		user.ID = models.NewID()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if user.FavoriteGames == nil {
		user.FavoriteGames = []models.FavoriteGame{}
	}

	if _, err := r.store.users().InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if strings.Contains(err.Error(), "uniq_email") {
				return models.NewConflictError(repository.MsgUserExists)
			}
			return models.NewConflictError(repository.MsgUsernameTaken)
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	res, err := r.store.users().UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": bson.M{
		"username":    user.Username,
		"bio":         user.Bio,
		"password":    user.Password,
		"avatar":      user.Avatar,
		"avatarColor": user.AvatarColor,
		"updatedAt":   user.UpdatedAt,
	}})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.NewConflictError(repository.MsgUsernameTaken)
		}
		return models.NewInternalError(err)
	}
	if res.MatchedCount == 0 {
		return models.NewNotFoundError(repository.MsgUserNotFound)
	}
	cache.InvalidateAuthor(ctx, user.ID)
	return nil
}

// Delete removes the user's posts, strips their likes and comments from other
// posts, then removes the user document. The steps run in that order so a
// failure never leaves posts pointing at a missing owner.
func (r *UserRepository) Delete(ctx context.Context, id models.ID) error {
	posts := r.store.posts()
	if _, err := posts.DeleteMany(ctx, bson.M{"user": id}); err != nil {
		return models.NewInternalError(err)
	}
	if _, err := posts.UpdateMany(ctx, bson.M{}, bson.M{"$pull": bson.M{
		"likes":    id,
		"comments": bson.M{"user": id},
	}}); err != nil {
		return models.NewInternalError(err)
	}
	if _, err := r.store.users().DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateAuthor(ctx, id)
	return nil
}

// favoriteCollection keeps favorites as the user's embedded favoriteGames array.
type favoriteCollection struct {
	store *Store
}

func (f *favoriteCollection) List(ctx context.Context, userID models.ID) ([]models.FavoriteGame, error) {
	var doc struct {
		FavoriteGames []models.FavoriteGame `bson:"favoriteGames"`
	}
	opts := options.FindOne().SetProjection(bson.M{"favoriteGames": 1})
	if err := f.store.users().FindOne(ctx, bson.M{"_id": userID}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.NewNotFoundError(repository.MsgUserNotFound)
		}
		return nil, models.NewInternalError(err)
	}
	if doc.FavoriteGames == nil {
		doc.FavoriteGames = []models.FavoriteGame{}
	}
	return doc.FavoriteGames, nil
}

func (f *favoriteCollection) AddFront(ctx context.Context, userID models.ID, game models.FavoriteGame) (bool, error) {
	res, err := f.store.users().UpdateOne(ctx,
		bson.M{"_id": userID, "favoriteGames.gameId": bson.M{"$ne": game.GameID}},
		bson.M{"$push": bson.M{"favoriteGames": bson.M{"$each": []models.FavoriteGame{game}, "$position": 0}}},
	)
	if err != nil {
		return false, models.NewInternalError(err)
	}
	if res.ModifiedCount == 1 {
		return true, nil
	}
	return false, ensureExists(ctx, f.store.users(), userID, repository.MsgUserNotFound)
}

func (f *favoriteCollection) Remove(ctx context.Context, userID models.ID, gameID string) (bool, error) {
	res, err := f.store.users().UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$pull": bson.M{"favoriteGames": bson.M{"gameId": gameID}}},
	)
	if err != nil {
		return false, models.NewInternalError(err)
	}
	if res.MatchedCount == 0 {
		return false, models.NewNotFoundError(repository.MsgUserNotFound)
	}
	return res.ModifiedCount > 0, nil
}

// ensureExists returns NotFound with msg when no document has id.
func ensureExists(ctx context.Context, coll *mongo.Collection, id models.ID, msg string) error {
	n, err := coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return models.NewInternalError(err)
	}
	if n == 0 {
		return models.NewNotFoundError(msg)
	}
	return nil
}
