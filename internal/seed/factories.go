// Package seed provides helpers to create demo data for the community
// backend. These helpers are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"arcade/internal/bootstrap"
	"arcade/internal/models"
	"arcade/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
)

// DefaultPassword is the login password of every seeded account.
const DefaultPassword = "password123"

// Factory builds domain entities and persists them through the store
// repositories, so it works against every storage driver.
type Factory struct {
	stores *bootstrap.Stores
	opts   Options
	faker  *gofakeit.Faker
	rng    *rand.Rand
	hash   string
}

// NewFactory creates a Factory bound to stores. stores may be nil in
// DryRun mode.
func NewFactory(stores *bootstrap.Stores, opts Options) *Factory {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{
		stores: stores,
		opts:   opts,
		faker:  gofakeit.New(seed),
		//nolint:gosec // Weak random number generator is fine for seeding
		rng: rand.New(rand.NewSource(seed)),
	}
}

// passwordHash hashes DefaultPassword once per factory.
func (f *Factory) passwordHash() (string, error) {
	if f.hash != "" {
		return f.hash, nil
	}
	cost := f.opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
	if err != nil {
		return "", fmt.Errorf("hash seed password: %w", err)
	}
	f.hash = string(hashed)
	return f.hash, nil
}

// BuildUser returns an unsaved user with generated profile fields.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	username := strings.ToLower(f.faker.Username()) + fmt.Sprintf("%d", f.faker.Number(100, 999))
	user := &models.User{
		ID:          models.NewID(),
		Username:    username,
		Email:       repository.NormalizeEmail(username + "@" + f.faker.DomainName()),
		Bio:         f.faker.Sentence(10),
		AvatarColor: f.faker.HexColor(),
		CreatedAt:   f.pastTime(),
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// CreateUser persists a generated user whose password is DefaultPassword.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)
	hashed, err := f.passwordHash()
	if err != nil {
		return nil, err
	}
	user.Password = hashed

	if f.opts.DryRun {
		return user, nil
	}
	if err := f.stores.Users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user %s: %w", user.Username, err)
	}
	return user, nil
}

// BuildPost returns an unsaved post by author in a random forum.
func (f *Factory) BuildPost(author *models.User, overrides ...func(*models.Post)) *models.Post {
	post := &models.Post{
		ID:        models.NewID(),
		UserID:    author.ID,
		Content:   f.faker.Paragraph(1, 3, 12, "\n"),
		Forum:     models.Forums[f.rng.Intn(len(models.Forums))],
		CreatedAt: f.pastTime(),
	}
	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePost persists a generated post by author.
func (f *Factory) CreatePost(ctx context.Context, author *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(author, overrides...)
	if f.opts.DryRun {
		return post, nil
	}
	if err := f.stores.Posts.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

// BuildComment returns an unsaved comment by author on post.
func (f *Factory) BuildComment(post *models.Post, author *models.User) *models.Comment {
	createdAt := post.CreatedAt.Add(time.Duration(f.rng.Intn(72)+1) * time.Hour)
	if now := time.Now().UTC(); createdAt.After(now) {
		createdAt = now
	}
	return &models.Comment{
		ID:        models.NewID(),
		PostID:    post.ID,
		UserID:    author.ID,
		Content:   f.faker.Sentence(f.rng.Intn(12) + 3),
		CreatedAt: createdAt,
	}
}

// CreateComment persists a generated comment by author on post.
func (f *Factory) CreateComment(ctx context.Context, post *models.Post, author *models.User) (*models.Comment, error) {
	comment := f.BuildComment(post, author)
	if f.opts.DryRun {
		return comment, nil
	}
	if err := f.stores.Comments.Add(ctx, post.ID, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return comment, nil
}

// Like records user's like on post.
func (f *Factory) Like(ctx context.Context, post *models.Post, user *models.User) error {
	if f.opts.DryRun {
		return nil
	}
	if _, err := f.stores.Posts.Likes().AddFront(ctx, post.ID, user.ID); err != nil {
		return fmt.Errorf("like post: %w", err)
	}
	return nil
}

// BuildFavorite returns a generated favorite game entry.
func (f *Factory) BuildFavorite() models.FavoriteGame {
	return models.FavoriteGame{
		GameID:   fmt.Sprintf("%d", f.faker.Number(1, 900000)),
		Name:     strings.TrimSuffix(f.faker.Sentence(f.rng.Intn(3)+1), "."),
		ImageURL: fmt.Sprintf("https://picsum.photos/seed/%s/600/400", f.faker.UUID()),
		Rating:   float64(f.faker.Number(10, 50)) / 10,
	}
}

// AddFavorite stores a generated favorite on user.
func (f *Factory) AddFavorite(ctx context.Context, user *models.User) (models.FavoriteGame, error) {
	game := f.BuildFavorite()
	game.UserID = user.ID
	game.Position = repository.NextPosition()
	if f.opts.DryRun {
		return game, nil
	}
	if _, err := f.stores.Users.Favorites().AddFront(ctx, user.ID, game); err != nil {
		return game, fmt.Errorf("add favorite: %w", err)
	}
	return game, nil
}

// pastTime spreads timestamps over the last MaxDays days.
func (f *Factory) pastTime() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.rng.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute
	return time.Now().Add(-back).UTC()
}
