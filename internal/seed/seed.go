package seed

import (
	"context"
	"fmt"

	"arcade/internal/bootstrap"
	"arcade/internal/database"
	"arcade/internal/middleware"
	"arcade/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
	DryRun      bool
	// MaxDays bounds how far back generated timestamps reach.
	MaxDays int
	// BcryptCost overrides bcrypt.DefaultCost for the shared seed password.
	BcryptCost int
	// RandSeed makes generated content reproducible when non-zero.
	RandSeed int64
}

// Summary counts what a Seed run created.
type Summary struct {
	Users     int
	Favorites int
	Posts     int
	Likes     int
	Comments  int
}

// Seeder fills a store with demo users, favorites, posts, likes and comments.
type Seeder struct {
	stores  *bootstrap.Stores
	opts    Options
	factory *Factory
}

// NewSeeder creates a seeder writing to stores.
func NewSeeder(stores *bootstrap.Stores, opts Options) *Seeder {
	return &Seeder{stores: stores, opts: opts, factory: NewFactory(stores, opts)}
}

// Seed populates the store with test data
func (s *Seeder) Seed(ctx context.Context) (Summary, error) {
	var sum Summary
	log := middleware.Logger
	log.Info("starting database seeding", "users", s.opts.NumUsers, "posts", s.opts.NumPosts, "dry_run", s.opts.DryRun)

	if s.opts.ShouldClean && !s.opts.DryRun {
		if err := Clean(ctx, s.stores); err != nil {
			return sum, fmt.Errorf("failed to clear data: %w", err)
		}
		log.Info("existing data cleared")
	}

	users := make([]*models.User, 0, s.opts.NumUsers)
	for i := 0; i < s.opts.NumUsers; i++ {
		user, err := s.factory.CreateUser(ctx)
		if err != nil {
			return sum, fmt.Errorf("failed to create users: %w", err)
		}
		users = append(users, user)

		for j := s.factory.rng.Intn(4); j > 0; j-- {
			if _, err := s.factory.AddFavorite(ctx, user); err != nil {
				return sum, err
			}
			sum.Favorites++
		}
	}
	sum.Users = len(users)
	log.Info("users created", "count", sum.Users, "favorites", sum.Favorites)

	if len(users) == 0 {
		return sum, nil
	}

	for i := 0; i < s.opts.NumPosts; i++ {
		author := users[s.factory.rng.Intn(len(users))]
		post, err := s.factory.CreatePost(ctx, author)
		if err != nil {
			return sum, fmt.Errorf("failed to create posts: %w", err)
		}
		sum.Posts++

		likes, comments, err := s.engage(ctx, post, users)
		if err != nil {
			return sum, err
		}
		sum.Likes += likes
		sum.Comments += comments
	}
	log.Info("posts created", "count", sum.Posts, "likes", sum.Likes, "comments", sum.Comments)

	log.Info("database seeding completed")
	return sum, nil
}

// engage adds likes from a random subset of users and a few comments.
func (s *Seeder) engage(ctx context.Context, post *models.Post, users []*models.User) (likes, comments int, err error) {
	rng := s.factory.rng
	for _, idx := range rng.Perm(len(users))[:rng.Intn(len(users)+1)] {
		if err := s.factory.Like(ctx, post, users[idx]); err != nil {
			return likes, comments, err
		}
		likes++
	}
	for n := rng.Intn(4); n > 0; n-- {
		author := users[rng.Intn(len(users))]
		if _, err := s.factory.CreateComment(ctx, post, author); err != nil {
			return likes, comments, err
		}
		comments++
	}
	return likes, comments, nil
}

// Clean removes every user, post, like, comment and favorite from stores.
func Clean(ctx context.Context, stores *bootstrap.Stores) error {
	if stores.Mongo != nil {
		if err := stores.Mongo.Drop(ctx); err != nil {
			return err
		}
		return stores.Mongo.EnsureIndexes(ctx)
	}
	if stores.DB == nil {
		return fmt.Errorf("no store to clean")
	}

	return stores.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		tables := database.PersistentModels()
		// Children first.
		for i := len(tables) - 1; i >= 0; i-- {
			if err := all.Delete(tables[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
