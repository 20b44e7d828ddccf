package service

import (
	"context"
	"strings"

	"arcade/internal/models"
	"arcade/internal/relation"
	"arcade/internal/repository"
)

const (
	MsgFavoriteFieldsMissing = "Game ID and Name are required"
	MsgFavoriteExists        = "Game already in favorites"
)

// FavoritesService manages a user's favorite games. Adding an existing game
// is rejected rather than toggled.
type FavoritesService struct {
	userRepo repository.UserRepository
	engine   *relation.Engine[models.FavoriteGame]
}

type AddFavoriteInput struct {
	UserID   models.ID
	GameID   string
	Name     string
	ImageURL string
	Rating   float64
}

func NewFavoritesService(userRepo repository.UserRepository) *FavoritesService {
	return &FavoritesService{
		userRepo: userRepo,
		engine: relation.NewEngine("favorites", userRepo.Favorites(), func(g models.FavoriteGame) string {
			return g.GameID
		}),
	}
}

// List returns the favorites newest first. A user deleted since their token
// was issued is reported as not found.
func (s *FavoritesService) List(ctx context.Context, userID models.ID) ([]models.FavoriteGame, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.engine.List(ctx, userID)
}

func (s *FavoritesService) Add(ctx context.Context, in AddFavoriteInput) ([]models.FavoriteGame, error) {
	gameID := strings.TrimSpace(in.GameID)
	name := strings.TrimSpace(in.Name)
	if gameID == "" || name == "" {
		return nil, models.NewValidationError(MsgFavoriteFieldsMissing)
	}
	if err := s.ensureUser(ctx, in.UserID); err != nil {
		return nil, err
	}

	res, err := s.engine.Add(ctx, in.UserID, models.FavoriteGame{
		GameID:   gameID,
		Name:     name,
		ImageURL: strings.TrimSpace(in.ImageURL),
		Rating:   in.Rating,
	}, MsgFavoriteExists)
	if err != nil {
		return nil, err
	}
	return res.Members, nil
}

// Remove drops gameID from the favorites. Removing a game that is not a
// favorite returns the unchanged list.
func (s *FavoritesService) Remove(ctx context.Context, userID models.ID, gameID string) ([]models.FavoriteGame, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	res, err := s.engine.Remove(ctx, userID, strings.TrimSpace(gameID))
	if err != nil {
		return nil, err
	}
	return res.Members, nil
}

func (s *FavoritesService) ensureUser(ctx context.Context, userID models.ID) error {
	found, err := s.userRepo.GetSummaries(ctx, []models.ID{userID})
	if err != nil {
		return err
	}
	if _, ok := found[userID]; !ok {
		return models.NewNotFoundError(repository.MsgUserNotFound)
	}
	return nil
}
