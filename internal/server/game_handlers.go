package server

import (
	"bytes"
	"encoding/json"

	"arcade/internal/catalog"
	"arcade/internal/service"

	"github.com/gofiber/fiber/v2"
)

// gameID decodes a catalog game id sent as a JSON string or number.
type gameID string

func (g *gameID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*g = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*g = gameID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*g = gameID(n.String())
	return nil
}

type addFavoriteRequest struct {
	GameID   gameID   `json:"gameId"`
	Name     *string  `json:"name"`
	ImageURL *string  `json:"imageUrl"`
	Rating   *float64 `json:"rating"`
}

// SearchGames handles GET /games
func (s *Server) SearchGames(c *fiber.Ctx) error {
	page, err := s.catalog.Search(c.UserContext(), catalog.SearchParams{
		Search:   c.Query("search"),
		Ordering: c.Query("ordering"),
		Genres:   c.Query("genres"),
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", catalog.DefaultPageSize),
	})
	if err != nil {
		return s.respondWithError(c, err)
	}
	return c.JSON(page)
}

// GetGame handles GET /games/:gameId
func (s *Server) GetGame(c *fiber.Ctx) error {
	game, err := s.catalog.Game(c.UserContext(), c.Params("gameId"))
	if err != nil {
		return s.respondWithError(c, err)
	}
	return c.JSON(game)
}

// GetFavorites handles GET /games/favorites
func (s *Server) GetFavorites(c *fiber.Ctx) error {
	favorites, err := s.favoritesSvc.List(c.UserContext(), currentUserID(c))
	if err != nil {
		return s.respondWithError(c, err)
	}
	return c.JSON(favorites)
}

// AddFavorite handles PUT /games/favorite
func (s *Server) AddFavorite(c *fiber.Ctx) error {
	var req addFavoriteRequest
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	in := service.AddFavoriteInput{
		UserID:   currentUserID(c),
		GameID:   string(req.GameID),
		Name:     deref(req.Name),
		ImageURL: deref(req.ImageURL),
	}
	if req.Rating != nil {
		in.Rating = *req.Rating
	}

	favorites, err := s.favoritesSvc.Add(c.UserContext(), in)
	if err != nil {
		return s.respondWithError(c, err)
	}
	return c.JSON(favorites)
}

// RemoveFavorite handles DELETE /games/favorite/:gameId
func (s *Server) RemoveFavorite(c *fiber.Ctx) error {
	favorites, err := s.favoritesSvc.Remove(c.UserContext(), currentUserID(c), c.Params("gameId"))
	if err != nil {
		return s.respondWithError(c, err)
	}
	return c.JSON(favorites)
}
