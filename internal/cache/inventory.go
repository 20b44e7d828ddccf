package cache

import (
	"context"
	"fmt"
	"time"

	"arcade/internal/models"
)

const (
	AuthorKeyPrefix     = "author:%s"
	CatalogSearchPrefix = "catalog:search:%s"
	CatalogGamePrefix   = "catalog:game:%s"
	WSTicketPrefix      = "ws_ticket:%s"
)

const (
	AuthorTTL   = 5 * time.Minute
	WSTicketTTL = 30 * time.Second
)

func AuthorKey(userID models.ID) string {
	return fmt.Sprintf(AuthorKeyPrefix, userID)
}

func CatalogSearchKey(query string) string {
	return fmt.Sprintf(CatalogSearchPrefix, query)
}

func CatalogGameKey(gameID string) string {
	return fmt.Sprintf(CatalogGamePrefix, gameID)
}

func WSTicketKey(ticket string) string {
	return fmt.Sprintf(WSTicketPrefix, ticket)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateAuthor(ctx context.Context, userID models.ID) {
	Invalidate(ctx, AuthorKey(userID))
}
