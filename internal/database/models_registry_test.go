package database

import (
	"testing"

	modelspkg "arcade/internal/models"

	"github.com/stretchr/testify/require"
)

func TestPersistentModels_IncludesRelationTables(t *testing.T) {
	var like, favorite bool
	for _, model := range PersistentModels() {
		switch model.(type) {
		case *modelspkg.Like:
			like = true
		case *modelspkg.FavoriteGame:
			favorite = true
		}
	}
	require.True(t, like, "PersistentModels should include Like")
	require.True(t, favorite, "PersistentModels should include FavoriteGame")
}
