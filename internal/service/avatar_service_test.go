package service

import (
	"bytes"
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"

	"arcade/internal/config"
	"arcade/internal/models"
	"arcade/internal/testutil"

	"golang.org/x/crypto/bcrypt"
)

func newAvatarFixture(t *testing.T, maxMB int) (*AvatarService, *userRepoStub, *models.User, string) {
	t.Helper()
	repo := newUserRepoStub()
	user := repo.add(&models.User{Username: "alice"})
	dir := t.TempDir()
	cfg := &config.Config{UploadDir: dir, AvatarMaxUploadSizeMB: maxMB}
	return NewAvatarService(NewUserService(repo, bcrypt.MinCost), cfg), repo, user, dir
}

func TestAvatarServiceUploadCropsAndStores(t *testing.T) {
	svc, repo, user, dir := newAvatarFixture(t, 5)

	avatarPath, err := svc.Upload(context.Background(), UploadAvatarInput{
		UserID:      user.ID,
		Filename:    "Me.PNG",
		ContentType: "image/png",
		Content:     testutil.NoisyPNG(t, 1200, 800),
	})
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if want := "/uploads/avatars/" + user.ID.String() + ".jpg"; avatarPath != want {
		t.Fatalf("expected avatar path %q, got %q", want, avatarPath)
	}
	stored := repo.users[user.ID].Avatar
	if stored == nil || *stored != avatarPath {
		t.Fatalf("expected avatar persisted on user, got %v", stored)
	}

	jpgPath := filepath.Join(dir, "avatars", user.ID.String()+".jpg")
	raw, err := os.ReadFile(jpgPath)
	if err != nil {
		t.Fatalf("expected jpeg at %s: %v", jpgPath, err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode stored avatar: %v", err)
	}
	if format != "jpeg" {
		t.Fatalf("expected jpeg, got %s", format)
	}
	if cfg.Width != AvatarMaxSize || cfg.Height != AvatarMaxSize {
		t.Fatalf("expected %dx%d square, got %dx%d", AvatarMaxSize, AvatarMaxSize, cfg.Width, cfg.Height)
	}
	if _, err := os.Stat(filepath.Join(dir, "avatars", user.ID.String()+".webp")); err != nil {
		t.Fatalf("expected webp variant: %v", err)
	}
}

func TestAvatarServiceSmallImageKeepsSize(t *testing.T) {
	svc, _, user, dir := newAvatarFixture(t, 5)

	_, err := svc.Upload(context.Background(), UploadAvatarInput{
		UserID:   user.ID,
		Filename: "tiny.png",
		Content:  testutil.TinyPNG(t, 64, 40),
	})
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(dir, "avatars", user.ID.String()+".jpg"))
	if err != nil {
		t.Fatalf("read avatar: %v", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode avatar: %v", err)
	}
	if cfg.Width != 40 || cfg.Height != 40 {
		t.Fatalf("expected 40x40 centre crop, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestAvatarServiceUploadValidation(t *testing.T) {
	svc, _, user, _ := newAvatarFixture(t, 1)
	ctx := context.Background()
	png := testutil.TinyPNG(t, 16, 16)

	cases := []struct {
		name string
		in   UploadAvatarInput
	}{
		{"empty", UploadAvatarInput{UserID: user.ID, Filename: "a.png"}},
		{"extension", UploadAvatarInput{UserID: user.ID, Filename: "a.bmp", Content: png}},
		{"not an image", UploadAvatarInput{UserID: user.ID, Filename: "a.png", Content: []byte("not an image")}},
		{"too large", UploadAvatarInput{UserID: user.ID, Filename: "a.png", Content: bytes.Repeat([]byte{'a'}, 2*1024*1024)}},
		{"content type mismatch", UploadAvatarInput{UserID: user.ID, Filename: "a.jpg", ContentType: "image/jpeg", Content: png}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Upload(ctx, tc.in)
			if !models.IsCode(err, models.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	_, err := svc.Upload(ctx, UploadAvatarInput{UserID: models.NewID(), Filename: "a.png", Content: png})
	if !models.IsCode(err, models.CodeNotFound) {
		t.Fatalf("expected not found for unknown user, got %v", err)
	}
}

func TestAvatarServiceRejectsHugeDimensionsBeforeDecoding(t *testing.T) {
	svc, repo, user, _ := newAvatarFixture(t, 5)

	_, err := svc.Upload(context.Background(), UploadAvatarInput{
		UserID:   user.ID,
		Filename: "bomb.png",
		Content:  testutil.PNGWithDeclaredSize(t, 50000, 50000),
	})
	if !models.IsCode(err, models.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got := models.Response(err).Msg; got != MsgAvatarTooManyPixels {
		t.Fatalf("expected %q, got %q", MsgAvatarTooManyPixels, got)
	}
	if repo.users[user.ID].Avatar != nil {
		t.Fatal("avatar should not be stored")
	}
}

func TestAvatarServiceTooLargeError(t *testing.T) {
	svc, _, _, _ := newAvatarFixture(t, 5)
	err := svc.TooLargeError()
	if !models.IsCode(err, models.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got := models.Response(err).Msg; got != "File too large (max 5MB)" {
		t.Fatalf("unexpected message %q", got)
	}
}
