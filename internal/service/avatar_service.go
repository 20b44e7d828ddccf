package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"arcade/internal/config"
	"arcade/internal/models"
	"arcade/internal/observability"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultAvatarUploadDir  = "uploads"
	DefaultAvatarMaxSizeMB  = 5
	AvatarMaxSize           = 512
	AvatarJPEGQuality       = 85
	AvatarWebPQuality       = 75
	AvatarPublicPrefix      = "/uploads/avatars"
	AvatarMaxPixels         = 40_000_000
	avatarSubdir            = "avatars"
	MsgAvatarUploaded       = "Avatar uploaded successfully"
	MsgNoFileUploaded       = "No file uploaded"
	MsgAvatarTypeNotAllowed = "Only image files are allowed (jpg, jpeg, png, gif, webp)"
	MsgAvatarTooManyPixels  = "Image dimensions too large"
)

var allowedAvatarExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
}

type UploadAvatarInput struct {
	UserID      models.ID
	Filename    string
	ContentType string
	Content     []byte
}

// AvatarService normalizes uploaded avatars and stores them under the upload
// directory, one JPEG and one WebP file per user.
type AvatarService struct {
	users              *UserService
	uploadDir          string
	maxUploadSizeBytes int64
}

func NewAvatarService(users *UserService, cfg *config.Config) *AvatarService {
	uploadDir := DefaultAvatarUploadDir
	maxBytes := int64(DefaultAvatarMaxSizeMB) * 1024 * 1024

	if cfg != nil {
		if cfg.UploadDir != "" {
			uploadDir = cfg.UploadDir
		}
		if n := cfg.AvatarMaxBytes(); n > 0 {
			maxBytes = n
		}
	}

	return &AvatarService{users: users, uploadDir: uploadDir, maxUploadSizeBytes: maxBytes}
}

// MaxUploadBytes is the largest accepted upload.
func (s *AvatarService) MaxUploadBytes() int64 {
	return s.maxUploadSizeBytes
}

// TooLargeError is the validation error for uploads over MaxUploadBytes.
func (s *AvatarService) TooLargeError() error {
	return models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
}

// Upload validates, crops and stores the avatar, then records its public path
// on the user. Any previous avatar for the user is overwritten.
func (s *AvatarService) Upload(ctx context.Context, in UploadAvatarInput) (string, error) {
	publicPath, err := s.upload(ctx, in)
	result := "ok"
	if err != nil {
		result = models.ErrorCode(err)
	}
	observability.AvatarUploads.WithLabelValues(result).Inc()
	return publicPath, err
}

func (s *AvatarService) upload(ctx context.Context, in UploadAvatarInput) (string, error) {
	if in.UserID.IsZero() {
		return "", models.NewValidationError("Invalid user")
	}
	if len(in.Content) == 0 {
		return "", models.NewValidationError(MsgNoFileUploaded)
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return "", s.TooLargeError()
	}

	ext := strings.ToLower(filepath.Ext(in.Filename))
	if _, ok := allowedAvatarExtensions[ext]; !ok {
		return "", models.NewValidationError(MsgAvatarTypeNotAllowed)
	}
	if !isAllowedImageMIME(http.DetectContentType(in.Content)) {
		return "", models.NewValidationError(MsgAvatarTypeNotAllowed)
	}

	// Header-only decode; the pixel buffer is allocated by image.Decode below.
	dims, _, err := image.DecodeConfig(bytes.NewReader(in.Content))
	if err != nil {
		return "", models.NewValidationError("Invalid image file")
	}
	if int64(dims.Width)*int64(dims.Height) > AvatarMaxPixels {
		return "", models.NewValidationError(MsgAvatarTooManyPixels)
	}

	decoded, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return "", models.NewValidationError("Invalid image file")
	}
	if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") &&
		!isMatchingContentType(provided, decodedFormatToMime(format)) {
		return "", models.NewValidationError("Image content type mismatch")
	}

	avatar := resizeToFit(cropSquare(decoded), AvatarMaxSize, AvatarMaxSize)

	jpg, err := encodeJPEG(avatar, AvatarJPEGQuality)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	webpBytes, err := encodeWebP(avatar, AvatarWebPQuality)
	if err != nil {
		return "", models.NewInternalError(err)
	}

	base := in.UserID.String()
	jpgAbs := filepath.Join(s.uploadDir, avatarSubdir, base+".jpg")
	webpAbs := filepath.Join(s.uploadDir, avatarSubdir, base+".webp")
	if err := writeBytesToFile(jpgAbs, jpg); err != nil {
		return "", models.NewInternalError(err)
	}
	if err := writeBytesToFile(webpAbs, webpBytes); err != nil {
		return "", models.NewInternalError(err)
	}

	publicPath := path.Join(AvatarPublicPrefix, base+".jpg")
	if _, err := s.users.SetAvatar(ctx, in.UserID, publicPath); err != nil {
		return "", err
	}
	return publicPath, nil
}

// cropSquare cuts the largest centred square out of src.
func cropSquare(src image.Image) image.Image {
	b := src.Bounds()
	side := min(b.Dx(), b.Dy())
	if side <= 0 {
		return src
	}
	x := b.Min.X + (b.Dx()-side)/2
	y := b.Min.Y + (b.Dy()-side)/2

	dst := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.Draw(dst, dst.Bounds(), src, image.Point{X: x, Y: y}, draw.Src)
	return dst
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	p := normalizeContentType(provided)
	d := normalizeContentType(detected)
	if p == d {
		return true
	}
	return (p == "image/jpg" && d == "image/jpeg") || (p == "image/jpeg" && d == "image/jpg")
}

func decodedFormatToMime(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}

func writeBytesToFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
