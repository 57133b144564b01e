package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"inkwell/internal/config"
	"inkwell/internal/models"
	"inkwell/internal/observability"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultMediaDir        = "./media"
	DefaultMediaURL        = "/media"
	DefaultMaxUploadSizeMB = 5
	MaxImageSide           = 1600
	JPEGQuality            = 82
	WebPQuality            = 70
)

// Image kinds name the media subdirectory an upload is stored under.
const (
	ImageKindProfile = "profiles"
	ImageKindPost    = "posts"
)

type UploadImageInput struct {
	Kind        string
	OwnerID     uint
	Filename    string
	ContentType string
	Content     []byte
}

// StoredImage describes the files written for one upload.
type StoredImage struct {
	Hash    string
	URL     string
	WebPURL string
	Width   int
	Height  int
}

// ImageService validates, normalizes and stores uploaded images under the media directory.
type ImageService struct {
	mediaDir           string
	mediaURL           string
	maxUploadSizeBytes int64
}

func NewImageService(cfg *config.Config) *ImageService {
	mediaDir := DefaultMediaDir
	mediaURL := DefaultMediaURL
	maxUploadSizeMB := DefaultMaxUploadSizeMB

	if cfg != nil {
		if cfg.MediaDir != "" {
			mediaDir = cfg.MediaDir
		}
		if cfg.MediaURL != "" {
			mediaURL = cfg.MediaURL
		}
		if cfg.MediaMaxUploadMB > 0 {
			maxUploadSizeMB = cfg.MediaMaxUploadMB
		}
	}

	return &ImageService{
		mediaDir:           mediaDir,
		mediaURL:           strings.TrimRight(mediaURL, "/"),
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// MaxUploadSizeBytes is the largest accepted upload.
func (s *ImageService) MaxUploadSizeBytes() int64 {
	return s.maxUploadSizeBytes
}

const invalidImageMessage = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."

// imageMIMEs maps image.Decode format names to their canonical media type.
var imageMIMEs = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// rendition is one encoded output written per upload.
type rendition struct {
	ext    string
	encode func(io.Writer, image.Image) error
}

var renditions = []rendition{
	{".jpg", func(w io.Writer, img image.Image) error {
		return jpeg.Encode(w, img, &jpeg.Options{Quality: JPEGQuality})
	}},
	{".webp", func(w io.Writer, img image.Image) error {
		return webp.Encode(w, img, &webp.Options{Quality: WebPQuality})
	}},
}

// Upload decodes the image, fits it into MaxImageSide and writes JPEG and WebP renditions.
// Identical uploads by the same owner map onto the same files.
func (s *ImageService) Upload(ctx context.Context, in UploadImageInput) (stored *StoredImage, err error) {
	_, span := observability.StartSpan(ctx, "service", "image.upload")
	defer func() { observability.EndSpan(span, err) }()

	if in.Kind != ImageKindProfile && in.Kind != ImageKindPost {
		return nil, models.NewValidationError("Invalid image kind")
	}
	if len(in.Content) == 0 {
		return nil, models.NewFieldError("image", "No file was submitted.")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return nil, models.NewFieldError("image", fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes>>20))
	}
	if !isImageMIME(mediaType(http.DetectContentType(in.Content))) {
		return nil, models.NewFieldError("image", invalidImageMessage)
	}

	decoded, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, models.NewFieldError("image", invalidImageMessage)
	}
	// A declared image type must agree with what was actually decoded.
	if declared := mediaType(in.ContentType); strings.HasPrefix(declared, "image/") {
		if declared == "image/jpg" {
			declared = "image/jpeg"
		}
		if declared != imageMIMEs[format] {
			return nil, models.NewFieldError("image", "Image content type mismatch")
		}
	}

	img := fitWithin(decoded, MaxImageSide)
	encoded := make([][]byte, len(renditions))
	for i, r := range renditions {
		var buf bytes.Buffer
		if err := r.encode(&buf, img); err != nil {
			return nil, models.NewInternalError(fmt.Errorf("encode %s: %w", r.ext, err))
		}
		encoded[i] = buf.Bytes()
	}

	// The JPEG bytes are the identity of the upload.
	sum := sha256.Sum256(append([]byte(strconv.FormatUint(uint64(in.OwnerID), 10)+":"), encoded[0]...))
	hash := hex.EncodeToString(sum[:16])

	urls := make([]string, len(renditions))
	var written []string
	for i, r := range renditions {
		rel := path.Join(in.Kind, hash+r.ext)
		abs := filepath.Join(s.mediaDir, filepath.FromSlash(rel))
		if err := writeFile(abs, encoded[i]); err != nil {
			for _, p := range written {
				_ = os.Remove(p)
			}
			return nil, models.NewInternalError(err)
		}
		written = append(written, abs)
		urls[i] = s.mediaURL + "/" + rel
	}

	b := img.Bounds()
	return &StoredImage{Hash: hash, URL: urls[0], WebPURL: urls[1], Width: b.Dx(), Height: b.Dy()}, nil
}

// fitWithin scales src down, keeping its aspect ratio, until neither side exceeds side.
func fitWithin(src image.Image, side int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	longest := max(w, h)
	if w <= 0 || h <= 0 || longest <= side {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, max(w*side/longest, 1), max(h*side/longest, 1)))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}

func isImageMIME(mt string) bool {
	for _, known := range imageMIMEs {
		if mt == known {
			return true
		}
	}
	return false
}

// mediaType lowercases a Content-Type and strips its parameters.
func mediaType(contentType string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		return mt
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// writeFile writes through a temp file so readers never see a partial image.
func writeFile(dst string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}
