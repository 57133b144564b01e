package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"inkwell/internal/config"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestImageService(t *testing.T, maxMB int) (*ImageService, string) {
	t.Helper()
	dir := t.TempDir()
	return NewImageService(&config.Config{MediaDir: dir, MediaURL: "/media/", MediaMaxUploadMB: maxMB}), dir
}

func TestImageService_UploadWritesRenditions(t *testing.T) {
	t.Parallel()
	svc, dir := newTestImageService(t, 5)

	stored, err := svc.Upload(context.Background(), UploadImageInput{
		Kind:        ImageKindPost,
		OwnerID:     7,
		Filename:    "cover.png",
		ContentType: "image/png",
		Content:     testutil.PNGBytes(t, 64, 32),
	})
	require.NoError(t, err)
	assert.Len(t, stored.Hash, 32)
	assert.Equal(t, "/media/posts/"+stored.Hash+".jpg", stored.URL)
	assert.Equal(t, "/media/posts/"+stored.Hash+".webp", stored.WebPURL)
	assert.Equal(t, 64, stored.Width)
	assert.Equal(t, 32, stored.Height)

	for _, ext := range []string{".jpg", ".webp"} {
		info, err := os.Stat(filepath.Join(dir, "posts", stored.Hash+ext))
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
}

func TestImageService_UploadResizesLargeImages(t *testing.T) {
	t.Parallel()
	svc, _ := newTestImageService(t, 5)

	stored, err := svc.Upload(context.Background(), UploadImageInput{
		Kind:    ImageKindProfile,
		OwnerID: 1,
		Content: testutil.PNGBytes(t, 3200, 800),
	})
	require.NoError(t, err)
	assert.Equal(t, MaxImageSide, stored.Width)
	assert.Equal(t, 400, stored.Height)
}

func TestImageService_UploadRejects(t *testing.T) {
	t.Parallel()
	svc, _ := newTestImageService(t, 1)
	png := testutil.PNGBytes(t, 8, 8)

	tests := []struct {
		name string
		in   UploadImageInput
	}{
		{"empty", UploadImageInput{Kind: ImageKindPost}},
		{"not an image", UploadImageInput{Kind: ImageKindPost, Content: []byte("plain text, not pixels")}},
		{"too large", UploadImageInput{Kind: ImageKindPost, Content: make([]byte, 2*1024*1024)}},
		{"content type mismatch", UploadImageInput{Kind: ImageKindPost, ContentType: "image/jpeg", Content: png}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Upload(context.Background(), tt.in)
			assertFieldError(t, err, "image")
		})
	}

	_, err := svc.Upload(context.Background(), UploadImageInput{Kind: "avatars", Content: png})
	assertValidationError(t, err)
}

func TestImageService_SameUploadSameFiles(t *testing.T) {
	t.Parallel()
	svc, _ := newTestImageService(t, 5)
	in := UploadImageInput{Kind: ImageKindProfile, OwnerID: 3, Content: testutil.PNGBytes(t, 10, 10)}

	first, err := svc.Upload(context.Background(), in)
	require.NoError(t, err)
	second, err := svc.Upload(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, first.URL, second.URL)

	in.OwnerID = 4
	other, err := svc.Upload(context.Background(), in)
	require.NoError(t, err)
	assert.NotEqual(t, first.URL, other.URL)
}
