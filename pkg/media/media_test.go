package media

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeOf(t *testing.T) {
	tests := []struct {
		contentType string
		want        Type
		wantErr     bool
	}{
		{"image/jpeg", TypeImage, false},
		{"image/png", TypeImage, false},
		{"video/mp4", TypeVideo, false},
		{"video/webm", TypeVideo, false},
		{"application/pdf", "", true},
		{"text/html", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			got, err := TypeOf(tt.contentType)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestObjectKey(t *testing.T) {
	imgKey := objectKey(TypeImage, "Photo.JPG")
	assert.True(t, strings.HasPrefix(imgKey, "images/"))
	assert.True(t, strings.HasSuffix(imgKey, ".jpg"))

	vidKey := objectKey(TypeVideo, "clip.mp4")
	assert.True(t, strings.HasPrefix(vidKey, "videos/"))
	assert.True(t, strings.HasSuffix(vidKey, ".mp4"))

	// No extension is acceptable; the key is still unique.
	bare := objectKey(TypeImage, "snapshot")
	assert.True(t, strings.HasPrefix(bare, "images/"))
	assert.NotEqual(t, objectKey(TypeImage, "snapshot"), bare)
}

func TestUpload_RejectsUnsupportedType(t *testing.T) {
	store := &S3Store{maxSize: 1024, timeout: time.Second}

	_, err := store.upload(context.Background(), Upload{
		Filename:    "doc.pdf",
		ContentType: "application/pdf",
		Body:        strings.NewReader("%PDF-1.4"),
	})
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestUpload_RejectsOversized(t *testing.T) {
	store := &S3Store{maxSize: 16, timeout: time.Second}

	_, err := store.upload(context.Background(), Upload{
		Filename:    "big.png",
		ContentType: "image/png",
		Body:        strings.NewReader(strings.Repeat("x", 17)),
	})
	assert.ErrorIs(t, err, ErrTooLarge)
}
