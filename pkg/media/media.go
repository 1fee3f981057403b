package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Type classifies an uploaded object by its content type.
type Type string

const (
	TypeImage Type = "IMAGE"
	TypeVideo Type = "VIDEO"
)

// Object describes a stored media object.
type Object struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	Type        Type   `json:"type"`
}

// Upload carries the content and metadata of a pending upload.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// Uploader stores media objects and serves back their public location.
type Uploader interface {
	Upload(ctx context.Context, up Upload) (*Object, error)
	Delete(ctx context.Context, key string) error
}

var (
	// ErrTooLarge is returned when an upload exceeds the configured size limit.
	ErrTooLarge = errors.New("media: upload exceeds size limit")
	// ErrUnsupportedType is returned for content types outside the allowlist.
	ErrUnsupportedType = errors.New("media: unsupported content type")
)

// TypeOf maps a content type to a media type. Only image/* and video/*
// are accepted.
func TypeOf(contentType string) (Type, error) {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return TypeImage, nil
	case strings.HasPrefix(contentType, "video/"):
		return TypeVideo, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
}

// objectKey builds a collision-free object key, keeping the original
// extension so stored objects stay recognizable.
func objectKey(mediaType Type, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	prefix := "images"
	if mediaType == TypeVideo {
		prefix = "videos"
	}
	return fmt.Sprintf("%s/%s%s", prefix, uuid.NewString(), ext)
}
