// Package storage keeps animal images in an external image host.
package storage

import (
	"context"
	"io"
	"path"
	"regexp"
	"strings"

	"farmart/internal/domain"
)

// ImageStore uploads images and deletes them by their public URL
type ImageStore interface {
	Upload(ctx context.Context, folder, filename string, body io.Reader) (url string, err error)
	Delete(ctx context.Context, url string) error
}

// Disabled is used when no image host is configured
type Disabled struct{}

func (Disabled) Upload(context.Context, string, string, io.Reader) (string, error) {
	return "", domain.ErrImagesNotSupported
}

func (Disabled) Delete(context.Context, string) error {
	return domain.ErrImagesNotSupported
}

var versionSegment = regexp.MustCompile(`^v\d+$`)

// PublicID extracts the asset id from a delivery URL such as
// https://res.cloudinary.com/<cloud>/image/upload/v1712/farmart/animals/<id>/cow.jpg
// which yields farmart/animals/<id>/cow. It returns "" for URLs without an upload segment.
func PublicID(url string) string {
	_, rest, ok := strings.Cut(url, "/upload/")
	if !ok || rest == "" {
		return ""
	}

	segments := strings.Split(rest, "/")
	if len(segments) > 1 && versionSegment.MatchString(segments[0]) {
		segments = segments[1:]
	}

	id := strings.Join(segments, "/")
	return strings.TrimSuffix(id, path.Ext(id))
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// baseName turns an uploaded filename into a safe public id stem
func baseName(filename string) string {
	name := strings.TrimSuffix(path.Base(filename), path.Ext(filename))
	name = strings.Trim(unsafeChars.ReplaceAllString(name, "-"), "-")
	if name == "" || name == "." {
		return "image"
	}
	return strings.ToLower(name)
}
