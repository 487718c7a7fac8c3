package storage

import (
	"context"
	"fmt"
	"io"

	"farmart/internal/config"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

// uploadAPI is the subset of the Cloudinary upload API in use
type uploadAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

// Cloudinary stores images in a Cloudinary account
type Cloudinary struct {
	api uploadAPI
}

// NewCloudinary builds a store from configured credentials
func NewCloudinary(cfg config.CloudinaryConfig) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudinary client: %w", err)
	}
	return &Cloudinary{api: &cld.Upload}, nil
}

// New returns a Cloudinary store when credentials are configured and Disabled otherwise
func New(cfg config.CloudinaryConfig) (ImageStore, error) {
	if !cfg.Enabled() {
		return Disabled{}, nil
	}
	return NewCloudinary(cfg)
}

func (c *Cloudinary) Upload(ctx context.Context, folder, filename string, body io.Reader) (string, error) {
	result, err := c.api.Upload(ctx, body, uploader.UploadParams{
		Folder:       folder,
		PublicID:     baseName(filename) + "-" + uuid.NewString()[:8],
		ResourceType: "image",
		Overwrite:    api.Bool(false),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("failed to upload image: %s", result.Error.Message)
	}
	return result.SecureURL, nil
}

func (c *Cloudinary) Delete(ctx context.Context, url string) error {
	publicID := PublicID(url)
	if publicID == "" {
		return fmt.Errorf("not a cloudinary image url: %s", url)
	}

	result, err := c.api.Destroy(ctx, uploader.DestroyParams{PublicID: publicID, ResourceType: "image"})
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	if result.Error.Message != "" {
		return fmt.Errorf("failed to delete image: %s", result.Error.Message)
	}
	if result.Result != "ok" && result.Result != "not found" {
		return fmt.Errorf("failed to delete image %s: %s", publicID, result.Result)
	}
	return nil
}
