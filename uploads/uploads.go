package uploads

import (
	"context"
	"fmt"
	"io"

	"merx/models"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const productFolder = "products"

// ImageStore is the narrow contract the catalog needs from an asset host:
// push an image up, tear one down.
type ImageStore interface {
	UploadImage(ctx context.Context, r io.Reader) (models.Image, error)
	Destroy(ctx context.Context, publicID string) error
}

// Cloudinary implements ImageStore against the Cloudinary upload API.
type Cloudinary struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinary(cloudinaryURL string) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("uploads: %w", err)
	}
	return &Cloudinary{cld: cld}, nil
}

func (c *Cloudinary) UploadImage(ctx context.Context, r io.Reader) (models.Image, error) {
	result, err := c.cld.Upload.Upload(ctx, r, uploader.UploadParams{Folder: productFolder})
	if err != nil {
		return models.Image{}, fmt.Errorf("uploads: upload failed: %w", err)
	}
	return models.Image{PublicID: result.PublicID, URL: result.SecureURL}, nil
}

func (c *Cloudinary) Destroy(ctx context.Context, publicID string) error {
	_, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	return err
}
