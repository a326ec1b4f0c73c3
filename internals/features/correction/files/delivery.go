// file: internals/features/correction/files/delivery.go
package files

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2"

	model "longessay_backend/internals/features/correction/model"
)

var ErrMissingFile = errors.New("file missing")

/*
Delivery streams page scans and task resources from local disk.
Thumbnails are rendered on first request (imaging + webp) and kept next to
the page as "<page>.thumb.webp".
*/
type Delivery struct {
	Root          string
	ThumbMaxWidth int
	ThumbQuality  float32
}

func NewDelivery(root string) *Delivery {
	return &Delivery{Root: root, ThumbMaxWidth: 300, ThumbQuality: 75}
}

// resolve keeps rel inside Root.
func (d *Delivery) resolve(rel string) (string, error) {
	if strings.TrimSpace(rel) == "" {
		return "", ErrMissingFile
	}
	p := filepath.Join(d.Root, filepath.Clean("/"+rel))
	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("%w: %s", ErrMissingFile, rel)
	}
	return p, nil
}

func (d *Delivery) SendPageImage(c *fiber.Ctx, page *model.PageModel) error {
	p, err := d.resolve(page.PagePath)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Page image not found")
	}
	if page.PageMimetype != "" {
		c.Set(fiber.HeaderContentType, page.PageMimetype)
	}
	return c.SendFile(p)
}

func (d *Delivery) SendPageThumb(c *fiber.Ctx, page *model.PageModel) error {
	if page.PageThumbPath != "" {
		if p, err := d.resolve(page.PageThumbPath); err == nil {
			return c.SendFile(p)
		}
	}

	src, err := d.resolve(page.PagePath)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Page image not found")
	}
	cached := src + ".thumb.webp"
	if _, err := os.Stat(cached); err == nil {
		c.Set(fiber.HeaderContentType, "image/webp")
		return c.SendFile(cached)
	}

	raw, err := os.ReadFile(src)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Page image not found")
	}
	img, err := DecodeImage(raw, src)
	if err != nil {
		log.Printf("[Files] decode page %s failed: %v", page.PageKey, err)
		return fiber.NewError(fiber.StatusUnprocessableEntity, "Page image cannot be decoded")
	}
	thumb, _, _, err := MakeThumbnail(img, d.ThumbMaxWidth, d.ThumbQuality)
	if err != nil {
		log.Printf("[Files] thumbnail page %s failed: %v", page.PageKey, err)
		return fiber.NewError(fiber.StatusInternalServerError, "Thumbnail failed")
	}
	if err := os.WriteFile(cached, thumb, 0o644); err != nil {
		log.Printf("[Files] cache thumbnail %s failed: %v", cached, err)
	}

	c.Set(fiber.HeaderContentType, "image/webp")
	return c.Send(thumb)
}

func (d *Delivery) SendResource(c *fiber.Ctx, res *model.ResourceModel) error {
	if res.ResourceType == model.ResourceURL {
		return c.Redirect(res.ResourceSource, fiber.StatusFound)
	}
	p, err := d.resolve(res.ResourcePath)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Resource file not found")
	}
	if res.ResourceMimetype != "" {
		c.Set(fiber.HeaderContentType, res.ResourceMimetype)
	}
	name := res.ResourceSource
	if name == "" {
		name = filepath.Base(p)
	}
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", name))
	return c.SendFile(p)
}

/* =========================================================
   Image helpers
========================================================= */

// DecodeImage reads jpeg/png through imaging and webp through chai2010/webp.
func DecodeImage(raw []byte, name string) (image.Image, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty file")
	}
	if strings.EqualFold(filepath.Ext(name), ".webp") {
		return webp.Decode(bytes.NewReader(raw))
	}
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		// sniff failed on extension-less files; try webp last
		if w, werr := webp.Decode(bytes.NewReader(raw)); werr == nil {
			return w, nil
		}
		return nil, err
	}
	return img, nil
}

// MakeThumbnail scales img down to maxW (never up) and encodes it as webp.
func MakeThumbnail(img image.Image, maxW int, quality float32) ([]byte, int, int, error) {
	if maxW > 0 && img.Bounds().Dx() > maxW {
		img = imaging.Resize(img, maxW, 0, imaging.Lanczos)
	}
	if quality <= 0 {
		quality = 75
	}
	buf := new(bytes.Buffer)
	if err := webp.Encode(buf, img, &webp.Options{Lossless: false, Quality: quality}); err != nil {
		return nil, 0, 0, err
	}
	b := img.Bounds()
	return buf.Bytes(), b.Dx(), b.Dy(), nil
}
