package caption

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	apperrors "github.com/yanqian/photo-caption/pkg/errors"
)

var allowedFormats = map[string]string{
	"image/jpeg":               "JPEG",
	"image/png":                "PNG",
	"image/gif":                "GIF",
	"image/bmp":                "BMP",
	"image/webp":               "WEBP",
	"image/tiff":               "TIFF",
	"image/x-icon":             "ICO",
	"image/vnd.microsoft.icon": "ICO",
}

// validateImage checks size, format and dimensions of an upload.
func (s *service) validateImage(content []byte) (ImageInfo, error) {
	if len(content) == 0 {
		return ImageInfo{}, apperrors.Wrap(apperrors.CodeInvalidInput, "image is empty", nil)
	}
	if int64(len(content)) > s.cfg.MaxFileBytes {
		return ImageInfo{}, apperrors.Wrap(apperrors.CodeInvalidInput,
			fmt.Sprintf("image is %.1f MB, the limit is %d MB", float64(len(content))/(1<<20), s.cfg.MaxFileBytes>>20), nil)
	}

	mime := mimetype.Detect(content)
	format, ok := lookupFormat(mime)
	if !ok {
		return ImageInfo{}, apperrors.Wrap(apperrors.CodeInvalidInput,
			fmt.Sprintf("unsupported image format %s", mime.String()), nil)
	}
	info := ImageInfo{Format: format, MimeType: mime.String(), SizeBytes: len(content)}

	if format == "ICO" {
		// no decoder for icons; the vision service decides
		return info, nil
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return ImageInfo{}, apperrors.Wrap(apperrors.CodeInvalidInput, "image cannot be decoded", err)
	}
	info.Width, info.Height = cfg.Width, cfg.Height

	if cfg.Width < s.cfg.MinDimension || cfg.Height < s.cfg.MinDimension {
		return ImageInfo{}, apperrors.Wrap(apperrors.CodeInvalidInput,
			fmt.Sprintf("image is %dx%d, the minimum is %dx%d", cfg.Width, cfg.Height, s.cfg.MinDimension, s.cfg.MinDimension), nil)
	}
	if cfg.Width > s.cfg.MaxDimension || cfg.Height > s.cfg.MaxDimension {
		return ImageInfo{}, apperrors.Wrap(apperrors.CodeInvalidInput,
			fmt.Sprintf("image is %dx%d, the maximum is %dx%d", cfg.Width, cfg.Height, s.cfg.MaxDimension, s.cfg.MaxDimension), nil)
	}
	if cfg.Width < s.cfg.RecommendedDimension || cfg.Height < s.cfg.RecommendedDimension {
		info.Warnings = append(info.Warnings,
			fmt.Sprintf("image is %dx%d, at least %dx%d is recommended for reliable analysis", cfg.Width, cfg.Height, s.cfg.RecommendedDimension, s.cfg.RecommendedDimension))
	}
	return info, nil
}

func lookupFormat(mime *mimetype.MIME) (string, bool) {
	for m := mime; m != nil; m = m.Parent() {
		if format, ok := allowedFormats[strings.ToLower(m.String())]; ok {
			return format, true
		}
	}
	return "", false
}
