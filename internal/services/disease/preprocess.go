package disease

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// TargetShort is the length of the shorter side after resizing.
const TargetShort = 256

// maxPixels bounds the decoded image size.
const maxPixels = 50_000_000

// MaxAspect bounds long side / short side, so the resized image is at most
// TargetShort x TargetShort*MaxAspect.
const MaxAspect = 16

var (
	ErrEmptyImage = errors.New("empty image")
	ErrImageSize  = errors.New("unsupported image size")
)

// Tensor is a CHW image with values in [0, 1].
type Tensor [][][]float32

// Shape returns channels, height, width.
func (t Tensor) Shape() (int, int, int) {
	if len(t) == 0 || len(t[0]) == 0 {
		return len(t), 0, 0
	}
	return len(t), len(t[0]), len(t[0][0])
}

// Decode reads a JPEG, PNG, GIF or WebP image.
func Decode(b []byte) (image.Image, string, error) {
	if len(b) == 0 {
		return nil, "", ErrEmptyImage
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return nil, "", fmt.Errorf("decode image config: %w", err)
	}
	if err := checkSize(cfg.Width, cfg.Height); err != nil {
		return nil, format, err
	}
	img, format, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, format, fmt.Errorf("decode image: %w", err)
	}
	return img, format, nil
}

// checkSize rejects images that are too large to decode or whose resized
// long side would exceed TargetShort*MaxAspect.
func checkSize(w, h int) error {
	if w <= 0 || h <= 0 || w*h > maxPixels {
		return fmt.Errorf("%w %dx%d", ErrImageSize, w, h)
	}
	if max(w, h) > min(w, h)*MaxAspect {
		return fmt.Errorf("%w %dx%d: aspect ratio above %d:1", ErrImageSize, w, h, MaxAspect)
	}
	return nil
}

// ResizedSize keeps the aspect ratio with the shorter side at short.
// The longer side is truncated, not rounded.
func ResizedSize(w, h, short int) (int, int) {
	if w <= h {
		return short, int(float64(short) * float64(h) / float64(w))
	}
	return int(float64(short) * float64(w) / float64(h)), short
}

// toRGB copies src into an opaque NRGBA image, discarding alpha.
func toRGB(src image.Image) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			c.A = 0xff
			dst.SetNRGBA(x-b.Min.X, y-b.Min.Y, c)
		}
	}
	return dst
}

// Preprocess converts to RGB, resizes bilinearly so the shorter side is
// TargetShort and returns the CHW tensor.
func Preprocess(img image.Image) Tensor {
	rgb := toRGB(img)
	w, h := ResizedSize(rgb.Bounds().Dx(), rgb.Bounds().Dy(), TargetShort)
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), rgb, rgb.Bounds(), draw.Src, nil)

	t := make(Tensor, 3)
	for c := range t {
		t[c] = make([][]float32, h)
		for y := 0; y < h; y++ {
			t[c][y] = make([]float32, w)
		}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := dst.NRGBAAt(x, y)
			t[0][y][x] = float32(p.R) / 255
			t[1][y][x] = float32(p.G) / 255
			t[2][y][x] = float32(p.B) / 255
		}
	}
	return t
}
