package classifier

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	apperrors "github.com/ZanzyTHEbar/campus-mcp/internal/errors"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// PixelScale maps an 8-bit channel value to a model input value.
type PixelScale func(v uint8) float32

// SignedUnit maps [0,255] to [-1,1].
func SignedUnit(v uint8) float32 { return float32(v)/127.5 - 1 }

// Raw keeps the channel value as is, for models with a built-in rescaling layer.
func Raw(v uint8) float32 { return float32(v) }

// InputSpec is the tensor layout a model expects.
type InputSpec struct {
	Width  int
	Height int
	Scale  PixelScale
}

// Tensor fits img to the input size and returns a height x width x 3 array.
func (s InputSpec) Tensor(img image.Image) [][][]float32 {
	scale := s.Scale
	if scale == nil {
		scale = Raw
	}

	fitted := Fit(img, s.Width, s.Height)
	out := make([][][]float32, s.Height)
	for y := 0; y < s.Height; y++ {
		row := make([][]float32, s.Width)
		for x := 0; x < s.Width; x++ {
			i := fitted.PixOffset(x, y)
			row[x] = []float32{
				scale(fitted.Pix[i]),
				scale(fitted.Pix[i+1]),
				scale(fitted.Pix[i+2]),
			}
		}
		out[y] = row
	}
	return out
}

// Decode reads a JPEG, PNG, GIF, BMP, TIFF or WebP image.
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty image", apperrors.ErrInvalidInput)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: cannot decode image: %v", apperrors.ErrInvalidInput, err)
	}
	return img, format, nil
}

// Fit crops img around its center to the target aspect ratio and resamples
// it to width x height. Alpha is discarded.
func Fit(img image.Image, width, height int) *image.NRGBA {
	b := img.Bounds()
	srcW, srcH := b.Dx(), b.Dy()

	crop := b
	if srcW > 0 && srcH > 0 {
		target := float64(width) / float64(height)
		if float64(srcW)/float64(srcH) > target {
			cropW := max(int(float64(srcH)*target+0.5), 1)
			x0 := b.Min.X + (srcW-cropW)/2
			crop = image.Rect(x0, b.Min.Y, x0+cropW, b.Max.Y)
		} else {
			cropH := max(int(float64(srcW)/target+0.5), 1)
			y0 := b.Min.Y + (srcH-cropH)/2
			crop = image.Rect(b.Min.X, y0, b.Max.X, y0+cropH)
		}
	}

	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, crop, draw.Src, nil)

	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}
