package pdfrotate

import (
	"image"

	"github.com/bmharper/cimg/v2"
	"golang.org/x/image/draw"
)

// ThumbnailQuality is the JPEG quality of thumbnails
const ThumbnailQuality = 85

// ScaleToWidth returns a copy of img that is 'width' pixels wide, with the same aspect ratio.
// The source image is not modified.
func ScaleToWidth(img image.Image, width int) *image.RGBA {
	b := img.Bounds()
	if width <= 0 || b.Dx() == 0 {
		width = max(b.Dx(), 1)
	}
	height := max(1, b.Dy()*width/max(b.Dx(), 1))
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// EncodeThumbnail scales the surface to the display width and compresses it to JPEG
func EncodeThumbnail(surface image.Image, width int) ([]byte, error) {
	scaled, err := cimg.FromImage(ScaleToWidth(surface, width), false)
	if err != nil {
		return nil, err
	}
	return cimg.Compress(scaled, cimg.MakeCompressParams(cimg.Sampling444, ThumbnailQuality, 0))
}
