package minimap

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// VerifyMinimap decodes the image at path and returns its size.
func VerifyMinimap(path string) (image.Point, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return image.Point{}, fmt.Errorf("%w: %v", ErrUnreadableMinimap, err)
	}
	return img.Bounds().Size(), nil
}
