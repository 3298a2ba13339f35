// Package clipboard publishes rendered maps and exported documents to the
// system clipboard.
package clipboard

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
)

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
