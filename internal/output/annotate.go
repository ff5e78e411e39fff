package output

import (
	"bytes"
	"fmt"
	"image"
	_ "image/png"

	"github.com/fogleman/gg"

	"github.com/geraldpeng6/crawler-for-attack/api/schemas"
)

// Annotate draws a red outline at each marker rectangle onto the screenshot
// and re-encodes it as PNG. With no markers the image passes through a
// decode/encode cycle unchanged in content.
func Annotate(screenshot []byte, markers []schemas.Rect) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(screenshot))
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}

	dc := gg.NewContextForImage(img)
	dc.SetRGB(1, 0, 0)
	dc.SetLineWidth(3)
	for _, m := range markers {
		if m.Width <= 0 || m.Height <= 0 {
			continue
		}
		dc.DrawRectangle(m.X, m.Y, m.Width, m.Height)
		dc.Stroke()
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode annotated screenshot: %w", err)
	}
	return buf.Bytes(), nil
}
