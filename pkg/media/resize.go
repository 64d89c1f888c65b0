// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package media

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"

	_ "image/gif" // Register GIF decoder

	_ "golang.org/x/image/bmp"  // Register BMP decoder
	_ "golang.org/x/image/tiff" // Register TIFF decoder
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const jpegQuality = 85

// Dimensions returns the pixel size of the image without decoding it fully.
func Dimensions(img Image) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read image header: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// Downscale shrinks img so that neither side exceeds maxDim pixels,
// preserving the aspect ratio. Images already within bounds, and maxDim <= 0,
// are returned unchanged. JPEG input stays JPEG; everything else becomes PNG.
func Downscale(img Image, maxDim int) (Image, error) {
	if maxDim <= 0 {
		return img, nil
	}

	width, height, err := Dimensions(img)
	if err != nil {
		return Image{}, err
	}
	if width <= maxDim && height <= maxDim {
		return img, nil
	}

	src, format, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return Image{}, fmt.Errorf("failed to decode image: %w", err)
	}

	targetW, targetH := fitWithin(width, height, maxDim)
	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	out := Image{}
	if format == "jpeg" {
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality})
		out.MIMEType = "image/jpeg"
	} else {
		err = png.Encode(&buf, dst)
		out.MIMEType = "image/png"
	}
	if err != nil {
		return Image{}, fmt.Errorf("failed to encode resized image: %w", err)
	}
	out.Data = buf.Bytes()
	return out, nil
}

func fitWithin(width, height, maxDim int) (int, int) {
	if width >= height {
		h := height * maxDim / width
		if h < 1 {
			h = 1
		}
		return maxDim, h
	}
	w := width * maxDim / height
	if w < 1 {
		w = 1
	}
	return w, maxDim
}
