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
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNewImage(t *testing.T) {
	red := solidPNG(t, 10, 10, color.RGBA{R: 255, A: 255})

	tests := []struct {
		name     string
		data     []byte
		declared string
		wantMIME string
		wantErr  bool
	}{
		{name: "declared png", data: red, declared: "image/png", wantMIME: "image/png"},
		{name: "declared with params", data: red, declared: "Image/PNG; charset=binary", wantMIME: "image/png"},
		{name: "sniffed when missing", data: red, declared: "", wantMIME: "image/png"},
		{name: "sniffed when octet-stream", data: red, declared: "application/octet-stream", wantMIME: "image/png"},
		{name: "text rejected", data: []byte("hello"), declared: "text/plain", wantErr: true},
		{name: "sniffed text rejected", data: []byte("just some text"), declared: "", wantErr: true},
		{name: "empty rejected", data: nil, declared: "image/png", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := NewImage(tt.data, tt.declared)
			if tt.wantErr {
				var invalid *InvalidInputError
				require.True(t, errors.As(err, &invalid), "expected InvalidInputError, got %v", err)
				assert.NotEmpty(t, invalid.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMIME, img.MIMEType)
			assert.Equal(t, tt.data, img.Data)
		})
	}
}

func TestDataURLRoundTrip(t *testing.T) {
	data := solidPNG(t, 10, 10, color.RGBA{R: 255, A: 255})
	img, err := NewImage(data, "image/png")
	require.NoError(t, err)

	url := img.DataURL()
	assert.Contains(t, url, "data:image/png;base64,")

	back, err := ParseDataURL(url)
	require.NoError(t, err)
	assert.Equal(t, data, back.Data)
	assert.Equal(t, "image/png", back.MIMEType)
}

func TestParseDataURLErrors(t *testing.T) {
	for _, in := range []string{"", "http://x", "data:image/png;base64", "data:image/png,abc", "data:image/png;base64,!!!"} {
		_, err := ParseDataURL(in)
		assert.Error(t, err, in)
	}
}

func TestDownscale(t *testing.T) {
	img := Image{Data: solidPNG(t, 100, 50, color.White), MIMEType: "image/png"}

	t.Run("disabled", func(t *testing.T) {
		out, err := Downscale(img, 0)
		require.NoError(t, err)
		assert.Equal(t, img.Data, out.Data)
	})

	t.Run("within bounds", func(t *testing.T) {
		out, err := Downscale(img, 200)
		require.NoError(t, err)
		assert.Equal(t, img.Data, out.Data)
	})

	t.Run("shrinks preserving aspect", func(t *testing.T) {
		out, err := Downscale(img, 20)
		require.NoError(t, err)
		assert.Equal(t, "image/png", out.MIMEType)
		w, h, err := Dimensions(out)
		require.NoError(t, err)
		assert.Equal(t, 20, w)
		assert.Equal(t, 10, h)
	})

	t.Run("undecodable", func(t *testing.T) {
		_, err := Downscale(Image{Data: []byte("nope"), MIMEType: "image/png"}, 10)
		assert.Error(t, err)
	})
}

func TestFitWithin(t *testing.T) {
	w, h := fitWithin(50, 100, 10)
	assert.Equal(t, 5, w)
	assert.Equal(t, 10, h)

	w, h = fitWithin(1000, 1, 10)
	assert.Equal(t, 10, w)
	assert.Equal(t, 1, h)
}
