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

// Package media handles image intake: type validation, data URL encoding for
// previews, and optional downscaling before an image is sent for analysis.
package media

import (
	"encoding/base64"
	"fmt"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const dataURLPrefix = "data:"

// InvalidInputError is returned for input that is not an image.
type InvalidInputError struct {
	MIMEType string
	Reason   string
}

func (e *InvalidInputError) Error() string {
	if e.Reason != "" {
		return "invalid image: " + e.Reason
	}
	return fmt.Sprintf("please upload an image file (got %q)", e.MIMEType)
}

// Image is an uploaded image and its MIME type.
type Image struct {
	Data     []byte
	MIMEType string
}

// NewImage validates data as an image. The declared MIME type wins when the
// caller supplied one; otherwise the type is sniffed from the content.
func NewImage(data []byte, declared string) (Image, error) {
	if len(data) == 0 {
		return Image{}, &InvalidInputError{MIMEType: declared, Reason: "empty file"}
	}

	mimeType := normalizeMIME(declared)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = normalizeMIME(mimetype.Detect(data).String())
	}

	if !strings.HasPrefix(mimeType, "image/") {
		return Image{}, &InvalidInputError{MIMEType: mimeType}
	}

	return Image{Data: data, MIMEType: mimeType}, nil
}

// Base64 returns the standard base64 encoding of the image bytes.
func (i Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// DataURL returns the image as a data URL suitable for an <img> src.
func (i Image) DataURL() string {
	return dataURLPrefix + i.MIMEType + ";base64," + i.Base64()
}

// ParseDataURL decodes a base64 data URL produced by DataURL.
func ParseDataURL(s string) (Image, error) {
	if !strings.HasPrefix(s, dataURLPrefix) {
		return Image{}, fmt.Errorf("not a data URL")
	}
	meta, payload, ok := strings.Cut(strings.TrimPrefix(s, dataURLPrefix), ",")
	if !ok {
		return Image{}, fmt.Errorf("data URL has no payload")
	}
	mimeType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return Image{}, fmt.Errorf("data URL is not base64 encoded")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, fmt.Errorf("failed to decode data URL: %w", err)
	}
	return Image{Data: data, MIMEType: mimeType}, nil
}

func normalizeMIME(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(s); err == nil {
		return strings.ToLower(mt)
	}
	return strings.ToLower(s)
}
