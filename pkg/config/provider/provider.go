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

// Package provider supplies raw configuration bytes and change signals.
package provider

import (
	"context"
	"fmt"
)

// Type names a provider implementation.
type Type string

// TypeFile reads from the local filesystem.
const TypeFile Type = "file"

// Provider is a source of configuration bytes.
type Provider interface {
	// Type returns the provider type for logging.
	Type() Type

	// Load reads the raw configuration.
	Load(ctx context.Context) ([]byte, error)

	// Watch signals on the returned channel whenever the source changes.
	// The channel is closed when ctx ends. A nil channel means watching is
	// unsupported.
	Watch(ctx context.Context) (<-chan struct{}, error)

	// Close releases resources.
	Close() error
}

// New creates the provider for typ.
func New(typ Type, path string) (Provider, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is required")
	}
	switch typ {
	case TypeFile, "":
		return NewFileProvider(path)
	default:
		return nil, fmt.Errorf("unknown provider type: %s", typ)
	}
}
