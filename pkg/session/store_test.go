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

package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/cpeof/pkg/analysis"
	"github.com/kadirpekel/cpeof/pkg/testutils"
	"github.com/kadirpekel/cpeof/pkg/workflow"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestStore(t *testing.T, opts ...Option) (*Store, *clock) {
	t.Helper()
	client := analysis.NewClient(analysis.Config{APIKey: "k"}, analysis.WithGenerator(&testutils.FakeGenerator{}))
	s := NewStore(func(string) *workflow.Controller {
		return workflow.NewController(client)
	}, opts...)
	clk := &clock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	s.now = clk.now
	t.Cleanup(s.Close)
	return s, clk
}

func TestGetOrCreate(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	a, created := s.GetOrCreate(ctx, "")
	require.True(t, created)
	assert.NotEmpty(t, a.ID())
	assert.Equal(t, workflow.StatusIdle, a.Controller().State().Status)

	again, created := s.GetOrCreate(ctx, a.ID())
	assert.False(t, created)
	assert.Same(t, a, again)

	b, created := s.GetOrCreate(ctx, "not-a-uuid")
	assert.True(t, created)
	assert.NotEqual(t, a.ID(), b.ID())

	c, created := s.GetOrCreate(ctx, "6f1c1b8e-3b3a-4c59-9a55-2b4b9f2f6c11")
	assert.True(t, created)
	assert.NotEqual(t, "6f1c1b8e-3b3a-4c59-9a55-2b4b9f2f6c11", c.ID(), "client chosen ids are never adopted")

	assert.Equal(t, 3, s.Len())
}

func TestSessionsAreIsolated(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	a, _ := s.GetOrCreate(ctx, "")
	b, _ := s.GetOrCreate(ctx, "")
	assert.NotSame(t, a.Controller(), b.Controller())
}

func TestDelete(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	a, _ := s.GetOrCreate(ctx, "")
	assert.True(t, s.Delete(ctx, a.ID()))
	assert.False(t, s.Delete(ctx, a.ID()))

	_, ok := s.Get(a.ID())
	assert.False(t, ok)
	assert.Zero(t, s.Len())
}

func TestSweep(t *testing.T) {
	s, clk := newTestStore(t, WithTTL(10*time.Minute))
	ctx := context.Background()

	stale, _ := s.GetOrCreate(ctx, "")
	clk.t = clk.t.Add(6 * time.Minute)
	fresh, _ := s.GetOrCreate(ctx, "")

	clk.t = clk.t.Add(5 * time.Minute)
	assert.Equal(t, 1, s.Sweep(ctx))

	_, ok := s.Get(stale.ID())
	assert.False(t, ok)
	_, ok = s.Get(fresh.ID())
	assert.True(t, ok)

	// Get refreshed fresh, so it survives another short interval
	clk.t = clk.t.Add(9 * time.Minute)
	assert.Zero(t, s.Sweep(ctx))
	assert.Equal(t, 1, s.Len())
}

func TestWithTTLIgnoresNonPositive(t *testing.T) {
	s, _ := newTestStore(t, WithTTL(0))
	assert.Equal(t, DefaultTTL, s.TTL())
}

func TestRunStopsOnCancel(t *testing.T) {
	s, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
