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

package server

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/kadirpekel/cpeof/pkg/session"
	"github.com/kadirpekel/cpeof/pkg/workflow"
)

const (
	sessionCookie = "cpeof_session"
	flashCookie   = "cpeof_flash"
)

type sessionKey struct{}

// sessionMiddleware attaches the caller's session. With create set, a
// missing or expired session is replaced by a new one and the cookie is set;
// otherwise the request proceeds without a session.
func (s *HTTPServer) sessionMiddleware(create bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if c, err := r.Cookie(sessionCookie); err == nil {
				id = c.Value
			}

			sess, ok := s.store.Get(id)
			if !ok && create {
				sess, _ = s.store.GetOrCreate(r.Context(), id)
				http.SetCookie(w, &http.Cookie{
					Name:     sessionCookie,
					Value:    sess.ID(),
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
					MaxAge:   int(s.store.TTL() / time.Second),
				})
			}
			if sess == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sessionFrom returns the request's session, or nil when the caller has none.
func sessionFrom(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionKey{}).(*session.Session)
	return sess
}

// stateFrom returns the session's state, or idle for callers without one.
func stateFrom(ctx context.Context) workflow.State {
	if sess := sessionFrom(ctx); sess != nil {
		return sess.Controller().State()
	}
	return workflow.Idle()
}

func resetSession(ctx context.Context) {
	if sess := sessionFrom(ctx); sess != nil {
		sess.Controller().Reset()
	}
}

func setFlash(w http.ResponseWriter, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(msg),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// takeFlash returns and clears the pending flash message.
func takeFlash(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return ""
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Path: "/", MaxAge: -1})
	msg, err := url.QueryUnescape(c.Value)
	if err != nil {
		return ""
	}
	return msg
}
