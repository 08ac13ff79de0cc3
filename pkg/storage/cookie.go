package storage

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// CookieStore keeps values in the visitor's own cookies. It is bound to a
// single request and is only meant as a fallback.
type CookieStore struct {
	c      *gin.Context
	maxAge int
	secure bool
}

// NewCookieStore binds a store to the request in c. maxAge is in seconds.
func NewCookieStore(c *gin.Context, maxAge int, secure bool) *CookieStore {
	return &CookieStore{c: c, maxAge: maxAge, secure: secure}
}

func (s *CookieStore) Get(_ context.Context, key string) (string, bool, error) {
	value, err := s.c.Cookie(key)
	if errors.Is(err, http.ErrNoCookie) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set writes key as an HttpOnly cookie. Secure cookies are SameSite=None so
// a contact page served from another site still sends them back; browsers
// drop SameSite=None without Secure, so plain HTTP falls back to Lax.
func (s *CookieStore) Set(_ context.Context, key, value string) error {
	if s.secure {
		s.c.SetSameSite(http.SameSiteNoneMode)
	} else {
		s.c.SetSameSite(http.SameSiteLaxMode)
	}
	s.c.SetCookie(key, value, s.maxAge, "/", "", s.secure, true)
	return nil
}
