package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"golang.org/x/net/publicsuffix"
)

const (
	CSRFCookieName = "csrftoken"
	CSRFHeader     = "X-CSRFToken"
)

// TokenSource yields the anti-forgery token sent on state-changing requests.
type TokenSource interface {
	CSRFToken() string
}

// StaticToken is a fixed token, mostly useful in tests.
type StaticToken string

func (t StaticToken) CSRFToken() string { return string(t) }

// CookieTokenSource reads the csrftoken cookie the server set for baseURL.
type CookieTokenSource struct {
	jar  http.CookieJar
	base *url.URL
}

// NewCookieJar builds a public-suffix aware jar and, when seed is non-empty,
// stores it as the csrftoken cookie for baseURL.
func NewCookieJar(baseURL, seed string) (http.CookieJar, *CookieTokenSource, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse base url: %w", err)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, nil, err
	}
	if seed != "" {
		jar.SetCookies(base, []*http.Cookie{{Name: CSRFCookieName, Value: seed, Path: "/"}})
	}
	return jar, &CookieTokenSource{jar: jar, base: base}, nil
}

func (s *CookieTokenSource) CSRFToken() string {
	for _, c := range s.jar.Cookies(s.base) {
		if c.Name == CSRFCookieName {
			if v, err := url.QueryUnescape(c.Value); err == nil {
				return v
			}
			return c.Value
		}
	}
	return ""
}

// PrimeCSRF issues a GET on the base URL so the server can set its csrftoken
// cookie in the client's jar.
func PrimeCSRF(ctx context.Context, client *http.Client, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
