package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/net/publicsuffix"
)

// persistentJar is a cookie jar that survives restarts by saving the cookies
// visible to the backend URL. Only name/value pairs are kept; the backend
// re-issues attributes on the next response anyway.
type persistentJar struct {
	*cookiejar.Jar
	path    string
	baseURL *url.URL
	mu      sync.Mutex
}

type savedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func newPersistentJar(path string, baseURL *url.URL) (*persistentJar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	pj := &persistentJar{Jar: jar, path: path, baseURL: baseURL}
	if err := pj.load(); err != nil {
		return nil, err
	}
	return pj, nil
}

// SetCookies records cookies and persists them when a file path is configured
func (j *persistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.Jar.SetCookies(u, cookies)
	if j.path != "" {
		_ = j.save()
	}
}

func (j *persistentJar) load() error {
	if j.path == "" {
		return nil
	}

	data, err := os.ReadFile(j.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read cookie file: %w", err)
	}

	var saved []savedCookie
	if err := json.Unmarshal(data, &saved); err != nil {
		// A corrupt cookie file just means logging in again
		return nil
	}

	cookies := make([]*http.Cookie, 0, len(saved))
	for _, c := range saved {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	j.Jar.SetCookies(j.baseURL, cookies)
	return nil
}

func (j *persistentJar) save() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	cookies := j.Jar.Cookies(j.baseURL)
	saved := make([]savedCookie, 0, len(cookies))
	for _, c := range cookies {
		saved = append(saved, savedCookie{Name: c.Name, Value: c.Value})
	}

	data, err := json.Marshal(saved)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(j.path), 0700); err != nil {
		return err
	}
	return os.WriteFile(j.path, data, 0600)
}

// clear expires every cookie the backend can see, used on logout
func (j *persistentJar) clear() error {
	current := j.Jar.Cookies(j.baseURL)
	expired := make([]*http.Cookie, 0, len(current))
	for _, c := range current {
		expired = append(expired, &http.Cookie{Name: c.Name, Value: "", Path: "/", MaxAge: -1})
	}
	j.Jar.SetCookies(j.baseURL, expired)

	if j.path == "" {
		return nil
	}
	if err := os.Remove(j.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
