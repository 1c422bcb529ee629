package apiclient

import (
	"net/http"
	"net/url"
	"sync"
	"time"
)

// CookieRelay はブラウザから受け取ったCookieをバックエンドに送り、
// バックエンドが発行したCookieを記録するhttp.CookieJar。
// 1つのブラウザリクエストの間だけ使い、記録したCookieはブラウザへ中継する。
type CookieRelay struct {
	mu       sync.Mutex
	current  []*http.Cookie
	received []*http.Cookie
}

// NewCookieRelay はブラウザのCookieを初期値とするCookieRelayを生成する。
func NewCookieRelay(incoming []*http.Cookie) *CookieRelay {
	r := &CookieRelay{}
	for _, c := range incoming {
		r.current = append(r.current, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	return r
}

// SetCookies はhttp.CookieJarを実装する。
// 同名のCookieは置き換え、失効指定のCookieは以降の送信対象から外す。
func (r *CookieRelay) SetCookies(_ *url.URL, cookies []*http.Cookie) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for _, c := range cookies {
		r.received = append(r.received, c)

		kept := r.current[:0]
		for _, cur := range r.current {
			if cur.Name != c.Name {
				kept = append(kept, cur)
			}
		}
		r.current = kept

		if expired(c, now) {
			continue
		}
		r.current = append(r.current, &http.Cookie{Name: c.Name, Value: c.Value})
	}
}

// Cookies はhttp.CookieJarを実装する。
func (r *CookieRelay) Cookies(_ *url.URL) []*http.Cookie {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*http.Cookie, len(r.current))
	for i, c := range r.current {
		out[i] = &http.Cookie{Name: c.Name, Value: c.Value}
	}
	return out
}

// Received はバックエンドが発行したCookieを受信順に返す。
func (r *CookieRelay) Received() []*http.Cookie {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*http.Cookie, len(r.received))
	copy(out, r.received)
	return out
}

// Cookie は現在送信対象になっている指定名のCookieを返す。
func (r *CookieRelay) Cookie(name string) (*http.Cookie, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.current {
		if c.Name == name {
			return &http.Cookie{Name: c.Name, Value: c.Value}, true
		}
	}
	return nil, false
}

func expired(c *http.Cookie, now time.Time) bool {
	if c.MaxAge < 0 {
		return true
	}
	return !c.Expires.IsZero() && c.Expires.Before(now)
}
