package transport

import (
	"errors"
	"fmt"
	"strings"
)

// CacheBuster is appended to every stream URL so proxies refresh CORS headers.
const CacheBuster = "v=2"

// Media error codes reported with stream diagnostics.
const (
	MediaErrAborted     = 1
	MediaErrNetwork     = 2
	MediaErrDecode      = 3
	MediaErrUnsupported = 4
)

// StreamError is the diagnostic for a failed stream or a rejected play request.
type StreamError struct {
	URL  string `json:"url"`
	Code int    `json:"code"`
	Err  error  `json:"-"`
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream %s failed (code %d): %v", e.URL, e.Code, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// Diagnostic is the event payload describing a stream failure.
type Diagnostic struct {
	URL     string `json:"url"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *StreamError) Diagnostic() Diagnostic {
	d := Diagnostic{URL: e.URL, Code: e.Code}
	if e.Err != nil {
		d.Message = e.Err.Error()
	}
	return d
}

// ErrorCode extracts the media error code from err. Errors carrying a
// Code() method report it; everything else counts as a decode failure.
func ErrorCode(err error) int {
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		return coded.Code()
	}
	var se *StreamError
	if errors.As(err, &se) {
		return se.Code
	}
	return MediaErrDecode
}

// BuildStreamURL joins baseURL, the album path and the filename. Each path
// segment and the filename are escaped like encodeURIComponent.
func BuildStreamURL(baseURL, path, filename string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(baseURL, "/"))
	b.WriteByte('/')
	if path != "" {
		for _, seg := range strings.Split(path, "/") {
			b.WriteString(EncodeURIComponent(seg))
			b.WriteByte('/')
		}
	}
	b.WriteString(EncodeURIComponent(filename))
	b.WriteByte('?')
	b.WriteString(CacheBuster)
	return b.String()
}

const upperhex = "0123456789ABCDEF"

// EncodeURIComponent escapes every byte except A-Z a-z 0-9 - _ . ! ~ * ' ( ).
func EncodeURIComponent(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
