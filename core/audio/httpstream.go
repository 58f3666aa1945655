package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"UndercoverFM/core/transport"
)

// HTTPStatusError 音频源返回了非 2xx 状态
type HTTPStatusError struct {
	URL    string
	Status int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Status)
}

func (e *HTTPStatusError) Code() int { return transport.MediaErrNetwork }

// RangeReader 通过 HTTP Range 请求实现可 Seek 的远程音频读取
type RangeReader struct {
	ctx    context.Context
	client *http.Client
	url    string

	size   int64
	offset int64
	body   io.ReadCloser
}

// OpenRange 发出第一个 Range 请求以获知对象大小。
// 服务端忽略 Range 时仍可播放，Seek 会从头重新请求并跳过前面的字节
func OpenRange(ctx context.Context, client *http.Client, url string) (*RangeReader, error) {
	if client == nil {
		client = http.DefaultClient
	}
	r := &RangeReader{ctx: ctx, client: client, url: url, size: -1}
	if err := r.open(0); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *RangeReader) open(offset int64) error {
	req, err := http.NewRequestWithContext(r.ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))

	resp, err := r.client.Do(req)
	if err != nil {
		return &networkError{err}
	}

	switch resp.StatusCode {
	case http.StatusPartialContent:
		if total, ok := parseContentRangeTotal(resp.Header.Get("Content-Range")); ok {
			r.size = total
		}
	case http.StatusOK:
		r.size = resp.ContentLength
		if offset > 0 {
			if _, err := io.CopyN(io.Discard, resp.Body, offset); err != nil {
				resp.Body.Close()
				return &networkError{err}
			}
		}
	case http.StatusRequestedRangeNotSatisfiable:
		resp.Body.Close()
		r.body = io.NopCloser(strings.NewReader(""))
		r.offset = offset
		return nil
	default:
		resp.Body.Close()
		return &HTTPStatusError{URL: r.url, Status: resp.StatusCode}
	}

	r.body = resp.Body
	r.offset = offset
	return nil
}

func (r *RangeReader) Read(p []byte) (int, error) {
	if r.body == nil {
		if err := r.open(r.offset); err != nil {
			return 0, err
		}
	}
	n, err := r.body.Read(p)
	r.offset += int64(n)
	if err != nil && !errors.Is(err, io.EOF) {
		err = &networkError{err}
	}
	return n, err
}

// Seek 关闭当前响应体，下一次 Read 时从新位置重新请求
func (r *RangeReader) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = r.offset + offset
	case io.SeekEnd:
		if r.size < 0 {
			return 0, errors.New("seek from end: unknown size")
		}
		abs = r.size + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("negative position")
	}
	if abs == r.offset && r.body != nil {
		return abs, nil
	}
	if r.body != nil {
		r.body.Close()
		r.body = nil
	}
	r.offset = abs
	return abs, nil
}

// Size 对象长度，服务端未提供时为 -1
func (r *RangeReader) Size() int64 { return r.size }

func (r *RangeReader) Close() error {
	if r.body == nil {
		return nil
	}
	err := r.body.Close()
	r.body = nil
	return err
}

func parseContentRangeTotal(v string) (int64, bool) {
	// bytes 0-99/1234
	i := strings.LastIndexByte(v, '/')
	if i < 0 || v[i+1:] == "*" {
		return 0, false
	}
	n, err := strconv.ParseInt(v[i+1:], 10, 64)
	return n, err == nil
}

type networkError struct{ err error }

func (e *networkError) Error() string { return e.err.Error() }
func (e *networkError) Unwrap() error { return e.err }
func (e *networkError) Code() int     { return transport.MediaErrNetwork }
