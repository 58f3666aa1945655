package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"UndercoverFM/logger"
	"UndercoverFM/storage"

	"github.com/gorilla/mux"
)

const (
	allowedMethods    = "GET, HEAD, OPTIONS"
	exposedHeaders    = "Content-Length, Content-Type, Content-Range, Accept-Ranges, ETag, Cache-Control"
	proxyCacheControl = "public, max-age=86400"
)

// ObjectStore 代理所需的对象存储能力，*storage.MinioClient 满足该接口
type ObjectStore interface {
	StatObject(ctx context.Context, key string) (storage.ObjectInfo, error)
	GetObject(ctx context.Context, key string, start, end int64) (io.ReadCloser, error)
}

// errRangeNotSatisfiable 请求的区间超出对象大小
var errRangeNotSatisfiable = errors.New("range not satisfiable")

// byteRange 闭区间 [Start, End]
type byteRange struct {
	Start, End int64
}

func (r byteRange) length() int64 { return r.End - r.Start + 1 }

// parseRange 解析单区间 Range 头：bytes=a-b、bytes=a-、bytes=-n。
// ok=false 表示头无法识别，按整文件返回。
func parseRange(header string, size int64) (byteRange, bool, error) {
	spec, found := strings.CutPrefix(strings.TrimSpace(header), "bytes=")
	if !found || strings.Contains(spec, ",") {
		return byteRange{}, false, nil
	}
	first, last, found := strings.Cut(spec, "-")
	if !found {
		return byteRange{}, false, nil
	}
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)

	if first == "" {
		n, err := strconv.ParseInt(last, 10, 64)
		if err != nil || n < 0 {
			return byteRange{}, false, nil
		}
		if n == 0 || size == 0 {
			return byteRange{}, true, errRangeNotSatisfiable
		}
		if n > size {
			n = size
		}
		return byteRange{Start: size - n, End: size - 1}, true, nil
	}

	start, err := strconv.ParseInt(first, 10, 64)
	if err != nil || start < 0 {
		return byteRange{}, false, nil
	}
	if start >= size {
		return byteRange{}, true, errRangeNotSatisfiable
	}
	end := size - 1
	if last != "" {
		e, err := strconv.ParseInt(last, 10, 64)
		if err != nil || e < start {
			return byteRange{}, false, nil
		}
		if e < end {
			end = e
		}
	}
	return byteRange{Start: start, End: end}, true, nil
}

// Proxy 以 CORS 和 Range 支持转发存储桶对象，供其他来源的页面播放音频
type Proxy struct {
	store   ObjectStore
	timeout time.Duration
}

func NewProxy(store ObjectStore) *Proxy {
	return &Proxy{store: store, timeout: 30 * time.Second}
}

func setCORSHeaders(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", allowedMethods)
	h.Set("Access-Control-Allow-Headers", "*")
	h.Set("Access-Control-Expose-Headers", exposedHeaders)
	h.Set("Access-Control-Max-Age", "86400")
}

// Router 返回代理路由，所有路径都映射为对象 key
func (p *Proxy) Router() *mux.Router {
	router := mux.NewRouter()
	router.SkipClean(true)
	router.PathPrefix("/").Handler(p)
	return router
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		setCORSHeaders(w.Header())
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodGet, http.MethodHead:
	default:
		w.Header().Set("Allow", allowedMethods)
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	key := strings.TrimPrefix(r.URL.Path, "/")
	if key == "" {
		setCORSHeaders(w.Header())
		http.Error(w, "File Not Found", http.StatusNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), p.timeout)
	defer cancel()

	info, err := p.store.StatObject(ctx, key)
	if err != nil {
		p.fail(w, key, err)
		return
	}

	h := w.Header()
	setCORSHeaders(h)
	h.Set("Content-Type", storage.ContentType(key))
	h.Set("Cache-Control", proxyCacheControl)
	h.Set("Accept-Ranges", "bytes")
	if info.ETag != "" {
		h.Set("ETag", quoteETag(info.ETag))
	}
	if !info.LastModified.IsZero() {
		h.Set("Last-Modified", info.LastModified.UTC().Format(http.TimeFormat))
	}

	status := http.StatusOK
	rng := byteRange{Start: 0, End: info.Size - 1}
	if header := r.Header.Get("Range"); header != "" {
		parsed, ok, err := parseRange(header, info.Size)
		if err != nil {
			h.Set("Content-Range", fmt.Sprintf("bytes */%d", info.Size))
			http.Error(w, "Range Not Satisfiable", http.StatusRequestedRangeNotSatisfiable)
			return
		}
		if ok {
			rng = parsed
			status = http.StatusPartialContent
			h.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", rng.Start, rng.End, info.Size))
		}
	}
	h.Set("Content-Length", strconv.FormatInt(max(rng.length(), 0), 10))

	if r.Method == http.MethodHead || info.Size == 0 {
		w.WriteHeader(status)
		return
	}

	end := rng.End
	if status == http.StatusOK {
		end = -1
	}
	body, err := p.store.GetObject(ctx, key, rng.Start, end)
	if err != nil {
		h.Del("Content-Length")
		h.Del("Content-Range")
		p.fail(w, key, err)
		return
	}
	defer body.Close()

	w.WriteHeader(status)
	if _, err := io.CopyN(w, body, rng.length()); err != nil && !errors.Is(err, io.EOF) {
		logger.Warn("代理传输中断", logger.String("key", key), logger.ErrorField(err))
	}
}

func (p *Proxy) fail(w http.ResponseWriter, key string, err error) {
	setCORSHeaders(w.Header())
	if errors.Is(err, storage.ErrObjectNotFound) {
		http.Error(w, "File Not Found", http.StatusNotFound)
		return
	}
	logger.Error("读取对象失败", logger.String("key", key), logger.ErrorField(err))
	http.Error(w, "Error: "+err.Error(), http.StatusInternalServerError)
}

func quoteETag(etag string) string {
	if strings.HasPrefix(etag, `"`) || strings.HasPrefix(etag, `W/"`) {
		return etag
	}
	return `"` + etag + `"`
}
