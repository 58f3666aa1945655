package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// CORSReport 描述一次跨域预检和 Range 探测的结果
type CORSReport struct {
	URL           string
	PreflightCode int
	AllowOrigin   string
	AllowMethods  string
	ProbeCode     int
	AcceptRanges  string
	ContentType   string
}

// OK 判断来自 origin 的浏览器能否以 Range 请求播放该地址
func (r CORSReport) OK(origin string) bool {
	originOK := r.AllowOrigin == "*" || r.AllowOrigin == origin
	return originOK &&
		r.PreflightCode < 300 &&
		strings.Contains(strings.ToUpper(r.AllowMethods), http.MethodGet) &&
		(r.ProbeCode == http.StatusOK || r.ProbeCode == http.StatusPartialContent)
}

// CheckCORS 模拟浏览器 audio 元素，对 url 发送预检请求和单字节 Range 探测
func CheckCORS(ctx context.Context, client *http.Client, url, origin string) (CORSReport, error) {
	if client == nil {
		client = http.DefaultClient
	}
	report := CORSReport{URL: url}

	req, err := http.NewRequestWithContext(ctx, http.MethodOptions, url, nil)
	if err != nil {
		return report, err
	}
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "range")
	resp, err := client.Do(req)
	if err != nil {
		return report, fmt.Errorf("预检请求失败: %w", err)
	}
	resp.Body.Close()
	report.PreflightCode = resp.StatusCode
	report.AllowOrigin = resp.Header.Get("Access-Control-Allow-Origin")
	report.AllowMethods = resp.Header.Get("Access-Control-Allow-Methods")

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return report, err
	}
	req.Header.Set("Origin", origin)
	req.Header.Set("Range", "bytes=0-0")
	resp, err = client.Do(req)
	if err != nil {
		return report, fmt.Errorf("Range 探测失败: %w", err)
	}
	resp.Body.Close()
	report.ProbeCode = resp.StatusCode
	report.AcceptRanges = resp.Header.Get("Accept-Ranges")
	report.ContentType = resp.Header.Get("Content-Type")
	if report.AllowOrigin == "" {
		report.AllowOrigin = resp.Header.Get("Access-Control-Allow-Origin")
	}
	return report, nil
}
