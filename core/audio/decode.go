package audio

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"UndercoverFM/core/transport"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// ErrUnsupportedFormat 没有可用的解码器
var ErrUnsupportedFormat = errors.New("unsupported audio format")

type unsupportedError struct{ ext string }

func (e *unsupportedError) Error() string {
	return fmt.Sprintf("%v: %q", ErrUnsupportedFormat, e.ext)
}
func (e *unsupportedError) Unwrap() error { return ErrUnsupportedFormat }
func (e *unsupportedError) Code() int     { return transport.MediaErrUnsupported }

type decodeError struct{ err error }

func (e *decodeError) Error() string { return "decode: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }
func (e *decodeError) Code() int     { return transport.MediaErrDecode }

// Extension 返回播放地址的小写扩展名，忽略查询参数和百分号编码
func Extension(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	return strings.ToLower(path.Ext(p))
}

// Decode 按扩展名选择 beep 解码器，rc 由返回的流持有并随之关闭
func Decode(rc io.ReadCloser, ext string) (beep.StreamSeekCloser, beep.Format, error) {
	var (
		s   beep.StreamSeekCloser
		f   beep.Format
		err error
	)
	switch ext {
	case ".mp3":
		s, f, err = mp3.Decode(rc)
	case ".flac":
		s, f, err = flac.Decode(rc)
	case ".wav":
		s, f, err = wav.Decode(rc)
	case ".ogg":
		s, f, err = vorbis.Decode(rc)
	default:
		rc.Close()
		return nil, beep.Format{}, &unsupportedError{ext: ext}
	}
	if err != nil {
		rc.Close()
		return nil, beep.Format{}, &decodeError{err}
	}
	return s, f, nil
}
