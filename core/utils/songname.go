package utils

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// UnknownArtist 无法从文件名解析出艺术家时使用
const UnknownArtist = "Unknown Artist"

var (
	audioExtRe     = regexp.MustCompile(`(?i)\.(mp3|flac|m4a|wav|ogg)$`)
	trackPrefixRe  = regexp.MustCompile(`^\d+\.?\s*`)
	leadingTrackRe = regexp.MustCompile(`^\d+\.?\s+`)
)

// SongName 从文件名解析出的显示信息
type SongName struct {
	Artist string `json:"artist"`
	Title  string `json:"title"`
}

// ParseSongName 从文件名解析艺人和歌名
//
//	"01. Nirvana - Smells Like Teen Spirit.mp3" → Nirvana / Smells Like Teen Spirit
//	"03 Intro.flac"                             → Unknown Artist / Intro
//	"Track.mp3"                                 → Unknown Artist / Track
func ParseSongName(filename string) SongName {
	name := audioExtRe.ReplaceAllString(filename, "")

	if left, right, ok := strings.Cut(name, " - "); ok {
		title := strings.TrimSpace(right)
		if title == "" {
			title = name
		}
		if trackPrefixRe.MatchString(left) {
			artist := strings.TrimSpace(trackPrefixRe.ReplaceAllString(left, ""))
			if artist == "" {
				return SongName{Artist: UnknownArtist, Title: title}
			}
			return SongName{Artist: artist, Title: title}
		}
		return SongName{Artist: strings.TrimSpace(left), Title: title}
	}

	if leadingTrackRe.MatchString(name) {
		return SongName{Artist: UnknownArtist, Title: leadingTrackRe.ReplaceAllString(name, "")}
	}

	return SongName{Artist: UnknownArtist, Title: name}
}

// FormatTime 将秒数格式化为 m:ss，未知时长返回 "0:00"
func FormatTime(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return "0:00"
	}
	mins := int(seconds) / 60
	secs := int(seconds) % 60
	return fmt.Sprintf("%d:%02d", mins, secs)
}
