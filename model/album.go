package model

// Manifest 歌单清单文档，结构为 users → artists → albums → songs
type Manifest struct {
	BaseURL string         `json:"baseUrl"`
	Users   []ManifestUser `json:"users"`
}

// ManifestUser 清单中的用户（曲库所有者）
type ManifestUser struct {
	ID      string           `json:"id,omitempty"`
	Name    string           `json:"name,omitempty"`
	Artists []ManifestArtist `json:"artists"`
}

// ManifestArtist 清单中的艺术家
type ManifestArtist struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Albums []ManifestAlbum `json:"albums"`
}

// ManifestAlbum 清单中的专辑，Path 为对象存储中的目录
type ManifestAlbum struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Path  string   `json:"path"`
	Songs []string `json:"songs"`
}

// Album 表示一张专辑，Songs 保持清单中的顺序
type Album struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`  // "<artist> - <album>"
	Title      string   `json:"title"` // 清单中的原始专辑名
	Path       string   `json:"path"`
	Songs      []string `json:"songs"`
	ArtistID   string   `json:"artistId"`
	ArtistName string   `json:"artistName"`
}

// Artist 艺术家及其专辑
type Artist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Albums []*Album `json:"albums"`
}
