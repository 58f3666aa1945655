package model

// Song 目录中的一个音频文件，构建后不再修改
type Song struct {
	Filename    string `json:"filename"`
	Path        string `json:"path"` // container path inside the bucket
	AlbumID     string `json:"albumId"`
	AlbumName   string `json:"albumName"`
	ArtistID    string `json:"artistId"`
	ArtistName  string `json:"artistName"`
	GlobalIndex int    `json:"globalIndex"`
}
