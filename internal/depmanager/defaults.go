package depmanager

import (
	"path"

	"vidgrab/internal/config"
)

// BinaryName represents the name of a binary dependency.
type BinaryName string

// Binary dependency names.
const (
	BinaryYTdlp   BinaryName = "yt-dlp"
	BinaryFFmpeg  BinaryName = "ffmpeg"
	BinaryFFprobe BinaryName = "ffprobe"
	BinaryDeno    BinaryName = "deno"
)

// tool is one release artifact. An archive may provide several binaries.
type tool struct {
	name     BinaryName
	provides []BinaryName
	// required tools must resolve, the others only degrade features
	required bool
	urls     func(config.DepManager) (linuxARM64, linuxAMD64 string)
}

// tools is ordered by install priority.
var tools = []tool{
	{
		name:     BinaryYTdlp,
		provides: []BinaryName{BinaryYTdlp},
		required: true,
		urls: func(c config.DepManager) (string, string) {
			return c.YTdlpLinuxARM64, c.YTdlpLinuxAMD64
		},
	},
	{
		name:     BinaryFFmpeg,
		provides: []BinaryName{BinaryFFmpeg, BinaryFFprobe},
		urls: func(c config.DepManager) (string, string) {
			return c.FFmpegLinuxARM64, c.FFmpegLinuxAMD64
		},
	},
	{
		name:     BinaryDeno,
		provides: []BinaryName{BinaryDeno},
		urls: func(c config.DepManager) (string, string) {
			return c.DenoLinuxARM64, c.DenoLinuxAMD64
		},
	},
}

// assetName is the file name a release URL points to; checksum lists use the same name.
func assetName(url string) string {
	if url == "" {
		return ""
	}

	return path.Base(url)
}
