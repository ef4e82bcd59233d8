package domain

// StreamFormat 是播放地址的格式（按子串优先级 .m3u8 > .mp4 判断）。
type StreamFormat string

const (
	FormatM3U8    StreamFormat = "m3u8"
	FormatMP4     StreamFormat = "mp4"
	FormatUnknown StreamFormat = "unknown"
	FormatNone    StreamFormat = "none"
)

// StreamStatus 区分“可播放 / 被锁 / 找不到记录 / 有记录但没有流字段”。
type StreamStatus string

const (
	StreamAvailable StreamStatus = "available"
	StreamLocked    StreamStatus = "locked"
	StreamNotFound  StreamStatus = "not_found"
	// StreamRegionOrSchemaMismatch：记录存在且未锁，但没有任何候选字段带 http(s) 地址。
	StreamRegionOrSchemaMismatch StreamStatus = "region_or_schema_mismatch"
)

// StreamResult 是单集播放地址的解析结果。
//
// 约束：Locked=true 时 URL 必须为空（锁定标记优先，永远不输出地址）。
type StreamResult struct {
	URL    string       `json:"url,omitempty"`
	Format StreamFormat `json:"format"`
	Locked bool         `json:"locked"`
	Status StreamStatus `json:"status"`
}
