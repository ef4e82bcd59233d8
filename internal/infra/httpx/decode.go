package httpx

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// maxBodyBytes 限制单个响应（解压前与解压后）的大小。
const maxBodyBytes = 16 << 20

var errBodyTooLarge = errors.New("响应体超过上限")

// readBody 读取并按 Content-Encoding 解压响应体。
// 支持 br / gzip / deflate（zlib 包装或裸 deflate）；identity 或空值原样返回。
func readBody(r io.Reader, encoding string) ([]byte, error) {
	raw, err := readLimited(r)
	if err != nil {
		return nil, err
	}

	switch enc := strings.ToLower(strings.TrimSpace(encoding)); enc {
	case "", "identity":
		return raw, nil
	case "br":
		return readLimited(brotli.NewReader(bytes.NewReader(raw)))
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("gzip 解压失败：%w", err)
		}
		defer zr.Close()
		return readLimited(zr)
	case "deflate":
		// 规范要求 zlib 包装，但不少服务端直接发裸 deflate。
		if zr, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
			defer zr.Close()
			return readLimited(zr)
		}
		fr := flate.NewReader(bytes.NewReader(raw))
		defer fr.Close()
		return readLimited(fr)
	default:
		return nil, fmt.Errorf("不支持的 Content-Encoding：%q", enc)
	}
}

func readLimited(r io.Reader) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(b) > maxBodyBytes {
		return nil, errBodyTooLarge
	}
	return b, nil
}
