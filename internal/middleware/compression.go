// Package middleware holds HTTP wrappers that sit outside the gin router.
package middleware

import (
	"compress/gzip"
	"fmt"
	"net/http"

	"github.com/klauspost/compress/gzhttp"
)

// CompressionConfig holds configuration for response compression
type CompressionConfig struct {
	MinSize          int      // smallest body worth compressing, in bytes
	CompressionLevel int      // gzip level, 1-9
	ContentTypes     []string // media types to compress
}

// DefaultCompressionConfig compresses JSON bodies of 1KB and up. Full
// grading reports are a few KB; error bodies stay uncompressed.
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize:          1024,
		CompressionLevel: gzip.DefaultCompression,
		ContentTypes:     []string{"application/json", "text/plain"},
	}
}

// Compress wraps h with gzip compression for clients that accept it.
func Compress(h http.Handler, config CompressionConfig) (http.Handler, error) {
	wrap, err := gzhttp.NewWrapper(
		gzhttp.MinSize(config.MinSize),
		gzhttp.CompressionLevel(config.CompressionLevel),
		gzhttp.ContentTypes(config.ContentTypes),
	)
	if err != nil {
		return nil, fmt.Errorf("configuring compression: %w", err)
	}
	return wrap(h), nil
}
