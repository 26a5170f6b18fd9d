package internal

import (
	"strings"
	"time"
)

type Config struct {
	BufferSize      int           `env:"BUFFER_SIZE,default=1000"`
	SinkTimeout     time.Duration `env:"SINK_TIMEOUT,default=3s"`
	MetricInterval  time.Duration `env:"METRIC_INTERVAL,default=30s"`
	LimitMessages   *int          `env:"LIMIT_MESSAGES"`
	BadgerFilepath  string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath   string        `env:"BLUGE_FILEPATH,required=true"`
	BlobRootDir     string        `env:"BLOB_ROOT_DIR,required=true"`
	BlobBaseURL     string        `env:"BLOB_BASE_URL,default=http://localhost:8080/files"`
	MaxUploadBytes  int64         `env:"MAX_UPLOAD_BYTES,default=10485760"`
	AllowedKinds    string        `env:"ALLOWED_KINDS,default=image/*;application/pdf"`
	LogLevel        string        `env:"LOG_LEVEL,default=INFO"`
	DebugPort       int           `env:"DEBUG_PORT,default=8090"`
}

// AllowedKindList splits the configured allow-list. Semicolons separate
// entries because media types themselves may contain commas in parameters.
func (c Config) AllowedKindList() []string {
	return strings.Split(c.AllowedKinds, ";")
}
