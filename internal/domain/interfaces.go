package domain

import (
	"context"
	"io"

	"github.com/supabase-community/supabase-go"
)

// Logger defines the interface for logging operations
type Logger interface {
	Info(msg string, fields ...interface{})
	Error(msg string, err error, fields ...interface{})
	Debug(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
}

// Config defines the interface for configuration management
type Config interface {
	GetServerPort() string
	GetKeyServerPort() string
	GetLogLevel() string
	GetSettingsPath() string
	GetWorkDir() string
	GetSaveDir() string
	GetKeyDir() string
	GetSignatureDir() string
	GetAPIToken() string
	GetKeyStoreBackend() string
	GetKeyFilesDir() string
	GetSupabaseURL() string
	GetSupabaseKey() string
	GetNetworkTimeoutSeconds() int64
}

// Prompter asks the user for a line of text. ok is false when the prompt
// was dismissed.
type Prompter interface {
	PromptText(title, label string) (value string, ok bool)
}

// FilePicker asks the user for a file. Both return values are empty when
// the dialog was cancelled.
type FilePicker interface {
	PickFile(initialDir string, extensions []string) (fullPath, baseName string)
}

// Direction of a page rotation.
type Direction int

const (
	RotateLeft  Direction = -1
	RotateRight Direction = 1
)

// WriteOptions control how content is serialized.
type WriteOptions struct {
	GarbageLevel int
	Deflate      bool
	Password     string
}

// Content is the page content of one open document. Implementations are
// owned by exactly one session and are mutated in place.
type Content interface {
	PageCount() int
	IsEncrypted() bool
	Authenticate(password string) bool
	Bytes() []byte
	Clone() Content

	RotatePage(index int, degrees int) error
	MovePage(from, to int) error
	DeletePage(index int) error
	InsertBlankPage(index int) error
	Watermark(index int, imagePath string, allPages bool) error
	InsertPages(src Content, at, from, to int) error
	RemovePage(index int) error

	SetMetadata(md Metadata) error
	AddInk(page int, strokes []Stroke) error
	AddRedactions(page int, rects []Rect) error
	ApplyRedactions(page int) error
	AddHighlights(page int, rects []Rect) error

	Write(w io.Writer, opts WriteOptions) error
}

// DocumentEngine opens and creates Content.
type DocumentEngine interface {
	Open(path string) (Content, error)
	OpenBytes(data []byte) (Content, error)
	NewBlank() (Content, error)
	ExtractImages(data []byte, outDir string) error
}

// Renderer rasterizes and reads text from serialized PDF bytes.
type Renderer interface {
	PageCount(data []byte) (int, error)
	RenderPNG(data []byte, page int, width int) ([]byte, error)
	PageText(data []byte, page int) (string, error)
}

// KeyRepository persists public keys by file name.
type KeyRepository interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, data []byte) error
}

// SupabaseClient gives repositories access to the database.
type SupabaseClient interface {
	Initialize() error
	DB() *supabase.Client
}
