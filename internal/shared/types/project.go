package types

// Language identifies one of the editable source files.
type Language string

const (
	LangMarkup     Language = "markup"
	LangStyles     Language = "styles"
	LangScript     Language = "script"
	LangTypeScript Language = "typescript"
)

// EditorFiles maps logical language names to source text. The storage layer
// enforces no cross-file validation; validity is the consumer's concern.
type EditorFiles struct {
	Markup     string `json:"markup"`
	Styles     string `json:"styles"`
	Script     string `json:"script"`
	TypeScript string `json:"typescript,omitempty"`
}

// Clone returns an independent copy of the bundle.
func (f EditorFiles) Clone() EditorFiles {
	return f
}

// Get returns the source text for a language.
func (f EditorFiles) Get(lang Language) string {
	switch lang {
	case LangMarkup:
		return f.Markup
	case LangStyles:
		return f.Styles
	case LangTypeScript:
		return f.TypeScript
	default:
		return f.Script
	}
}

// Set replaces the source text for a language.
func (f *EditorFiles) Set(lang Language, content string) {
	switch lang {
	case LangMarkup:
		f.Markup = content
	case LangStyles:
		f.Styles = content
	case LangTypeScript:
		f.TypeScript = content
	default:
		f.Script = content
	}
}

// Project is a named, persisted bundle of editor files plus feature flags.
// The ID is immutable once created; UpdatedAt strictly increases on every
// persisted mutation (stamped by the caller, not the store).
type Project struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Files         EditorFiles `json:"files"`
	CreatedAt     int64       `json:"createdAt"`
	UpdatedAt     int64       `json:"updatedAt"`
	UseTailwind   bool        `json:"utilityCSSEnabled"`
	UseTypeScript bool        `json:"typedScriptEnabled"`
}

// VersionEntry is an immutable snapshot of a project's files. Entries are
// never mutated, only created or deleted.
type VersionEntry struct {
	ID        string      `json:"id"`
	ProjectID string      `json:"projectId"`
	Files     EditorFiles `json:"files"`
	Timestamp int64       `json:"timestamp"`
	Label     string      `json:"label,omitempty"`
}

// Settings is the global singleton editor preferences record.
// Last-write-wins, no history kept.
type Settings struct {
	FontSize     int    `json:"fontSize"`
	FontFamily   string `json:"fontFamily"`
	WordWrap     bool   `json:"wordWrap"`
	Minimap      bool   `json:"minimap"`
	LineNumbers  bool   `json:"lineNumbers"`
	TabSize      int    `json:"tabSize"`
	FormatOnSave bool   `json:"formatOnSave"`
	AutoSave     bool   `json:"autoSave"`
}

// DefaultSettings returns the hardcoded settings record used when no
// settings have been persisted yet.
func DefaultSettings() Settings {
	return Settings{
		FontSize:     14,
		FontFamily:   "JetBrains Mono",
		WordWrap:     false,
		Minimap:      true,
		LineNumbers:  true,
		TabSize:      2,
		FormatOnSave: true,
		AutoSave:     true,
	}
}
