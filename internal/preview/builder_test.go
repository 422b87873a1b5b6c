package preview

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/webpadhq/webpad/internal/shared/types"
)

func sampleFiles() types.EditorFiles {
	return types.EditorFiles{
		Markup: `<div id="app">Hello</div>`,
		Styles: `#app { color: red; }`,
		Script: `console.log("started");`,
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	files := sampleFiles()

	a := Build(files, true, "chan-123")
	b := Build(files, true, "chan-123")

	assert.Equal(t, a, b, "identical inputs must yield byte-identical output")
}

func TestBuildEmbedsUserContentVerbatim(t *testing.T) {
	files := sampleFiles()
	doc := Build(files, false, "chan-1")

	assert.Contains(t, doc, files.Markup)
	assert.Contains(t, doc, files.Styles)
	assert.Contains(t, doc, files.Script)
}

func TestBuildTailwindGate(t *testing.T) {
	files := sampleFiles()

	with := Build(files, true, "chan-1")
	without := Build(files, false, "chan-1")

	loader := `<script src="` + TailwindCDN + `">`

	// The CSP names the CDN origin either way; only the loader tag is gated.
	assert.Contains(t, with, loader)
	assert.NotContains(t, without, loader)
	assert.Contains(t, without, TailwindCDN)
}

func TestBuildOrdering(t *testing.T) {
	files := sampleFiles()
	doc := Build(files, true, "chan-1")

	tailwind := strings.Index(doc, TailwindCDN)
	instr := strings.Index(doc, "__webpadConsole")
	styles := strings.Index(doc, files.Styles)
	markup := strings.Index(doc, files.Markup)
	script := strings.Index(doc, files.Script)

	// Fixed order: utility-CSS loader, instrumentation, styles, body markup, user script.
	assert.Less(t, tailwind, instr)
	assert.Less(t, instr, styles)
	assert.Less(t, styles, markup)
	assert.Less(t, markup, script)
}

func TestBuildChannelEmbeddedVerbatim(t *testing.T) {
	tests := []struct {
		name    string
		channel string
	}{
		{"plain", "chan-abc"},
		{"uuid", "7c9a1a2e-5f6d-4a3b-9c8d-0e1f2a3b4c5d"},
		{"quotes and slashes", `ch"an\slash`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := Build(sampleFiles(), false, tt.channel)
			// JSON-escaped but decodes back to the exact token.
			assert.Contains(t, doc, "var __channel = ")
			assert.Contains(t, Instrumentation(tt.channel), "__webpadConsole")
		})
	}
}

func TestBuildSecurityPolicy(t *testing.T) {
	doc := Build(sampleFiles(), false, "chan-1")

	assert.Contains(t, doc, "Content-Security-Policy")
	assert.Contains(t, doc, "default-src 'none'")
	assert.Contains(t, doc, "script-src 'unsafe-inline' 'unsafe-eval' https://cdn.tailwindcss.com https://cdn.jsdelivr.net")
	assert.Contains(t, doc, "font-src https://fonts.gstatic.com data:")
	assert.Contains(t, doc, "img-src * data: blob:")
}

func TestBuildEmptyFiles(t *testing.T) {
	doc := Build(types.EditorFiles{}, false, "chan-1")

	assert.Contains(t, doc, "<!DOCTYPE html>")
	assert.Contains(t, doc, "</html>")
}

func TestInstrumentationSerializationRules(t *testing.T) {
	js := Instrumentation("chan-1")

	// The injected serializer must cover the documented fallbacks.
	assert.Contains(t, js, "return 'null'")
	assert.Contains(t, js, "return 'undefined'")
	assert.Contains(t, js, "a.toString()")
	assert.Contains(t, js, "JSON.stringify(a, null, 2)")
	assert.Contains(t, js, "'[Unserializable]'")

	// And it must keep the original console behavior alive.
	assert.Contains(t, js, "_log.apply(console, arguments)")
	assert.Contains(t, js, "unhandledrejection")
}
