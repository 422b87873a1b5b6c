package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMarkup = `<!DOCTYPE html>
<html>
<body>
  <div class="container">
    <h1 id="title">Hello, World!</h1>
    <p class="lead">First</p>
    <p class="lead">Second</p>
    <button data-action="run">Go</button>
  </div>
</body>
</html>`

func TestDOMQuery(t *testing.T) {
	dom := NewDOM(testMarkup)

	h1 := dom.QueryOne("h1")
	require.NotNil(t, h1)
	assert.Equal(t, "H1", h1.TagName)
	assert.Equal(t, "title", h1.ID)
	assert.Equal(t, "Hello, World!", h1.TextContent)

	leads := dom.Query("p.lead")
	require.Len(t, leads, 2)
	assert.Equal(t, "First", leads[0].TextContent)
	assert.Equal(t, "Second", leads[1].TextContent)

	assert.Nil(t, dom.QueryOne("#missing"))
	assert.Empty(t, dom.Query(".missing"))
}

func TestDOMQueryByID(t *testing.T) {
	dom := NewDOM(testMarkup)

	byID := dom.QueryOne("#title")
	require.NotNil(t, byID)
	assert.Equal(t, "H1", byID.TagName)
}

func TestDOMAttributes(t *testing.T) {
	dom := NewDOM(testMarkup)

	btn := dom.QueryOne("button")
	require.NotNil(t, btn)
	assert.Equal(t, "run", btn.GetAttribute("data-action"))
	assert.Equal(t, "", btn.GetAttribute("data-missing"))
}

func TestDOMMutationRecording(t *testing.T) {
	dom := NewDOM(testMarkup)

	h1 := dom.QueryOne("#title")
	require.NotNil(t, h1)

	h1.SetText("Changed")
	h1.SetAttribute("data-state", "done")

	assert.Equal(t, "Changed", h1.TextContent)
	assert.Equal(t, "done", h1.GetAttribute("data-state"))

	changes := dom.Changes()
	require.Len(t, changes, 2)
	assert.Equal(t, "text", changes[0].Type)
	assert.Equal(t, "#title", changes[0].Selector)
	assert.Equal(t, "Changed", changes[0].Value)
	assert.Equal(t, "attribute", changes[1].Type)
	assert.Equal(t, "data-state", changes[1].Property)

	// A fresh query sees the mutation.
	again := dom.QueryOne("#title")
	require.NotNil(t, again)
	assert.Equal(t, "Changed", again.TextContent)
}

func TestDOMMalformedMarkup(t *testing.T) {
	dom := NewDOM("<div><p>unclosed")

	p := dom.QueryOne("p")
	require.NotNil(t, p)
	assert.Equal(t, "unclosed", p.TextContent)
}

func TestDOMEmptyMarkup(t *testing.T) {
	dom := NewDOM("")
	assert.Nil(t, dom.QueryOne("div"))
	assert.Empty(t, dom.Query("p"))
	assert.Empty(t, dom.Changes())
}
