package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridian-labs/docextract/internal/config"
	"github.com/veridian-labs/docextract/internal/prompt"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDocumentJSONWrapped(t *testing.T) {
	path := writeTemp(t, "doc.json", `{"pages": [{"page_number": 2, "text": "b"}, {"page_number": 1, "text": "a"}]}`)

	pages, err := loadDocument(path)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, 2, pages[0].Number)
}

func TestLoadDocumentJSONArray(t *testing.T) {
	path := writeTemp(t, "doc.json", `[{"page_number": 1, "text": "a"}]`)

	pages, err := loadDocument(path)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "a", pages[0].Text)
}

func TestLoadDocumentPlainText(t *testing.T) {
	path := writeTemp(t, "doc.txt", "whole document body")

	pages, err := loadDocument(path)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, 1, pages[0].Number)
	assert.Equal(t, "whole document body", pages[0].Text)
}

func TestReadInstruction(t *testing.T) {
	got, err := readInstruction("inline wins", "")
	require.NoError(t, err)
	assert.Equal(t, "inline wins", got)

	path := writeTemp(t, "inst.txt", "from file")
	got, err = readInstruction("", path)
	require.NoError(t, err)
	assert.Equal(t, "from file", got)

	_, err = readInstruction("", "")
	assert.ErrorIs(t, err, prompt.ErrMissingInstruction)
}

func TestParsePageList(t *testing.T) {
	pages, err := parsePageList("1, 3,7")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 7}, pages)

	pages, err = parsePageList("")
	require.NoError(t, err)
	assert.Nil(t, pages)

	_, err = parsePageList("1,x")
	assert.Error(t, err)
}

func TestProviderID(t *testing.T) {
	c := &config.Config{}
	c.Generator.Provider = "anthropic"
	assert.Equal(t, "anthropic", providerID(c))

	c.Generator.Model = "claude-sonnet-4-5-20250929"
	assert.Equal(t, "claude-sonnet-4-5-20250929", providerID(c))
}

func TestNewGeneratorUnknownProvider(t *testing.T) {
	c := &config.Config{}
	c.Generator.Provider = "carrier-pigeon"
	_, err := newGenerator(c)
	assert.Error(t, err)
}
