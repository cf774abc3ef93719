package widget

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectionFromHTML(t *testing.T) {
	text, err := selectionFromHTML(`<p>Emerald
		<b>velvet</b>, 3-seat</p><script>track()</script><style>p{}</style>`)
	require.NoError(t, err)
	assert.Equal(t, "Emerald velvet, 3-seat", text)

	text, err = selectionFromHTML(`<script>only()</script>`)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestSelectionPreview(t *testing.T) {
	assert.Equal(t, "short", SelectionPreview("short"))

	long := strings.Repeat("é", 150)
	preview := SelectionPreview(long)
	assert.Equal(t, strings.Repeat("é", 100)+"...", preview)
}
