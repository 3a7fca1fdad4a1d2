package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvatarURL(t *testing.T) {
	for _, ref := range []string{"", "https://example.com/a.png", "data:image/png;base64,AAAA", "file:///tmp/a.png"} {
		got, err := avatarURL(ref)
		require.NoError(t, err)
		assert.Equal(t, ref, got)
	}

	got, err := avatarURL("avatar.png")
	require.NoError(t, err)
	abs, _ := filepath.Abs("avatar.png")
	assert.Equal(t, "file://"+filepath.ToSlash(abs), got)
}
