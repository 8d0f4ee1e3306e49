package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, c.HTTP.Port)
	assert.Equal(t, "artifacts", c.Artifacts.Root)
	assert.Empty(t, c.Database.Path)
	assert.Equal(t, 25_000_000, c.Images.MaxPixels)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
http:
  port: 9000
  read_timeout: 5s
log:
  level: debug
apps: [house, loan]
history:
  size: 10
images:
  max_pixels: 1000000
database:
  path: data/predictions.db
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, c.HTTP.Port)
	assert.Equal(t, 5*time.Second, c.HTTP.ReadTimeout)
	assert.Equal(t, 30*time.Second, c.HTTP.WriteTimeout)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, []string{"house", "loan"}, c.Apps)
	assert.Equal(t, 10, c.History.Size)
	assert.Equal(t, 1_000_000, c.Images.MaxPixels)
	assert.Equal(t, "data/predictions.db", c.Database.Path)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown key":  "htp:\n  port: 1\n",
		"bad port":     "http:\n  port: 70000\n",
		"zero history": "history:\n  size: 0\n",
		"dup app":      "apps: [car, car]\n",
		"zero pixels":  "images:\n  max_pixels: 0\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
