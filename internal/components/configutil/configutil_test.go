package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	BaseUrl string `json:"base_url"`
	Retries int    `json:"retries"`
	Section string `json:"section"`
}

func TestReadConfigLocalOverride(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "ddfeed.json5"), []byte(`{
		// comments are allowed
		base_url: "https://example.com",
		retries: 2,
		section: "Now on DoorDash",
	}`), 0600)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(dir, "ddfeed.local.json5"), []byte(`{retries: 5}`), 0600)
	require.NoError(t, err)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "ddfeed.json5"))
	require.NoError(t, err)
	require.Equal(t, testConfig{
		BaseUrl: "https://example.com",
		Retries: 5,
		Section: "Now on DoorDash",
	}, cfg)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "missing.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestSplitExt(t *testing.T) {
	table := []struct {
		input  string
		prefix string
		ext    string
	}{
		{input: "ddfeed.json5", prefix: "ddfeed", ext: "json5"},
		{input: "a.b.json", prefix: "a.b", ext: "json"},
		{input: "noext", prefix: "noext", ext: ""},
	}
	for _, row := range table {
		prefix, ext := splitExt(row.input)
		require.Equal(t, row.prefix, prefix)
		require.Equal(t, row.ext, ext)
	}
}

func TestReadConfigOnlyLocal(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "ddfeed.local.json5"), []byte(`{section: "Deals"}`), 0600)
	require.NoError(t, err)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "ddfeed.json5"))
	require.NoError(t, err)
	require.Equal(t, testConfig{Section: "Deals"}, cfg)
}

func TestReadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ddfeed.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{retries: `), 0600))

	_, err := ReadConfig[testConfig](path)
	require.ErrorContains(t, err, path)
}

func TestLocalPath(t *testing.T) {
	table := []struct {
		input    string
		expected string
	}{
		{input: "ddfeed.json5", expected: "ddfeed.local.json5"},
		{input: filepath.Join("conf", "telemetry.json5"), expected: filepath.Join("conf", "telemetry.local.json5")},
		{input: "noext", expected: "noext.local"},
	}
	for _, row := range table {
		require.Equal(t, row.expected, LocalPath(row.input))
	}
}

func TestReadRecursively(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0777))
	err = os.WriteFile(filepath.Join(root, "ddfeed.json5"), []byte(`{retries: 3}`), 0600)
	require.NoError(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	t.Cleanup(func() {
		os.Chdir(wd)
	})

	path, err := Find("ddfeed.json5")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "ddfeed.json5"), path)

	cfg, err := ReadRecursively[testConfig]("ddfeed.json5")
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Retries)

	_, err = ReadRecursively[testConfig]("missing-ddfeed-config.json5")
	require.ErrorIs(t, err, os.ErrNotExist)
}
