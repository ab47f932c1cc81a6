package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
}

func TestLoadCredential(t *testing.T) {
	t.Setenv(IdentityEnv, "")
	t.Setenv(SecretEnv, "")

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), CredentialsFile)
		writeFile(t, path, "id= me@example.com \npass=p=ss\n# comment\n")

		cred, err := LoadCredential(path)
		require.NoError(t, err)
		assert.Equal(t, "me@example.com", cred.Identity)
		assert.Equal(t, "p=ss", cred.Secret)
	})

	t.Run("env overrides file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), CredentialsFile)
		writeFile(t, path, "id=file-user\npass=file-pass\n")
		t.Setenv(SecretEnv, "env-pass")

		cred, err := LoadCredential(path)
		require.NoError(t, err)
		assert.Equal(t, "file-user", cred.Identity)
		assert.Equal(t, "env-pass", cred.Secret)
	})

	t.Run("env only", func(t *testing.T) {
		t.Setenv(IdentityEnv, "env-user")
		t.Setenv(SecretEnv, "env-pass")

		cred, err := LoadCredential(filepath.Join(t.TempDir(), "missing.txt"))
		require.NoError(t, err)
		assert.True(t, cred.IsComplete())
	})

	t.Run("incomplete", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), CredentialsFile)
		writeFile(t, path, "id=only-id\n")

		_, err := LoadCredential(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "credentials incomplete")
		assert.NotContains(t, err.Error(), "only-id=")
	})
}

func TestLoadPrompt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, PromptFile)

	writeFile(t, path, "\n  Describe the image.\n\n")
	prompt, err := LoadPrompt(path)
	require.NoError(t, err)
	assert.Equal(t, "Describe the image.", prompt)

	writeFile(t, path, "   \n")
	_, err = LoadPrompt(path)
	assert.Error(t, err)

	_, err = LoadPrompt(filepath.Join(dir, "absent.txt"))
	assert.Error(t, err)
}

func TestLoadModels(t *testing.T) {
	path := filepath.Join(t.TempDir(), ModelsFile)
	writeFile(t, path, "GPT-4o\r\n\n  Claude Sonnet  \nGemini\n")

	names, err := LoadModels(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"GPT-4o", "Claude Sonnet", "Gemini"}, names)

	writeFile(t, path, "\n\n")
	_, err = LoadModels(path)
	assert.Error(t, err)
}

func TestLoadAssets(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ImagesDir)
	for _, name := range []string{"b.PNG", "a.jpg", "notes.txt", "c.webp"} {
		writeFile(t, filepath.Join(dir, name), "x")
	}
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub.png"), 0755))

	assets, err := LoadAssets(dir)
	require.NoError(t, err)

	var names []string
	for _, a := range assets {
		names = append(names, a.Name)
		assert.Equal(t, filepath.Join(dir, a.Name), a.Path)
	}
	assert.Equal(t, []string{"a.jpg", "b.PNG", "c.webp"}, names)
}

func TestLoadAssetsEmpty(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "readme.md"), "x")

	_, err := LoadAssets(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no images found")
}

func TestLoadInputs(t *testing.T) {
	t.Setenv(IdentityEnv, "")
	t.Setenv(SecretEnv, "")
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, PromptFile), "prompt")
	writeFile(t, filepath.Join(dir, ModelsFile), "m1\nm2\n")
	writeFile(t, filepath.Join(dir, ImagesDir, "x.png"), "x")

	in, err := LoadInputs(dir, false)
	require.NoError(t, err)
	assert.Equal(t, "prompt", in.Prompt)
	assert.Len(t, in.ModelNames, 2)
	assert.Len(t, in.Assets, 1)

	_, err = LoadInputs(dir, true)
	assert.Error(t, err, "credential file is required for a run")
}
