package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jg-fukuda/auto-genspark2/internal/models"
)

// Input file names inside the input directory.
const (
	CredentialsFile = "genspark.txt"
	PromptFile      = "prompt.txt"
	ModelsFile      = "models.txt"
	ImagesDir       = "images"
)

// Environment variables that override the credential file.
const (
	IdentityEnv = "GENSPARK_ID"
	SecretEnv   = "GENSPARK_PASS"
)

// ImageExtensions lists the accepted asset extensions (lower case).
var ImageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp"}

// Inputs is everything a run needs from the input directory.
type Inputs struct {
	Credential models.Credential
	Prompt     string
	ModelNames []string
	Assets     []models.Asset
}

// LoadInputs reads all inputs from dir. The credential is only required
// when needCredential is set.
func LoadInputs(dir string, needCredential bool) (*Inputs, error) {
	in := &Inputs{}
	var err error

	if needCredential {
		if in.Credential, err = LoadCredential(filepath.Join(dir, CredentialsFile)); err != nil {
			return nil, err
		}
	}
	if in.Prompt, err = LoadPrompt(filepath.Join(dir, PromptFile)); err != nil {
		return nil, err
	}
	if in.ModelNames, err = LoadModels(filepath.Join(dir, ModelsFile)); err != nil {
		return nil, err
	}
	if in.Assets, err = LoadAssets(filepath.Join(dir, ImagesDir)); err != nil {
		return nil, err
	}
	return in, nil
}

// LoadCredential parses "id=" and "pass=" lines from path. GENSPARK_ID and
// GENSPARK_PASS take precedence; the file may be absent when both are set.
func LoadCredential(path string) (models.Credential, error) {
	var cred models.Credential

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			key, value, ok := strings.Cut(line, "=")
			if !ok {
				continue
			}
			switch strings.TrimSpace(key) {
			case "id":
				cred.Identity = strings.TrimSpace(value)
			case "pass":
				cred.Secret = strings.TrimSpace(value)
			}
		}
		if err := scanner.Err(); err != nil {
			return cred, fmt.Errorf("read %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return cred, fmt.Errorf("open %s: %w", path, err)
	}

	if v := os.Getenv(IdentityEnv); v != "" {
		cred.Identity = v
	}
	if v := os.Getenv(SecretEnv); v != "" {
		cred.Secret = v
	}

	if !cred.IsComplete() {
		return cred, fmt.Errorf("credentials incomplete: set id= and pass= in %s or %s/%s", path, IdentityEnv, SecretEnv)
	}
	return cred, nil
}

// LoadPrompt returns the trimmed prompt text.
func LoadPrompt(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read prompt: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("prompt file %s is empty", path)
	}
	return prompt, nil
}

// LoadModels returns one model name per non-empty line, in file order.
func LoadModels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read models: %w", err)
	}

	var names []string
	for _, line := range strings.Split(string(data), "\n") {
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("models file %s lists no models", path)
	}
	return names, nil
}

// LoadAssets returns the image files of dir sorted by name.
func LoadAssets(dir string) ([]models.Asset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read images directory: %w", err)
	}

	var assets []models.Asset
	for _, e := range entries {
		if e.IsDir() || !IsImage(e.Name()) {
			continue
		}
		assets = append(assets, models.Asset{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
		})
	}
	if len(assets) == 0 {
		return nil, fmt.Errorf("no images found in %s (accepted: %s)", dir, strings.Join(ImageExtensions, " "))
	}

	sort.Slice(assets, func(i, j int) bool { return assets[i].Name < assets[j].Name })
	return assets, nil
}

// IsImage reports whether name has an accepted extension, ignoring case.
func IsImage(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range ImageExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
