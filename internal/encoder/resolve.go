package encoder

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hyperjump/docbert/internal/docerr"
)

// DefaultModel is the compiled-in model ID.
const DefaultModel = "lightonai/GTE-ModernColBERT-v1"

// ModelEnvVar overrides the model ID.
const ModelEnvVar = "DOCBERT_MODEL"

// SettingModelName is the config-store key holding the configured model.
const SettingModelName = "model_name"

// Source says where a resolved model ID came from.
type Source string

const (
	SourceCLI     Source = "cli"
	SourceEnv     Source = "env"
	SourceConfig  Source = "config"
	SourceDefault Source = "default"
)

// SettingReader is the slice of the config store the resolver needs.
type SettingReader interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
}

// ResolveModel picks the model ID: explicit override, then DOCBERT_MODEL,
// then the model_name setting, then the default.
func ResolveModel(ctx context.Context, explicit string, settings SettingReader) (string, Source, error) {
	if explicit != "" {
		return explicit, SourceCLI, nil
	}
	if env := os.Getenv(ModelEnvVar); env != "" {
		return env, SourceEnv, nil
	}
	if settings != nil {
		value, found, err := settings.GetSetting(ctx, SettingModelName)
		if err != nil {
			return "", "", err
		}
		if found && value != "" {
			return value, SourceConfig, nil
		}
	}
	return DefaultModel, SourceDefault, nil
}

// sequenceLengths mirrors the relevant keys of
// config_sentence_transformers.json.
type sequenceLengths struct {
	DocumentLength int `json:"document_length"`
	QueryLength    int `json:"query_length"`
}

func loadSequenceLengths(modelDir string) (sequenceLengths, error) {
	raw, err := os.ReadFile(filepath.Join(modelDir, "config_sentence_transformers.json"))
	if err != nil {
		return sequenceLengths{}, err
	}
	var cfg sequenceLengths
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return sequenceLengths{}, err
	}
	return cfg, nil
}

// locateModelDir maps a model ID to a directory on disk. A filesystem path
// is used as-is; a hub ID like "org/name" is looked up in the Hugging Face
// cache (HF_HOME or ~/.cache/huggingface). Models are expected to be
// pre-downloaded, e.g. with `huggingface-cli download`.
func locateModelDir(modelID string) (string, error) {
	if info, err := os.Stat(modelID); err == nil && info.IsDir() {
		return modelID, nil
	}

	cache := os.Getenv("HF_HOME")
	if cache == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", docerr.Wrap(docerr.KindEncoder, err, "resolve home directory")
		}
		cache = filepath.Join(home, ".cache", "huggingface")
	}

	repoDir := filepath.Join(cache, "hub",
		"models--"+strings.ReplaceAll(modelID, "/", "--"), "snapshots")
	entries, err := os.ReadDir(repoDir)
	if err != nil || len(entries) == 0 {
		return "", docerr.New(docerr.KindEncoder,
			"model %s not found in cache (%s); download it first", modelID, repoDir)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", docerr.New(docerr.KindEncoder,
			"model %s has no snapshot under %s", modelID, repoDir)
	}
	sort.Strings(names)
	return filepath.Join(repoDir, names[len(names)-1]), nil
}

// findModelFile returns the ONNX graph inside a model directory, checking
// the layouts the hub exporters use.
func findModelFile(modelDir string) (string, error) {
	for _, candidate := range []string{
		"model.onnx",
		filepath.Join("onnx", "model.onnx"),
	} {
		path := filepath.Join(modelDir, candidate)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", docerr.New(docerr.KindEncoder, "no ONNX graph in %s", modelDir)
}
