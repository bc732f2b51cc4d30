package bank

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"history-stairs/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed default_questions.yaml
var defaultQuestions []byte

// File is the on-disk question bank schema.
type File struct {
	Version   int               `json:"version" yaml:"version"`
	Questions []domain.Question `json:"questions" yaml:"questions"`
}

// FileLoader reads a YAML or JSON bank file. An empty path selects the
// bank compiled into the binary.
type FileLoader struct {
	path string
}

func NewFileLoader(path string) *FileLoader {
	return &FileLoader{path: path}
}

func (l *FileLoader) LoadQuestions(_ context.Context) ([]domain.Question, error) {
	if l.path == "" {
		return Parse(defaultQuestions, "default_questions.yaml")
	}
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read question bank: %w", err)
	}
	return Parse(data, l.path)
}

// Parse decodes a bank file; the extension of name picks the format.
func Parse(data []byte, name string) ([]domain.Question, error) {
	var (
		file File
		err  error
	)
	if strings.ToLower(filepath.Ext(name)) == ".json" {
		file, err = parseJSON(data)
	} else {
		file, err = parseYAML(data)
	}
	if err != nil {
		return nil, err
	}
	if len(file.Questions) == 0 {
		return nil, domain.ErrEmptyBank
	}
	return file.Questions, nil
}

func parseJSON(data []byte) (File, error) {
	var file File
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&file); err != nil {
		return File{}, fmt.Errorf("parse json: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return File{}, fmt.Errorf("parse json: multiple documents are not supported")
		}
		return File{}, fmt.Errorf("parse json: %w", err)
	}
	return file, nil
}

func parseYAML(data []byte) (File, error) {
	var file File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return File{}, fmt.Errorf("parse yaml: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return File{}, fmt.Errorf("parse yaml: multiple documents are not supported")
		}
		return File{}, fmt.Errorf("parse yaml: %w", err)
	}
	return file, nil
}
