// File: cuculi/config/settings/settings.go

// Package settings is the typed view of the nudge service configuration.
// Components read their section through a *config.Loader; nothing in this
// package touches source files directly.
package settings

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/cuculi/config"
)

// Settings is the complete typed configuration.
type Settings struct {
	App      App      `yaml:"app"`
	Server   Server   `yaml:"server"`
	Database Database `yaml:"database"`
	OpenAI   OpenAI   `yaml:"openai"`
	Scoring  Scoring  `yaml:"scoring"`
}

// App identifies the running service.
type App struct {
	Name        string `yaml:"name" validate:"required"`
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
}

// Server holds the HTTP listener settings.
type Server struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port" validate:"required,min=1,max=65535"`
	ReadTimeout  time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"gte=0"`
}

// Database holds the document store and vector index settings.
type Database struct {
	URI         string        `yaml:"uri" validate:"required"`
	Name        string        `yaml:"name" validate:"required"`
	Collection  string        `yaml:"collection"`
	VectorIndex string        `yaml:"vector_index"`
	Timeout     time.Duration `yaml:"timeout" validate:"gte=0"`
}

// OpenAI holds the language model client settings.
type OpenAI struct {
	APIKey         string        `yaml:"api_key"`
	Model          string        `yaml:"model"`
	EmbeddingModel string        `yaml:"embedding_model"`
	Timeout        time.Duration `yaml:"timeout" validate:"gte=0"`
	MaxTokens      int           `yaml:"max_tokens" validate:"gte=0"`
}

// Scoring tunes candidate ranking.
type Scoring struct {
	SimilarityThreshold float64            `yaml:"similarity_threshold" validate:"gte=0,lte=1"`
	TopK                int                `yaml:"top_k" validate:"gte=0"`
	Weights             map[string]float64 `yaml:"weights" validate:"dive,keys,required,endkeys,gte=0"`
}

// Address returns host:port for the server listener.
func (s Server) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// FromSnapshot decodes and validates the whole snapshot.
func FromSnapshot(snap *config.Snapshot) (*Settings, error) {
	if snap == nil {
		return nil, config.ErrNotLoaded
	}

	var s Settings
	if err := snap.Scan("", &s); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load decodes the active snapshot of l.
func Load(l *config.Loader) (*Settings, error) {
	return FromSnapshot(l.Snapshot())
}

// Validate checks the settings against their field constraints. Field errors
// are reported with their configuration paths, e.g. "server.port".
func (s *Settings) Validate() error {
	err := structValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, fmt.Errorf("%s: failed %q constraint (value %v)", fieldPath(fe), fe.Tag(), fe.Value()))
	}
	return errors.Join(errs...)
}

// Validator adapts FromSnapshot for config.WithValidator so that a loader
// rejects snapshots the service could not start with.
func Validator() config.ValidatorFunc {
	return func(snap *config.Snapshot) error {
		_, err := FromSnapshot(snap)
		return err
	}
}

// fieldPath turns "Settings.server.port" into "server.port".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	return ns
}
