// File: cuculi/config/builder.go
package config

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ValidatorFunc checks a freshly built snapshot before it is installed.
// Returning an error rejects the whole snapshot; the previous one stays active.
type ValidatorFunc func(s *Snapshot) error

// Overlay is an extra optional layer above the environment override.
type Overlay struct {
	Name   string
	Origin string
}

// Options configures a Loader.
type Options struct {
	// Dir holds <Name>.<ext> and environments/<env>.<ext>
	Dir string

	// Name is the base source file name without extension
	Name string

	// Extensions are tried in order when locating a source
	Extensions []string

	// FileFormat forces a format for every source ("auto" detects)
	FileFormat string

	// Overlays are applied above the environment override, in order
	Overlays []Overlay

	// EnvLookup resolves ${VAR} references; nil disables process env lookup
	EnvLookup EnvLookupFunc

	// DotEnv consults Dir/.env after EnvLookup
	DotEnv bool

	// MaxFileSize rejects larger sources; 0 disables the limit
	MaxFileSize int64

	// TagName is the struct tag used by Snapshot.Scan
	TagName string

	// MaxSubscribers limits concurrent Subscribe channels
	MaxSubscribers int

	Logger     *zap.Logger
	Validators []ValidatorFunc
}

// DefaultOptions returns the standard loader options
func DefaultOptions() Options {
	return Options{
		Dir:            DefaultDir,
		Name:           DefaultName,
		Extensions:     append([]string(nil), DefaultExtensions...),
		FileFormat:     FormatAuto,
		EnvLookup:      defaultEnvLookup,
		DotEnv:         true,
		MaxFileSize:    DefaultMaxFileSize,
		TagName:        DefaultTagName,
		MaxSubscribers: DefaultMaxSubscribers,
		Logger:         zap.NewNop(),
	}
}

// Option mutates Options.
type Option func(*Options)

// WithDir sets the configuration directory.
func WithDir(dir string) Option { return func(o *Options) { o.Dir = dir } }

// WithName sets the base source name.
func WithName(name string) Option { return func(o *Options) { o.Name = name } }

// WithExtensions sets the lookup order of source extensions.
func WithExtensions(exts ...string) Option {
	return func(o *Options) { o.Extensions = append([]string(nil), exts...) }
}

// WithFileFormat forces the source format instead of detecting it.
func WithFileFormat(format string) Option { return func(o *Options) { o.FileFormat = format } }

// WithOverlay adds an optional layer above the environment override.
func WithOverlay(name, path string) Option {
	return func(o *Options) { o.Overlays = append(o.Overlays, Overlay{Name: name, Origin: path}) }
}

// WithEnvLookup replaces the process environment lookup used for ${VAR}.
func WithEnvLookup(fn EnvLookupFunc) Option { return func(o *Options) { o.EnvLookup = fn } }

// WithDotEnv toggles reading Dir/.env for ${VAR} substitution.
func WithDotEnv(enabled bool) Option { return func(o *Options) { o.DotEnv = enabled } }

// WithMaxFileSize limits the size of every source.
func WithMaxFileSize(n int64) Option { return func(o *Options) { o.MaxFileSize = n } }

// WithTagName sets the struct tag for Scan.
func WithTagName(tag string) Option { return func(o *Options) { o.TagName = tag } }

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) Option { return func(o *Options) { o.Logger = logger } }

// WithValidator adds a snapshot validator. Validators run in the order added.
func WithValidator(fn ValidatorFunc) Option {
	return func(o *Options) {
		if fn != nil {
			o.Validators = append(o.Validators, fn)
		}
	}
}

// WithMaxSubscribers bounds the number of Subscribe channels.
func WithMaxSubscribers(n int) Option { return func(o *Options) { o.MaxSubscribers = n } }

func (o *Options) validate() error {
	if o.Dir == "" {
		return fmt.Errorf("config directory cannot be empty")
	}
	if !isValidKeySegment(o.Name) {
		return fmt.Errorf("invalid config name %q", o.Name)
	}
	if len(o.Extensions) == 0 {
		return fmt.Errorf("at least one source extension is required")
	}
	if o.FileFormat == "" {
		o.FileFormat = FormatAuto
	}
	if !validFormat(o.FileFormat) {
		return fmt.Errorf("%w: %q", ErrUnknownFormat, o.FileFormat)
	}
	for _, ov := range o.Overlays {
		if ov.Name == "" || ov.Origin == "" {
			return fmt.Errorf("overlay requires a name and a path")
		}
		if ov.Name == LayerBase || ov.Name == LayerEnvironment {
			return fmt.Errorf("overlay name %q is reserved", ov.Name)
		}
	}
	if o.MaxSubscribers <= 0 {
		o.MaxSubscribers = DefaultMaxSubscribers
	}
	if o.TagName == "" {
		o.TagName = DefaultTagName
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return nil
}

// Builder provides a fluent interface for building loaders
type Builder struct {
	opts        Options
	environment string
	load        bool
	err         error
}

// NewBuilder creates a new loader builder
func NewBuilder() *Builder {
	return &Builder{opts: DefaultOptions()}
}

// WithDir sets the configuration directory
func (b *Builder) WithDir(dir string) *Builder {
	b.opts.Dir = dir
	return b
}

// WithDiscovery resolves the configuration directory for appName via DiscoverDir
func (b *Builder) WithDiscovery(appName string) *Builder {
	b.opts.Dir = DiscoverDir(appName, "")
	return b
}

// WithName sets the base source name
func (b *Builder) WithName(name string) *Builder {
	b.opts.Name = name
	return b
}

// WithEnvironment loads the given environment during Build
func (b *Builder) WithEnvironment(env string) *Builder {
	b.environment = env
	b.load = true
	return b
}

// WithFileFormat forces a source format
func (b *Builder) WithFileFormat(format string) *Builder {
	if !validFormat(format) {
		b.err = fmt.Errorf("%w: %q", ErrUnknownFormat, format)
		return b
	}
	b.opts.FileFormat = format
	return b
}

// WithOverlay adds an optional layer above the environment override
func (b *Builder) WithOverlay(name, path string) *Builder {
	WithOverlay(name, path)(&b.opts)
	return b
}

// WithEnvLookup sets the ${VAR} resolver
func (b *Builder) WithEnvLookup(fn EnvLookupFunc) *Builder {
	b.opts.EnvLookup = fn
	return b
}

// WithDotEnv toggles the .env fallback for ${VAR}
func (b *Builder) WithDotEnv(enabled bool) *Builder {
	b.opts.DotEnv = enabled
	return b
}

// WithLogger sets the structured logger
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.opts.Logger = logger
	return b
}

// WithValidator adds a validation function that runs on every refresh.
// Multiple validators can be added and are executed in the order they are added
func (b *Builder) WithValidator(fn ValidatorFunc) *Builder {
	WithValidator(fn)(&b.opts)
	return b
}

// WithOptions applies functional options
func (b *Builder) WithOptions(opts ...Option) *Builder {
	for _, opt := range opts {
		opt(&b.opts)
	}
	return b
}

// Build creates the Loader. If an environment was set the first load is performed too.
func (b *Builder) Build() (*Loader, error) {
	return b.BuildContext(context.Background())
}

// BuildContext is Build with a context for the initial load
func (b *Builder) BuildContext(ctx context.Context) (*Loader, error) {
	if b.err != nil {
		return nil, b.err
	}

	l, err := newLoader(b.opts)
	if err != nil {
		return nil, err
	}

	if b.load {
		if _, err := l.Load(ctx, b.environment); err != nil {
			return nil, err
		}
	}

	return l, nil
}

// MustBuild is like Build but panics on error
func (b *Builder) MustBuild() *Loader {
	l, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("config build failed: %v", err))
	}
	return l
}
