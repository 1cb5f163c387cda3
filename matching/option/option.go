package option

// Options controls which chunks a search may return.
type Options struct {
	// Orgs restricts hits to chunks from the listed source organizations.
	Orgs []string
	// Sections restricts hits to chunks whose section path matches one of
	// the listed patterns.
	Sections []string
	// Exclusions drops chunks whose section path matches any pattern.
	Exclusions []string
	// MaxChunkSize drops chunks with raw text longer than this many bytes.
	MaxChunkSize int
}

// Option defines a functional option for configuring matching Options
type Option func(*Options)

// NewOptions creates Options with the provided options applied
func NewOptions(opts ...Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// WithOrgs restricts results to the given source organizations
func WithOrgs(orgs ...string) Option {
	return func(o *Options) {
		o.Orgs = append(o.Orgs, orgs...)
	}
}

// WithSections restricts results to the given section path patterns
func WithSections(sections ...string) Option {
	return func(o *Options) {
		o.Sections = append(o.Sections, sections...)
	}
}

// WithExclusions drops results matching the given section path patterns
func WithExclusions(patterns ...string) Option {
	return func(o *Options) {
		o.Exclusions = append(o.Exclusions, patterns...)
	}
}

// WithMaxChunkSize drops results with raw text larger than size bytes
func WithMaxChunkSize(size int) Option {
	return func(o *Options) {
		o.MaxChunkSize = size
	}
}
