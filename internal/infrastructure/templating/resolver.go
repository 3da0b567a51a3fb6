package templating

// Resolver compiles and renders templates against a fixed filter registry
type Resolver struct {
	strict  bool
	filters map[string]filterSpec
}

// Option configures a Resolver
type Option func(*Resolver)

// WithStrict makes missing paths in outputs and loop sources fail with
// UNRESOLVED_VARIABLE instead of rendering as empty text
func WithStrict(strict bool) Option {
	return func(r *Resolver) {
		r.strict = strict
	}
}

// NewResolver creates a resolver with the built-in filters
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{filters: builtinFilters()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Strict reports whether missing paths fail rendering
func (r *Resolver) Strict() bool {
	return r.strict
}

// Template is a compiled template. It is immutable and safe for concurrent use.
type Template struct {
	name   string
	nodes  []Node
	strict bool
}

// Compile parses source. Syntax errors and unknown filters are reported here,
// before any context is supplied.
func (r *Resolver) Compile(name, source string) (*Template, error) {
	nodes, err := parse(source, r.filters)
	if err != nil {
		return nil, err
	}
	return &Template{name: name, nodes: nodes, strict: r.strict}, nil
}

// Name returns the name the template was compiled under
func (t *Template) Name() string {
	return t.name
}

// Execute renders the template. The output depends only on the template and data.
func (t *Template) Execute(data map[string]any) (string, error) {
	root := FromAny(data)
	if data == nil {
		root = Map(nil)
	}
	ev := &evaluator{strict: t.strict, root: root}
	if err := ev.exec(t.nodes); err != nil {
		return "", err
	}
	return ev.out.String(), nil
}

// Resolve compiles and executes source in one step
func (r *Resolver) Resolve(source string, data map[string]any) (string, error) {
	t, err := r.Compile("inline", source)
	if err != nil {
		return "", err
	}
	return t.Execute(data)
}
