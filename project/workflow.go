package project

// Builder assembles a project fluently. Steps accumulate in call order;
// Build treats them as sequential unless overridden with
// WithDefaultMode.
type Builder struct {
	name   string
	groups []*Group
}

// Workflow starts a fluent project builder.
func Workflow(name string) *Builder {
	return &Builder{name: name}
}

// Task appends a leaf step.
func (b *Builder) Task(title string, opts ...TaskOption) *Builder {
	b.groups = append(b.groups, Task(title, opts...))
	return b
}

// Parallel appends a step whose groups run concurrently.
func (b *Builder) Parallel(children ...*Group) *Builder {
	b.groups = append(b.groups, Parallel(children...))
	return b
}

// Sequential appends a step whose groups run one after another.
func (b *Builder) Sequential(children ...*Group) *Builder {
	b.groups = append(b.groups, Sequential(children...))
	return b
}

// Then appends an already-built group as the next step.
func (b *Builder) Then(g *Group) *Builder {
	b.groups = append(b.groups, g)
	return b
}

// Build produces the project. The builder's step order is sequential
// unless an explicit WithDefaultMode option overrides it.
func (b *Builder) Build(opts ...ProjectOption) *Project {
	all := append([]ProjectOption{WithDefaultMode(KindSequential)}, opts...)
	return New(b.name, b.groups, all...)
}
