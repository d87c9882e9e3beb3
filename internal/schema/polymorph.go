package schema

// PolymorphOption is one candidate shape of a polymorph.
type PolymorphOption struct {
	Name    string
	token   any
	ref     *TypeRef
	matcher func(any) bool
}

func (o *PolymorphOption) Type() *TypeRef { return o.ref }
func (o *PolymorphOption) TypeToken() any { return o.token }

// Matches reports whether the option's matcher accepts v.
func (o *PolymorphOption) Matches(v any) bool {
	return o.matcher != nil && o.matcher(v)
}

// Polymorph dispatches a value to the first option whose matcher accepts it.
type Polymorph struct {
	sealable

	ID          string
	Name        string
	Description string

	options []*PolymorphOption
}

func NewPolymorph(id string) *Polymorph {
	return &Polymorph{ID: id, Name: id}
}

func (p *Polymorph) SetName(name string) *Polymorph {
	p.mustBeOpen("polymorph " + p.ID)
	p.Name = name
	return p
}

func (p *Polymorph) SetDescription(desc string) *Polymorph {
	p.mustBeOpen("polymorph " + p.ID)
	p.Description = desc
	return p
}

// AddOption appends a candidate. Options are tried in declaration order.
func (p *Polymorph) AddOption(name string, typ any, matcher func(any) bool) *Polymorph {
	p.mustBeOpen("polymorph " + p.ID)
	p.options = append(p.options, &PolymorphOption{Name: name, token: typ, matcher: matcher})
	return p
}

func (p *Polymorph) Options() []*PolymorphOption { return p.options }

// Resolve returns the first option matching v.
func (p *Polymorph) Resolve(v any) (*PolymorphOption, bool) {
	for _, o := range p.options {
		if o.Matches(v) {
			return o, true
		}
	}
	return nil, false
}

func (p *Polymorph) DefinitionID() string { return p.ID }

func (p *Polymorph) references() []any {
	refs := make([]any, 0, len(p.options))
	for _, o := range p.options {
		refs = append(refs, o.token)
	}
	return refs
}
