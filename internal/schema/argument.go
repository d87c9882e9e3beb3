package schema

// Validation is a named predicate run against a parsed argument value.
type Validation struct {
	Name string
	Fn   func(any) bool
}

// Argument declares one input value of an ArgumentSet.
type Argument struct {
	sealable

	Name        string
	ID          string
	Description string

	token       any
	ref         *TypeRef
	required    bool
	def         any
	hasDefault  bool
	validations []Validation
	condition   func(*Request) bool
}

// NewArgument declares an argument of the given type token, e.g. "string",
// ArrayOf("integer") or an *ArgumentSet.
func NewArgument(name string, typ any) *Argument {
	return &Argument{Name: name, token: typ}
}

func (a *Argument) SetDescription(desc string) *Argument {
	a.mustBeOpen("argument " + a.Name)
	a.Description = desc
	return a
}

func (a *Argument) SetRequired(required bool) *Argument {
	a.mustBeOpen("argument " + a.Name)
	a.required = required
	return a
}

// SetDefault declares the value used when the argument is absent from the
// input and from the route. A nil default is treated as no default.
func (a *Argument) SetDefault(v any) *Argument {
	a.mustBeOpen("argument " + a.Name)
	a.def = v
	a.hasDefault = v != nil
	return a
}

// AddValidation appends a named predicate; failing names are reported back to
// the client.
func (a *Argument) AddValidation(name string, fn func(any) bool) *Argument {
	a.mustBeOpen("argument " + a.Name)
	a.validations = append(a.validations, Validation{Name: name, Fn: fn})
	return a
}

// SetCondition restricts the argument to requests for which fn returns true.
// fn must be a pure function of the request.
func (a *Argument) SetCondition(fn func(*Request) bool) *Argument {
	a.mustBeOpen("argument " + a.Name)
	a.condition = fn
	return a
}

// Type returns the resolved type. It is nil until the owning registry is built.
func (a *Argument) Type() *TypeRef   { return a.ref }
func (a *Argument) TypeToken() any   { return a.token }
func (a *Argument) Required() bool   { return a.required }
func (a *Argument) Array() bool      { return a.ref != nil && a.ref.Array }
func (a *Argument) HasDefault() bool { return a.hasDefault }
func (a *Argument) Default() any     { return a.def }

func (a *Argument) Validations() []Validation { return a.validations }

// Applies reports whether the argument takes part in parsing for r.
func (a *Argument) Applies(r *Request) bool {
	return a.condition == nil || a.condition(r)
}

// Validate runs the argument's validations and returns the names of those
// that failed.
func (a *Argument) Validate(v any) []string {
	var failed []string
	for _, val := range a.validations {
		if !val.Fn(v) {
			failed = append(failed, val.Name)
		}
	}
	return failed
}

// LookupResolver turns the single populated key of a lookup argument set into
// a domain value.
type LookupResolver func(r *Request, key string, value any) (any, error)

// ArgumentSet declares an ordered set of arguments.
type ArgumentSet struct {
	sealable

	ID          string
	Name        string
	Description string

	args     []*Argument
	index    map[string]*Argument
	lookup   bool
	resolver LookupResolver
	errors   []*ErrorType
}

func NewArgumentSet(id string) *ArgumentSet {
	return &ArgumentSet{ID: id, Name: id, index: make(map[string]*Argument)}
}

// NewLookupArgumentSet declares a set in which exactly one argument must be
// given a non-null value.
func NewLookupArgumentSet(id string) *ArgumentSet {
	s := NewArgumentSet(id)
	s.lookup = true
	return s
}

func (s *ArgumentSet) SetName(name string) *ArgumentSet {
	s.mustBeOpen("argument set " + s.ID)
	s.Name = name
	return s
}

func (s *ArgumentSet) SetDescription(desc string) *ArgumentSet {
	s.mustBeOpen("argument set " + s.ID)
	s.Description = desc
	return s
}

// AddArgument appends an argument; redeclaring a name replaces it in place.
func (s *ArgumentSet) AddArgument(a *Argument) *ArgumentSet {
	s.mustBeOpen("argument set " + s.ID)
	if a.ID == "" {
		a.ID = s.ID + "/" + camelize(a.Name) + "Argument"
	}
	if _, ok := s.index[a.Name]; ok {
		for i, existing := range s.args {
			if existing.Name == a.Name {
				s.args[i] = a
			}
		}
	} else {
		s.args = append(s.args, a)
	}
	s.index[a.Name] = a
	return s
}

// SetResolver configures the resolver of a lookup argument set.
func (s *ArgumentSet) SetResolver(fn LookupResolver) *ArgumentSet {
	s.mustBeOpen("argument set " + s.ID)
	s.resolver = fn
	return s
}

// AddPotentialError records an error the resolver may raise.
func (s *ArgumentSet) AddPotentialError(e *ErrorType) *ArgumentSet {
	s.mustBeOpen("argument set " + s.ID)
	s.errors = append(s.errors, e)
	return s
}

func (s *ArgumentSet) Arguments() []*Argument         { return s.args }
func (s *ArgumentSet) Argument(name string) *Argument { return s.index[name] }
func (s *ArgumentSet) Lookup() bool                   { return s.lookup }
func (s *ArgumentSet) Resolver() LookupResolver       { return s.resolver }
func (s *ArgumentSet) PotentialErrors() []*ErrorType  { return s.errors }
func (s *ArgumentSet) DefinitionID() string           { return s.ID }
func (s *ArgumentSet) Built() bool                    { return s != nil && s.sealed() }

func (s *ArgumentSet) references() []any {
	refs := make([]any, 0, len(s.args)+len(s.errors))
	for _, a := range s.args {
		refs = append(refs, a.token)
	}
	for _, e := range s.errors {
		refs = append(refs, e)
	}
	return refs
}

func (s *ArgumentSet) seal() {
	s.sealable.seal()
	for _, a := range s.args {
		a.seal()
	}
}
