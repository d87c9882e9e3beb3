package schema

// Object is a named output shape: a field set plus conditions deciding whether
// a given source is emitted at all.
type Object struct {
	sealable

	ID          string
	Name        string
	Description string

	fields     *FieldSet
	conditions []func(source any, r *Request) bool
}

func NewObject(id string) *Object {
	return &Object{ID: id, Name: id, fields: NewFieldSet()}
}

func (o *Object) SetName(name string) *Object {
	o.mustBeOpen("object " + o.ID)
	o.Name = name
	return o
}

func (o *Object) SetDescription(desc string) *Object {
	o.mustBeOpen("object " + o.ID)
	o.Description = desc
	return o
}

func (o *Object) AddField(f *Field) *Object {
	o.mustBeOpen("object " + o.ID)
	o.fields.Add(f)
	return o
}

// AddCondition adds a predicate that must hold for the object to be emitted.
func (o *Object) AddCondition(fn func(source any, r *Request) bool) *Object {
	o.mustBeOpen("object " + o.ID)
	o.conditions = append(o.conditions, fn)
	return o
}

func (o *Object) Fields() *FieldSet { return o.fields }

// Include reports whether every condition holds for source.
func (o *Object) Include(source any, r *Request) bool {
	for _, c := range o.conditions {
		if !c(source, r) {
			return false
		}
	}
	return true
}

func (o *Object) DefinitionID() string { return o.ID }
func (o *Object) references() []any    { return o.fields.references() }

func (o *Object) seal() {
	o.sealable.seal()
	o.fields.seal()
}
