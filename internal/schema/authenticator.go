package schema

// AuthenticatorType names the credential scheme an authenticator expects.
type AuthenticatorType string

const (
	AuthenticatorBearer    AuthenticatorType = "bearer"
	AuthenticatorAnonymous AuthenticatorType = "anonymous"
)

// AuthAction inspects the request and either sets r.Identity or returns an
// error, typically a *RaisedError of one of the authenticator's errors.
type AuthAction func(r *Request, credential string) error

// Authenticator establishes the identity of a request before its arguments
// are constructed.
type Authenticator struct {
	sealable

	ID          string
	Name        string
	Description string
	Type        AuthenticatorType

	action         AuthAction
	errors         []*ErrorType
	scopeValidator func(r *Request, scope string) bool
}

func NewAuthenticator(id string) *Authenticator {
	return &Authenticator{ID: id, Name: id, Type: AuthenticatorAnonymous}
}

func (a *Authenticator) SetType(t AuthenticatorType) *Authenticator {
	a.mustBeOpen("authenticator " + a.ID)
	a.Type = t
	return a
}

func (a *Authenticator) SetDescription(desc string) *Authenticator {
	a.mustBeOpen("authenticator " + a.ID)
	a.Description = desc
	return a
}

func (a *Authenticator) SetAction(fn AuthAction) *Authenticator {
	a.mustBeOpen("authenticator " + a.ID)
	a.action = fn
	return a
}

func (a *Authenticator) AddPotentialError(e *ErrorType) *Authenticator {
	a.mustBeOpen("authenticator " + a.ID)
	a.errors = append(a.errors, e)
	return a
}

// SetScopeValidator decides whether an authenticated request holds scope.
// Without one, scopes are checked against r.Scopes.
func (a *Authenticator) SetScopeValidator(fn func(r *Request, scope string) bool) *Authenticator {
	a.mustBeOpen("authenticator " + a.ID)
	a.scopeValidator = fn
	return a
}

func (a *Authenticator) PotentialErrors() []*ErrorType { return a.errors }

// Authenticate runs the action.
func (a *Authenticator) Authenticate(r *Request, credential string) error {
	if a.action == nil {
		return nil
	}
	return a.action(r, credential)
}

// MissingScope returns the first of scopes the request does not hold.
func (a *Authenticator) MissingScope(r *Request, scopes []string) (string, bool) {
	for _, scope := range scopes {
		if !a.hasScope(r, scope) {
			return scope, true
		}
	}
	return "", false
}

func (a *Authenticator) hasScope(r *Request, scope string) bool {
	if a.scopeValidator != nil {
		return a.scopeValidator(r, scope)
	}
	if r == nil {
		return false
	}
	for _, s := range r.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

func (a *Authenticator) DefinitionID() string { return a.ID }

func (a *Authenticator) references() []any {
	refs := make([]any, 0, len(a.errors))
	for _, e := range a.errors {
		refs = append(refs, e)
	}
	return refs
}
