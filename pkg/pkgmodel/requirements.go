package pkgmodel

import "fmt"

// ErrRequirementCollision is returned when InsertOrMerge encounters a
// non-pkg-request collision it cannot reconcile (
// "non-pkg collisions error").
type ErrRequirementCollision struct {
	Name PkgName
}

func (e ErrRequirementCollision) Error() string {
	return fmt.Sprintf("pkgmodel: conflicting non-merge requirement for %s", e.Name)
}

// RequirementsList enforces uniqueness by package name, merging
// colliding pkg requests via Restrict (
// "RequirementsList").
type RequirementsList struct {
	byName map[PkgName]PkgRequest
	order  []PkgName
}

// NewRequirementsList returns an empty list.
func NewRequirementsList() *RequirementsList {
	return &RequirementsList{byName: make(map[PkgName]PkgRequest)}
}

// InsertOrMerge adds req, restricting it against any existing request
// for the same package name in place.
func (l *RequirementsList) InsertOrMerge(req PkgRequest) error {
	existing, ok := l.byName[req.Pkg.Name]
	if !ok {
		l.byName[req.Pkg.Name] = req
		l.order = append(l.order, req.Pkg.Name)
		return nil
	}
	merged, err := Restrict(existing, req)
	if err != nil {
		return err
	}
	l.byName[req.Pkg.Name] = merged
	return nil
}

// Get returns the current merged request for name, if any.
func (l *RequirementsList) Get(name PkgName) (PkgRequest, bool) {
	r, ok := l.byName[name]
	return r, ok
}

// All returns every request in insertion order.
func (l *RequirementsList) All() []PkgRequest {
	out := make([]PkgRequest, 0, len(l.order))
	for _, n := range l.order {
		out = append(out, l.byName[n])
	}
	return out
}

// Remove deletes name's requirement, if present.
func (l *RequirementsList) Remove(name PkgName) {
	delete(l.byName, name)
	for i, n := range l.order {
		if n == name {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}
