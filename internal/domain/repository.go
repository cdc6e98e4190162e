// Package domain contains the core data structures and domain logic for the application.
package domain

// Repository is the minimal metadata snapshot of a remote repository used to
// decide whether and how to replicate it. It is the core domain entity of
// this application; its identity is the (Owner, Name) pair.
type Repository struct {
	Name     string
	Owner    string
	Fork     bool
	Archived bool
}

// FullName returns the owner-qualified repository name, e.g. "octocat/hello".
func (r Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

// Filter decides which source repositories qualify for replication.
type Filter struct {
	IncludeForks    bool
	IncludeArchived bool
}

// Keep reports whether the repository passes the filter.
func (f Filter) Keep(r Repository) bool {
	if r.Fork && !f.IncludeForks {
		return false
	}
	if r.Archived && !f.IncludeArchived {
		return false
	}
	return true
}

// Tally counts the outcomes of a single replication run.
type Tally struct {
	Created int
	Skipped int
	Failed  int
}
