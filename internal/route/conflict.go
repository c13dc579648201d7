package route

import "go.uber.org/zap"

// Resolver accepts descriptors in discovery order and drops any whose path or
// name is already claimed. The first claim always wins.
type Resolver struct {
	log       *zap.Logger
	paths     map[string]string // path -> file that claimed it
	names     map[string]string // name -> file that claimed it
	accepted  []Descriptor
	conflicts []Conflict
}

func NewResolver(log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{log: log, paths: map[string]string{}, names: map[string]string{}}
}

// Accept records d unless its path or name is taken, in which case it logs a
// warning and returns false. Path clashes are checked first.
func (r *Resolver) Accept(d Descriptor) bool {
	if kept, ok := r.paths[d.Path]; ok {
		r.conflicts = append(r.conflicts, Conflict{Path: d.Path, Kept: kept, Dropped: d.File})
		r.log.Warn("route path conflict, dropping later file",
			zap.String("path", d.Path),
			zap.String("kept", kept),
			zap.String("dropped", d.File),
		)
		return false
	}
	if kept, ok := r.names[d.Name]; ok && d.Name != "" {
		r.conflicts = append(r.conflicts, Conflict{Path: d.Path, Name: d.Name, Kept: kept, Dropped: d.File})
		r.log.Warn("route name conflict, dropping later file",
			zap.String("name", d.Name),
			zap.String("path", d.Path),
			zap.String("kept", kept),
			zap.String("dropped", d.File),
		)
		return false
	}
	r.paths[d.Path] = d.File
	if d.Name != "" {
		r.names[d.Name] = d.File
	}
	r.accepted = append(r.accepted, d)
	return true
}

// Accepted returns the accepted descriptors in the order they were offered.
func (r *Resolver) Accepted() []Descriptor { return r.accepted }

func (r *Resolver) Conflicts() []Conflict { return r.conflicts }
