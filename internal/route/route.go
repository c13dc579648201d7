package route

// Descriptor maps one page file to one entry of the generated routing table.
type Descriptor struct {
	Path  string `json:"path"`
	Name  string `json:"name"`
	Title string `json:"title"`
	// Meta is the merged metadata: defaults, then extracted, then the title fallback.
	Meta map[string]any `json:"meta"`
	// Import is the module specifier of the component, relative to the routes artifact.
	Import string `json:"component"`
	// File is the absolute source path.
	File   string `json:"file"`
	Hidden bool   `json:"hidden,omitempty"`
}

// Conflict records a descriptor dropped because its path or name was already taken.
// Path is the dropped descriptor's path; Name is set only when the name clashed.
type Conflict struct {
	Path    string `json:"path"`
	Name    string `json:"name,omitempty"`
	Kept    string `json:"kept"`
	Dropped string `json:"dropped"`
}
