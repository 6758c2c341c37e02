package domain

// GistFile is one file of a gist as currently stored.
type GistFile struct {
	Name    string
	Content string
}

// Gist is the subset of a gist needed to decide what to write.
// Files are in the order the service returned them.
type Gist struct {
	ID          string
	Description string
	Files       []GistFile
}

// File returns the named file, if present.
func (g *Gist) File(name string) (GistFile, bool) {
	for _, f := range g.Files {
		if f.Name == name {
			return f, true
		}
	}
	return GistFile{}, false
}

// GistUpdate replaces the content of exactly one gist file.
type GistUpdate struct {
	GistID      string
	Filename    string
	NewFilename string // empty keeps the current name
	Description string
	Content     string
}
