package syncengine

import "sync"

// DeletedFile records one local file removed during a run, for the final
// summary log.
type DeletedFile struct {
	Path   string
	Reason string // "jpg" or "old"
}

// Stats accumulates the counters and deleted-file list for one run. All
// mutation goes through the exported methods, which serialize on a single
// mutex so a deleted-file append and its sub-counter bump stay atomic
// together.
type Stats struct {
	mu sync.Mutex

	FilesUploaded   int
	FilesSkipped    int
	FilesDeletedJPG int
	FilesDeletedOld int
	DirsCreated     int
	Errors          int

	Deleted []DeletedFile
}

func (s *Stats) addUploaded() {
	s.mu.Lock()
	s.FilesUploaded++
	s.mu.Unlock()
}

func (s *Stats) addSkipped() {
	s.mu.Lock()
	s.FilesSkipped++
	s.mu.Unlock()
}

func (s *Stats) addDirCreated() {
	s.mu.Lock()
	s.DirsCreated++
	s.mu.Unlock()
}

func (s *Stats) addError() {
	s.mu.Lock()
	s.Errors++
	s.mu.Unlock()
}

// addDeletedJPG records a JPG deletion alongside its sub-counter bump.
func (s *Stats) addDeletedJPG(path string) {
	s.mu.Lock()
	s.FilesDeletedJPG++
	s.Deleted = append(s.Deleted, DeletedFile{Path: path, Reason: "jpg"})
	s.mu.Unlock()
}

// addDeletedOld records an age-based deletion alongside its sub-counter bump.
func (s *Stats) addDeletedOld(path string) {
	s.mu.Lock()
	s.FilesDeletedOld++
	s.Deleted = append(s.Deleted, DeletedFile{Path: path, Reason: "old"})
	s.mu.Unlock()
}

// snapshot returns a copy safe to hand to the caller after the run ends.
func (s *Stats) snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := Stats{
		FilesUploaded:   s.FilesUploaded,
		FilesSkipped:    s.FilesSkipped,
		FilesDeletedJPG: s.FilesDeletedJPG,
		FilesDeletedOld: s.FilesDeletedOld,
		DirsCreated:     s.DirsCreated,
		Errors:          s.Errors,
	}
	out.Deleted = append(out.Deleted, s.Deleted...)
	return out
}
