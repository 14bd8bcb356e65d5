package template

// Digest returns the content digest the directives of path were parsed from.
func (s *Scanner) Digest(path string) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.parsed[path]
	return p.digest, ok
}
