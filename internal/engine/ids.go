package engine

import "time"

// idSource hands out shape ids from a microsecond clock. Ids are strictly
// increasing for the life of the engine, so deleted ids never come back.
type idSource struct {
	now  func() time.Time
	last int64
}

func (s *idSource) Next() int64 {
	id := s.now().UnixMicro()
	if id <= s.last {
		id = s.last + 1
	}
	s.last = id
	return id
}

// Observe makes sure future ids are greater than id.
func (s *idSource) Observe(id int64) {
	if id > s.last {
		s.last = id
	}
}
