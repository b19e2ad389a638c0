package listing

import "strings"

// RecordSet is an ordered collection of records keyed by ObjectLink. The first
// record added for a link wins; later ones are discarded.
type RecordSet struct {
	records []Record
	index   map[string]int
}

func NewRecordSet(records ...Record) *RecordSet {
	s := &RecordSet{
		records: make([]Record, 0, len(records)),
		index:   make(map[string]int, len(records)),
	}
	for _, r := range records {
		s.Add(r)
	}
	return s
}

// Add appends r unless a record with the same ObjectLink is already present.
// It reports whether r was kept.
func (s *RecordSet) Add(r Record) bool {
	if _, ok := s.index[r.ObjectLink]; ok {
		return false
	}
	s.index[r.ObjectLink] = len(s.records)
	s.records = append(s.records, r)
	return true
}

func (s *RecordSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

func (s *RecordSet) Get(objectLink string) (Record, bool) {
	if s == nil {
		return Record{}, false
	}
	i, ok := s.index[objectLink]
	if !ok {
		return Record{}, false
	}
	return s.records[i], true
}

// Records returns a copy of the records in insertion order.
func (s *RecordSet) Records() []Record {
	if s == nil {
		return nil
	}
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

type FieldCoverage struct {
	Field  string
	Filled int
	Total  int
}

// Coverage counts, per content field, how many records carry a non-blank value.
func (s *RecordSet) Coverage() []FieldCoverage {
	out := make([]FieldCoverage, 0, len(ContentFields))
	for _, name := range ContentFields {
		c := FieldCoverage{Field: name, Total: s.Len()}
		if s != nil {
			for i := range s.records {
				if strings.TrimSpace(*s.records[i].ContentField(name)) != "" {
					c.Filled++
				}
			}
		}
		out = append(out, c)
	}
	return out
}
