package spreadsheet

// Record is one decoded spreadsheet row: an ordered mapping from column
// label to normalized cell text.
type Record struct {
	row    int
	labels []string
	values map[string]string
}

// NewRecord copies labels and values. Labels missing from values read as "".
func NewRecord(row int, labels []string, values map[string]string) Record {
	r := Record{
		row:    row,
		labels: make([]string, len(labels)),
		values: make(map[string]string, len(labels)),
	}
	copy(r.labels, labels)
	for k, v := range values {
		r.values[k] = v
	}
	return r
}

// Row is the zero-based sheet row index the record was read from.
func (r Record) Row() int { return r.row }

func (r Record) Labels() []string {
	out := make([]string, len(r.labels))
	copy(out, r.labels)
	return out
}

// Get returns the value for label and whether the label is present.
func (r Record) Get(label string) (string, bool) {
	v, ok := r.values[label]
	return v, ok
}

func (r Record) Value(label string) string {
	return r.values[label]
}

// With returns a copy of r with label set to value. New labels are appended.
func (r Record) With(label, value string) Record {
	out := NewRecord(r.row, r.labels, r.values)
	if _, ok := out.values[label]; !ok {
		out.labels = append(out.labels, label)
	}
	out.values[label] = value
	return out
}

func (r Record) Map() map[string]string {
	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}
