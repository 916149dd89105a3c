package types

// Unknown is the placeholder written for a field that could not be
// resolved within its container. A missing field never drops the
// column; it keeps positional alignment across all rows.
const Unknown = "Unknown"

// Schema is the ordered list of field names for one pipeline run.
// It is fixed for the lifetime of the run.
type Schema []string

// Record is one fixed-schema extracted row.
type Record struct {
	// PageIndex is the page this record was extracted from.
	PageIndex int

	fields map[string]string
}

// NewRecord creates an empty Record for the given page index.
func NewRecord(pageIndex int) *Record {
	return &Record{
		PageIndex: pageIndex,
		fields:    make(map[string]string),
	}
}

// Set sets a field value.
func (r *Record) Set(name, value string) {
	r.fields[name] = value
}

// Get retrieves a field value and whether it was set.
func (r *Record) Get(name string) (string, bool) {
	v, ok := r.fields[name]
	return v, ok
}

// Value retrieves a field value, mapping unset fields to Unknown.
func (r *Record) Value(name string) string {
	if v, ok := r.fields[name]; ok {
		return v
	}
	return Unknown
}

// Len returns the number of set fields.
func (r *Record) Len() int {
	return len(r.fields)
}

// Row flattens the record into a positional row following the schema's
// field order.
func (r *Record) Row(schema Schema) []string {
	row := make([]string, len(schema))
	for i, name := range schema {
		row[i] = r.Value(name)
	}
	return row
}
