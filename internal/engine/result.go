package engine

// ReferenceStats counts reference resolution outcomes. Every resolved value
// increments Processed and exactly one of Transformed or Blanked.
type ReferenceStats struct {
	Processed   int `json:"processed"`
	Transformed int `json:"transformed"`
	Blanked     int `json:"blanked"`
	Errors      int `json:"errors"`
	Warnings    int `json:"warnings"`
}

// Add sums o into s.
func (s *ReferenceStats) Add(o ReferenceStats) {
	s.Processed += o.Processed
	s.Transformed += o.Transformed
	s.Blanked += o.Blanked
	s.Errors += o.Errors
	s.Warnings += o.Warnings
}

// Result holds the counters of one pass. Results are only ever merged
// additively; nothing decrements them.
type Result struct {
	Created    int            `json:"created"`
	Updated    int            `json:"updated"`
	Skipped    int            `json:"skipped"`
	Failed     int            `json:"failed"`
	Deleted    int            `json:"deleted"`
	References ReferenceStats `json:"references"`
}

// Add sums o into r.
func (r *Result) Add(o Result) {
	r.Created += o.Created
	r.Updated += o.Updated
	r.Skipped += o.Skipped
	r.Failed += o.Failed
	r.Deleted += o.Deleted
	r.References.Add(o.References)
}

// Total returns the number of items that reached a terminal state.
func (r Result) Total() int {
	return r.Created + r.Updated + r.Skipped + r.Failed + r.Deleted
}

// Merge sums any number of results.
func Merge(results ...Result) Result {
	var out Result
	for _, r := range results {
		out.Add(r)
	}
	return out
}

// Report is one node of the result tree: all resource types, one resource
// type, definitions or data, "all namespaces", one namespace.
type Report struct {
	Name     string    `json:"name"`
	Result   Result    `json:"result"`
	Children []*Report `json:"children,omitempty"`
}

// NewReport creates an empty report node.
func NewReport(name string) *Report {
	return &Report{Name: name}
}

// Child appends and returns a new child node.
func (r *Report) Child(name string) *Report {
	c := NewReport(name)
	r.Children = append(r.Children, c)
	return c
}

// Sum returns r's own result plus the sums of all descendants.
func (r *Report) Sum() Result {
	out := r.Result
	for _, c := range r.Children {
		out.Add(c.Sum())
	}
	return out
}

// Walk visits r and its descendants depth first, parents before children.
func (r *Report) Walk(fn func(depth int, node *Report)) {
	r.walk(0, fn)
}

func (r *Report) walk(depth int, fn func(int, *Report)) {
	fn(depth, r)
	for _, c := range r.Children {
		c.walk(depth+1, fn)
	}
}
