package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultPlan ResultType = "plan"
	ResultGoal ResultType = "goal"
	ResultNote ResultType = "note"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type          ResultType `json:"type"`
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Snippet       string     `json:"snippet"`
	PlanUUID      string     `json:"planUuid"`
	VersionNumber int        `json:"versionNumber"`
}

// Query describes a search request.
type Query struct {
	Text           string
	FilterType     ResultType // empty = all types
	FilterPlanUUID string
	Limit          int
	Offset         int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push entities into a search index.
type Indexer interface {
	IndexPlan(p PlanRecord) error
	IndexGoal(g GoalRecord) error
	IndexNote(n NoteRecord) error
	DeletePlan(id string) error
}

// PlanRecord is the data we index for a plan.
type PlanRecord struct {
	ID         string `json:"id"`
	PersonName string `json:"personName"`
	PlanUUID   string `json:"planUuid"`
	Version    int    `json:"versionNumber"`
}

// GoalRecord is the data we index for a goal. Only the current
// version's goals are indexed; historical snapshots stay out of search.
type GoalRecord struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	AreaOfNeed string `json:"areaOfNeed"`
	Notes      string `json:"notes"`
	PlanUUID   string `json:"planUuid"`
	Version    int    `json:"versionNumber"`
}

// NoteRecord is the data we index for a progress note.
type NoteRecord struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	PlanUUID string `json:"planUuid"`
	Version  int    `json:"versionNumber"`
}
