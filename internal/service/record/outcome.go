package record

// Outcome reports what a gated write did. Id is the created, updated or
// deleted record, or the rejected candidate when BelowThreshold is set.
// Similarity is nil when the index had no neighbour to compare against.
type Outcome struct {
	Created        bool     `json:"created"`
	Updated        bool     `json:"updated"`
	Deleted        bool     `json:"deleted"`
	BelowThreshold bool     `json:"below_threshold"`
	Id             string   `json:"id,omitempty"`
	Similarity     *float32 `json:"similarity,omitempty"`
}
