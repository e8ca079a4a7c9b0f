package types

// BatchItem is one processed row of a batch run.
type BatchItem struct {
	Request  PipelineRequest  `json:"request"`
	Response PipelineResponse `json:"response"`
	Error    string           `json:"error,omitempty"`
}
