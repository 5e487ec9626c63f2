package search

import (
	"github.com/poiesic/homesearch/ai"
	"github.com/poiesic/homesearch/core"
	"github.com/poiesic/homesearch/query"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(requestID string, req Request)
	AfterResolve(params *query.Parameters, rejected []query.FieldError)
	AfterExtraction(extracted ai.ExtractedParameters, err error)
	AfterQueryBuild(q *core.CompositeQuery)
	Finish(results []Result)
	// Fail is called instead of Finish when a started request returns an error.
	Fail(err error)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ Request)                            {}
func (n *noopMonitor) AfterResolve(_ *query.Parameters, _ []query.FieldError) {}
func (n *noopMonitor) AfterExtraction(_ ai.ExtractedParameters, _ error)      {}
func (n *noopMonitor) AfterQueryBuild(_ *core.CompositeQuery)                 {}
func (n *noopMonitor) Finish(_ []Result)                                      {}
func (n *noopMonitor) Fail(_ error)                                           {}
