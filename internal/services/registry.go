package services

import (
	"fmt"

	"github.com/fyrsmithlabs/thoughtd/internal/bestpractices"
	"github.com/fyrsmithlabs/thoughtd/internal/embeddings"
	"github.com/fyrsmithlabs/thoughtd/internal/querylog"
	"github.com/fyrsmithlabs/thoughtd/internal/thoughtspace"
	"github.com/fyrsmithlabs/thoughtd/internal/vectorstore"
)

// Registry provides access to all thoughtd services.
// Use accessor methods to retrieve individual services.
type Registry interface {
	Engine() *thoughtspace.Service
	BestPractices() *bestpractices.Service
	Scheduler() *thoughtspace.DecayScheduler
	VectorStore() vectorstore.Store
	Embedder() embeddings.Embedder
	QueryLog() querylog.Log

	// Close stops the scheduler and releases shared resources. Safe to call
	// with partially populated options.
	Close() error
}

// Options configures the registry with service instances.
type Options struct {
	Engine        *thoughtspace.Service
	BestPractices *bestpractices.Service
	Scheduler     *thoughtspace.DecayScheduler
	VectorStore   vectorstore.Store
	Embedder      embeddings.Embedder
	QueryLog      querylog.Log
}

// registry is the concrete implementation of Registry.
type registry struct {
	engine        *thoughtspace.Service
	bestPractices *bestpractices.Service
	scheduler     *thoughtspace.DecayScheduler
	vectorStore   vectorstore.Store
	embedder      embeddings.Embedder
	queryLog      querylog.Log
}

// NewRegistry creates a new service registry.
func NewRegistry(opts Options) Registry {
	return &registry{
		engine:        opts.Engine,
		bestPractices: opts.BestPractices,
		scheduler:     opts.Scheduler,
		vectorStore:   opts.VectorStore,
		embedder:      opts.Embedder,
		queryLog:      opts.QueryLog,
	}
}

func (r *registry) Engine() *thoughtspace.Service            { return r.engine }
func (r *registry) BestPractices() *bestpractices.Service    { return r.bestPractices }
func (r *registry) Scheduler() *thoughtspace.DecayScheduler  { return r.scheduler }
func (r *registry) VectorStore() vectorstore.Store           { return r.vectorStore }
func (r *registry) Embedder() embeddings.Embedder            { return r.embedder }
func (r *registry) QueryLog() querylog.Log                   { return r.queryLog }

// Close stops the scheduler first so no decay pass runs against released
// resources, then closes the query log, embedder, and vectorstore.
func (r *registry) Close() error {
	var errs []error

	if r.scheduler != nil {
		r.scheduler.Stop()
	}
	if r.queryLog != nil {
		if err := r.queryLog.Close(); err != nil {
			errs = append(errs, fmt.Errorf("query log close: %w", err))
		}
	}
	if r.embedder != nil {
		if err := r.embedder.Close(); err != nil {
			errs = append(errs, fmt.Errorf("embedder close: %w", err))
		}
	}
	if r.vectorStore != nil {
		if err := r.vectorStore.Close(); err != nil {
			errs = append(errs, fmt.Errorf("vectorstore close: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
