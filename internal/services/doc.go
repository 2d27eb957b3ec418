// Package services provides the centralized service registry for thoughtd.
//
// Registry pattern for accessing the core services (thought-space engine,
// best-practices store, decay scheduler, vectorstore, embedder, query log).
// Use NewRegistry() to create a registry with service instances, then
// accessor methods to retrieve individual services. Close() releases shared
// resources in dependency order.
package services
