// Package core contains the shared domain types and contracts of the goal
// execution pipeline: goals, plans, steps and their results, the Capability
// interface with its Registry, and the per-agent Memory log contract.
//
// All higher level packages (planner, executor, agent, the multi-agent
// System) depend on core; core depends on nothing but the standard library.
package core
