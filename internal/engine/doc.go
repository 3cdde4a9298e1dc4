// Package engine holds the pure group-decision algorithms: organizer rule
// evaluation, slot overlap scoring and recommendation ranking.
//
// Nothing in this package touches storage. Callers load votes, availability
// and catalog data, hand them over as plain values and receive ordered
// results back.
package engine
