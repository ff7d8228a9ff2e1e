// Package metrics implements rank-cutoff evaluation metrics for recommendation
// lists: precision@k, recall@k, average precision@k and their batch means.
//
// Every function is pure. Items only need to be comparable; the ground-truth
// list is treated as a set and the predicted list as a ranking where only the
// first k entries count.
package metrics
