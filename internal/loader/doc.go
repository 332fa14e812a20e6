// Package loader defines the sparse input layout of the feature transformer.
//
// Every sample of a batch owns exactly MaxActive Feat slots. A sample with
// fewer active features is terminated by End (Our == Sentinel); kernels stop
// reading that sample's list at the first End. Each Feat carries the feature
// index seen from the side to move (Our) and from the opponent (Opp), and its
// value is implicitly 1.
//
// On a device a Feat is one 32-bit word, Our in the low half and Opp in the
// high half, which is also its in-memory layout, so feature lists are staged
// without conversion.
package loader
