// Package publishing implements the content lifecycle engine for the
// Obscura publishing platform.
//
// Content items move through one of two state machines depending on their
// kind. Editorial items (articles and mysteries) follow
// draft -> scheduled -> published, with an immediate-publish shortcut.
// Moderated items (reader theories) follow pending -> approved/rejected.
//
// Every item may own binary assets (a thumbnail and a bounded gallery)
// held in a remote asset store. Asset lifetime tracks item lifetime:
// assets are committed before the record is written, compensated on
// record-write failure, and deleted when the item is deleted.
//
// Transition races (a manual publish against a scheduler tick) are
// resolved by conditional status updates at the repository layer, never
// by in-process locking.
package publishing
