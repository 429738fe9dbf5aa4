// Package thumbs polls thumbnail generation status for the asset shown in
// the drawer.
//
// At most one asset is active at a time. Opening the drawer evaluates
// terminal conditions against the grid's record and, when warranted, issues
// an immediate status query followed by timer-scheduled continuations on a
// fixed backoff schedule. Closing the drawer or switching assets cancels the
// pending timer; responses arriving for an abandoned asset are discarded by
// identity check. The grid owns its records: the engine reports fresh poll
// data through a callback and the owner reconciles with Merge, which never
// lets poll data overwrite a field the grid already populated.
package thumbs
