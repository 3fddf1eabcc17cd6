// Package viewer tracks who is watching.
//
// The Registry is written by connection handlers and read by the broadcast
// loop. Readers take a Snapshot and iterate the copy, so a viewer joining or
// leaving mid-broadcast never races with delivery.
package viewer
