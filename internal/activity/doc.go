// Package activity keeps a trail of operator-visible events: catalog
// refreshes, submitted analyses and devices appearing or being removed.
//
// Entries are written through a Recorder, which logs and swallows storage
// errors so that a full disk never fails the operation being recorded.
package activity
