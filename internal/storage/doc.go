// Package storage manages the on-disk zone layout under the storage root and
// the verified file movements between zones. All paths handed to callers are
// produced through SafeJoin so nothing ever escapes the root.
package storage
