// Package textutil provides filename sanitization and display-title helpers
// used when building suggested filenames and sorted destination paths.
package textutil
