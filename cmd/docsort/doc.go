// Command docsort is the operator CLI: it ingests files, reviews and
// approves classifications, and manages rules and jobs against the same
// SQLite stores the daemon uses.
package main
