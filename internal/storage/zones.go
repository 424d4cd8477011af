package storage

// Zone identifies a lifecycle directory under the storage root.
type Zone string

const (
	// ZoneInbox is where new files appear and are picked up by the scanner.
	ZoneInbox Zone = "inbox"
	// ZoneIngested holds content-addressed verified copies of ingested files.
	ZoneIngested Zone = "ingested"
	// ZoneStaging holds working copies while the pipeline processes a document.
	ZoneStaging Zone = "staging"
	// ZoneSorted holds committed documents at their final categorized paths.
	ZoneSorted Zone = "sorted"
	// ZoneErrors holds files whose processing failed terminally.
	ZoneErrors Zone = "errors"
)

// zoneDirs maps each zone to its numbered directory name. The numeric
// prefixes keep the zones listed in lifecycle order.
var zoneDirs = map[Zone]string{
	ZoneInbox:    "00_inbox",
	ZoneIngested: "10_ingested",
	ZoneStaging:  "20_staging",
	ZoneSorted:   "30_sorted",
	ZoneErrors:   "90_errors",
}

// Zones returns all zones in lifecycle order.
func Zones() []Zone {
	return []Zone{ZoneInbox, ZoneIngested, ZoneStaging, ZoneSorted, ZoneErrors}
}

// Dir returns the directory name for the zone, or empty for unknown zones.
func (z Zone) Dir() string {
	return zoneDirs[z]
}
