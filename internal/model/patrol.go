package model

import "time"

// Patrol status values as stored in the `patrols.status` enum column.
// A patrol starts 'active' and may transition to 'completed' exactly
// once; 'completed' is terminal.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// Counter names for the fixed set of nine per-patrol service statistics.
// The constants double as JSON object keys inside the `statistics`
// column, so they must never change once data exists.
const (
	CounterConversations         = "conversations"
	CounterPrayers               = "prayers"
	CounterWaterBottles          = "water_bottles"
	CounterFirstAid              = "first_aid"
	CounterDirections            = "directions"
	CounterTransportAssistance   = "transport_assistance"
	CounterVulnerablePeople      = "vulnerable_people"
	CounterBottlesGlassCollected = "bottles_glass_collected"
	CounterCansCollected         = "cans_collected"
)

// CounterKeys lists every statistic counter in its declared order.  Reports
// and summaries iterate this slice so output ordering stays stable.
var CounterKeys = []string{
	CounterConversations,
	CounterPrayers,
	CounterWaterBottles,
	CounterFirstAid,
	CounterDirections,
	CounterTransportAssistance,
	CounterVulnerablePeople,
	CounterBottlesGlassCollected,
	CounterCansCollected,
}

// CounterLabels maps counter keys to the display labels used in exports.
var CounterLabels = map[string]string{
	CounterConversations:         "Conversations",
	CounterPrayers:               "Prayers",
	CounterWaterBottles:          "Water Bottles",
	CounterFirstAid:              "First Aid",
	CounterDirections:            "Directions",
	CounterTransportAssistance:   "Transport Help",
	CounterVulnerablePeople:      "Vulnerable People",
	CounterBottlesGlassCollected: "Bottles/Glass",
	CounterCansCollected:         "Cans Collected",
}

// IsCounterKey reports whether key is one of the nine declared counters.
func IsCounterKey(key string) bool {
	for _, k := range CounterKeys {
		if k == key {
			return true
		}
	}
	return false
}

// StatMap holds named non-negative counters.  It backs both the service
// statistics (9 keys) and the contact matrix (32 keys).  Absent keys read
// as zero.
type StatMap map[string]int

// Get returns the value for key, treating absent keys as zero.
func (m StatMap) Get(key string) int {
	if m == nil {
		return 0
	}
	return m[key]
}

// Clone returns an independent copy so optimistic updates never alias the
// map that was read from the store.
func (m StatMap) Clone() StatMap {
	out := make(StatMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ZeroStatistics returns a StatMap with every service counter present and
// set to zero, matching what a freshly created patrol stores.
func ZeroStatistics() StatMap {
	m := make(StatMap, len(CounterKeys))
	for _, k := range CounterKeys {
		m[k] = 0
	}
	return m
}

// Patrol mirrors one row of the `patrols` table.  A patrol is a single
// timed volunteer session owned by exactly one user; its statistics and
// contact matrix accumulate while it is active.
//
// Fields:
//
//	ID                – uuid primary key, assigned at creation.
//	OwnerID           – user who created the patrol; immutable.
//	Location          – free-text patrol area.
//	TeamLeader        – free-text leader name.
//	TeamMembers       – free-text member list.
//	StartTime         – when the patrol started (user editable).
//	EndTime           – set exactly once when the patrol is closed.
//	NotifiedPolice    – derived: true iff PoliceCadNumber is non-empty.
//	PoliceCadNumber   – police CAD reference, optional.
//	Status            – 'active' or 'completed'.
//	Statistics        – the nine service counters (JSON column).
//	ContactStatistics – the 32-cell contact matrix (JSON column).
//	Notes             – free-text notes, default empty.
type Patrol struct {
	ID                string     `json:"id"`
	OwnerID           uint64     `json:"owner_id"`
	Location          string     `json:"location"`
	TeamLeader        string     `json:"team_leader"`
	TeamMembers       string     `json:"team_members"`
	StartTime         time.Time  `json:"start_time"`
	EndTime           *time.Time `json:"end_time"`
	NotifiedPolice    bool       `json:"notified_police"`
	PoliceCadNumber   string     `json:"police_cad_number"`
	Status            string     `json:"status"`
	Statistics        StatMap    `json:"statistics"`
	ContactStatistics StatMap    `json:"contact_statistics"`
	Notes             string     `json:"notes"`
	CreatedAt         time.Time  `json:"-"`
	UpdatedAt         time.Time  `json:"-"`
}

// NotesPreviewLimit is the length beyond which notes are truncated in the
// history listing.  Exports always carry the full text.
const NotesPreviewLimit = 300

// NotesPreview returns the notes truncated for the history list view.
func (p *Patrol) NotesPreview() string {
	r := []rune(p.Notes)
	if len(r) <= NotesPreviewLimit {
		return p.Notes
	}
	return string(r[:NotesPreviewLimit]) + "..."
}

// Completed reports whether the patrol has reached its terminal state.
func (p *Patrol) Completed() bool { return p.Status == StatusCompleted }

// PatrolDetails carries the editable header fields of a patrol.
// NotifiedPolice is always derived from PoliceCadNumber being non-empty,
// never supplied by the client.
type PatrolDetails struct {
	Location        string
	TeamLeader      string
	TeamMembers     string
	StartTime       time.Time
	PoliceCadNumber string
	NotifiedPolice  bool
}
