// Package recommend turns a finished quiz into a plan suggestion.
//
// The quiz hands its answers to the recommendation screen through a
// versioned Snapshot persisted under StorageKey. The reader never fails:
// Load substitutes Default for anything it cannot use, and Derive is a
// pure function of the snapshot.
package recommend

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// StorageKey is the persisted-state key the quiz writes and the
// recommendation screen reads.
const StorageKey = "skymeshQuiz"

// SnapshotVersion is written by Encode. Version 0 is the unversioned shape
// written before the field existed and decodes the same way.
const SnapshotVersion = 1

var (
	ErrMalformed          = errors.New("malformed quiz snapshot")
	ErrUnsupportedVersion = errors.New("unsupported quiz snapshot version")
)

// Household sizes, as stored by the quiz.
const (
	HouseholdSolo  = "Solo"
	HouseholdDuo   = "Duo"
	HouseholdBusy  = "Busy"
	HouseholdChaos = "Chaos"
)

// Device-count buckets.
const (
	Devices1to5   = "1-5"
	Devices6to10  = "6-10"
	Devices11to15 = "11-15"
	Devices16plus = "16+"
)

// Usage labels, exactly as the quiz shows them.
const (
	UsageVideoCalls = "Video calls"
	UsageBrowsing   = "Browsing & email"
	UsageGaming     = "Gaming"
	UsageStreaming  = "Streaming"
	UsageDownloads  = "Big downloads"
	UsageHomePhone  = "Home phone"
)

var householdPeople = map[string]string{
	HouseholdSolo:  "1",
	HouseholdDuo:   "2",
	HouseholdBusy:  "3-4",
	HouseholdChaos: "5+",
}

var deviceBuckets = []string{Devices1to5, Devices6to10, Devices11to15, Devices16plus}

// usageNeeds maps a usage label to the need it puts on the connection.
var usageNeeds = map[string]string{
	UsageVideoCalls: "stable upload speeds for clear calls",
	UsageBrowsing:   "quick page loads on multiple devices",
	UsageGaming:     "low-latency performance",
	UsageStreaming:  "smooth HD streaming",
	UsageDownloads:  "consistent download bursts",
	UsageHomePhone:  "reliable VoIP quality",
}

// Households lists the household enum in quiz order.
func Households() []string {
	return []string{HouseholdSolo, HouseholdDuo, HouseholdBusy, HouseholdChaos}
}

func DeviceBuckets() []string { return slices.Clone(deviceBuckets) }

// UsageLabels lists the usage labels in quiz order.
func UsageLabels() []string {
	return []string{UsageVideoCalls, UsageBrowsing, UsageGaming, UsageStreaming, UsageDownloads, UsageHomePhone}
}

// Snapshot is the answer record carried from the quiz to the
// recommendation screen.
type Snapshot struct {
	Version   int      `json:"version"`
	Household string   `json:"household"`
	Devices   string   `json:"devices"`
	Usage     []string `json:"usage"`
}

// Default is substituted whenever no usable snapshot exists.
func Default() Snapshot {
	return Snapshot{
		Version:   SnapshotVersion,
		Household: HouseholdDuo,
		Devices:   Devices6to10,
		Usage:     []string{UsageStreaming, UsageBrowsing},
	}
}

// Normalize fixes the version and cleans usage: unknown labels and
// duplicates are dropped, and an empty result falls back to the default
// usage. It does not validate household or devices.
func (s Snapshot) Normalize() Snapshot {
	s.Version = SnapshotVersion
	seen := make(map[string]bool, len(s.Usage))
	usage := make([]string, 0, len(s.Usage))
	for _, u := range s.Usage {
		if _, ok := usageNeeds[u]; !ok || seen[u] {
			continue
		}
		seen[u] = true
		usage = append(usage, u)
	}
	if len(usage) == 0 {
		usage = Default().Usage
	}
	s.Usage = usage
	return s
}

// Validate reports whether household and devices hold known values.
func (s Snapshot) Validate() error {
	if _, ok := householdPeople[s.Household]; !ok {
		return fmt.Errorf("%w: household %q", ErrMalformed, s.Household)
	}
	if !slices.Contains(deviceBuckets, s.Devices) {
		return fmt.Errorf("%w: devices %q", ErrMalformed, s.Devices)
	}
	return nil
}

// Encode serialises a snapshot for storage.
func Encode(s Snapshot) ([]byte, error) {
	s = s.Normalize()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(s)
}

// Decode parses a stored snapshot strictly. Unknown top-level fields,
// an unknown version, a missing or unknown household or devices, and a
// usage that is not a list of strings are all errors.
func Decode(data []byte) (Snapshot, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Snapshot{}, fmt.Errorf("%w: empty", ErrMalformed)
	}
	var raw struct {
		Version   *int             `json:"version"`
		Household string           `json:"household"`
		Devices   string           `json:"devices"`
		Usage     *json.RawMessage `json:"usage"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if raw.Version != nil && *raw.Version != 0 && *raw.Version != SnapshotVersion {
		return Snapshot{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, *raw.Version)
	}
	if raw.Usage == nil {
		return Snapshot{}, fmt.Errorf("%w: usage missing", ErrMalformed)
	}
	var usage []string
	if err := json.Unmarshal(*raw.Usage, &usage); err != nil || usage == nil {
		return Snapshot{}, fmt.Errorf("%w: usage is not a list of labels", ErrMalformed)
	}
	s := Snapshot{Household: raw.Household, Devices: raw.Devices, Usage: usage}
	if err := s.Validate(); err != nil {
		return Snapshot{}, err
	}
	return s.Normalize(), nil
}

// Load never fails: anything Decode rejects, including no data at all,
// yields Default.
func Load(data []byte) Snapshot {
	s, err := Decode(data)
	if err != nil {
		return Default()
	}
	return s
}

// FromAnswers builds a snapshot from quiz answers.
func FromAnswers(household, devices string, usage []string) Snapshot {
	return Snapshot{
		Version:   SnapshotVersion,
		Household: household,
		Devices:   devices,
		Usage:     slices.Clone(usage),
	}.Normalize()
}
