package models

import "encoding/json"

// DefaultPlayPage is the page value that marks a song play in the event log.
const DefaultPlayPage = "NextSong"

// SourceMapping represents the root of the JSON mapping file. It tells the
// extractor which source key holds each logical field.
type SourceMapping struct {
	Version  string        `json:"version"`
	Catalog  CatalogFields `json:"catalog"`
	Events   EventFields   `json:"events"`
	PlayPage string        `json:"playPage"`
}

type CatalogFields struct {
	ItemID        string `json:"itemId"`
	Title         string `json:"title"`
	GroupID       string `json:"groupId"`
	ReleaseYear   string `json:"releaseYear"`
	Duration      string `json:"duration"`
	GroupName     string `json:"groupName"`
	GroupLocation string `json:"groupLocation"`
	GroupLat      string `json:"groupLat"`
	GroupLong     string `json:"groupLong"`
}

type EventFields struct {
	Page      string `json:"page"`
	UserID    string `json:"userId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Gender    string `json:"gender"`
	Tier      string `json:"tier"`
	TS        string `json:"ts"`
	Song      string `json:"song"`
	SessionID string `json:"sessionId"`
	Location  string `json:"location"`
	UserAgent string `json:"userAgent"`
}

// DefaultMapping uses the logical field names as source keys.
func DefaultMapping() *SourceMapping {
	return &SourceMapping{
		Version: "1",
		Catalog: CatalogFields{
			ItemID:        "item_id",
			Title:         "title",
			GroupID:       "group_id",
			ReleaseYear:   "release_year",
			Duration:      "duration",
			GroupName:     "group_name",
			GroupLocation: "group_location",
			GroupLat:      "group_lat",
			GroupLong:     "group_long",
		},
		Events: EventFields{
			Page:      "page",
			UserID:    "user_id",
			FirstName: "first_name",
			LastName:  "last_name",
			Gender:    "gender",
			Tier:      "tier",
			TS:        "ts",
			Song:      "song",
			SessionID: "session_id",
			Location:  "location",
			UserAgent: "user_agent",
		},
		PlayPage: DefaultPlayPage,
	}
}

// LoadMapping parses a mapping document. Keys left out of the document keep
// their default source names.
func LoadMapping(data []byte) (*SourceMapping, error) {
	m := DefaultMapping()
	if err := json.Unmarshal(data, m); err != nil {
		return nil, err
	}
	return m, nil
}
