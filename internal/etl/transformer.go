package etl

import (
	"fmt"
	"time"

	"github.com/BartekS5/lake-etl/pkg/models"
	"github.com/BartekS5/lake-etl/pkg/utils"
)

// Transformer turns source rows into typed records using the mapping.
type Transformer struct {
	Mapping  *models.SourceMapping
	Location *time.Location
}

func NewTransformer(mapping *models.SourceMapping, loc *time.Location) *Transformer {
	if loc == nil {
		loc = time.UTC
	}
	return &Transformer{Mapping: mapping, Location: loc}
}

func (t *Transformer) Item(row Row) models.Item {
	f := t.Mapping.Catalog
	return models.Item{
		ItemID:      utils.ToString(row[f.ItemID]),
		Title:       utils.ToString(row[f.Title]),
		GroupID:     utils.ToString(row[f.GroupID]),
		ReleaseYear: utils.ToInt64Ptr(row[f.ReleaseYear]),
		Duration:    utils.ToFloat64(row[f.Duration]),
	}
}

func (t *Transformer) ItemGroup(row Row) models.ItemGroup {
	f := t.Mapping.Catalog
	return models.ItemGroup{
		GroupID:       utils.ToString(row[f.GroupID]),
		GroupName:     utils.ToString(row[f.GroupName]),
		GroupLocation: utils.ToString(row[f.GroupLocation]),
		Lat:           utils.ToFloat64Ptr(row[f.GroupLat]),
		Long:          utils.ToFloat64Ptr(row[f.GroupLong]),
	}
}

// present reports whether key holds a non-null value in row.
func present(row Row, key string) bool {
	return row[key] != nil
}

// IsPlay reports whether an event row is a song play.
func (t *Transformer) IsPlay(row Row) bool {
	return utils.ToString(row[t.Mapping.Events.Page]) == t.Mapping.PlayPage
}

func (t *Transformer) User(row Row) models.User {
	f := t.Mapping.Events
	return models.User{
		UserID:    utils.ToString(row[f.UserID]),
		FirstName: utils.ToString(row[f.FirstName]),
		LastName:  utils.ToString(row[f.LastName]),
		Gender:    utils.ToString(row[f.Gender]),
		Tier:      utils.ToString(row[f.Tier]),
	}
}

// Play holds the event side of a play before it is matched to the catalog.
type Play struct {
	Start     Instant
	Song      string
	HasSong   bool
	UserID    string
	Tier      string
	SessionID int64
	Location  string
	UserAgent string
}

// Play converts a play event. The timestamp is required.
func (t *Transformer) Play(row Row) (Play, error) {
	f := t.Mapping.Events
	ts, err := utils.MillisToTime(row[f.TS], t.Location)
	if err != nil {
		return Play{}, fmt.Errorf("field %s: %w", f.TS, err)
	}
	return Play{
		Start:     DeriveTime(ts),
		Song:      utils.ToString(row[f.Song]),
		HasSong:   present(row, f.Song),
		UserID:    utils.ToString(row[f.UserID]),
		Tier:      utils.ToString(row[f.Tier]),
		SessionID: utils.ToInt64OrZero(row[f.SessionID]),
		Location:  utils.ToString(row[f.Location]),
		UserAgent: utils.ToString(row[f.UserAgent]),
	}, nil
}
