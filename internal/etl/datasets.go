package etl

import (
	"strconv"

	"github.com/BartekS5/lake-etl/pkg/lake"
	"github.com/BartekS5/lake-etl/pkg/models"
)

// Dataset names. They double as collection and table names for the loaders.
const (
	SongsTable     = "songs"
	ArtistsTable   = "artists"
	UsersTable     = "users"
	TimeTable      = "time"
	SongplaysTable = "songplays"
)

// TableOrder is the order in which tables are written and published.
var TableOrder = []string{SongsTable, ArtistsTable, UsersTable, TimeTable, SongplaysTable}

func NewSongsDataset() *lake.Dataset[models.Item] {
	return lake.NewDataset(SongsTable, []string{"release_year", "group_id"}, func(r models.Item) []string {
		return []string{optionalInt(r.ReleaseYear), r.GroupID}
	})
}

func NewArtistsDataset() *lake.Dataset[models.ItemGroup] {
	return lake.NewDataset[models.ItemGroup](ArtistsTable, nil, nil)
}

func NewUsersDataset() *lake.Dataset[models.User] {
	return lake.NewDataset[models.User](UsersTable, nil, nil)
}

func NewTimeDataset() *lake.Dataset[models.TimeDim] {
	return lake.NewDataset(TimeTable, []string{"year", "month"}, func(r models.TimeDim) []string {
		return []string{itoa32(r.Year), itoa32(r.Month)}
	})
}

func NewSongplaysDataset() *lake.Dataset[models.PlayEvent] {
	return lake.NewDataset(SongplaysTable, []string{"year", "month"}, func(r models.PlayEvent) []string {
		return []string{itoa32(r.Year), itoa32(r.Month)}
	})
}

// optionalInt leaves a null value empty so it lands in the default partition.
func optionalInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func itoa32(v int32) string {
	return strconv.FormatInt(int64(v), 10)
}
