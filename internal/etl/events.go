package etl

import (
	"fmt"

	"github.com/BartekS5/lake-etl/pkg/lake"
	"github.com/BartekS5/lake-etl/pkg/models"
)

// EventTables holds the three tables derived from event records.
type EventTables struct {
	Users     *lake.Dataset[models.User]
	Time      *lake.Dataset[models.TimeDim]
	Songplays *lake.Dataset[models.PlayEvent]

	// Plays counts play events before the catalog join; Unmatched counts
	// the ones the join dropped.
	Plays     int
	Unmatched int
	DateMin   string
	DateMax   string
}

// BuildEventTables filters rows to play events and derives the users, time
// and songplays tables. Songplays is an inner join on song title against
// the catalog; play ids are assigned in event order, then catalog order.
func BuildEventTables(rows []Row, t *Transformer, catalog *Catalog) (*EventTables, error) {
	out := &EventTables{
		Users:     NewUsersDataset(),
		Time:      NewTimeDataset(),
		Songplays: NewSongplaysDataset(),
	}

	var nextID int64
	for i, row := range rows {
		if !t.IsPlay(row) {
			continue
		}
		out.Plays++

		play, err := t.Play(row)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i+1, err)
		}

		out.Users.Append(t.User(row))
		out.Time.Append(play.Start.TimeDim())
		out.observeDate(play.Start.Date())

		var matches []CatalogEntry
		if play.HasSong {
			matches = catalog.Match(play.Song)
		}
		if len(matches) == 0 {
			out.Unmatched++
			continue
		}
		for _, m := range matches {
			out.Songplays.Append(models.PlayEvent{
				PlayID:    nextID,
				StartTime: play.Start.Millis(),
				UserID:    play.UserID,
				Tier:      play.Tier,
				SessionID: play.SessionID,
				Location:  play.Location,
				UserAgent: play.UserAgent,
				ItemID:    m.Item.ItemID,
				GroupID:   m.Item.GroupID,
				Year:      play.Start.Year,
				Month:     play.Start.Month,
			})
			nextID++
		}
	}
	return out, nil
}

func (e *EventTables) observeDate(d string) {
	if e.DateMin == "" || d < e.DateMin {
		e.DateMin = d
	}
	if e.DateMax == "" || d > e.DateMax {
		e.DateMax = d
	}
}
