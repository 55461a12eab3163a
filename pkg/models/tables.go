package models

import "time"

// Output rows. Fields carrying a parquet tag are stored in the data files;
// partition columns have no parquet tag because their values live in the
// directory path. Columns and Values always describe the full logical row.

// Item is a catalog entry (a song), partitioned by release year and group.
type Item struct {
	ItemID      string  `parquet:"name=item_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Title       string  `parquet:"name=title, type=BYTE_ARRAY, convertedtype=UTF8"`
	GroupID     string
	ReleaseYear *int64
	Duration    float64 `parquet:"name=duration, type=DOUBLE"`
}

func (Item) Columns() []string {
	return []string{"item_id", "title", "group_id", "release_year", "duration"}
}

func (r Item) Values() []interface{} {
	return []interface{}{r.ItemID, r.Title, r.GroupID, nullableInt(r.ReleaseYear), r.Duration}
}

// ItemGroup is the group (artist) an item belongs to.
type ItemGroup struct {
	GroupID       string   `parquet:"name=group_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	GroupName     string   `parquet:"name=group_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	GroupLocation string   `parquet:"name=group_location, type=BYTE_ARRAY, convertedtype=UTF8"`
	Lat           *float64 `parquet:"name=lat, type=DOUBLE, repetitiontype=OPTIONAL"`
	Long          *float64 `parquet:"name=long, type=DOUBLE, repetitiontype=OPTIONAL"`
}

func (ItemGroup) Columns() []string {
	return []string{"group_id", "group_name", "group_location", "lat", "long"}
}

func (r ItemGroup) Values() []interface{} {
	return []interface{}{r.GroupID, r.GroupName, r.GroupLocation, nullableFloat(r.Lat), nullableFloat(r.Long)}
}

type User struct {
	UserID    string `parquet:"name=user_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	FirstName string `parquet:"name=first_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	LastName  string `parquet:"name=last_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	Gender    string `parquet:"name=gender, type=BYTE_ARRAY, convertedtype=UTF8"`
	Tier      string `parquet:"name=tier, type=BYTE_ARRAY, convertedtype=UTF8"`
}

func (User) Columns() []string {
	return []string{"user_id", "first_name", "last_name", "gender", "tier"}
}

func (r User) Values() []interface{} {
	return []interface{}{r.UserID, r.FirstName, r.LastName, r.Gender, r.Tier}
}

// TimeDim breaks a play's start time into calendar units.
type TimeDim struct {
	StartTime int64 `parquet:"name=start_time, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	Hour      int32 `parquet:"name=hour, type=INT32"`
	Day       int32 `parquet:"name=day, type=INT32"`
	Week      int32 `parquet:"name=week, type=INT32"`
	Month     int32
	Year      int32
}

func (TimeDim) Columns() []string {
	return []string{"start_time", "hour", "day", "week", "month", "year"}
}

func (r TimeDim) Values() []interface{} {
	return []interface{}{time.UnixMilli(r.StartTime).UTC(), r.Hour, r.Day, r.Week, r.Month, r.Year}
}

// PlayEvent is one song play matched against the catalog.
type PlayEvent struct {
	PlayID    int64  `parquet:"name=play_id, type=INT64"`
	StartTime int64  `parquet:"name=start_time, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	UserID    string `parquet:"name=user_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Tier      string `parquet:"name=tier, type=BYTE_ARRAY, convertedtype=UTF8"`
	SessionID int64  `parquet:"name=session_id, type=INT64"`
	Location  string `parquet:"name=location, type=BYTE_ARRAY, convertedtype=UTF8"`
	UserAgent string `parquet:"name=user_agent, type=BYTE_ARRAY, convertedtype=UTF8"`
	ItemID    string `parquet:"name=item_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	GroupID   string `parquet:"name=group_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Year      int32
	Month     int32
}

func (PlayEvent) Columns() []string {
	return []string{"play_id", "start_time", "user_id", "tier", "session_id",
		"location", "user_agent", "item_id", "group_id", "year", "month"}
}

func (r PlayEvent) Values() []interface{} {
	return []interface{}{r.PlayID, time.UnixMilli(r.StartTime).UTC(), r.UserID, r.Tier, r.SessionID,
		r.Location, r.UserAgent, r.ItemID, r.GroupID, r.Year, r.Month}
}

func nullableInt(i *int64) interface{} {
	if i == nil {
		return nil
	}
	return *i
}

func nullableFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}
