package etl

import (
	"fmt"

	"github.com/BartekS5/lake-etl/pkg/models"
)

type Validator struct {
	Mapping *models.SourceMapping
}

func NewValidator(mapping *models.SourceMapping) *Validator {
	return &Validator{Mapping: mapping}
}

// Validate checks that every logical field maps to a source key.
func (v *Validator) Validate() error {
	if v.Mapping == nil {
		return fmt.Errorf("mapping is nil")
	}
	c, e := v.Mapping.Catalog, v.Mapping.Events
	fields := []struct{ name, key string }{
		{"catalog.itemId", c.ItemID},
		{"catalog.title", c.Title},
		{"catalog.groupId", c.GroupID},
		{"catalog.releaseYear", c.ReleaseYear},
		{"catalog.duration", c.Duration},
		{"catalog.groupName", c.GroupName},
		{"catalog.groupLocation", c.GroupLocation},
		{"catalog.groupLat", c.GroupLat},
		{"catalog.groupLong", c.GroupLong},
		{"events.page", e.Page},
		{"events.userId", e.UserID},
		{"events.firstName", e.FirstName},
		{"events.lastName", e.LastName},
		{"events.gender", e.Gender},
		{"events.tier", e.Tier},
		{"events.ts", e.TS},
		{"events.song", e.Song},
		{"events.sessionId", e.SessionID},
		{"events.location", e.Location},
		{"events.userAgent", e.UserAgent},
		{"playPage", v.Mapping.PlayPage},
	}
	for _, f := range fields {
		if f.key == "" {
			return fmt.Errorf("mapping field %s is empty", f.name)
		}
	}
	return nil
}
