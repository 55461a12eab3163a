package etl

import (
	"slices"

	"github.com/BartekS5/lake-etl/pkg/lake"
	"github.com/BartekS5/lake-etl/pkg/models"
	"golang.org/x/text/unicode/norm"
)

// CatalogEntry is one catalog record split into its item and group parts.
type CatalogEntry struct {
	Item  models.Item
	Group models.ItemGroup
}

// Catalog is the reference data read once per run and shared by both
// transform branches. It must not be modified after BuildCatalog returns.
type Catalog struct {
	entries   []CatalogEntry
	byTitle   map[string][]int
	normalize bool
}

// BuildCatalog converts catalog rows and indexes them by title. With
// normalize set, titles are compared in Unicode NFC form. Entries with a
// null title are kept for the catalog tables but never match an event.
func BuildCatalog(rows []Row, t *Transformer, normalize bool) *Catalog {
	c := &Catalog{
		entries:   make([]CatalogEntry, 0, len(rows)),
		byTitle:   make(map[string][]int, len(rows)),
		normalize: normalize,
	}
	for _, row := range rows {
		e := CatalogEntry{Item: t.Item(row), Group: t.ItemGroup(row)}
		if present(row, t.Mapping.Catalog.Title) {
			key := c.key(e.Item.Title)
			c.byTitle[key] = append(c.byTitle[key], len(c.entries))
		}
		c.entries = append(c.entries, e)
	}
	return c
}

func (c *Catalog) key(title string) string {
	if c.normalize {
		return norm.NFC.String(title)
	}
	return title
}

func (c *Catalog) Len() int {
	return len(c.entries)
}

// Entries returns a copy of all entries in input order.
func (c *Catalog) Entries() []CatalogEntry {
	return slices.Clone(c.entries)
}

// Match returns every entry whose title equals title, in input order.
func (c *Catalog) Match(title string) []CatalogEntry {
	idx := c.byTitle[c.key(title)]
	if len(idx) == 0 {
		return nil
	}
	out := make([]CatalogEntry, len(idx))
	for i, j := range idx {
		out[i] = c.entries[j]
	}
	return out
}

// CatalogTables projects the songs and artists tables. Neither is
// deduplicated.
func CatalogTables(c *Catalog) (*lake.Dataset[models.Item], *lake.Dataset[models.ItemGroup]) {
	songs := NewSongsDataset()
	artists := NewArtistsDataset()
	for _, e := range c.entries {
		songs.Append(e.Item)
		artists.Append(e.Group)
	}
	return songs, artists
}
