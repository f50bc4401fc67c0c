// Package catalogue holds the fixed table of examination document slots.
package catalogue

import (
	"fmt"

	"github.com/vbonduro/examportal/internal/domain"
)

// Category is one examination session and the documents it expects.
type Category struct {
	Key   string
	Title string
	Slots []string
}

// Entry addresses a slot by category key and 1-based position.
type Entry struct {
	CategoryKey string
	Index       int
	Slot        domain.Slot
}

var categories = []Category{
	{
		Key:   "mid-semester-1",
		Title: "Mid Semester -1",
		Slots: []string{
			"Mid Semester-1 Date Sheet",
			"Gmail Language for Mid Term-1",
			"List of Faculty Members",
		},
	},
	{
		Key:   "mid-semester-2",
		Title: "Mid Semester -2",
		Slots: []string{
			"Mid Semester-2 Date Sheet",
			"Gmail Language for Mid Term-2",
			"List of Faculty Members",
		},
	},
	{
		Key:   "end-term-theory",
		Title: "End Term Examination Theory",
		Slots: []string{
			"End Semester Date Sheet",
			"End Term General Notice",
			"Gmail Language for End Term",
			"List of Faculty Members",
		},
	},
	{
		Key:   "end-term-practical",
		Title: "End Term Practical Examination",
		Slots: []string{
			"End Semester Practical Date Sheet",
			"End Term Practical General Notice",
			"Gmail Language for Practical",
			"List of Faculty Members",
		},
	},
	{
		Key:   "general",
		Title: "General Documents",
		Slots: []string{
			"Seating Plan",
			"Attendance Sheets",
			"Duty Chart",
			"Date Sheet",
			"UFM Form",
			"Individual Result Sheet Format",
			"Consolidated Result Sheet Format",
			"Display Result Format",
			"Bundle Slip",
			"Leave/Substitution Format",
			"Students Cut List",
			"Student Re-Appear Form",
			"Provisional Degree",
			"Migration",
			"Character Certificate",
			"Bonafide Certificate",
			"Transcript",
			"Mid Semester Question Paper Format",
			"End Semester Question Paper Format",
			"Service/Rate Chart",
		},
	},
}

// Catalogue is a read-only view over the category table.
type Catalogue struct {
	categories []Category
	byKey      map[string]int
}

// Default returns the portal's built-in catalogue.
func Default() *Catalogue {
	return New(categories)
}

// New builds a catalogue over cats. It is used by tests that need a
// smaller table.
func New(cats []Category) *Catalogue {
	c := &Catalogue{categories: cats, byKey: make(map[string]int, len(cats))}
	for i, cat := range cats {
		c.byKey[cat.Key] = i
	}
	return c
}

func (c *Catalogue) Categories() []Category {
	out := make([]Category, len(c.categories))
	copy(out, c.categories)
	return out
}

func (c *Catalogue) Category(key string) (Category, bool) {
	i, ok := c.byKey[key]
	if !ok {
		return Category{}, false
	}
	return c.categories[i], true
}

// Entries returns every slot of the category in catalogue order.
func (c *Catalogue) Entries(key string) ([]Entry, error) {
	cat, ok := c.Category(key)
	if !ok {
		return nil, fmt.Errorf("category %q: %w", key, domain.ErrUnknownSlot)
	}
	entries := make([]Entry, 0, len(cat.Slots))
	for i, name := range cat.Slots {
		entries = append(entries, Entry{
			CategoryKey: cat.Key,
			Index:       i + 1,
			Slot:        domain.Slot{Category: cat.Title, Name: name},
		})
	}
	return entries, nil
}

// Lookup resolves a category key and 1-based slot index.
func (c *Catalogue) Lookup(key string, index int) (Entry, error) {
	cat, ok := c.Category(key)
	if !ok {
		return Entry{}, fmt.Errorf("category %q: %w", key, domain.ErrUnknownSlot)
	}
	if index < 1 || index > len(cat.Slots) {
		return Entry{}, fmt.Errorf("slot %d of %q: %w", index, key, domain.ErrUnknownSlot)
	}
	return Entry{
		CategoryKey: cat.Key,
		Index:       index,
		Slot:        domain.Slot{Category: cat.Title, Name: cat.Slots[index-1]},
	}, nil
}

// All returns every slot across all categories.
func (c *Catalogue) All() []Entry {
	var out []Entry
	for _, cat := range c.categories {
		entries, _ := c.Entries(cat.Key)
		out = append(out, entries...)
	}
	return out
}
