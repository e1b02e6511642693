package merging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

func TestMergeCreateNew(t *testing.T) {
	merger := NewFieldMerger()

	record := &models.SourceRecord{
		Source:   models.SourceCRM,
		SourceID: "crm-1",
		Name:     "Jane Doe",
		Email:    "jane@acme.io",
		Notes:    "inbound lead",
	}

	contact := merger.Merge(nil, record)
	require.NotNil(t, contact)
	assert.Equal(t, "Jane Doe", contact.Name)
	assert.Equal(t, "jane@acme.io", contact.Email)
	assert.Equal(t, "inbound lead", contact.Notes)
	assert.Equal(t, 1, contact.SourceCount)
	assert.Equal(t, []models.SourceRef{{Source: models.SourceCRM, SourceID: "crm-1"}}, contact.LinkedSources)
}

func TestMergeKeepsLongerName(t *testing.T) {
	merger := NewFieldMerger()

	existing := &models.CanonicalContact{
		ID:            "c1",
		Name:          "Jane Elizabeth Doe",
		LinkedSources: []models.SourceRef{{Source: models.SourceCRM, SourceID: "crm-1"}},
		SourceCount:   1,
	}

	record := &models.SourceRecord{
		Source:   models.SourceForm,
		SourceID: "form-1",
		Name:     "Jane Doe",
	}

	merged := merger.Merge(existing, record)
	assert.Equal(t, "Jane Elizabeth Doe", merged.Name)

	// Longer incoming name wins
	record2 := &models.SourceRecord{
		Source:   models.SourceScheduling,
		SourceID: "sched-1",
		Name:     "Jane Elizabeth Doe-Smithson",
	}
	merged2 := merger.Merge(merged, record2)
	assert.Equal(t, "Jane Elizabeth Doe-Smithson", merged2.Name)
}

func TestMergeNeverOverwritesNonEmptyWithEmpty(t *testing.T) {
	merger := NewFieldMerger()

	existing := &models.CanonicalContact{
		ID:            "c1",
		Name:          "Jane Doe",
		Email:         "jane@acme.io",
		Phone:         "5551234567",
		Company:       "acme.io",
		LinkedSources: []models.SourceRef{{Source: models.SourceCRM, SourceID: "crm-1"}},
		SourceCount:   1,
	}

	record := &models.SourceRecord{
		Source:   models.SourceForm,
		SourceID: "form-1",
		Name:     "Jane",
	}

	merged := merger.Merge(existing, record)
	assert.Equal(t, "jane@acme.io", merged.Email)
	assert.Equal(t, "5551234567", merged.Phone)
	assert.Equal(t, "acme.io", merged.Company)
	assert.Equal(t, "Jane Doe", merged.Name)
}

func TestMergeFillsEmptyFields(t *testing.T) {
	merger := NewFieldMerger()

	existing := &models.CanonicalContact{
		ID:            "c1",
		Name:          "Jane Doe",
		LinkedSources: []models.SourceRef{{Source: models.SourceCRM, SourceID: "crm-1"}},
		SourceCount:   1,
	}

	record := &models.SourceRecord{
		Source:   models.SourceScheduling,
		SourceID: "sched-1",
		Name:     "Jane Doe",
		Email:    "jane@acme.io",
		Phone:    "5551234567",
		Company:  "Acme",
	}

	merged := merger.Merge(existing, record)
	assert.Equal(t, "jane@acme.io", merged.Email)
	assert.Equal(t, "5551234567", merged.Phone)
	assert.Equal(t, "Acme", merged.Company)
}

func TestMergeSourceCountCountsDistinctSources(t *testing.T) {
	merger := NewFieldMerger()

	existing := &models.CanonicalContact{
		ID:   "c1",
		Name: "Jane Doe",
		LinkedSources: []models.SourceRef{
			{Source: models.SourceCRM, SourceID: "crm-1"},
			{Source: models.SourceCRM, SourceID: "crm-2"},
		},
		SourceCount: 1,
	}

	record := &models.SourceRecord{
		Source:   models.SourceForm,
		SourceID: "form-1",
		Name:     "Jane Doe",
	}

	merged := merger.Merge(existing, record)
	assert.Equal(t, 3, len(merged.LinkedSources))
	assert.Equal(t, 2, merged.SourceCount, "two crm records are one source")
}

func TestMergeAppendsNotes(t *testing.T) {
	merger := NewFieldMerger()

	existing := &models.CanonicalContact{
		ID:            "c1",
		Name:          "Jane Doe",
		Notes:         "first note",
		LinkedSources: []models.SourceRef{{Source: models.SourceCRM, SourceID: "crm-1"}},
		SourceCount:   1,
	}

	record := &models.SourceRecord{
		Source:   models.SourceForm,
		SourceID: "form-1",
		Name:     "Jane Doe",
		Notes:    "second note",
	}

	merged := merger.Merge(existing, record)
	assert.Contains(t, merged.Notes, "first note")
	assert.Contains(t, merged.Notes, "second note")
}

func TestMergeMonotonic(t *testing.T) {
	merger := NewFieldMerger()

	contact := merger.Merge(nil, &models.SourceRecord{
		Source:   models.SourceCRM,
		SourceID: "crm-1",
		Name:     "Jane Doe",
		Email:    "jane@acme.io",
	})

	records := []*models.SourceRecord{
		{Source: models.SourceForm, SourceID: "form-1", Name: "Jane"},
		{Source: models.SourceScheduling, SourceID: "sched-1", Name: "Jane D", Phone: "5550001111"},
		{Source: models.SourceForm, SourceID: "form-2", Name: ""},
	}

	for _, record := range records {
		prevLinks := len(contact.LinkedSources)
		prevNonEmpty := countNonEmpty(contact)

		contact = merger.Merge(contact, record)

		assert.GreaterOrEqual(t, len(contact.LinkedSources), prevLinks, "linked sources never shrink")
		assert.GreaterOrEqual(t, countNonEmpty(contact), prevNonEmpty, "non-empty field set never shrinks")
	}
}

func TestMergeDoesNotMutateExisting(t *testing.T) {
	merger := NewFieldMerger()

	existing := &models.CanonicalContact{
		ID:            "c1",
		Name:          "Jane Doe",
		LinkedSources: []models.SourceRef{{Source: models.SourceCRM, SourceID: "crm-1"}},
		SourceCount:   1,
	}

	_ = merger.Merge(existing, &models.SourceRecord{
		Source:   models.SourceForm,
		SourceID: "form-1",
		Name:     "Jane Doe",
	})

	assert.Equal(t, 1, len(existing.LinkedSources))
	assert.Equal(t, 1, existing.SourceCount)
}

func countNonEmpty(c *models.CanonicalContact) int {
	count := 0
	for _, v := range []string{c.Name, c.Email, c.Phone, c.Company, c.Notes} {
		if v != "" {
			count++
		}
	}
	return count
}
