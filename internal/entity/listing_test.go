package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseStandard(t *testing.T) {
	for _, valid := range []string{"Bronze", "Silver", "Gold"} {
		got, ok := ParseStandard(valid)
		assert.True(t, ok)
		assert.Equal(t, Standard(valid), got)
	}
	for _, invalid := range []string{"", "gold", "Platinum", "All"} {
		_, ok := ParseStandard(invalid)
		assert.False(t, ok, invalid)
	}
}

func TestImagesOrPlaceholder(t *testing.T) {
	withImages := &Listing{Images: []string{"a.jpg"}}
	assert.Equal(t, []string{"a.jpg"}, withImages.ImagesOrPlaceholder())

	empty := &Listing{}
	assert.Equal(t, []string{PlaceholderImageURL}, empty.ImagesOrPlaceholder())
}

func TestDaysListed(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	l := &Listing{CreatedAt: now.Add(-49 * time.Hour)}
	assert.Equal(t, 2, l.DaysListed(now))

	fresh := &Listing{CreatedAt: now}
	assert.Equal(t, 0, fresh.DaysListed(now))

	// Clock skew must not produce negative ages.
	future := &Listing{CreatedAt: now.Add(time.Hour)}
	assert.Equal(t, 0, future.DaysListed(now))
}

func TestNormalizeRole(t *testing.T) {
	assert.Equal(t, RoleAdmin, NormalizeRole("admin"))
	assert.Equal(t, RoleAdmin, NormalizeRole("  ADMIN  "))
	assert.Equal(t, RoleUser, NormalizeRole("user"))
	assert.Equal(t, RoleUser, NormalizeRole("superuser"))
	assert.Equal(t, RoleUser, NormalizeRole(""))
}
