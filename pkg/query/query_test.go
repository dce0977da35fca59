package query_test

import (
	"testing"

	"github.com/JithendraNara/mission-control/pkg/query"
	"github.com/stretchr/testify/assert"
)

func TestParsePagination(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		plan := query.Parse("", "", "", "")
		assert.Equal(t, 20, plan.Limit)
		assert.Equal(t, 0, plan.Offset)
	})

	t.Run("PageZeroBehavesAsPageOne", func(t *testing.T) {
		plan := query.Parse("0", "10", "", "")
		assert.Equal(t, 0, plan.Offset)
	})

	t.Run("NegativePageBehavesAsPageOne", func(t *testing.T) {
		plan := query.Parse("-3", "10", "", "")
		assert.Equal(t, 0, plan.Offset)
	})

	t.Run("OffsetFromPage", func(t *testing.T) {
		plan := query.Parse("3", "25", "", "")
		assert.Equal(t, 25, plan.Limit)
		assert.Equal(t, 50, plan.Offset)
	})

	t.Run("LimitCappedAtMax", func(t *testing.T) {
		plan := query.Parse("1", "500", "", "")
		assert.Equal(t, query.MaxLimit, plan.Limit)
	})

	t.Run("LimitFloorIsOne", func(t *testing.T) {
		plan := query.Parse("1", "0", "", "")
		assert.Equal(t, 1, plan.Limit)
	})

	t.Run("GarbageFallsBackToDefaults", func(t *testing.T) {
		plan := query.Parse("abc", "xyz", "", "")
		assert.Equal(t, 20, plan.Limit)
		assert.Equal(t, 0, plan.Offset)
	})
}

func TestParseFilter(t *testing.T) {
	t.Run("RecognizedKeysCombine", func(t *testing.T) {
		plan := query.Parse("", "", "status:done,owner:forge", "")
		assert.Equal(t, "done", plan.Predicate.Status)
		assert.Equal(t, "forge", plan.Predicate.Owner)
		assert.Empty(t, plan.Predicate.Priority)
	})

	t.Run("UnknownKeyIgnored", func(t *testing.T) {
		plan := query.Parse("", "", "bogus:x", "")
		assert.Equal(t, query.Predicate{}, plan.Predicate)
	})

	t.Run("MalformedTokensDropped", func(t *testing.T) {
		plan := query.Parse("", "", "status,owner:,:qa,priority:high", "")
		assert.Empty(t, plan.Predicate.Status)
		assert.Empty(t, plan.Predicate.Owner)
		assert.Equal(t, "high", plan.Predicate.Priority)
	})

	t.Run("RepeatedKeyLastWins", func(t *testing.T) {
		plan := query.Parse("", "", "owner:qa,owner:forge", "")
		assert.Equal(t, "forge", plan.Predicate.Owner)
	})

	t.Run("EmptyFilter", func(t *testing.T) {
		plan := query.Parse("", "", "", "")
		assert.Equal(t, query.Predicate{}, plan.Predicate)
	})
}

func TestParseSort(t *testing.T) {
	t.Run("DefaultIsCreatedAtDesc", func(t *testing.T) {
		plan := query.Parse("", "", "", "")
		assert.Equal(t, query.SortCreatedAt, plan.Order.Field)
		assert.True(t, plan.Order.Desc)
	})

	t.Run("PriorityAscending", func(t *testing.T) {
		plan := query.Parse("", "", "", "priority:asc")
		assert.Equal(t, query.SortPriority, plan.Order.Field)
		assert.False(t, plan.Order.Desc)
	})

	t.Run("UpdatedAtAnyOtherDirectionIsDesc", func(t *testing.T) {
		plan := query.Parse("", "", "", "updatedAt:descending")
		assert.Equal(t, query.SortUpdatedAt, plan.Order.Field)
		assert.True(t, plan.Order.Desc)
	})

	t.Run("UnsupportedFieldFallsBack", func(t *testing.T) {
		plan := query.Parse("", "", "", "title:asc")
		assert.Equal(t, query.SortCreatedAt, plan.Order.Field)
		assert.True(t, plan.Order.Desc)
	})
}
