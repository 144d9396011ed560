package service_test

import (
	"net/url"
	"testing"

	"github.com/phrazzld/task-manager-api/internal/service"
	"github.com/phrazzld/task-manager-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTaskQuery(t *testing.T) {
	boolPtr := func(b bool) *bool { return &b }

	tests := []struct {
		name     string
		rawQuery string
		want     store.TaskQuery
	}{
		{
			name:     "empty",
			rawQuery: "",
			want:     store.TaskQuery{},
		},
		{
			name:     "completed true",
			rawQuery: "completed=true",
			want:     store.TaskQuery{Completed: boolPtr(true)},
		},
		{
			name:     "completed false",
			rawQuery: "completed=false",
			want:     store.TaskQuery{Completed: boolPtr(false)},
		},
		{
			name:     "completed with other value means incomplete",
			rawQuery: "completed=yes",
			want:     store.TaskQuery{Completed: boolPtr(false)},
		},
		{
			name:     "sort descending",
			rawQuery: "sortBy=createdAt:desc",
			want:     store.TaskQuery{SortBy: store.SortCreatedAt, SortDesc: true},
		},
		{
			name:     "sort ascending",
			rawQuery: "sortBy=description:asc",
			want:     store.TaskQuery{SortBy: store.SortDescription},
		},
		{
			name:     "sort without direction",
			rawQuery: "sortBy=updated_at",
			want:     store.TaskQuery{SortBy: store.SortUpdatedAt},
		},
		{
			name:     "unknown sort field ignored",
			rawQuery: "sortBy=owner_id:desc",
			want:     store.TaskQuery{},
		},
		{
			name:     "limit and skip",
			rawQuery: "limit=2&skip=4",
			want:     store.TaskQuery{Limit: 2, Skip: 4},
		},
		{
			name:     "non numeric limit and negative skip",
			rawQuery: "limit=ten&skip=-3",
			want:     store.TaskQuery{},
		},
		{
			name:     "everything",
			rawQuery: "completed=true&sortBy=completed:desc&limit=10&skip=0",
			want: store.TaskQuery{
				Completed: boolPtr(true),
				SortBy:    store.SortCompleted,
				SortDesc:  true,
				Limit:     10,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.rawQuery)
			require.NoError(t, err)

			assert.Equal(t, tt.want, service.ParseTaskQuery(values))
		})
	}
}
