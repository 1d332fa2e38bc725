// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package kitstore

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/kit-engine/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(types.StoreConfig{Path: filepath.Join(t.TempDir(), "nested", "kits.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// tick makes each Save observe a later clock.
func tick(s *Store) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	s.now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Minute)
	}
}

func finalKit(title string) types.Kit {
	return types.Kit{
		KitTitle: title,
		Summary:  "summary",
		Type:     types.KitTypeFinal,
		Sections: []types.KitSection{{Name: "Gear", Items: []types.KitItem{
			{ItemKey: "tent", Name: "Tent", SpecsToSearch: []string{"2-person"}, BuyURL: "https://shop.example/tent", Price: "$199.00",
				Match: &types.MatchInfo{Kind: types.MatchRanked, Confidence: 0.9, Reasons: []string{"Direct Keyword Match"}}},
		}}},
	}
}

func TestSaveAndGet(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id, err := s.Save(ctx, "u1", finalKit("Camping"))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "Camping", got.KitTitle)
	assert.Equal(t, finalKit("Camping"), got.Kit)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSaveRejectsNonFinal(t *testing.T) {
	s := testStore(t)
	k := finalKit("Draft")
	k.Type = ""
	_, err := s.Save(context.Background(), "u1", k)
	assert.ErrorIs(t, err, ErrNotFinal)
}

func TestGetUnknown(t *testing.T) {
	_, err := testStore(t).Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListNewestFirstPerUser(t *testing.T) {
	s := testStore(t)
	tick(s)
	ctx := context.Background()

	for _, title := range []string{"first", "second", "third"} {
		_, err := s.Save(ctx, "u1", finalKit(title))
		require.NoError(t, err)
	}
	_, err := s.Save(ctx, "u2", finalKit("other user"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		user  string
		limit int
		want  []string
	}{
		{"all", "u1", 0, []string{"third", "second", "first"}},
		{"limited", "u1", 2, []string{"third", "second"}},
		{"other user", "u2", 10, []string{"other user"}},
		{"unknown user", "nobody", 10, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kits, err := s.List(ctx, tt.user, tt.limit)
			require.NoError(t, err)
			var titles []string
			for _, k := range kits {
				titles = append(titles, k.KitTitle)
			}
			assert.Equal(t, tt.want, titles)
		})
	}
}

func TestExportYAML(t *testing.T) {
	s := testStore(t)
	tick(s)
	ctx := context.Background()

	_, err := s.Save(ctx, "u1", finalKit("Camping"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, s.ExportYAML(ctx, "u1", &buf))

	var got []SavedKit
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Camping", got[0].Kit.KitTitle)
	assert.Equal(t, "https://shop.example/tent", got[0].Kit.Sections[0].Items[0].BuyURL)

	buf.Reset()
	require.NoError(t, s.ExportYAML(ctx, "nobody", &buf))
	assert.Equal(t, "[]\n", buf.String())
}

func TestReopenKeepsKits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kits.db")
	s, err := Open(types.StoreConfig{Path: path})
	require.NoError(t, err)
	id, err := s.Save(context.Background(), "u1", finalKit("Camping"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(types.StoreConfig{Path: path})
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Camping", got.KitTitle)
}
