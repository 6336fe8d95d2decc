package db

import (
	"encoding/json"
	"testing"

	"github.com/jonathan/creator-persona/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeArtifact_CreatorInfo(t *testing.T) {
	info := types.NewDefaultCreatorInfo()
	info.FirstName = "Jane"
	jsonBytes, err := json.Marshal(info)
	require.NoError(t, err)

	var result types.ContentCreatorInfo
	require.NoError(t, decodeArtifact(jsonBytes, &result))
	assert.Equal(t, "Jane", result.FirstName)
	assert.Equal(t, info.Business, result.Business)
}

func TestDecodeArtifact_RankedItems(t *testing.T) {
	items := types.RankedItems{
		Platform: types.PlatformInstagram,
		Items: []types.RankedItem{
			{ContentItem: types.ContentItem{ID: "C1", Platform: types.PlatformInstagram}, RelevanceScore: 80},
		},
	}
	jsonBytes, err := json.Marshal(items)
	require.NoError(t, err)

	var result types.RankedItems
	require.NoError(t, decodeArtifact(jsonBytes, &result))
	require.Len(t, result.Items, 1)
	assert.Equal(t, 80.0, result.Items[0].RelevanceScore)
}

func TestDecodeArtifact_Invalid(t *testing.T) {
	var result types.ContentCreatorInfo
	assert.Error(t, decodeArtifact([]byte("{not json"), &result))
}
