package server

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/creator-persona/internal/db"
	"github.com/jonathan/creator-persona/internal/types"
)

func (f *fakeStore) GetCreatorInfoByRunID(_ context.Context, _ uuid.UUID, platform types.Platform) (*types.ContentCreatorInfo, error) {
	return f.infos[string(platform)], f.err
}

func (f *fakeStore) GetMergedInfoByRunID(_ context.Context, _ uuid.UUID) (*types.ContentCreatorInfo, error) {
	return f.infos[db.StepMergedInfo], f.err
}

func (f *fakeStore) GetRankedItemsByRunID(_ context.Context, _ uuid.UUID, platform types.Platform) (*types.RankedItems, error) {
	return f.ranked[platform], f.err
}

func (f *fakeStore) GetTranscriptsByRunID(_ context.Context, _ uuid.UUID, platform types.Platform) ([]types.TranscriptRecord, error) {
	return f.transcripts[platform], f.err
}

func (f *fakeStore) GetTextArtifact(_ context.Context, _ uuid.UUID, step string) (string, error) {
	return f.texts[step], f.err
}

func outputsFixture() (*fakeStore, uuid.UUID) {
	store := newFakeStore()
	id := uuid.New()
	store.runs[id] = &db.Run{ID: id, Creator: "Ana", Status: db.RunStatusPartial}

	merged := types.NewDefaultCreatorInfo()
	merged.FirstName = "Ana"
	merged.LastName = "Silva"
	store.infos[db.StepMergedInfo] = merged

	yt := types.NewDefaultCreatorInfo()
	yt.FirstName = "Ana"
	store.infos[string(types.PlatformYouTube)] = yt

	store.ranked[types.PlatformYouTube] = &types.RankedItems{
		Platform: types.PlatformYouTube,
		Creator:  "Ana",
		Items:    []types.RankedItem{{ContentItem: types.ContentItem{ID: "v1", Platform: types.PlatformYouTube}, RelevanceScore: 90}},
	}
	store.transcripts[types.PlatformYouTube] = []types.TranscriptRecord{{SourceItemID: "v1", Text: "hello bakers"}}
	store.texts[db.StepReport] = "# Ana Silva\n"
	return store, id
}

func TestCreatorInfoEndpoint(t *testing.T) {
	store, id := outputsFixture()
	s := newTestServer(Deps{Store: store})
	base := "/runs/" + id.String()

	rec := do(t, s, http.MethodGet, base+"/creator-info", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var info types.ContentCreatorInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "Silva", info.LastName)

	rec = do(t, s, http.MethodGet, base+"/creator-info?platform=youtube", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"first_name":"Ana"`)

	rec = do(t, s, http.MethodGet, base+"/creator-info?platform=instagram", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodGet, base+"/creator-info?platform=tiktok", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRankedAndTranscriptEndpoints(t *testing.T) {
	store, id := outputsFixture()
	s := newTestServer(Deps{Store: store})
	base := "/runs/" + id.String()

	rec := do(t, s, http.MethodGet, base+"/ranked?platform=youtube", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var ranked types.RankedItems
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ranked))
	require.Len(t, ranked.Items, 1)
	assert.Equal(t, 90.0, ranked.Items[0].RelevanceScore)

	rec = do(t, s, http.MethodGet, base+"/ranked", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "platform is required")

	rec = do(t, s, http.MethodGet, base+"/ranked?platform=instagram", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodGet, base+"/transcripts?platform=youtube", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Transcripts []types.TranscriptRecord `json:"transcripts"`
		Count       int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "hello bakers", body.Transcripts[0].Text)

	rec = do(t, s, http.MethodGet, base+"/transcripts?platform=instagram", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"transcripts":[]`)
}

func TestTextOutputEndpoints(t *testing.T) {
	store, id := outputsFixture()
	s := newTestServer(Deps{Store: store})
	base := "/runs/" + id.String()

	rec := do(t, s, http.MethodGet, base+"/report", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/markdown; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "# Ana Silva\n", rec.Body.String())

	rec = do(t, s, http.MethodGet, base+"/persona", "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "persona was not rendered for this run")

	rec = do(t, s, http.MethodGet, "/runs/"+uuid.NewString()+"/report", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOutputEndpoints_WithoutStore(t *testing.T) {
	s := newTestServer(Deps{})
	rec := do(t, s, http.MethodGet, "/runs/"+uuid.NewString()+"/creator-info", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
