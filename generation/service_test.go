package generation_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/jrsteele09/go-imagen-client/apiclient"
	"github.com/jrsteele09/go-imagen-client/apimodel"
	"github.com/jrsteele09/go-imagen-client/auth"
	"github.com/jrsteele09/go-imagen-client/generation"
	ierrors "github.com/jrsteele09/go-imagen-client/internal/errors"
	"github.com/jrsteele09/go-imagen-client/internal/testsupport/fakeapi"
	"github.com/jrsteele09/go-imagen-client/internal/utils"
	"github.com/jrsteele09/go-imagen-client/session"
	"github.com/jrsteele09/go-imagen-client/storage/repofake"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	api     *fakeapi.Server
	service *generation.Service
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	api, ts := fakeapi.Start(t)
	store, err := session.NewStore(context.Background(), repofake.NewFakeStorageRepo())
	require.NoError(t, err)
	client, err := apiclient.New(ts.URL, store)
	require.NoError(t, err)
	_, err = auth.NewService(client, store).Login(context.Background(), fakeapi.DefaultEmail, fakeapi.DefaultPassword)
	require.NoError(t, err)
	return &testFixture{api: api, service: generation.NewService(client)}
}

func lastBody(t *testing.T, api *fakeapi.Server, path string) map[string]any {
	t.Helper()
	reqs := api.RequestsTo(path)
	require.NotEmpty(t, reqs)
	var body map[string]any
	require.NoError(t, json.Unmarshal(reqs[len(reqs)-1].Body, &body))
	return body
}

func TestTextToImage(t *testing.T) {
	f := setupTestFixture(t)

	job, err := f.service.TextToImage(context.Background(), apimodel.ImageRequest{
		Prompt:     "a red fox in snow",
		Model:      "imagen-4",
		Style:      "photo",
		Dimensions: "1024x1024",
	})
	require.NoError(t, err)
	require.NotEmpty(t, job.UUID)
	require.Equal(t, "image", job.Type)
	require.Equal(t, "a red fox in snow", job.Prompt)
	require.Equal(t, "photo", job.Field("style"))

	body := lastBody(t, f.api, "/create_image")
	require.Equal(t, "1024x1024", body["dimensions"])
}

func TestTextToVideoOmitsUnsetOptions(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.service.TextToVideo(context.Background(), apimodel.VideoRequest{
		Prompt:        "waves at night",
		Model:         "veo-3",
		AspectRatio:   "16:9",
		EnhancePrompt: utils.Ptr(true),
	})
	require.NoError(t, err)

	body := lastBody(t, f.api, "/video-gen/veo")
	require.Equal(t, true, body["enhance_prompt"])
	require.NotContains(t, body, "number_of_videos")
	require.NotContains(t, body, "person_generation")
}

func TestTextToSpeechDefaults(t *testing.T) {
	f := setupTestFixture(t)

	job, err := f.service.TextToSpeech(context.Background(), apimodel.SpeechRequest{Input: "hello there", Model: "tts-1"})
	require.NoError(t, err)
	require.Equal(t, "tts_history", job.Type)

	body := lastBody(t, f.api, "/text-to-speech")
	require.Equal(t, 1.0, body["speed"])
	require.Equal(t, "mp3", body["output_format"])
	require.Equal(t, "mono", body["output_channel"])
	require.Equal(t, []any{}, body["voices"])
}

func TestValidationStopsRequest(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	_, err := f.service.TextToImage(ctx, apimodel.ImageRequest{Model: "imagen-4"})
	require.ErrorIs(t, err, ierrors.ErrInvalidInput)
	require.ErrorContains(t, err, "prompt is required")

	_, err = f.service.TextToVideo(ctx, apimodel.VideoRequest{Prompt: "p", Model: "m", AspectRatio: "4:3"})
	require.ErrorContains(t, err, "aspect_ratio must be one of")

	_, err = f.service.TextToVideo(ctx, apimodel.VideoRequest{Prompt: "p", Model: "m", AspectRatio: "1:1", NumberOfVideos: utils.Ptr(9)})
	require.ErrorContains(t, err, "number_of_videos must be at most 4")

	_, err = f.service.TextToSpeech(ctx, apimodel.SpeechRequest{Input: "x", Model: "m", OutputFormat: "ogg"})
	require.ErrorIs(t, err, ierrors.ErrInvalidInput)

	require.Empty(t, f.api.RequestsTo("/create_image"))
	require.Empty(t, f.api.RequestsTo("/video-gen/veo"))
	require.Empty(t, f.api.RequestsTo("/text-to-speech"))
}

func TestHistories(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	for i := range 12 {
		_, err := f.service.TextToImage(ctx, apimodel.ImageRequest{Prompt: fmt.Sprintf("image %d", i), Model: "m"})
		require.NoError(t, err)
	}
	_, err := f.service.TextToSpeech(ctx, apimodel.SpeechRequest{Input: "speech", Model: "m"})
	require.NoError(t, err)

	page, err := f.service.Histories(ctx, generation.HistoryQuery{})
	require.NoError(t, err)
	require.Equal(t, 13, page.Total)
	require.Len(t, page.Result, 10)
	require.Equal(t, 1, page.CurrentPage)
	require.Equal(t, 2, page.LastPage)

	page, err = f.service.Histories(ctx, generation.HistoryQuery{FilterBy: "image", ItemsPerPage: 5, Page: 3})
	require.NoError(t, err)
	require.Equal(t, 12, page.Total)
	require.Len(t, page.Result, 2)
	require.Equal(t, "image 1", page.Result[0].Prompt)

	q := f.api.RequestsTo("/histories")[0].Query
	require.Equal(t, "all", q.Get("filter_by"))
	require.Equal(t, "10", q.Get("items_per_page"))
	require.Equal(t, "1", q.Get("page"))
}

func TestHistory(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	job, err := f.service.TextToImage(ctx, apimodel.ImageRequest{Prompt: "p", Model: "m"})
	require.NoError(t, err)

	got, err := f.service.History(ctx, job.UUID)
	require.NoError(t, err)
	require.Equal(t, job.UUID, got.UUID)

	_, err = f.service.History(ctx, "missing")
	require.Error(t, err)
	code, ok := apiclient.StatusCode(err)
	require.True(t, ok)
	require.Equal(t, 404, code)
	require.Equal(t, "History not found", apiclient.Message(err))

	_, err = f.service.History(ctx, "")
	require.ErrorIs(t, err, ierrors.ErrInvalidInput)
}
