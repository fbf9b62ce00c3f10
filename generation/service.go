// Package generation submits generation jobs and reads the job history.
// Jobs complete asynchronously; their outcome arrives as a notification.
package generation

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/jrsteele09/go-imagen-client/apiclient"
	"github.com/jrsteele09/go-imagen-client/apimodel"
	ierrors "github.com/jrsteele09/go-imagen-client/internal/errors"
	"github.com/jrsteele09/go-imagen-client/internal/validation"
	"github.com/rs/zerolog"
)

const (
	imagePath     = "/create_image"
	videoPath     = "/video-gen/veo"
	speechPath    = "/text-to-speech"
	historiesPath = "/histories"
	historyPath   = "/history/"

	DefaultItemsPerPage = 10
)

// HistoryQuery selects a page of the history. Zero values use the API
// defaults: every type, DefaultItemsPerPage items, page 1.
type HistoryQuery struct {
	FilterBy     string
	ItemsPerPage int
	Page         int
}

func (q HistoryQuery) values() url.Values {
	v := url.Values{}
	filter := q.FilterBy
	if filter == "" {
		filter = "all"
	}
	perPage := q.ItemsPerPage
	if perPage <= 0 {
		perPage = DefaultItemsPerPage
	}
	page := max(q.Page, 1)
	v.Set("filter_by", filter)
	v.Set("items_per_page", strconv.Itoa(perPage))
	v.Set("page", strconv.Itoa(page))
	return v
}

type Option func(*Service)

func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) {
		s.log = log
	}
}

type Service struct {
	client   *apiclient.Client
	validate *validation.Validator
	log      zerolog.Logger
}

func NewService(client *apiclient.Client, opts ...Option) *Service {
	s := &Service{
		client:   client,
		validate: validation.New(),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TextToImage submits an image job.
func (s *Service) TextToImage(ctx context.Context, req apimodel.ImageRequest) (*apimodel.History, error) {
	return s.submit(ctx, imagePath, req)
}

// TextToVideo submits a video job.
func (s *Service) TextToVideo(ctx context.Context, req apimodel.VideoRequest) (*apimodel.History, error) {
	return s.submit(ctx, videoPath, req)
}

// TextToSpeech submits a speech job. Unset speed, format and channel take
// the values the web client sends.
func (s *Service) TextToSpeech(ctx context.Context, req apimodel.SpeechRequest) (*apimodel.History, error) {
	if req.Speed == 0 {
		req.Speed = 1
	}
	if req.OutputFormat == "" {
		req.OutputFormat = "mp3"
	}
	if req.OutputChannel == "" {
		req.OutputChannel = "mono"
	}
	if req.Voices == nil {
		req.Voices = []apimodel.Voice{}
	}
	return s.submit(ctx, speechPath, req)
}

func (s *Service) submit(ctx context.Context, path string, req any) (*apimodel.History, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	resp, err := s.client.Post(ctx, path, req)
	if err != nil {
		return nil, err
	}
	var job apimodel.History
	if err := resp.Decode(&job); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.log.Info().Str("uuid", job.UUID).Str("type", job.Type).Msg("generation job submitted")
	return &job, nil
}

// Histories returns one page of the job history.
func (s *Service) Histories(ctx context.Context, q HistoryQuery) (*apimodel.HistoryPage, error) {
	resp, err := s.client.Get(ctx, historiesPath, q.values())
	if err != nil {
		return nil, err
	}
	var page apimodel.HistoryPage
	if err := resp.Decode(&page); err != nil {
		return nil, fmt.Errorf("histories: %w", err)
	}
	return &page, nil
}

// History returns a single job.
func (s *Service) History(ctx context.Context, uuid string) (*apimodel.History, error) {
	if uuid == "" {
		return nil, fmt.Errorf("%w: uuid is required", ierrors.ErrInvalidInput)
	}
	resp, err := s.client.Get(ctx, historyPath+url.PathEscape(uuid), nil)
	if err != nil {
		return nil, err
	}
	var h apimodel.History
	if err := resp.Decode(&h); err != nil {
		return nil, fmt.Errorf("history %s: %w", uuid, err)
	}
	return &h, nil
}
