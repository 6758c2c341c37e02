package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/naka-gawa/codestats-box/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockFetcher is a mock implementation of the gateway.StatsFetcher interface.
type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchStats(ctx context.Context, username string) (*domain.StatsSnapshot, error) {
	args := m.Called(ctx, username)
	// The returned snapshot is nil when an error occurs.
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StatsSnapshot), args.Error(1)
}

// mockSink is a mock implementation of the gateway.GistSink interface.
type mockSink struct {
	mock.Mock
}

func (m *mockSink) FetchGist(ctx context.Context, gistID string) (*domain.Gist, error) {
	args := m.Called(ctx, gistID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Gist), args.Error(1)
}

func (m *mockSink) UpdateGist(ctx context.Context, update domain.GistUpdate) error {
	args := m.Called(ctx, update)
	return args.Error(0)
}

func expectedContent(t *testing.T, mode domain.Mode) string {
	lines, err := NewFormatter(DefaultFormatConfig()).Format(sampleSnapshot(), mode)
	require.NoError(t, err)
	return strings.Join(lines, "\n")
}

func TestUpdater_Run(t *testing.T) {
	topTitle := domain.ModeLevelXP.Title()
	content := expectedContent(t, domain.ModeLevelXP)

	testCases := []struct {
		name           string
		request        Request
		withSink       bool
		gist           *domain.Gist
		fetchGistErr   error
		expectedUpdate *domain.GistUpdate
		updateErr      error
		expectedErr    error
		check          func(t *testing.T, res *Result)
	}{
		{
			name:     "dry run - no gist id",
			request:  Request{Username: "jane", Mode: domain.ModeLevelXP},
			withSink: true,
			check: func(t *testing.T, res *Result) {
				assert.True(t, res.DryRun)
				assert.False(t, res.Updated)
				assert.Equal(t, content, res.Content)
				assert.Len(t, res.Lines, 3)
			},
		},
		{
			name:    "dry run - no sink",
			request: Request{Username: "jane", Mode: domain.ModeLevelXP, GistID: "abc123"},
			check: func(t *testing.T, res *Result) {
				assert.True(t, res.DryRun)
			},
		},
		{
			name:     "update - first file is renamed to the title",
			request:  Request{Username: "jane", Mode: domain.ModeLevelXP, GistID: "abc123"},
			withSink: true,
			gist: &domain.Gist{
				ID: "abc123", Description: "old",
				Files: []domain.GistFile{{Name: "codestats.md", Content: "old"}, {Name: "z.md"}},
			},
			expectedUpdate: &domain.GistUpdate{
				GistID: "abc123", Filename: "codestats.md", NewFilename: topTitle,
				Description: topTitle, Content: content,
			},
			check: func(t *testing.T, res *Result) {
				assert.True(t, res.Updated)
				assert.Equal(t, topTitle, res.Filename)
			},
		},
		{
			name:     "update - pinned file keeps its name",
			request:  Request{Username: "jane", Mode: domain.ModeLevelXP, GistID: "abc123", Filename: "card.txt"},
			withSink: true,
			gist: &domain.Gist{
				ID: "abc123", Description: topTitle,
				Files: []domain.GistFile{{Name: "a.md"}, {Name: "card.txt", Content: "old"}},
			},
			expectedUpdate: &domain.GistUpdate{
				GistID: "abc123", Filename: "card.txt", Description: topTitle, Content: content,
			},
			check: func(t *testing.T, res *Result) {
				assert.True(t, res.Updated)
				assert.Equal(t, "card.txt", res.Filename)
			},
		},
		{
			name:     "update - pinned file not among the read files is written",
			request:  Request{Username: "jane", Mode: domain.ModeLevelXP, GistID: "abc123", Filename: "card.txt"},
			withSink: true,
			gist: &domain.Gist{
				ID: "abc123", Description: topTitle,
				Files: []domain.GistFile{{Name: "a.md", Content: content}},
			},
			expectedUpdate: &domain.GistUpdate{
				GistID: "abc123", Filename: "card.txt", Description: topTitle, Content: content,
			},
			check: func(t *testing.T, res *Result) {
				assert.True(t, res.Updated)
				assert.False(t, res.Skipped)
			},
		},
		{
			name:     "skip - content is already up to date",
			request:  Request{Username: "jane", Mode: domain.ModeLevelXP, GistID: "abc123"},
			withSink: true,
			gist: &domain.Gist{
				ID: "abc123", Description: topTitle,
				Files: []domain.GistFile{{Name: topTitle, Content: content}},
			},
			check: func(t *testing.T, res *Result) {
				assert.True(t, res.Skipped)
				assert.False(t, res.Updated)
			},
		},
		{
			name:     "force - writes identical content",
			request:  Request{Username: "jane", Mode: domain.ModeLevelXP, GistID: "abc123", Force: true},
			withSink: true,
			gist: &domain.Gist{
				ID: "abc123", Description: topTitle,
				Files: []domain.GistFile{{Name: topTitle, Content: content}},
			},
			expectedUpdate: &domain.GistUpdate{
				GistID: "abc123", Filename: topTitle, Description: topTitle, Content: content,
			},
			check: func(t *testing.T, res *Result) {
				assert.True(t, res.Updated)
			},
		},
		{
			name:     "update - description changed with same content",
			request:  Request{Username: "jane", Mode: domain.ModeLevelXP, GistID: "abc123"},
			withSink: true,
			gist: &domain.Gist{
				ID: "abc123", Description: "old",
				Files: []domain.GistFile{{Name: topTitle, Content: content}},
			},
			expectedUpdate: &domain.GistUpdate{
				GistID: "abc123", Filename: topTitle, Description: topTitle, Content: content,
			},
		},
		{
			name:         "error case - gist read fails",
			request:      Request{Username: "jane", Mode: domain.ModeLevelXP, GistID: "abc123"},
			withSink:     true,
			fetchGistErr: fmt.Errorf("boom: %w", domain.ErrSinkUnauthorized),
			expectedErr:  domain.ErrSinkUnauthorized,
		},
		{
			name:        "error case - gist without files",
			request:     Request{Username: "jane", Mode: domain.ModeLevelXP, GistID: "abc123"},
			withSink:    true,
			gist:        &domain.Gist{ID: "abc123"},
			expectedErr: domain.ErrSinkNotFound,
		},
		{
			name:     "error case - write fails after a successful read",
			request:  Request{Username: "jane", Mode: domain.ModeLevelXP, GistID: "abc123"},
			withSink: true,
			gist: &domain.Gist{
				ID: "abc123", Files: []domain.GistFile{{Name: topTitle, Content: "old"}},
			},
			expectedUpdate: &domain.GistUpdate{
				GistID: "abc123", Filename: topTitle, Description: topTitle, Content: content,
			},
			updateErr:   fmt.Errorf("boom: %w", domain.ErrSinkUnavailable),
			expectedErr: domain.ErrSinkUnavailable,
		},
		{
			name:        "error case - invalid mode",
			request:     Request{Username: "jane", Mode: domain.Mode("weekly"), GistID: "abc123"},
			withSink:    true,
			expectedErr: domain.ErrInvalidMode,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			ctx := context.Background()
			logger := log.New(io.Discard, "", 0)
			fetcher := new(mockFetcher)
			fetcher.On("FetchStats", mock.Anything, "jane").Return(sampleSnapshot(), nil)

			sink := new(mockSink)
			if tc.gist != nil || tc.fetchGistErr != nil {
				sink.On("FetchGist", mock.Anything, "abc123").Return(tc.gist, tc.fetchGistErr)
			}
			if tc.expectedUpdate != nil {
				sink.On("UpdateGist", mock.Anything, *tc.expectedUpdate).Return(tc.updateErr)
			}

			var updater *Updater
			if tc.withSink {
				updater = NewUpdater(fetcher, sink, NewFormatter(DefaultFormatConfig()), logger)
			} else {
				updater = NewUpdater(fetcher, nil, NewFormatter(DefaultFormatConfig()), logger)
			}

			// --- Act ---
			res, err := updater.Run(ctx, tc.request)

			// --- Assert ---
			if tc.expectedErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tc.expectedErr), "got %v", err)
				assert.Nil(t, res)
			} else {
				require.NoError(t, err)
				require.NotNil(t, res)
				assert.Equal(t, tc.request.Mode.Title(), res.Title)
				if tc.check != nil {
					tc.check(t, res)
				}
			}
			fetcher.AssertExpectations(t)
			sink.AssertExpectations(t)
			if tc.expectedUpdate == nil {
				sink.AssertNotCalled(t, "UpdateGist", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestUpdater_Run_SourceUnavailable(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("FetchStats", mock.Anything, "jane").
		Return(nil, fmt.Errorf("%w: connection refused", domain.ErrSourceUnavailable))
	sink := new(mockSink)

	updater := NewUpdater(fetcher, sink, NewFormatter(DefaultFormatConfig()), log.New(io.Discard, "", 0))
	res, err := updater.Run(context.Background(), Request{Username: "jane", Mode: domain.ModeXP, GistID: "abc123"})

	assert.Nil(t, res)
	assert.True(t, errors.Is(err, domain.ErrSourceUnavailable))
	sink.AssertNotCalled(t, "FetchGist", mock.Anything, mock.Anything)
	sink.AssertNotCalled(t, "UpdateGist", mock.Anything, mock.Anything)
}

func TestUpdater_Run_RecentMode(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("FetchStats", mock.Anything, "jane").Return(sampleSnapshot(), nil)

	updater := NewUpdater(fetcher, nil, NewFormatter(DefaultFormatConfig()), log.New(io.Discard, "", 0))
	res, err := updater.Run(context.Background(), Request{Username: "jane", Mode: domain.ModeRecentXP})

	require.NoError(t, err)
	assert.Equal(t, "💻 My Code::Stats XP (Recent Languages)", res.Title)
	require.Len(t, res.Lines, 3)
	assert.Contains(t, res.Lines[0], "lvl 26 (1,104,152 XP) (+0)")
	assert.Contains(t, res.Lines[1], "(+1,789)")
	assert.Contains(t, res.Lines[2], "(+0)")
}

func TestSummarizeSkills(t *testing.T) {
	sum, median := summarizeSkills(nil)
	assert.Zero(t, sum)
	assert.Zero(t, median)

	sum, median = summarizeSkills([]domain.SkillStat{{TotalXP: 10}, {TotalXP: 30}, {TotalXP: 20}})
	assert.Equal(t, 60.0, sum)
	assert.Equal(t, 20.0, median)
}
