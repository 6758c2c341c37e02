package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/naka-gawa/codestats-box/internal/domain"
	"github.com/tidwall/gjson"
)

// DefaultCodeStatsURL is the public Code::Stats instance.
const DefaultCodeStatsURL = "https://codestats.net"

const (
	// levelFactor is the Code::Stats level curve: level = floor(0.025 * sqrt(xp)).
	levelFactor = 0.025
	// maxResponseBytes bounds how much of a profile response is read.
	maxResponseBytes = 8 << 20
	userAgent        = "codestats-box"
)

// StatsFetcher defines the behavior of a gateway for fetching a user's stats.
type StatsFetcher interface {
	FetchStats(ctx context.Context, username string) (*domain.StatsSnapshot, error)
}

// CodeStatsGateway reads public profiles from the Code::Stats API.
type CodeStatsGateway struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *log.Logger
}

// profileResponse is the typed part of GET /api/users/{user}.
// Pointers distinguish a missing field from a zero value.
type profileResponse struct {
	User    string `json:"user"`
	TotalXP *int64 `json:"total_xp"`
	NewXP   *int64 `json:"new_xp"`
}

// languageXP is one value of the "languages" object.
type languageXP struct {
	XPs    *int64 `json:"xps"`
	NewXPs *int64 `json:"new_xps"`
}

// NewCodeStatsGateway creates a gateway for the Code::Stats instance at baseURL.
// A nil httpClient uses http.DefaultClient.
func NewCodeStatsGateway(baseURL string, httpClient *http.Client, logger *log.Logger) (StatsFetcher, error) {
	if baseURL == "" {
		baseURL = DefaultCodeStatsURL
	}
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid Code::Stats URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid Code::Stats URL %q: scheme must be http or https", baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &CodeStatsGateway{
		baseURL:    u,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// FetchStats issues a single GET for the user's profile and decodes it.
// The snapshot is either complete or not returned at all.
func (g *CodeStatsGateway) FetchStats(ctx context.Context, username string) (*domain.StatsSnapshot, error) {
	if strings.TrimSpace(username) == "" {
		return nil, errors.New("code::stats username must not be empty")
	}
	endpoint := g.baseURL.JoinPath("api", "users", url.PathEscape(username))
	g.logger.Printf("Fetching Code::Stats profile from %s", endpoint.Redacted())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build request: %v", domain.ErrSourceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", domain.ErrSourceUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := gjson.GetBytes(body, "error").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrSourceUnavailable, resp.StatusCode, msg)
	}

	snapshot, err := decodeProfile(body)
	if err != nil {
		return nil, err
	}
	if snapshot.Username == "" {
		snapshot.Username = username
	}
	g.logger.Printf("Completed fetching Code::Stats profile: %d languages.", len(snapshot.Skills))
	return snapshot, nil
}

// decodeProfile strictly decodes a profile body. Languages keep their
// document order so later sorting can be stable on it.
func decodeProfile(body []byte) (*domain.StatsSnapshot, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: body is not valid JSON", domain.ErrSourceMalformed)
	}

	var profile profileResponse
	if err := sonic.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceMalformed, err)
	}
	if err := requireCount("total_xp", profile.TotalXP); err != nil {
		return nil, err
	}
	if err := requireCount("new_xp", profile.NewXP); err != nil {
		return nil, err
	}

	languages := gjson.GetBytes(body, "languages")
	if !languages.IsObject() {
		return nil, fmt.Errorf("%w: missing \"languages\" object", domain.ErrSourceMalformed)
	}

	skills := make([]domain.SkillStat, 0)
	var decodeErr error
	languages.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		var lang languageXP
		if err := sonic.UnmarshalString(value.Raw, &lang); err != nil {
			decodeErr = fmt.Errorf("%w: language %q: %v", domain.ErrSourceMalformed, name, err)
			return false
		}
		if err := requireCount("languages."+name+".xps", lang.XPs); err != nil {
			decodeErr = err
			return false
		}
		if err := requireCount("languages."+name+".new_xps", lang.NewXPs); err != nil {
			decodeErr = err
			return false
		}
		skills = append(skills, domain.SkillStat{
			Name:     name,
			TotalXP:  *lang.XPs,
			Level:    levelForXP(*lang.XPs),
			RecentXP: *lang.NewXPs,
		})
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}

	return &domain.StatsSnapshot{
		Username:      profile.User,
		TotalXP:       *profile.TotalXP,
		TotalLevel:    levelForXP(*profile.TotalXP),
		RecentTotalXP: *profile.NewXP,
		Skills:        skills,
	}, nil
}

func requireCount(field string, v *int64) error {
	if v == nil {
		return fmt.Errorf("%w: missing %q", domain.ErrSourceMalformed, field)
	}
	if *v < 0 {
		return fmt.Errorf("%w: negative %q: %d", domain.ErrSourceMalformed, field, *v)
	}
	return nil
}

// levelForXP applies the Code::Stats level curve.
func levelForXP(xp int64) int {
	return int(math.Floor(levelFactor * math.Sqrt(float64(xp))))
}
