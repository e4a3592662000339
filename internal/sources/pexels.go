package sources

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

const defaultPexelsBaseURL = "https://api.pexels.com"

// PexelsConfig describes a Pexels client.
type PexelsConfig struct {
	APIKey     string
	BaseURL    string
	Kind       Kind
	MaxWidth   int
	HTTPClient *http.Client
}

// Pexels searches the Pexels video or photo API.
type Pexels struct {
	apiKey   string
	baseURL  *url.URL
	kind     Kind
	maxWidth int
	http     *http.Client
}

// NewPexels creates a Pexels source. An API key is required.
func NewPexels(cfg PexelsConfig) (*Pexels, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, errors.New("pexels: api key is required")
	}
	base, err := parseBase(cfg.BaseURL, defaultPexelsBaseURL)
	if err != nil {
		return nil, err
	}
	return &Pexels{
		apiKey:   key,
		baseURL:  base,
		kind:     cfg.Kind,
		maxWidth: cfg.MaxWidth,
		http:     clientOrDefault(cfg.HTTPClient),
	}, nil
}

func (p *Pexels) Name() string {
	if p.kind == KindImage {
		return "pexels-photos"
	}
	return "pexels"
}

func (p *Pexels) Kind() Kind { return p.kind }

// Search returns direct file links for up to count results.
func (p *Pexels) Search(ctx context.Context, query string, count int) Result {
	endpoint := p.baseURL.JoinPath("videos", "search")
	if p.kind == KindImage {
		endpoint = p.baseURL.JoinPath("v1", "search")
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", strconv.Itoa(max(1, count)))
	params.Set("orientation", "landscape")
	endpoint.RawQuery = params.Encode()

	body, err := getJSON(ctx, p.http, endpoint, http.Header{"Authorization": {p.apiKey}})
	if err != nil {
		return Failed(p.Name(), err)
	}
	if !gjson.ValidBytes(body) {
		return Failed(p.Name(), errors.New("invalid json response"))
	}

	var locators []string
	if p.kind == KindImage {
		gjson.GetBytes(body, "photos").ForEach(func(_, photo gjson.Result) bool {
			link := photo.Get("src.large2x").String()
			if link == "" {
				link = photo.Get("src.original").String()
			}
			locators = append(locators, link)
			return true
		})
	} else {
		gjson.GetBytes(body, "videos").ForEach(func(_, video gjson.Result) bool {
			locators = append(locators, pickVideoFile(video.Get("video_files"), p.maxWidth))
			return true
		})
	}
	return Found(p.Name(), locators)
}

// pickVideoFile prefers the widest mp4 rendition not exceeding maxWidth and
// falls back to the narrowest wider one.
func pickVideoFile(files gjson.Result, maxWidth int) string {
	var best, smallestAbove string
	bestWidth, aboveWidth := -1, 0
	files.ForEach(func(_, f gjson.Result) bool {
		link := f.Get("link").String()
		if link == "" {
			return true
		}
		if ft := f.Get("file_type").String(); ft != "" && ft != "video/mp4" {
			return true
		}
		width := int(f.Get("width").Int())
		if maxWidth <= 0 || width <= maxWidth {
			if width > bestWidth {
				best, bestWidth = link, width
			}
			return true
		}
		if smallestAbove == "" || width < aboveWidth {
			smallestAbove, aboveWidth = link, width
		}
		return true
	})
	if best != "" {
		return best
	}
	return smallestAbove
}
