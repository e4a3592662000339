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

const defaultPixabayBaseURL = "https://pixabay.com/api"

// Pixabay rejects per_page values outside this range.
const (
	pixabayMinPerPage = 3
	pixabayMaxPerPage = 200
)

// PixabayConfig describes a Pixabay client.
type PixabayConfig struct {
	APIKey     string
	BaseURL    string
	Kind       Kind
	HTTPClient *http.Client
}

// Pixabay searches the Pixabay video or image API.
type Pixabay struct {
	apiKey  string
	baseURL *url.URL
	kind    Kind
	http    *http.Client
}

// NewPixabay creates a Pixabay source. An API key is required.
func NewPixabay(cfg PixabayConfig) (*Pixabay, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, errors.New("pixabay: api key is required")
	}
	base, err := parseBase(cfg.BaseURL, defaultPixabayBaseURL)
	if err != nil {
		return nil, err
	}
	return &Pixabay{apiKey: key, baseURL: base, kind: cfg.Kind, http: clientOrDefault(cfg.HTTPClient)}, nil
}

func (p *Pixabay) Name() string {
	if p.kind == KindImage {
		return "pixabay-images"
	}
	return "pixabay"
}

func (p *Pixabay) Kind() Kind { return p.kind }

// Search returns direct file links for up to count results.
func (p *Pixabay) Search(ctx context.Context, query string, count int) Result {
	endpoint := p.baseURL.JoinPath("/")
	if p.kind == KindVideo {
		endpoint = p.baseURL.JoinPath("videos", "/")
	}
	params := url.Values{}
	params.Set("key", p.apiKey)
	params.Set("q", query)
	params.Set("per_page", strconv.Itoa(min(pixabayMaxPerPage, max(pixabayMinPerPage, count))))
	params.Set("safesearch", "true")
	if p.kind == KindImage {
		params.Set("image_type", "photo")
		params.Set("orientation", "horizontal")
	}
	endpoint.RawQuery = params.Encode()

	body, err := getJSON(ctx, p.http, endpoint, nil)
	if err != nil {
		return Failed(p.Name(), err)
	}
	if !gjson.ValidBytes(body) {
		return Failed(p.Name(), errors.New("invalid json response"))
	}

	var locators []string
	gjson.GetBytes(body, "hits").ForEach(func(_, hit gjson.Result) bool {
		if len(locators) >= count && count > 0 {
			return false
		}
		if p.kind == KindImage {
			link := hit.Get("largeImageURL").String()
			if link == "" {
				link = hit.Get("webformatURL").String()
			}
			locators = append(locators, link)
			return true
		}
		for _, size := range []string{"large", "medium", "small", "tiny"} {
			if link := hit.Get("videos." + size + ".url").String(); link != "" {
				locators = append(locators, link)
				break
			}
		}
		return true
	})
	return Found(p.Name(), locators)
}
