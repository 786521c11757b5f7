package registry

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"

	"github.com/mitchellh/mapstructure"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	acceptType      = "application/json"
	contentEncoding = "gzip"
)

type StudiesResponse struct {
	// Studies stays nil when the key is absent or null so that case can be told apart from an
	// empty page.
	Studies       []Item `json:"studies"`
	NextPageToken string `json:"nextPageToken"`
	TotalCount    int    `json:"totalCount"`
}

type Item interface{}

func (c *Client) search(ctx context.Context, params *SearchParams) ([]*Study, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.APIURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}

	req = c.setHeaders(req)
	req.URL.RawQuery = buildParams(params).Encode()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.request(ctx, req)
		if err != nil {
			return nil, err
		}

		return c.parseStudiesResponse(resp)
	})
	if err != nil {
		return nil, err
	}

	response := result.(*StudiesResponse)

	c.logger.Debug("got response from registry",
		zap.Int("studies", len(response.Studies)),
		zap.Int("total", response.TotalCount),
	)

	if response.NextPageToken != "" {
		c.logger.Debug("result set truncated at page size",
			zap.Int("page_size", params.PageSize),
			zap.Int("total", response.TotalCount),
		)
	}

	return c.decodeStudies(response.Studies), nil
}

func (c *Client) request(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "rate limiter wait")
	}

	c.logger.Debug("make request", zap.String("url", req.URL.String()))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "registry request")
	}

	return resp, nil
}

func (c *Client) parseStudiesResponse(resp *http.Response) (*StudiesResponse, error) {
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, eris.Wrapf(ErrBadStatus, "status %s", resp.Status)
	}

	var body io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, eris.Wrapf(ErrMalformedPayload, "open gzip body: %v", err)
		}
		defer gz.Close()
		body = gz
	}

	var response StudiesResponse
	if err := json.NewDecoder(body).Decode(&response); err != nil {
		return nil, eris.Wrapf(ErrMalformedPayload, "decode body: %v", err)
	}

	if response.Studies == nil {
		return nil, eris.Wrap(ErrMalformedPayload, "no studies list in body")
	}

	return &response, nil
}

// decodeStudies converts the generic items into studies. A field whose JSON shape does not fit
// is left empty; an item is dropped only when it cannot be decoded into a study with an id.
func (c *Client) decodeStudies(items []Item) []*Study {
	studies := make([]*Study, 0, len(items))

	for idx, item := range items {
		study, malformed, err := decodeStudy(item)
		if err != nil {
			var fieldErr *mapstructure.Error
			if !errors.As(err, &fieldErr) || study.NCTID() == "" {
				c.logger.Warn("skipping undecodable study",
					zap.Int("index", idx),
					zap.Error(err),
				)
				continue
			}

			c.logger.Warn("keeping study with undecodable fields",
				zap.String("nct_id", study.NCTID()),
				zap.Strings("errors", fieldErr.Errors),
			)
		}

		if malformed > 0 && study.NCTID() == "" {
			c.logger.Warn("skipping undecodable study",
				zap.Int("index", idx),
				zap.Int("malformed_fields", malformed),
			)
			continue
		}

		if malformed > 0 {
			c.logger.Warn("ignoring malformed fields of study",
				zap.String("nct_id", study.NCTID()),
				zap.Int("fields", malformed),
			)
		}

		studies = append(studies, study)
	}

	return studies
}

// decodeStudy returns the study decoded so far even when err is set, together with the number
// of values that were replaced by their empty form.
func decodeStudy(item Item) (*Study, int, error) {
	var study Study
	malformed := 0

	cfg := &mapstructure.DecoderConfig{
		Result:           &study,
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.DecodeHookFuncType(func(from, to reflect.Type, data interface{}) (interface{}, error) {
			replaced, ok := emptyOnMismatch(from, to)
			if !ok {
				return data, nil
			}
			malformed++
			return replaced, nil
		}),
	}

	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, 0, err
	}

	if err := decoder.Decode(item); err != nil {
		return &study, malformed, err
	}

	return &study, malformed, nil
}

// emptyOnMismatch returns the empty form of the target when a JSON value can never be
// converted into it: objects or lists where text is expected, objects where a list is
// expected, anything but an object where a module is expected.
func emptyOnMismatch(from, to reflect.Type) (interface{}, bool) {
	fromKind := from.Kind()

	switch to.Kind() {
	case reflect.String:
		if fromKind == reflect.Map || fromKind == reflect.Slice {
			return "", true
		}
	case reflect.Slice:
		if fromKind == reflect.Map {
			return []interface{}{}, true
		}
	case reflect.Struct:
		if fromKind != reflect.Map {
			return map[string]interface{}{}, true
		}
	case reflect.Ptr:
		if to.Elem().Kind() == reflect.Struct && fromKind != reflect.Map {
			return map[string]interface{}{}, true
		}
	}

	return nil, false
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", acceptType)
	req.Header.Set("Accept-Encoding", contentEncoding)

	return req
}
