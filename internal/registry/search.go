package registry

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"
)

type SearchParams struct {
	// ctparam is custom tag for reflect. Please see below.
	Term       string   `ctparam:"query.term"`
	Condition  string   `ctparam:"query.cond"`
	PageSize   int      `ctparam:"pageSize"`
	Fields     []string `ctparam:"fields"`
	Sort       []string `ctparam:"sort"`
	CountTotal bool     `ctparam:"countTotal"`
}

func buildParams(params *SearchParams) url.Values {
	q := url.Values{}
	value := reflect.ValueOf(params).Elem()

	for _, field := range reflect.VisibleFields(value.Type()) {
		key := field.Tag.Get("ctparam")
		if key == "" {
			continue
		}

		fv := value.FieldByIndex(field.Index)
		switch fv.Kind() {
		case reflect.Slice:
			// The registry takes list parameters as one comma separated value.
			if items, ok := fv.Interface().([]string); ok && len(items) > 0 {
				q.Set(key, strings.Join(items, ","))
			}
		case reflect.Bool:
			if fv.Bool() {
				q.Set(key, "true")
			}
		default:
			s := strings.TrimSpace(fmt.Sprintf("%v", fv.Interface()))
			if s != "" && s != "0" {
				q.Set(key, s)
			}
		}
	}

	return q
}
