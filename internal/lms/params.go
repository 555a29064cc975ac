package lms

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
)

// params is the nested argument set of one remote function call. The LMS
// endpoint takes flat form fields, so nested maps and slices are flattened
// into bracketed key names: key[index][subkey]=value.
type params map[string]any

func (p params) encode(form url.Values) {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		encodeParam(form, k, p[k])
	}
}

func encodeParam(form url.Values, key string, value any) {
	switch v := value.(type) {
	case nil:
		// omitted
	case map[string]any:
		subkeys := make([]string, 0, len(v))
		for sk := range v {
			subkeys = append(subkeys, sk)
		}
		sort.Strings(subkeys)
		for _, sk := range subkeys {
			encodeParam(form, key+"["+sk+"]", v[sk])
		}
	case []any:
		for i, item := range v {
			encodeParam(form, key+"["+strconv.Itoa(i)+"]", item)
		}
	case string:
		form.Set(key, v)
	case bool:
		if v {
			form.Set(key, "1")
		} else {
			form.Set(key, "0")
		}
	case int:
		form.Set(key, strconv.Itoa(v))
	case int64:
		form.Set(key, strconv.FormatInt(v, 10))
	case float64:
		form.Set(key, strconv.FormatFloat(v, 'f', -1, 64))
	default:
		form.Set(key, fmt.Sprintf("%v", v))
	}
}
