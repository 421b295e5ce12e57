package forms

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Values is the raw text a wizard step collects, keyed by field name.
type Values map[string]string

// ValuesFromForm flattens a posted form. Repeated keys (checkbox groups)
// are joined with ", ".
func ValuesFromForm(form url.Values) Values {
	out := make(Values, len(form))
	for key, vals := range form {
		kept := make([]string, 0, len(vals))
		for _, v := range vals {
			if v = strings.TrimSpace(v); v != "" {
				kept = append(kept, v)
			}
		}
		out[key] = strings.Join(kept, ", ")
	}
	return out
}

// MergeValues folds per-step maps into one; later steps win on conflict.
func MergeValues(steps ...Values) Values {
	out := make(Values)
	for _, step := range steps {
		for k, v := range step {
			out[k] = v
		}
	}
	return out
}

func (v Values) Clone() Values {
	return MergeValues(v)
}

func (v Values) Form() url.Values {
	out := make(url.Values, len(v))
	for k, val := range v {
		out.Set(k, val)
	}
	return out
}

func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// phone numbers may carry separators but nothing else
func phoneCharsAllowed(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case strings.ContainsRune(" -+().", r):
		default:
			return false
		}
	}
	return true
}

// parseNumber accepts finite decimals only; NaN and infinities cannot be
// stored as JSON.
func parseNumber(s string) (float64, bool) {
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on", "checked":
		return true, true
	case "false", "0", "no", "off":
		return false, true
	}
	return false, false
}

func matchOption(options []string, v string) (string, bool) {
	for _, o := range options {
		if strings.EqualFold(o, v) {
			return o, true
		}
	}
	return "", false
}
