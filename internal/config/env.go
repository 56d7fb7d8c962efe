package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// envOr parses the variable k with parse. Unset, empty and unparsable values
// all yield def.
func envOr[T any](k string, def T, parse func(string) (T, error)) T {
	v, ok := os.LookupEnv(k)
	if !ok || v == "" {
		return def
	}
	out, err := parse(v)
	if err != nil {
		return def
	}
	return out
}

func getenv(k, def string) string {
	return envOr(k, def, func(s string) (string, error) { return s, nil })
}

func getint(k string, def int) int {
	return envOr(k, def, strconv.Atoi)
}

func getfloat(k string, def float64) float64 {
	return envOr(k, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

func getdur(k string, def time.Duration) time.Duration {
	return envOr(k, def, time.ParseDuration)
}

func getbool(k string, def bool) bool {
	return envOr(k, def, parseBool)
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true, nil
	case "0", "false", "no", "n", "off":
		return false, nil
	}
	return false, strconv.ErrSyntax
}

// splitCSV drops blank entries; an empty input gives nil.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalizeBasePath returns p with one leading slash and no trailing one.
// Blank means the root.
func normalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	return "/" + p
}
