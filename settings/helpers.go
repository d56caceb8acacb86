package settings

import (
	"strconv"
	"time"

	"github.com/ordishs/gocore"
)

// lookup parses the raw config value for key, returning defaultValue when the
// key is unset or does not parse.
func lookup[T any](key string, defaultValue T, parse func(string) (T, error)) T {
	raw, found := gocore.Config().Get(key)
	if !found {
		return defaultValue
	}

	v, err := parse(raw)
	if err != nil {
		return defaultValue
	}

	return v
}

func getString(key, defaultValue string) string {
	return lookup(key, defaultValue, func(s string) (string, error) { return s, nil })
}

func getInt(key string, defaultValue int) int {
	return lookup(key, defaultValue, strconv.Atoi)
}

func getUint64(key string, defaultValue uint64) uint64 {
	return lookup(key, defaultValue, func(s string) (uint64, error) {
		return strconv.ParseUint(s, 10, 64)
	})
}

func getFloat64(key string, defaultValue float64) float64 {
	return lookup(key, defaultValue, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

// getBool accepts what gocore accepts, e.g. "true", "1", "on".
func getBool(key string, defaultValue bool) bool {
	return gocore.Config().GetBool(key, defaultValue)
}

// getDuration reads a Go duration string, e.g. "10m".
func getDuration(key string, defaultValue time.Duration) time.Duration {
	return lookup(key, defaultValue, time.ParseDuration)
}
