package database

import (
	"fmt"
	"strings"
)

// ConstructDatabaseURL combines a base URL and a database name, keeping existing query
// parameters and defaulting to sslmode=disable
func ConstructDatabaseURL(baseURL, databaseName string) string {
	if databaseName == "" {
		return baseURL
	}

	base, query, hasQuery := strings.Cut(strings.TrimRight(baseURL, "/"), "?")
	base = strings.TrimRight(base, "/")

	databaseURL := fmt.Sprintf("%s/%s", base, databaseName)
	if hasQuery {
		databaseURL = fmt.Sprintf("%s?%s", databaseURL, query)
	}

	if !strings.Contains(databaseURL, "sslmode=") {
		separator := "&"
		if !hasQuery {
			separator = "?"
		}
		databaseURL = fmt.Sprintf("%s%ssslmode=disable", databaseURL, separator)
	}

	return databaseURL
}
