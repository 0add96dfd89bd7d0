package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// BuildArchivePath lays out snapshots as
// <namespace>/<table>/date=YYYY-MM-DD/<table>-<unix>.<ext>.
func BuildArchivePath(namespace, tableName string, runTime time.Time, extension string) (string, error) {
	if err := validatePathComponent(namespace, "namespace"); err != nil {
		return "", err
	}
	if err := validatePathComponent(tableName, "table name"); err != nil {
		return "", err
	}
	extension = strings.TrimPrefix(strings.TrimSpace(extension), ".")
	if err := validatePathComponent(extension, "extension"); err != nil {
		return "", err
	}

	ts := runTime.UTC()
	return path.Join(
		namespace,
		tableName,
		fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		fmt.Sprintf("%s-%d.%s", tableName, ts.Unix(), extension),
	), nil
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
