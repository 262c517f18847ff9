// Copyright (c) 2025 Cloudflare, Inc.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package schema

import (
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	MetaFile       = "meta.json"
	OffsetsFile    = "offsets.parquet"
	DictionaryFile = "dictionary.parquet"
	ValuesFile     = "values.parquet"
)

var nameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_\-]*$`)

// ValidateName checks that name can be used for a table or a column.
func ValidateName(name string) error {
	return validation.Validate(name,
		validation.Required,
		validation.Length(1, 128),
		validation.Match(nameRe).Error("must start with a letter or underscore and contain only letters, digits, '_' or '-'"),
	)
}

// SplitColumnPath splits an object name of the form <table>/<column>/<file>.
func SplitColumnPath(name string) (string, string, string, bool) {
	parts := strings.Split(name, "/")
	if len(parts) != 3 {
		return "", "", "", false
	}
	table, column, file := parts[0], parts[1], parts[2]
	if ValidateName(table) != nil || ValidateName(column) != nil || file == "" {
		return "", "", "", false
	}
	return table, column, file, true
}

func ColumnPath(table, column string) string {
	return fmt.Sprintf("%s/%s", table, column)
}

func MetaFileNameForColumn(table, column string) string {
	return fmt.Sprintf("%s/%s", ColumnPath(table, column), MetaFile)
}

func OffsetsPfileNameForColumn(table, column string) string {
	return fmt.Sprintf("%s/%s", ColumnPath(table, column), OffsetsFile)
}

func DictionaryPfileNameForColumn(table, column string) string {
	return fmt.Sprintf("%s/%s", ColumnPath(table, column), DictionaryFile)
}

func ValuesPfileNameForColumn(table, column string) string {
	return fmt.Sprintf("%s/%s", ColumnPath(table, column), ValuesFile)
}
