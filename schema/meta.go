// Copyright (c) 2025 Cloudflare, Inc.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package schema

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	jsoniter "github.com/json-iterator/go"
	"github.com/oklog/ulid/v2"

	"github.com/thanos-io/column-codec/offsets"
)

// Meta describes one persisted column. It is written after the data files
// of the column, a column without meta file is incomplete.
type Meta struct {
	ID      ulid.ULID   `json:"id"`
	Table   string      `json:"table"`
	Column  string      `json:"column"`
	Type    ValueType   `json:"type"`
	Storage StorageKind `json:"storage"`

	Rows int64 `json:"rows"`

	// Width of the offsets for dict and for columns.
	Width offsets.Width `json:"width,omitempty"`
	// Minimum is the frame of reference of for columns.
	Minimum int64 `json:"minimum,omitempty"`
	// DictionaryRows and DictionarySorted describe the dictionary of dict columns.
	DictionaryRows   int64 `json:"dictionaryRows,omitempty"`
	DictionarySorted bool  `json:"dictionarySorted,omitempty"`

	UpdatedMs int64 `json:"updatedMs"`
}

func (m Meta) Validate() error {
	encoded := m.Storage == Dict || m.Storage == FOR
	return validation.ValidateStruct(&m,
		validation.Field(&m.Table, validation.By(validName)),
		validation.Field(&m.Column, validation.By(validName)),
		validation.Field(&m.Type,
			validation.Required,
			validation.In(Int8, Int16, Int32, Int64, Float64, String),
			validation.When(m.Storage == FOR, validation.By(integerType)),
		),
		validation.Field(&m.Storage, validation.Required, validation.In(Plain, Dict, FOR)),
		validation.Field(&m.Rows, validation.Min(int64(0))),
		validation.Field(&m.Width,
			validation.When(encoded, validation.Required, validation.In(offsets.Byte, offsets.Short)),
			validation.When(!encoded, validation.Empty),
		),
		validation.Field(&m.DictionaryRows,
			validation.Min(int64(0)),
			validation.When(m.Storage == Dict, validation.Max(int64(offsets.ShortCeiling))),
			validation.When(m.Storage != Dict, validation.Empty),
		),
	)
}

func integerType(v any) error {
	if vt, _ := v.(ValueType); !vt.Integer() {
		return fmt.Errorf("%s columns cannot be stored as %s", vt, FOR)
	}
	return nil
}

func validName(v any) error {
	s, _ := v.(string)
	return ValidateName(s)
}

func EncodeMeta(m Meta) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid meta: %w", err)
	}
	bs, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("unable to marshal meta: %w", err)
	}
	return bs, nil
}

func DecodeMeta(bs []byte) (Meta, error) {
	var m Meta
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(bs, &m); err != nil {
		return Meta{}, fmt.Errorf("unable to unmarshal meta: %w", err)
	}
	if err := m.Validate(); err != nil {
		return Meta{}, fmt.Errorf("invalid meta: %w", err)
	}
	return m, nil
}
