/*
 * Copyright 2024 The WeaveGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package maps decodes loosely-typed configuration maps into typed structs.
// It is used by the weave-definition parser to populate advice configuration.
package maps

import (
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Map2Struct takes an input structure and uses reflection to translate it to
// the output structure. output must be a pointer to a map or struct.
// Numeric values are converted weakly (JSON numbers arrive as float64) and
// duration fields accept strings like "5s".
// Map2Struct 把松散类型的输入转换到输出结构体。输出必须是指向 map 或结构体的指针。
func Map2Struct(input interface{}, output interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           output,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// Get returns the value stored under a dot-separated field path, or nil when
// the path cannot be resolved. Supports map[string]interface{} and
// map[string]string values at every level.
// Get 返回点号分隔路径下存储的值，路径无法解析时返回 nil。
func Get(value interface{}, fieldName string) interface{} {
	if fieldName == "" {
		return nil
	}
	current := value
	for _, key := range strings.Split(fieldName, ".") {
		switch m := current.(type) {
		case map[string]interface{}:
			v, ok := m[key]
			if !ok {
				return nil
			}
			current = v
		case map[string]string:
			v, ok := m[key]
			if !ok {
				return nil
			}
			current = v
		default:
			return nil
		}
	}
	return current
}
