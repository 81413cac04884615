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

package weavego

import (
	"fmt"

	"github.com/weavego/weavego/utils/json"
)

// Parser decodes and encodes weave definitions.
// Parser 织入定义的解析器。
type Parser interface {
	DecodeWeave(def []byte) (WeaveDefinition, error)
	EncodeWeave(def WeaveDefinition) ([]byte, error)
}

// JsonParser is the default JSON weave definition parser.
var JsonParser Parser = &jsonParser{}

type jsonParser struct {
}

func (p *jsonParser) DecodeWeave(def []byte) (WeaveDefinition, error) {
	var definition WeaveDefinition
	if err := json.Unmarshal(def, &definition); err != nil {
		return WeaveDefinition{}, err
	}
	seen := make(map[string]struct{}, len(definition.Advisors))
	for _, advisor := range definition.Advisors {
		if advisor.Type == "" {
			return WeaveDefinition{}, fmt.Errorf("advisor %q has no type", advisor.ID)
		}
		if advisor.ID != "" {
			if _, dup := seen[advisor.ID]; dup {
				return WeaveDefinition{}, fmt.Errorf("duplicate advisor id %q", advisor.ID)
			}
			seen[advisor.ID] = struct{}{}
		}
	}
	return definition, nil
}

func (p *jsonParser) EncodeWeave(def WeaveDefinition) ([]byte, error) {
	return json.Marshal(def)
}
