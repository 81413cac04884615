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

package str

import (
	"errors"
	"testing"

	"github.com/weavego/weavego/test/assert"
)

func TestToString(t *testing.T) {
	assert.Equal(t, "", ToString(nil))
	assert.Equal(t, "lala", ToString("lala"))
	assert.Equal(t, "lala", ToString([]byte("lala")))
	assert.Equal(t, "true", ToString(true))
	assert.Equal(t, "5", ToString(5))
	assert.Equal(t, "5", ToString(int64(5)))
	assert.Equal(t, "5.1", ToString(5.1))
	assert.Equal(t, "boom", ToString(errors.New("boom")))
}

func TestContains(t *testing.T) {
	assert.True(t, Contains([]string{"a", "b"}, "b"))
	assert.False(t, Contains([]string{"a", "b"}, "c"))
	assert.False(t, Contains(nil, "a"))
}

func TestRandomStr(t *testing.T) {
	assert.Equal(t, 16, len(RandomStr(16)))
	assert.Equal(t, 0, len(RandomStr(0)))
}

func TestWildcardMatch(t *testing.T) {
	assert.True(t, WildcardMatch("*", "anything"))
	assert.True(t, WildcardMatch("Find*", "FindUser"))
	assert.False(t, WildcardMatch("Find*", "SaveUser"))
	assert.True(t, WildcardMatch("*User", "SaveUser"))
	assert.False(t, WildcardMatch("*User", "SaveOrder"))
	assert.True(t, WildcardMatch("Find*By*", "FindUserById"))
	assert.False(t, WildcardMatch("Find*By*", "FindUser"))
	assert.True(t, WildcardMatch("Exact", "Exact"))
	assert.False(t, WildcardMatch("Exact", "NotExact"))
	assert.True(t, WildcardMatch("Find*", "Find"), "star matches the empty run")
}
