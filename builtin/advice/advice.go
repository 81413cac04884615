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

// Package advice provides the builtin advice components usable from weave
// definitions: call logging, call metrics, retry, concurrency limiting and
// script-driven interception.
//
// advice 包提供织入定义可使用的内置增强组件：调用日志、调用指标、重试、
// 并发限制和脚本驱动的拦截。
package advice

import (
	"github.com/weavego/weavego/api/types"
)

// Components returns a fresh instance of every builtin advice component,
// keyed by their Type() when registered.
func Components() []types.AdviceComponent {
	return []types.AdviceComponent{
		&Debug{},
		&Metrics{},
		&Retry{},
		&ConcurrencyLimiter{},
		&Script{},
	}
}
