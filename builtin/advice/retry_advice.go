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

package advice

import (
	"time"

	"github.com/weavego/weavego/api/types"
	"github.com/weavego/weavego/utils/maps"
)

// RetryConfig 重试增强配置
type RetryConfig struct {
	// MaxAttempts 最大尝试次数（包含首次调用），默认 3
	MaxAttempts int
	// Delay 两次尝试之间的等待时间，例如 "100ms"，默认不等待
	Delay time.Duration
}

// Retry re-drives the downstream chain on failure, up to MaxAttempts total
// attempts. Every attempt before the last runs on an independent invocation
// clone, so each re-drive starts at the same chain position with the original
// argument state; the last attempt consumes the original invocation.
//
// Retry 在失败时重新驱动下游链，总共最多尝试 MaxAttempts 次。最后一次之前的
// 每次尝试都在独立的调用副本上进行，因此每次重试都从相同的链位置、以原始参数
// 状态开始；最后一次尝试消耗原始调用。
type Retry struct {
	// Config 组件配置
	Config RetryConfig
}

var _ types.AdviceComponent = (*Retry)(nil)
var _ types.MethodInterceptor = (*Retry)(nil)

func (a *Retry) New() types.AdviceComponent {
	return &Retry{Config: RetryConfig{MaxAttempts: 3}}
}

func (a *Retry) Type() string {
	return "retry"
}

func (a *Retry) Init(_ types.Config, configuration types.Configuration) error {
	if err := maps.Map2Struct(configuration, &a.Config); err != nil {
		return err
	}
	if a.Config.MaxAttempts <= 0 {
		a.Config.MaxAttempts = 3
	}
	return nil
}

func (a *Retry) Advice() types.Advice {
	return a
}

func (a *Retry) Invoke(inv types.Invocation) ([]interface{}, error) {
	var result []interface{}
	var err error
	for attempt := 1; attempt <= a.Config.MaxAttempts; attempt++ {
		if attempt == a.Config.MaxAttempts {
			return inv.Proceed()
		}
		result, err = inv.InvocableClone().Proceed()
		if err == nil {
			return result, nil
		}
		if a.Config.Delay > 0 {
			select {
			case <-inv.Context().Done():
				return nil, inv.Context().Err()
			case <-time.After(a.Config.Delay):
			}
		}
	}
	return result, err
}
