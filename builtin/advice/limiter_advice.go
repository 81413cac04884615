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
	"sync/atomic"

	"github.com/weavego/weavego/api/types"
	"github.com/weavego/weavego/utils/maps"
)

// ConcurrencyLimiterConfig 并发限制增强配置
type ConcurrencyLimiterConfig struct {
	// Max 允许同时进行的调用数，默认 1
	Max int64
}

// ConcurrencyLimiter rejects calls once Max of them are already in flight
// through this advice instance, failing fast with
// types.ErrConcurrencyLimitReached instead of queueing.
//
// ConcurrencyLimiter 当通过本增强实例进行中的调用达到 Max 时拒绝新调用，
// 直接以 types.ErrConcurrencyLimitReached 快速失败，不排队。
type ConcurrencyLimiter struct {
	// Config 组件配置
	Config ConcurrencyLimiterConfig

	inFlight int64
}

var _ types.AdviceComponent = (*ConcurrencyLimiter)(nil)
var _ types.MethodInterceptor = (*ConcurrencyLimiter)(nil)

func (a *ConcurrencyLimiter) New() types.AdviceComponent {
	return &ConcurrencyLimiter{Config: ConcurrencyLimiterConfig{Max: 1}}
}

func (a *ConcurrencyLimiter) Type() string {
	return "concurrencyLimiter"
}

func (a *ConcurrencyLimiter) Init(_ types.Config, configuration types.Configuration) error {
	if err := maps.Map2Struct(configuration, &a.Config); err != nil {
		return err
	}
	if a.Config.Max <= 0 {
		a.Config.Max = 1
	}
	return nil
}

func (a *ConcurrencyLimiter) Advice() types.Advice {
	return a
}

func (a *ConcurrencyLimiter) Invoke(inv types.Invocation) ([]interface{}, error) {
	for {
		current := atomic.LoadInt64(&a.inFlight)
		if current >= a.Config.Max {
			return nil, types.ErrConcurrencyLimitReached
		}
		if atomic.CompareAndSwapInt64(&a.inFlight, current, current+1) {
			break
		}
	}
	defer atomic.AddInt64(&a.inFlight, -1)
	return inv.Proceed()
}

// InFlight returns the number of calls currently inside this limiter.
func (a *ConcurrencyLimiter) InFlight() int64 {
	return atomic.LoadInt64(&a.inFlight)
}
