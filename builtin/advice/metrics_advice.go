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
	"github.com/weavego/weavego/api/types"
	"github.com/weavego/weavego/api/types/metrics"
)

// Metrics counts intercepted calls: in-flight, total, succeeded and failed.
// Each component instance owns its own counters.
//
// Metrics 统计被拦截的调用：进行中、总数、成功数和失败数。
// 每个组件实例拥有自己独立的计数器。
type Metrics struct {
	proxyMetrics *metrics.ProxyMetrics
}

var _ types.AdviceComponent = (*Metrics)(nil)
var _ types.MethodInterceptor = (*Metrics)(nil)

func (a *Metrics) New() types.AdviceComponent {
	return &Metrics{proxyMetrics: metrics.NewProxyMetrics()}
}

func (a *Metrics) Type() string {
	return "metrics"
}

func (a *Metrics) Init(_ types.Config, _ types.Configuration) error {
	if a.proxyMetrics == nil {
		a.proxyMetrics = metrics.NewProxyMetrics()
	}
	return nil
}

func (a *Metrics) Advice() types.Advice {
	return a
}

func (a *Metrics) Invoke(inv types.Invocation) ([]interface{}, error) {
	a.proxyMetrics.IncrementCurrent()
	a.proxyMetrics.IncrementTotal()
	defer a.proxyMetrics.DecrementCurrent()
	result, err := inv.Proceed()
	if err != nil {
		a.proxyMetrics.IncrementFailed()
	} else {
		a.proxyMetrics.IncrementSuccess()
	}
	return result, err
}

// Metrics returns a snapshot of the counters.
func (a *Metrics) Metrics() metrics.ProxyMetrics {
	if a.proxyMetrics == nil {
		return metrics.ProxyMetrics{}
	}
	return a.proxyMetrics.Get()
}

// Reset zeroes the counters.
func (a *Metrics) Reset() {
	if a.proxyMetrics != nil {
		a.proxyMetrics.Reset()
	}
}
