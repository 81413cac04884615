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

// DebugConfig 调用日志增强配置
type DebugConfig struct {
	// Label 日志前缀标签
	Label string
}

// Debug logs every intercepted call with its arguments, outcome and elapsed
// time. Logging happens off the calling goroutine, through the configured
// pool when one is present.
//
// Debug 记录每个被拦截的调用及其参数、结果和耗时。日志在调用协程之外执行，
// 配置了协程池时通过协程池执行。
type Debug struct {
	// Config 组件配置
	Config DebugConfig

	config types.Config
}

var _ types.AdviceComponent = (*Debug)(nil)
var _ types.MethodInterceptor = (*Debug)(nil)

func (a *Debug) New() types.AdviceComponent {
	return &Debug{}
}

func (a *Debug) Type() string {
	return "debug"
}

func (a *Debug) Init(config types.Config, configuration types.Configuration) error {
	a.config = config
	return maps.Map2Struct(configuration, &a.Config)
}

func (a *Debug) Advice() types.Advice {
	return a
}

func (a *Debug) Invoke(inv types.Invocation) ([]interface{}, error) {
	methodName := inv.MethodName()
	arguments := inv.Arguments()
	start := time.Now()
	result, err := inv.Proceed()
	elapsed := time.Since(start)
	a.onLog(func() {
		if err != nil {
			a.config.Logger.Printf("%s %s(%v) failed in %s: %v", a.Config.Label, methodName, arguments, elapsed, err)
		} else {
			a.config.Logger.Printf("%s %s(%v) = %v in %s", a.Config.Label, methodName, arguments, result, elapsed)
		}
	})
	return result, err
}

func (a *Debug) onLog(task func()) {
	if a.config.Pool != nil {
		if err := a.config.Pool.Submit(task); err != nil {
			go task()
		}
	} else {
		go task()
	}
}
