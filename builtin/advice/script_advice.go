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
	"fmt"

	"github.com/weavego/weavego/api/types"
	"github.com/weavego/weavego/utils/js"
	"github.com/weavego/weavego/utils/maps"
)

// ScriptConfig 脚本增强配置
type ScriptConfig struct {
	// Script JavaScript 源码，必须定义 Invoke(inv) 函数。
	// inv 暴露 methodName、args 和 proceed()；Invoke 的返回值作为调用结果，
	// 抛出的异常作为调用错误。
	// 示例：
	//   function Invoke(inv) {
	//     if (inv.methodName == 'Forbidden') {
	//       throw 'not allowed';
	//     }
	//     return inv.proceed();
	//   }
	Script string
}

// Script is around advice written in JavaScript. The script decides whether
// and when to continue through inv.proceed() and may replace the result.
// Execution is bounded by Config.ScriptMaxExecutionTime.
//
// Script 用 JavaScript 编写的环绕增强。脚本通过 inv.proceed() 决定是否以及
// 何时继续，并可以替换结果。执行受 Config.ScriptMaxExecutionTime 限制。
type Script struct {
	// Config 组件配置
	Config ScriptConfig

	engine *js.Engine
}

var _ types.AdviceComponent = (*Script)(nil)
var _ types.MethodInterceptor = (*Script)(nil)

func (a *Script) New() types.AdviceComponent {
	return &Script{}
}

func (a *Script) Type() string {
	return "script"
}

func (a *Script) Init(config types.Config, configuration types.Configuration) error {
	if err := maps.Map2Struct(configuration, &a.Config); err != nil {
		return err
	}
	if a.Config.Script == "" {
		return fmt.Errorf("script advice requires a script")
	}
	engine, err := js.NewEngine(config, a.Config.Script, nil)
	if err != nil {
		return err
	}
	a.engine = engine
	return nil
}

func (a *Script) Advice() types.Advice {
	return a
}

func (a *Script) Invoke(inv types.Invocation) ([]interface{}, error) {
	out, err := a.engine.Execute("Invoke", nil, map[string]interface{}{
		"methodName": inv.MethodName(),
		"args":       inv.Arguments(),
		"proceed": func() ([]interface{}, error) {
			return inv.Proceed()
		},
	})
	if err != nil {
		return nil, err
	}
	switch v := out.(type) {
	case nil:
		return nil, nil
	case []interface{}:
		return v, nil
	default:
		return []interface{}{v}, nil
	}
}
