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
	"github.com/weavego/weavego/api/types"
)

// WeaveDefinition is the declarative form of a weaving setup: the behavior
// flags of the proxies to create plus the advisors to apply. Example:
//
//	{
//	  "weave": {
//	    "id": "service_weave",
//	    "exposeProxy": false
//	  },
//	  "advisors": [
//	    {
//	      "id": "call_log",
//	      "type": "debug",
//	      "order": 0,
//	      "pointcut": "methodName startsWith 'Get'",
//	      "configuration": {"label": "svc"}
//	    }
//	  ]
//	}
//
// WeaveDefinition 织入设置的声明式形式：要创建的代理的行为标志加上要应用的增强器。
type WeaveDefinition struct {
	// Weave 织入基础信息
	Weave Weave `json:"weave"`
	// Advisors 增强器定义列表
	Advisors []AdvisorDefinition `json:"advisors"`
}

// Weave 织入基础信息定义
type Weave struct {
	// ID 织入定义 ID
	ID string `json:"id"`
	// ProxyTargetClass forces the class-based proxy strategy.
	// ProxyTargetClass 强制使用基于类的代理策略。
	ProxyTargetClass bool `json:"proxyTargetClass,omitempty"`
	// Optimize opts into aggressive strategy selection.
	// Optimize 启用激进的策略选择。
	Optimize bool `json:"optimize,omitempty"`
	// ExposeProxy publishes the proxy in the call context for re-entrant calls.
	// ExposeProxy 把代理发布到调用上下文以支持重入调用。
	ExposeProxy bool `json:"exposeProxy,omitempty"`
	// Frozen freezes every created proxy configuration, enabling permanent
	// chain caching and rejecting later advisor changes.
	// Frozen 冻结每个创建的代理配置，启用永久链缓存并拒绝后续增强器变更。
	Frozen bool `json:"frozen,omitempty"`
	// AdditionalInfo 扩展字段
	AdditionalInfo map[string]interface{} `json:"additionalInfo,omitempty"`
}

// AdvisorDefinition 单个增强器的声明式定义
type AdvisorDefinition struct {
	// ID 增强器 ID，在同一个织入定义内唯一
	ID string `json:"id"`
	// Type 增强组件类型，对应注册器里的组件 Type()
	Type string `json:"type"`
	// Order 执行顺序，值越小优先级越高；省略时排在所有显式排序的增强器之后
	Order *int `json:"order,omitempty"`
	// Pointcut 切入点表达式，省略时匹配所有方法。
	// 表达式可使用 methodName、typeName、pkgPath，动态表达式可使用 numArgs、args。
	Pointcut string `json:"pointcut,omitempty"`
	// Configuration 组件配置
	Configuration types.Configuration `json:"configuration,omitempty"`
}
