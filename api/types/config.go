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

package types

import (
	"math"
	"time"

	"github.com/weavego/weavego/api/pool"
)

// Configuration 增强组件配置类型
type Configuration map[string]interface{}

// Config defines the configuration for the weaving engine.
type Config struct {
	// Logger is the logging interface, defaulting to `DefaultLogger()`.
	Logger Logger
	// Pool is the interface for a coroutine pool used by advice that logs or
	// reports asynchronously. If not configured, the go func method is used by default.
	// The default implementation is `pool.WorkerPool`. It is compatible with ants
	// coroutine pool and can be implemented using ants.
	Pool Pool
	// AdapterRegistry normalizes advice kinds into interceptors.
	// Defaults to the registry built by the composition root.
	AdapterRegistry AdapterRegistry
	// AdviceRegistry resolves advice component types for the declarative surface.
	AdviceRegistry AdviceRegistry
	// ScriptMaxExecutionTime is the maximum execution time for script advice,
	// defaulting to 2000 milliseconds.
	ScriptMaxExecutionTime time.Duration
	// Properties are global properties in key-value format, available to
	// script advice and expression pointcuts under the `global` key.
	Properties map[string]interface{}
	// OnProxyCreated is a callback invoked once per object the auto-proxy
	// creator wrapped, with the object's assigned name and the created proxy.
	OnProxyCreated func(name string, proxy Proxy)
}

// Pool 协程池
type Pool interface {
	// Submit 往协程池提交一个任务，如果协程池满返回错误
	Submit(task func()) error
	// Release 释放
	Release()
}

// AdviceRegistry 增强组件注册器
type AdviceRegistry interface {
	// Register 注册增强组件，如果`advice.Type()`已经存在则返回一个`已存在`错误
	Register(component AdviceComponent) error
	// Unregister 删除增强组件
	Unregister(adviceType string) error
	// NewAdvice 通过adviceType创建一个新的增强实例并应用配置
	NewAdvice(config Config, adviceType string, configuration Configuration) (Advice, error)
	// GetComponents 获取所有注册增强组件列表
	GetComponents() map[string]AdviceComponent
}

// AdviceComponent 可通过声明式配置实例化的增强组件接口
// 把通用的横切行为封装成组件，然后通过织入定义配置方式使用该组件
type AdviceComponent interface {
	// New 创建一个组件新实例，每个织入定义里的增强都会创建一个新的实例，数据是独立的
	New() AdviceComponent
	// Type 组件类型，类型不能重复
	Type() string
	// Init 组件初始化，一般做一些组件参数配置操作
	Init(config Config, configuration Configuration) error
	// Advice 返回该组件承载的增强行为单元
	Advice() Advice
}

// NewConfig creates a new Config with default values and applies the provided options.
func NewConfig(opts ...Option) Config {
	c := &Config{
		ScriptMaxExecutionTime: time.Millisecond * 2000,
		Logger:                 DefaultLogger(),
		Properties:             make(map[string]interface{}),
	}

	for _, opt := range opts {
		_ = opt(c)
	}
	return *c
}

// DefaultPool provides a default coroutine pool.
func DefaultPool() Pool {
	wp := &pool.WorkerPool{MaxWorkersCount: math.MaxInt32}
	wp.Start()
	return wp
}
