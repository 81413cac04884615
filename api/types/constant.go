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

import "errors"

var (
	// ErrConfigFrozen is returned when a frozen proxy configuration is mutated.
	// ErrConfigFrozen 修改已冻结的代理配置时返回。
	ErrConfigFrozen = errors.New("the proxy configuration is frozen")

	// ErrNoTargetClass is returned when class proxying is required but no
	// concrete target type is resolvable from the target source.
	// ErrNoTargetClass 需要类代理但无法从目标源解析出具体目标类型时返回。
	ErrNoTargetClass = errors.New("class proxying requires a resolvable concrete target type")

	// ErrUnknownAdviceType is returned when no registered adapter supports an advice kind.
	// ErrUnknownAdviceType 没有已注册的适配器支持某种增强时返回。
	ErrUnknownAdviceType = errors.New("advice type is neither a supported advice nor an interceptor")

	// ErrUnknownMethod is returned when a proxy is invoked with a method name
	// outside its dispatch table.
	// ErrUnknownMethod 使用分发表之外的方法名调用代理时返回。
	ErrUnknownMethod = errors.New("method is not exposed by the proxy")

	// ErrPointcutEvaluation is returned when a predicate itself fails during
	// evaluation. It is a configuration error, never a silent non-match.
	// ErrPointcutEvaluation 谓词自身在评估过程中失败时返回。
	// 这是配置错误，绝不会被静默当作"不匹配"。
	ErrPointcutEvaluation = errors.New("pointcut evaluation failed")

	// ErrTargetUnavailable is returned by dynamic target sources when no
	// target can be supplied for the current call.
	// ErrTargetUnavailable 动态目标源无法为当前调用提供目标时返回。
	ErrTargetUnavailable = errors.New("target is unavailable")

	// ErrIntroductionNotImplemented is returned at registration time when an
	// introduction advice object does not implement a declared interface.
	// ErrIntroductionNotImplemented 引入增强对象未实现声明的接口时在注册阶段返回。
	ErrIntroductionNotImplemented = errors.New("introduction advice does not implement a declared interface")

	// ErrConcurrencyLimitReached is returned by the concurrency limiter advice.
	// ErrConcurrencyLimitReached 由并发限制增强返回。
	ErrConcurrencyLimitReached = errors.New("concurrency limit reached")
)
