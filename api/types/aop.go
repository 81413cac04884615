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
	"context"
	"math"
	"reflect"
)

// The interfaces in this file form the AOP (Aspect Oriented Programming) contract of the engine.
//
//   - They allow adding extra behavior to method calls of a target object without modifying the target's logic.
//   - They allow separating common behaviors (such as logging, metrics, retry, rate limiting) from the business logic.
//
// 本文件中的接口构成引擎的 AOP(面向切面编程，Aspect Oriented Programming)契约。
//
//   - 它允许在不修改目标对象逻辑的情况下，对目标对象的方法调用添加额外的行为。
//   - 它允许把一些公共的行为（例如：日志、指标、重试、限流）从业务逻辑中分离出来。

// OrderUnspecified is the order value of advisors without an explicit order.
// They run after every explicitly ordered advisor, preserving registration order among themselves.
// OrderUnspecified 未显式指定顺序的增强器的顺序值。
// 它们在所有显式排序的增强器之后执行，彼此之间保持注册顺序。
const OrderUnspecified = math.MaxInt32

// ClassFilter restricts a pointcut to a set of target types.
// ClassFilter 把切入点限制到一组目标类型。
type ClassFilter interface {
	// Matches reports whether the pointcut applies to the given target type.
	// Matches 判断切入点是否作用于给定的目标类型。
	Matches(targetType reflect.Type) bool
}

// MethodMatcher restricts a pointcut to a set of target methods.
// Static matching is evaluated once per (method, target type) pair and cached by the chain resolver.
// Dynamic matching, if declared via IsRuntime, is re-evaluated per call with the live arguments.
//
// MethodMatcher 把切入点限制到一组目标方法。
// 静态匹配对每个（方法，目标类型）只评估一次，并由链解析器缓存。
// 如果通过 IsRuntime 声明了动态匹配，则每次调用都会用实时参数重新评估。
type MethodMatcher interface {
	// Matches performs static matching for the given method on the target type.
	// Matches 对目标类型上的给定方法执行静态匹配。
	Matches(method reflect.Method, targetType reflect.Type) bool
	// IsRuntime reports whether MatchesArgs must be consulted per call.
	// Matchers that return false here are never asked for dynamic matching.
	// IsRuntime 报告是否需要在每次调用时咨询 MatchesArgs。
	// 返回 false 的匹配器永远不会进行动态匹配。
	IsRuntime() bool
	// MatchesArgs performs dynamic matching with the live call arguments.
	// It is only called when IsRuntime and the static Matches both returned true,
	// immediately before the candidate advice would run, so it may observe
	// argument mutations made by earlier interceptors in the chain.
	// MatchesArgs 使用实时调用参数执行动态匹配。
	// 仅当 IsRuntime 和静态 Matches 都返回 true 时才会调用，
	// 且在候选增强即将执行之前调用，因此可以观察到链中较早拦截器对参数的修改。
	MatchesArgs(method reflect.Method, targetType reflect.Type, args []interface{}) bool
}

// Pointcut pairs a ClassFilter with a MethodMatcher to select join points.
// Pointcut 将 ClassFilter 与 MethodMatcher 组合起来选择连接点。
type Pointcut interface {
	ClassFilter() ClassFilter
	MethodMatcher() MethodMatcher
}

// Advice is an opaque behavior unit. The engine recognizes the following kinds:
// MethodInterceptor, BeforeAdvice, AfterReturningAdvice and ThrowsAdvice.
// All kinds are normalized into MethodInterceptor by the AdapterRegistry before execution.
//
// Advice 是一个不透明的行为单元。引擎识别以下种类：
// MethodInterceptor、BeforeAdvice、AfterReturningAdvice 和 ThrowsAdvice。
// 所有种类在执行前都由 AdapterRegistry 归一化为 MethodInterceptor。
type Advice interface{}

// MethodInterceptor is around advice: it wraps the whole call and decides
// whether and when to continue via inv.Proceed().
// MethodInterceptor 是环绕增强：它包裹整个调用，并通过 inv.Proceed() 决定是否以及何时继续。
type MethodInterceptor interface {
	Invoke(inv Invocation) ([]interface{}, error)
}

// BeforeAdvice runs before the call. It cannot suppress the call except by returning an error.
// BeforeAdvice 在调用之前执行。除了返回错误之外，它无法阻止调用。
type BeforeAdvice interface {
	Before(inv Invocation) error
}

// AfterReturningAdvice runs only after a normal return and may inspect the result values.
// AfterReturningAdvice 仅在正常返回后执行，可以检查返回值。
type AfterReturningAdvice interface {
	AfterReturning(result []interface{}, inv Invocation) error
}

// ThrowsAdvice runs only after a failure and may inspect it.
// The original failure always propagates unchanged to the caller.
// ThrowsAdvice 仅在失败后执行，可以检查失败信息。
// 原始失败总是原样传播给调用方。
type ThrowsAdvice interface {
	AfterThrowing(err error, inv Invocation)
}

// Ordered is an optional interface for advice that carries its own order,
// the smaller the value, the higher the priority.
// Ordered 是增强自带顺序的可选接口，值越小，优先级越高。
type Ordered interface {
	Order() int
}

// Advisor binds advice to an ordering value, the unit of registration.
// Advisor 把增强与顺序值绑定在一起，是注册的基本单元。
type Advisor interface {
	// Advice returns the behavior unit carried by this advisor.
	// Advice 返回该增强器携带的行为单元。
	Advice() Advice
	// Order returns the execution order, the smaller the value, the higher the priority.
	// Order 返回执行顺序，值越小，优先级越高。
	Order() int
}

// PointcutAdvisor is an advisor driven by a pointcut.
// PointcutAdvisor 由切入点驱动的增强器。
type PointcutAdvisor interface {
	Advisor
	Pointcut() Pointcut
}

// IntroductionAdvisor introduces whole interface implementations to matched types (mixin).
// It has no method matcher because introductions apply to a type as a whole.
// IntroductionAdvisor 为匹配的类型引入完整的接口实现（混入）。
// 它没有方法匹配器，因为引入作用于类型整体。
type IntroductionAdvisor interface {
	Advisor
	// ClassFilter restricts which target types receive the introduction.
	// ClassFilter 限制哪些目标类型接收该引入。
	ClassFilter() ClassFilter
	// Interfaces returns the interface types this introduction adds to the proxy.
	// Interfaces 返回该引入为代理添加的接口类型。
	Interfaces() []reflect.Type
	// ValidateInterfaces checks eagerly that the advice object structurally
	// implements every declared interface. It must fail at registration time,
	// not at first matching call.
	// ValidateInterfaces 预先检查增强对象是否在结构上实现了所有声明的接口。
	// 它必须在注册时失败，而不是在第一次匹配调用时失败。
	ValidateInterfaces() error
}

// TargetSource supplies the real object a proxied call should ultimately reach.
// Implementations may be static (same instance forever) or dynamic (pooled, hot-swappable, lazy).
// Dynamic sources handle their own internal synchronization; the engine only guarantees
// that every successful GetTarget is matched by exactly one ReleaseTarget.
//
// TargetSource 提供被代理调用最终应到达的真实对象。
// 实现可以是静态的（永远同一个实例）或动态的（池化、热替换、惰性）。
// 动态源自行处理内部同步；引擎只保证每次成功的 GetTarget 都有且仅有一次 ReleaseTarget 配对。
type TargetSource interface {
	// TargetType returns the type of targets supplied by this source, or nil if unknown.
	// TargetType 返回该源提供的目标类型，未知时返回 nil。
	TargetType() reflect.Type
	// IsStatic reports whether GetTarget always returns the same object.
	// Static targets are fetched once and cached by the proxy configuration.
	// IsStatic 报告 GetTarget 是否总是返回同一个对象。
	// 静态目标只获取一次并由代理配置缓存。
	IsStatic() bool
	// GetTarget returns a target instance, failing if none is available.
	// GetTarget 返回一个目标实例，不可用时失败。
	GetTarget() (interface{}, error)
	// ReleaseTarget releases a target obtained from GetTarget. No-op for static sources.
	// ReleaseTarget 释放从 GetTarget 获取的目标。静态源为空操作。
	ReleaseTarget(target interface{}) error
}

// Invocation represents one in-flight proxied method call and drives the
// interceptor chain via cooperative continuation.
// Arguments and user attributes are mutable for the remainder of the chain
// from the point of mutation onward.
//
// Invocation 表示一次进行中的被代理方法调用，通过协作式续延驱动拦截器链。
// 参数和用户属性从修改点起对链的剩余部分可见。
type Invocation interface {
	// Method returns the method being invoked.
	// Method 返回正在调用的方法。
	Method() reflect.Method
	// MethodName returns the name of the method being invoked.
	// MethodName 返回正在调用的方法名称。
	MethodName() string
	// Arguments returns the current (possibly interceptor-mutated) call arguments.
	// Arguments 返回当前的调用参数（可能已被拦截器修改）。
	Arguments() []interface{}
	// SetArguments replaces the call arguments for the remainder of the chain.
	// SetArguments 替换链剩余部分使用的调用参数。
	SetArguments(args ...interface{})
	// Target returns the real object the call will reach, or the introduction
	// delegate for introduced methods.
	// Target 返回调用将到达的真实对象，对于引入的方法则返回引入委托对象。
	Target() interface{}
	// TargetType returns the runtime type of the target.
	// TargetType 返回目标的运行时类型。
	TargetType() reflect.Type
	// Proxy returns the proxy this invocation was made through.
	// Proxy 返回发起本次调用的代理。
	Proxy() Proxy
	// Context returns the call context. When the proxy configuration enables
	// ExposeProxy, engine.CurrentProxy(ctx) resolves the proxy from it.
	// Context 返回调用上下文。当代理配置启用 ExposeProxy 时，
	// 可通过 engine.CurrentProxy(ctx) 从中解析出代理。
	Context() context.Context
	// Proceed advances to the next interceptor in the chain, or to the real
	// target method when the chain is exhausted. A failure raised downstream
	// propagates unchanged unless an enclosing interceptor catches it.
	// Proceed 前进到链中的下一个拦截器，链耗尽时调用真实的目标方法。
	// 下游抛出的失败原样向上传播，除非被外层拦截器捕获。
	Proceed() ([]interface{}, error)
	// InvocableClone returns an independent invocation positioned identically,
	// sharing the chain and target but owning its cursor and a copy of the
	// user attributes. Pass replacement arguments to re-drive the joinpoint
	// with a different argument state.
	// InvocableClone 返回一个位置相同的独立调用副本，与原调用共享链和目标，
	// 但拥有自己的游标和用户属性副本。传入替换参数可用不同的参数状态重新驱动连接点。
	InvocableClone(args ...interface{}) Invocation
	// UserAttribute returns the per-call attribute stored under key.
	// UserAttribute 返回以 key 存储的单次调用属性。
	UserAttribute(key string) (interface{}, bool)
	// SetUserAttribute stores a per-call attribute visible to later interceptors.
	// SetUserAttribute 存储对后续拦截器可见的单次调用属性。
	SetUserAttribute(key string, value interface{})
}

// Proxy is the substitute object produced by the proxy factory. Every
// intercepted call routes through the resolved interceptor chain before
// reaching the real target.
//
// Note: if ExposeProxy is disabled, direct calls from inside target code to
// its own other methods bypass the proxy and therefore bypass interception
// entirely. This is a documented semantic boundary of proxy-based weaving.
//
// Proxy 是代理工厂生成的替身对象。每个被拦截的调用在到达真实目标之前，
// 都会经过解析出的拦截器链。
//
// 注意：如果未启用 ExposeProxy，目标代码内部对自身其他方法的直接调用会绕过代理，
// 从而完全绕过拦截。这是基于代理的织入的既定语义边界。
type Proxy interface {
	// Invoke dispatches a call to the named method through the interceptor chain.
	// The trailing error return of the real method, if any, is split off as the
	// invocation error; the remaining return values form the result slice.
	// Invoke 通过拦截器链分发对指定方法的调用。
	// 真实方法末尾的 error 返回值（如有）被拆分为调用错误；其余返回值构成结果切片。
	Invoke(ctx context.Context, methodName string, args ...interface{}) ([]interface{}, error)
	// BindMethod materializes a typed facade: fnPtr must be a pointer to a func
	// variable whose signature matches the proxied method. Calls through the
	// bound func value route through the interceptor chain.
	// BindMethod 生成类型化门面：fnPtr 必须是指向函数变量的指针，其签名与被代理方法一致。
	// 通过绑定的函数值发起的调用会经过拦截器链。
	BindMethod(methodName string, fnPtr interface{}) error
	// Implements reports whether the proxy exposes the given interface type.
	// Implements 报告代理是否暴露给定的接口类型。
	Implements(iface reflect.Type) bool
	// ProxiedInterfaces returns the interfaces exposed by the proxy, including
	// interfaces added by matching introduction advisors.
	// ProxiedInterfaces 返回代理暴露的接口，包括匹配的引入增强器添加的接口。
	ProxiedInterfaces() []reflect.Type
	// TargetClass returns the concrete target type for class proxies, nil for
	// interface proxies, which never expose the concrete type.
	// TargetClass 对类代理返回具体目标类型；接口代理返回 nil，它从不暴露具体类型。
	TargetClass() reflect.Type
	// IsClassProxy reports whether the subclass-style strategy was selected.
	// IsClassProxy 报告是否选择了子类风格的代理策略。
	IsClassProxy() bool
	// ProxyId returns the unique id assigned to this proxy instance.
	// ProxyId 返回分配给该代理实例的唯一 ID。
	ProxyId() string
}

// AdviceAdapter normalizes one advice kind into a MethodInterceptor.
// AdviceAdapter 将一种增强归一化为 MethodInterceptor。
type AdviceAdapter interface {
	// Supports reports whether this adapter understands the given advice.
	// Supports 报告该适配器是否理解给定的增强。
	Supports(advice Advice) bool
	// Adapt wraps the advice into an around-style interceptor.
	// Adapt 将增强包装为环绕风格的拦截器。
	Adapt(advice Advice) MethodInterceptor
}

// AdapterRegistry holds the advice adapters used by the chain resolver.
// It is an explicitly constructed, explicitly passed instance; the composition
// root provides a default-constructed one, there is no lazily-initialized
// global singleton.
// AdapterRegistry 保存链解析器使用的增强适配器。
// 它是显式构造、显式传递的实例；组合根提供默认构造的实例，没有惰性初始化的全局单例。
type AdapterRegistry interface {
	// Register appends an adapter. Later registrations are consulted after earlier ones.
	// Register 追加一个适配器。后注册的适配器在先注册的之后被咨询。
	Register(adapter AdviceAdapter)
	// Adapt normalizes advice into an interceptor, failing with
	// ErrUnknownAdviceType when no adapter supports it.
	// Adapt 将增强归一化为拦截器，没有适配器支持时返回 ErrUnknownAdviceType。
	Adapt(advice Advice) (MethodInterceptor, error)
}

// Advised is the read/write view over a proxy configuration shared by the
// proxy and every invocation spawned from it.
// Advised 是代理配置的读写视图，由代理及其派生的每次调用共享。
type Advised interface {
	// TargetSource returns the single target source of this configuration.
	// TargetSource 返回该配置唯一的目标源。
	TargetSource() TargetSource
	// Advisors returns a copy of the current advisor list to avoid data races.
	// Advisors 返回当前增强器列表的副本以避免数据竞争。
	Advisors() []Advisor
	// AddAdvisor appends an advisor and invalidates the chain cache.
	// Fails with ErrConfigFrozen on a frozen configuration.
	// AddAdvisor 追加一个增强器并使链缓存失效。冻结的配置返回 ErrConfigFrozen。
	AddAdvisor(advisor Advisor) error
	// RemoveAdvisor removes an advisor and invalidates the chain cache.
	// RemoveAdvisor 移除一个增强器并使链缓存失效。
	RemoveAdvisor(advisor Advisor) error
	// IsFrozen reports whether the advisor list and flags are immutable.
	// IsFrozen 报告增强器列表和标志是否不可变。
	IsFrozen() bool
	// IsProxyTargetClass reports whether class proxying was requested.
	// IsProxyTargetClass 报告是否要求类代理。
	IsProxyTargetClass() bool
	// IsExposeProxy reports whether the current proxy is published in the call context.
	// IsExposeProxy 报告当前代理是否发布到调用上下文。
	IsExposeProxy() bool
	// Interfaces returns the declared interface set to expose.
	// Interfaces 返回声明要暴露的接口集合。
	Interfaces() []reflect.Type
}
